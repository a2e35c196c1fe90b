package controller

import (
	"github.com/Freeeeeet/clinic_booking/internal/controller/handlers"
	"github.com/Freeeeeet/clinic_booking/internal/controller/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig holds what the HTTP surface needs besides the services.
type RouterConfig struct {
	AdminSecret  string
	BookingRPS   float64
	BookingBurst int
}

// NewRouter registers every HTTP route.
func NewRouter(
	availability handlers.AvailabilityService,
	booking handlers.BookingService,
	db handlers.Pinger,
	cfg RouterConfig,
	logger *zap.Logger,
) *gin.Engine {
	h := handlers.NewHandlers(availability, booking, db, logger)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.Metrics())

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/availability", h.GetAvailability)
		api.GET("/therapists", h.GetTherapists)
		api.GET("/reservations/:id", h.GetReservation)

		book := []gin.HandlerFunc{h.CreateBooking}
		if cfg.BookingRPS > 0 {
			limiter := middleware.NewRateLimiter(cfg.BookingRPS, cfg.BookingBurst)
			book = append([]gin.HandlerFunc{limiter.Limit()}, book...)
		}
		api.POST("/availability", book...)
	}

	admin := r.Group("/api/admin")
	admin.Use(middleware.AdminAuth(cfg.AdminSecret))
	{
		admin.GET("/availability", h.ListSlots)
		admin.POST("/availability", h.CreateSlot)
		admin.GET("/therapists", h.ListTherapists)
	}

	return r
}
