package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/config"
	"github.com/Freeeeeet/clinic_booking/internal/controller"
	"github.com/Freeeeeet/clinic_booking/internal/notify"
	"github.com/Freeeeeet/clinic_booking/internal/repository"
	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App owns every long-lived component of the booking service.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	pool      *pgxpool.Pool
	queue     notify.Queue
	scheduler *Scheduler
	server    *http.Server

	shutdownTracer func(context.Context) error
}

// New connects to the database, applies migrations and wires the services.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	if cfg.TracingEnabled() {
		shutdown, err := InitTracer(ctx, cfg.OTel.Endpoint, cfg.OTel.ServiceName, cfg.Environment)
		if err != nil {
			return nil, err
		}
		a.shutdownTracer = shutdown
	}

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	a.pool = pool

	migrator, err := NewMigrator(pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer migrator.Close()
	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// repositories
	slotRepo := repository.NewSlotRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)
	therapistRepo := repository.NewTherapistRepository(pool)

	directory, err := service.NewTherapistDirectory(therapistRepo, cfg.Cache.TherapistSize, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	// notifications
	dispatcher, err := a.newDispatcher(reservationRepo)
	if err != nil {
		pool.Close()
		return nil, err
	}
	queue, err := a.newQueue(dispatcher.Handle)
	if err != nil {
		pool.Close()
		return nil, err
	}
	a.queue = queue

	// services
	availabilityService := service.NewAvailabilityService(slotRepo, directory, logger)
	bookingService := service.NewBookingService(reservationRepo, directory, queue, logger,
		service.WithLocation(cfg.Location()),
	)

	a.scheduler = NewScheduler(reservationRepo, bookingService,
		cfg.Notify.SweepInterval, cfg.Notify.DeliveryLease, cfg.Notify.MaxAttempts, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := controller.NewRouter(availabilityService, bookingService, pool, controller.RouterConfig{
		AdminSecret:  cfg.Admin.JWTSecret,
		BookingRPS:   cfg.RateLimit.RPS,
		BookingBurst: cfg.RateLimit.Burst,
	}, logger)

	a.server = &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return a, nil
}

func (a *App) newDispatcher(store notify.DeliveryStore) (*notify.Dispatcher, error) {
	var mailer notify.Mailer
	if a.cfg.MailEnabled() {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     a.cfg.SMTP.Host,
			Port:     a.cfg.SMTP.Port,
			Username: a.cfg.SMTP.Username,
			Password: a.cfg.SMTP.Password,
			SSL:      a.cfg.SMTP.SSL,
			Timeout:  a.cfg.SMTP.Timeout,
		})
	} else {
		a.logger.Warn("SMTP_HOST not set, confirmation emails will only be logged")
		mailer = notify.NewLogMailer(a.logger)
	}

	var operator notify.Notifier
	if a.cfg.TelegramEnabled() {
		tg, err := notify.NewTelegramNotifier(a.cfg.Telegram.Token, a.cfg.Telegram.ChatID)
		if err != nil {
			return nil, err
		}
		operator = tg
	}

	return notify.NewDispatcher(notify.DispatcherConfig{
		From:           a.cfg.Mail.From,
		Operator:       a.cfg.Mail.To,
		SiteName:       a.cfg.Mail.SiteName,
		CalendarDomain: a.cfg.Mail.CalendarDomain,
		SendTimeout:    a.cfg.Notify.SendTimeout,
		MaxRetries:     a.cfg.Notify.MaxRetries,
	}, mailer, operator, store, a.logger), nil
}

func (a *App) newQueue(handler notify.Handler) (notify.Queue, error) {
	if a.cfg.AMQPEnabled() {
		q, err := notify.DialAMQP(notify.AMQPConfig{
			URL:      a.cfg.RabbitMQ.URL,
			Exchange: a.cfg.RabbitMQ.Exchange,
			Queue:    a.cfg.RabbitMQ.Queue,
			Prefetch: a.cfg.Notify.Workers,
		}, handler, a.logger)
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	return notify.NewMemoryQueue(a.cfg.Notify.QueueSize, a.cfg.Notify.Workers, handler, a.logger), nil
}

// Run serves HTTP until ctx is cancelled, then shuts everything down in
// order: HTTP, sweeper, queue, tracer, pool.
func (a *App) Run(ctx context.Context) error {
	// workers outlive ctx so the queue can drain after HTTP stops
	workerCtx, cancelWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWorkers()

	if err := a.queue.Start(workerCtx); err != nil {
		return fmt.Errorf("start notification queue: %w", err)
	}
	a.scheduler.Start(workerCtx)

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	a.scheduler.Stop()
	if err := a.queue.Stop(); err != nil {
		a.logger.Error("Queue shutdown failed", zap.Error(err))
	}
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(shutdownCtx); err != nil {
			a.logger.Error("Tracer shutdown failed", zap.Error(err))
		}
	}
	a.pool.Close()

	a.logger.Info("Stopped")
	return runErr
}
