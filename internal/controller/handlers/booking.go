package handlers

import (
	"net/http"

	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/gin-gonic/gin"
)

// CreateBooking POST /api/availability
func (h *Handlers) CreateBooking(c *gin.Context) {
	var in bookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgInvalidBody})
		return
	}
	if in.TherapistID.Invalid {
		h.respondError(c, &service.ValidationError{
			Fields: []service.FieldError{{Field: "therapist_id", Message: "no válido"}},
		})
		return
	}

	result, err := h.booking.Book(c.Request.Context(), service.BookingRequest{
		TherapistID: in.TherapistID.Value,
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Date:        in.Date,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Location:    in.Location,
		Notes:       in.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, bookingResponse{
		OK:           true,
		ID:           result.Reservation.ID,
		Confirmation: result.Reservation.NotificationStatus,
		Warning:      result.Warning,
	})
}

// GetReservation GET /api/reservations/:id
func (h *Handlers) GetReservation(c *gin.Context) {
	res, err := h.booking.GetReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
