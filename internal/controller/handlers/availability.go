package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetAvailability GET /api/availability?date=YYYY-MM-DD
func (h *Handlers) GetAvailability(c *gin.Context) {
	slots, err := h.availability.AvailableSlots(c.Request.Context(), c.Query("date"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	views := make([]slotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, slotView{
			ID:          s.ID,
			TherapistID: s.TherapistID,
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
		})
	}

	c.JSON(http.StatusOK, gin.H{"slots": views})
}

// GetTherapists GET /api/therapists?date=&hora_inicio=&hora_fin=
func (h *Handlers) GetTherapists(c *gin.Context) {
	therapists, err := h.availability.TherapistsFor(
		c.Request.Context(),
		c.Query("date"),
		c.Query("hora_inicio"),
		c.Query("hora_fin"),
	)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"therapists": therapists})
}
