package handlers

import (
	"net/http"

	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/gin-gonic/gin"
)

// ListSlots GET /api/admin/availability
func (h *Handlers) ListSlots(c *gin.Context) {
	slots, err := h.availability.ListSlots(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// CreateSlot POST /api/admin/availability
func (h *Handlers) CreateSlot(c *gin.Context) {
	var in service.SlotInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgInvalidBody})
		return
	}

	slot, err := h.availability.SeedSlot(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "slot": slot})
}

// ListTherapists GET /api/admin/therapists
func (h *Handlers) ListTherapists(c *gin.Context) {
	therapists, err := h.availability.ListTherapists(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, therapists)
}
