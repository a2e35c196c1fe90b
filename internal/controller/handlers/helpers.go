package handlers

import (
	"errors"
	"net/http"

	"github.com/Freeeeeet/clinic_booking/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgInternal      = "Error interno del servidor"
	msgInvalidBody   = "Cuerpo de la solicitud inválido."
	msgMissingFields = "Faltan campos obligatorios."
	msgInvalidEmail  = "Email no válido."
	msgInvalidData   = "Datos inválidos."
	msgSlotTaken     = "El horario seleccionado ya no está disponible."
	msgSlotExists    = "Ese horario ya existe para el terapeuta."
	msgNotFound      = "Reserva no encontrada."
)

// respondError maps service errors to a status code and a JSON body.
// Unexpected errors are logged and hidden behind a generic message.
func (h *Handlers) respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":     false,
			"error":  validationMessage(verr),
			"fields": verr.Fields,
		})
	case errors.Is(err, service.ErrSlotTaken):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": msgSlotTaken})
	case errors.Is(err, service.ErrSlotExists):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": msgSlotExists})
	case errors.Is(err, service.ErrUnknownTherapist):
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":     false,
			"error":  msgInvalidData,
			"fields": []service.FieldError{{Field: "therapist_id", Message: "no existe"}},
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": msgNotFound})
	default:
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": msgInternal})
	}
}

func validationMessage(verr *service.ValidationError) string {
	emailOnly := true
	for _, f := range verr.Fields {
		if f.Message == "es obligatorio" {
			return msgMissingFields
		}
		if f.Field != "email" {
			emailOnly = false
		}
	}
	if emailOnly {
		return msgInvalidEmail
	}
	return msgInvalidData
}
