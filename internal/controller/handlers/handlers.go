package handlers

import (
	"go.uber.org/zap"
)

type Handlers struct {
	availability AvailabilityService
	booking      BookingService
	db           Pinger
	logger       *zap.Logger
}

func NewHandlers(
	availability AvailabilityService,
	booking BookingService,
	db Pinger,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		availability: availability,
		booking:      booking,
		db:           db,
		logger:       logger,
	}
}
