package repository

import "errors"

var (
	// ErrSlotUnavailable is returned by Reserve when no open slot matched.
	ErrSlotUnavailable = errors.New("slot not available or already booked")
	// ErrDuplicate is returned when a slot with the same tuple already exists.
	ErrDuplicate = errors.New("slot already exists")
	// ErrUnknownTherapist is returned when a slot references a missing therapist.
	ErrUnknownTherapist = errors.New("therapist not found")
	// ErrInvalidRange is returned when end time is not after start time.
	ErrInvalidRange = errors.New("slot end must be after start")
)
