package model

import "time"

// Wire formats for slot dates and times.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Slot is a pre-seeded interval of therapist availability on a given date.
type Slot struct {
	ID          int64     `json:"id"`
	TherapistID int64     `json:"therapist_id"`
	Date        string    `json:"fecha"`       // YYYY-MM-DD
	StartTime   string    `json:"hora_inicio"` // HH:MM:SS
	EndTime     string    `json:"hora_fin"`    // HH:MM:SS
	Available   bool      `json:"disponible"`
	CreatedAt   time.Time `json:"created_at"`
}

// SlotKey identifies slots by value. TherapistID is optional.
type SlotKey struct {
	TherapistID *int64
	Date        string
	StartTime   string
	EndTime     string
}
