package model

// Therapist is owned by the external user directory; read-only here.
type Therapist struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"-"`
}
