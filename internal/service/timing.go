package service

import (
	"fmt"
	"math"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/model"
)

// DefaultTimezone is where the clinic operates.
const DefaultTimezone = "America/Santiago"

// Timing is the derived schedule of a booking in the clinic time zone.
type Timing struct {
	StartsAt time.Time
	EndsAt   time.Time
	Minutes  int
	WhenText string
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

// NormalizeClock accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func NormalizeClock(s string) (string, error) {
	for _, layout := range []string{model.TimeLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(model.TimeLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time %q", s)
}

// ComputeTiming builds the start and end instants of a slot in loc. Duration
// is rounded to whole minutes with a floor of one.
func ComputeTiming(date, start, end string, loc *time.Location) (Timing, error) {
	startsAt, err := time.ParseInLocation(model.DateLayout+" "+model.TimeLayout, date+" "+start, loc)
	if err != nil {
		return Timing{}, fmt.Errorf("parse start: %w", err)
	}
	endsAt, err := time.ParseInLocation(model.DateLayout+" "+model.TimeLayout, date+" "+end, loc)
	if err != nil {
		return Timing{}, fmt.Errorf("parse end: %w", err)
	}

	minutes := int(math.Round(endsAt.Sub(startsAt).Minutes()))
	if minutes < 1 {
		minutes = 1
	}

	return Timing{
		StartsAt: startsAt,
		EndsAt:   endsAt,
		Minutes:  minutes,
		WhenText: FormatWhen(startsAt),
	}, nil
}

var weekdaysES = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}

var monthsES = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatWhen renders t in the long Spanish form, e.g.
// "martes, 23 de septiembre de 2025, 12:00".
func FormatWhen(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d, %s",
		weekdaysES[t.Weekday()],
		t.Day(),
		monthsES[t.Month()-1],
		t.Year(),
		t.Format("15:04"),
	)
}
