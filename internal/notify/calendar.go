package notify

import (
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

const calendarProductID = "-//Clinica//Reservas//ES"

// CalendarEvent is the single event of a confirmation invite.
type CalendarEvent struct {
	UID         string
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Created     time.Time
}

// BuildCalendar renders an iCalendar PUBLISH document with one VEVENT. All
// timestamps are written in UTC.
func BuildCalendar(ev CalendarEvent) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)

	event := cal.AddEvent(ev.UID)
	event.SetDtStampTime(ev.Created.UTC())
	event.SetStartAt(ev.Start.UTC())
	event.SetEndAt(ev.End.UTC())
	event.SetSummary(singleLine(ev.Title))
	event.SetDescription(ev.Description)
	if loc := singleLine(ev.Location); loc != "" {
		event.SetLocation(loc)
	}

	return cal.Serialize()
}

func singleLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
