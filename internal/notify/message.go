package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// Attachment is an in-memory file attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a transport-independent email.
type Message struct {
	From        string
	To          string
	ReplyTo     string
	Subject     string
	Text        string
	HTML        string
	Attachments []Attachment
}

var operatorHTML = template.Must(template.New("operator").Parse(`<div style="font-family:Arial,sans-serif;line-height:1.6">
<h2>Nueva reserva</h2>
<p><strong>Cliente:</strong> {{.CustomerName}}</p>
<p><strong>Email:</strong> {{.CustomerEmail}}</p>
<p><strong>Teléfono:</strong> {{if .CustomerPhone}}{{.CustomerPhone}}{{else}}(no indicado){{end}}</p>
{{if .TherapistName}}<p><strong>Terapeuta:</strong> {{.TherapistName}}</p>{{end}}
<p><strong>Fecha:</strong> {{.Date}}</p>
<p><strong>Horario:</strong> {{.StartTime}} - {{.EndTime}} ({{.WhenText}})</p>
{{if .Location}}<p><strong>Ubicación:</strong> {{.Location}}</p>{{end}}
{{if .Notes}}<p><strong>Notas:</strong> {{.Notes}}</p>{{end}}
<p style="color:#666">ID reserva: #{{.ReservationID}}</p>
</div>`))

var customerHTML = template.Must(template.New("customer").Parse(`<div style="font-family:Arial,sans-serif;line-height:1.6">
<h2>¡Reserva confirmada!</h2>
<p>Hola {{.CustomerName}},</p>
<p>Tu cita ha sido agendada correctamente.</p>
<ul>
{{if .TherapistName}}<li><strong>Terapeuta:</strong> {{.TherapistName}}</li>{{end}}
<li><strong>Fecha:</strong> {{.Date}}</li>
<li><strong>Horario:</strong> {{.StartTime}} - {{.EndTime}} <em>({{.WhenText}})</em></li>
</ul>
<p>Adjuntamos un archivo de calendario (.ics) para que puedas agregar la cita a tu calendario.</p>
<p>Si necesitas reprogramar o cancelar, responde a este correo.</p>
</div>`))

func withTherapist(job Job) string {
	if job.TherapistName == "" {
		return ""
	}
	return " con " + job.TherapistName
}

func operatorMessage(job Job, from, operator string) (*Message, error) {
	var text strings.Builder
	fmt.Fprintf(&text, "Nueva reserva\n\n")
	fmt.Fprintf(&text, "Cliente: %s\n", job.CustomerName)
	fmt.Fprintf(&text, "Email: %s\n", job.CustomerEmail)
	phone := job.CustomerPhone
	if phone == "" {
		phone = "(no indicado)"
	}
	fmt.Fprintf(&text, "Teléfono: %s\n", phone)
	if job.TherapistName != "" {
		fmt.Fprintf(&text, "Terapeuta: %s\n", job.TherapistName)
	}
	fmt.Fprintf(&text, "Fecha: %s\n", job.Date)
	fmt.Fprintf(&text, "Horario: %s - %s (%s)\n", job.StartTime, job.EndTime, job.WhenText)
	if job.Location != "" {
		fmt.Fprintf(&text, "Ubicación: %s\n", job.Location)
	}
	if job.Notes != "" {
		fmt.Fprintf(&text, "Notas: %s\n", job.Notes)
	}
	fmt.Fprintf(&text, "ID reserva: #%s", job.ReservationID)

	var html bytes.Buffer
	if err := operatorHTML.Execute(&html, job); err != nil {
		return nil, fmt.Errorf("render operator message: %w", err)
	}

	return &Message{
		From:    from,
		To:      operator,
		ReplyTo: job.CustomerEmail,
		Subject: fmt.Sprintf("Nueva reserva #%s - %s%s", job.ReservationID, job.CustomerName, withTherapist(job)),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

func customerMessage(job Job, from, operator string, invite string) (*Message, error) {
	var text strings.Builder
	fmt.Fprintf(&text, "Hola %s,\n\nTu cita ha sido agendada:\n\n", job.CustomerName)
	if job.TherapistName != "" {
		fmt.Fprintf(&text, "Terapeuta: %s\n", job.TherapistName)
	}
	fmt.Fprintf(&text, "Fecha: %s\n", job.Date)
	fmt.Fprintf(&text, "Horario: %s - %s (%s)\n\n", job.StartTime, job.EndTime, job.WhenText)
	text.WriteString("Adjuntamos un archivo .ics para agregar al calendario.\n")
	text.WriteString("Si necesitas reprogramar/cancelar, responde a este correo.")

	var html bytes.Buffer
	if err := customerHTML.Execute(&html, job); err != nil {
		return nil, fmt.Errorf("render customer message: %w", err)
	}

	return &Message{
		From:    from,
		To:      job.CustomerEmail,
		ReplyTo: operator,
		Subject: fmt.Sprintf("Confirmación de reserva%s — %s", withTherapist(job), job.WhenText),
		Text:    text.String(),
		HTML:    html.String(),
		Attachments: []Attachment{{
			Filename:    fmt.Sprintf("reserva-%s.ics", job.ReservationID),
			ContentType: "text/calendar; charset=utf-8",
			Content:     []byte(invite),
		}},
	}, nil
}
