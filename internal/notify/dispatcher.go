package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/clinic_booking/internal/metrics"
	"github.com/Freeeeeet/clinic_booking/internal/model"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/Freeeeeet/clinic_booking/internal/notify")

// DeliveryStore tracks delivery progress on the reservation.
type DeliveryStore interface {
	// BeginDelivery takes ownership of the reservation for the job attempt.
	// ok is false when the job is a duplicate or outdated.
	BeginDelivery(ctx context.Context, id string, attempt int) (progress model.DeliveryProgress, ok bool, err error)
	MarkLegSent(ctx context.Context, id string, leg model.DeliveryLeg) error
	SetNotificationStatus(ctx context.Context, id string, status model.NotificationStatus) error
}

// DispatcherConfig configures message content and the delivery budget.
type DispatcherConfig struct {
	From           string
	Operator       string
	SiteName       string
	CalendarDomain string
	SendTimeout    time.Duration
	MaxRetries     uint64
	BaseBackoff    time.Duration
}

// Dispatcher sends the operator notice and the customer confirmation for a
// reservation.
type Dispatcher struct {
	cfg      DispatcherConfig
	mailer   Mailer
	operator Notifier
	store    DeliveryStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher. operator and store may be nil.
func NewDispatcher(cfg DispatcherConfig, mailer Mailer, operator Notifier, store DeliveryStore, logger *zap.Logger) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.SiteName == "" {
		cfg.SiteName = "nuestro sitio"
	}
	if cfg.CalendarDomain == "" {
		cfg.CalendarDomain = "clinica.local"
	}
	return &Dispatcher{
		cfg:      cfg,
		mailer:   mailer,
		operator: operator,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle delivers the job and records the result on the reservation. It is
// the queue handler. Copies of a job already owned by another worker, or
// made outdated by a later attempt, are dropped.
func (d *Dispatcher) Handle(ctx context.Context, job Job) {
	var progress model.DeliveryProgress
	if d.store != nil {
		beginCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		p, ok, err := d.store.BeginDelivery(beginCtx, job.ReservationID, job.Attempt)
		cancel()
		if err != nil {
			// row stays pending; the sweeper retries after the lease
			d.logger.Error("Failed to start delivery",
				zap.String("reservation_id", job.ReservationID),
				zap.Error(err),
			)
			return
		}
		if !ok {
			metrics.DuplicateJobsDropped.Inc()
			d.logger.Info("Dropping duplicate confirmation job",
				zap.String("reservation_id", job.ReservationID),
				zap.Int("attempt", job.Attempt),
			)
			return
		}
		progress = p
	}

	err := d.deliver(ctx, job, progress)

	status := model.NotificationSent
	if err != nil {
		status = model.NotificationFailed
		d.logger.Warn("Confirmation delivery failed",
			zap.String("reservation_id", job.ReservationID),
			zap.Int("attempt", job.Attempt),
			zap.Error(err),
		)
	} else {
		d.logger.Info("Confirmation delivered",
			zap.String("reservation_id", job.ReservationID),
			zap.Int("attempt", job.Attempt),
		)
	}

	if d.store == nil {
		return
	}
	// the job context may already be cancelled on shutdown
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.store.SetNotificationStatus(recordCtx, job.ReservationID, status); err != nil {
		d.logger.Error("Failed to record notification status",
			zap.String("reservation_id", job.ReservationID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// Deliver sends both emails, then the optional operator chat notice. An
// error means at least one email could not be sent after retries.
func (d *Dispatcher) Deliver(ctx context.Context, job Job) error {
	return d.deliver(ctx, job, model.DeliveryProgress{})
}

func (d *Dispatcher) deliver(ctx context.Context, job Job, progress model.DeliveryProgress) error {
	ctx, span := tracer.Start(ctx, "notify.Deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("reservation.id", job.ReservationID),
		attribute.Int("notification.attempt", job.Attempt),
	)

	var errs []error

	if !progress.Sent(model.LegOperator) {
		opMsg, err := operatorMessage(job, d.cfg.From, d.cfg.Operator)
		if err != nil {
			errs = append(errs, err)
		} else if err := d.sendLeg(ctx, job, model.LegOperator, opMsg); err != nil {
			errs = append(errs, fmt.Errorf("operator email: %w", err))
		}
	}

	if !progress.Sent(model.LegCustomer) {
		invite := BuildCalendar(d.calendarEvent(job))
		custMsg, err := customerMessage(job, d.cfg.From, d.cfg.Operator, invite)
		if err != nil {
			errs = append(errs, err)
		} else if err := d.sendLeg(ctx, job, model.LegCustomer, custMsg); err != nil {
			errs = append(errs, fmt.Errorf("customer email: %w", err))
		}
	}

	// the chat notice goes with the first attempt only
	if d.operator != nil && job.Attempt == 0 {
		noticeCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		err := d.operator.Notify(noticeCtx, operatorNotice(job))
		cancel()
		metrics.RecordNotification("telegram", err)
		if err != nil {
			d.logger.Warn("Operator chat notice failed",
				zap.String("reservation_id", job.ReservationID),
				zap.Error(err),
			)
		}
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		return err
	}
	return nil
}

// sendLeg sends one message and records it as delivered so a retry of the
// reservation does not repeat it.
func (d *Dispatcher) sendLeg(ctx context.Context, job Job, leg model.DeliveryLeg, msg *Message) error {
	if err := d.send(ctx, string(leg), msg); err != nil {
		return err
	}
	if d.store == nil {
		return nil
	}
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.store.MarkLegSent(markCtx, job.ReservationID, leg); err != nil {
		d.logger.Error("Failed to record sent message",
			zap.String("reservation_id", job.ReservationID),
			zap.String("leg", string(leg)),
			zap.Error(err),
		)
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, kind string, msg *Message) error {
	backoff := retry.WithMaxRetries(d.cfg.MaxRetries, retry.NewExponential(d.cfg.BaseBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		defer cancel()

		if err := d.mailer.Send(sendCtx, msg); err != nil {
			d.logger.Debug("Mail send attempt failed",
				zap.String("kind", kind),
				zap.String("to", msg.To),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		return nil
	})

	metrics.RecordNotification(kind, err)
	return err
}

func (d *Dispatcher) calendarEvent(job Job) CalendarEvent {
	title := "Cita" + withTherapist(job)
	return CalendarEvent{
		UID:         fmt.Sprintf("reserva-%s@%s", job.ReservationID, d.cfg.CalendarDomain),
		Title:       title,
		Description: fmt.Sprintf("Cita agendada a través de %s.", d.cfg.SiteName),
		Location:    job.Location,
		Start:       job.StartsAt,
		End:         job.EndsAt(),
		Created:     d.now(),
	}
}
