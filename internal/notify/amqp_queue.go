package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPConfig describes the broker topology.
type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
}

// AMQPQueue publishes jobs to a RabbitMQ topic exchange and consumes them
// from a durable queue bound with RoutingKeyBookingCreated.
type AMQPQueue struct {
	cfg     AMQPConfig
	handler Handler
	logger  *zap.Logger

	conn    *amqp.Connection
	pubMu   sync.Mutex
	pubCh   *amqp.Channel
	consCh  *amqp.Channel
	wg      sync.WaitGroup
	stopped chan struct{}
}

// DialAMQP connects and declares the exchange, queue and binding.
func DialAMQP(cfg AMQPConfig, handler Handler, logger *zap.Logger) (*AMQPQueue, error) {
	if cfg.Exchange == "" {
		cfg.Exchange = "booking.exchange"
	}
	if cfg.Queue == "" {
		cfg.Queue = "booking.notifications"
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	pubCh, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	consCh, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open consume channel: %w", err)
	}

	if err := pubCh.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	q, err := consCh.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := consCh.QueueBind(q.Name, RoutingKeyBookingCreated, cfg.Exchange, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bind %s: %w", RoutingKeyBookingCreated, err)
	}
	if err := consCh.Qos(cfg.Prefetch, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}

	return &AMQPQueue{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		conn:    conn,
		pubCh:   pubCh,
		consCh:  consCh,
		stopped: make(chan struct{}),
	}, nil
}

func (q *AMQPQueue) Publish(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}

	q.pubMu.Lock()
	defer q.pubMu.Unlock()

	err = q.pubCh.PublishWithContext(ctx, q.cfg.Exchange, RoutingKeyBookingCreated, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ReservationID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish job: %w", err)
	}
	return nil
}

// Start begins consuming. Delivery failures are recorded by the handler, so
// every decodable message is acked; undecodable ones are dropped.
func (q *AMQPQueue) Start(ctx context.Context) error {
	deliveries, err := q.consCh.ConsumeWithContext(ctx, q.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.stopped:
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				q.handle(ctx, d)
			}
		}
	}()

	q.logger.Info("Consuming notification jobs",
		zap.String("exchange", q.cfg.Exchange),
		zap.String("queue", q.cfg.Queue),
	)
	return nil
}

func (q *AMQPQueue) handle(ctx context.Context, d amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		q.logger.Error("Dropping undecodable job",
			zap.String("routing_key", d.RoutingKey),
			zap.Error(err),
		)
		_ = d.Nack(false, false)
		return
	}

	q.handler(ctx, job)
	_ = d.Ack(false)
}

func (q *AMQPQueue) Stop() error {
	select {
	case <-q.stopped:
		return nil
	default:
		close(q.stopped)
	}
	q.wg.Wait()

	_ = q.consCh.Close()
	_ = q.pubCh.Close()
	return q.conn.Close()
}
