package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/config"
	"github.com/therealutkarshpriyadarshi/scrolly/internal/logging"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

const (
	DefaultQueueName    = "record.saved"
	DefaultExchangeName = "scrolly"
)

const retryCountHeader = "x-retry-count"

// Queue provides message queue operations
type Queue struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	name     string
	prefetch int
	logger   *logging.Logger
}

// New creates a new queue client
func New(cfg config.QueueConfig, logger *logging.Logger) (*Queue, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if logger == nil {
		logger = logging.NewNopLogger()
	}
	q := &Queue{
		conn:     conn,
		channel:  channel,
		exchange: orDefault(cfg.Exchange, DefaultExchangeName),
		name:     orDefault(cfg.Name, DefaultQueueName),
		prefetch: cfg.Prefetch,
		logger:   logger,
	}
	if q.prefetch <= 0 {
		q.prefetch = 1
	}

	// Declare exchange
	err = channel.ExchangeDeclare(
		q.exchange,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Declare queue
	_, err = channel.QueueDeclare(
		q.name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	// Bind queue to exchange
	err = channel.QueueBind(
		q.name,
		q.name,
		q.exchange,
		false,
		nil,
	)
	if err != nil {
		q.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	return q, nil
}

// Close closes the queue connection
func (q *Queue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// PublishRecordSaved announces that a record has been written
func (q *Queue) PublishRecordSaved(ctx context.Context, event *models.RecordSavedEvent) error {
	return q.publish(ctx, q.exchange, q.name, event, nil, "")
}

func (q *Queue) publish(ctx context.Context, exchange, key string, event *models.RecordSavedEvent, headers amqp.Table, expiration string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = q.channel.PublishWithContext(ctx,
		exchange,
		key,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Headers:      headers,
			Expiration:   expiration,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Handler processes one record saved event
type Handler func(ctx context.Context, event *models.RecordSavedEvent) error

// ConsumeRecordSaved starts consuming record saved events. Messages that
// fail to decode are dropped; handler failures are retried with backoff
// and dead-lettered after MaxRetries.
func (q *Queue) ConsumeRecordSaved(ctx context.Context, handler Handler) error {
	// Set QoS to limit concurrent processing
	err := q.channel.Qos(
		q.prefetch, // prefetch count
		0,          // prefetch size
		false,      // global
	)
	if err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := q.channel.Consume(
		q.name,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				q.deliver(ctx, msg, handler)
			}
		}
	}()

	return nil
}

func (q *Queue) deliver(ctx context.Context, msg amqp.Delivery, handler Handler) {
	event, err := decodeEvent(msg.Body)
	if err != nil {
		q.logger.WarnWithErr("dropping malformed event", err)
		msg.Nack(false, false)
		return
	}

	if err := handler(ctx, event); err != nil {
		retries := retryCount(msg.Headers)
		q.logger.WithRecordID(event.RecordID).WarnWithErr("event handler failed", err)
		if err := q.PublishToRetryQueue(ctx, event, retries); err != nil {
			// Requeue in place if the retry queue is unavailable
			msg.Nack(false, true)
			return
		}
	}
	msg.Ack(false)
}

func decodeEvent(body []byte) (*models.RecordSavedEvent, error) {
	var event models.RecordSavedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.RecordID == "" {
		return nil, fmt.Errorf("event has no record id")
	}
	return &event, nil
}

func retryCount(headers amqp.Table) int {
	switch v := headers[retryCountHeader].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

// GetQueueDepth returns the number of messages in the queue
func (q *Queue) GetQueueDepth() (int, error) {
	info, err := q.channel.QueueInspect(q.name)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return info.Messages, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
