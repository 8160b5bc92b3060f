package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

const MaxRetries = 5

func (q *Queue) deadLetterExchange() string { return q.exchange + ".dlx" }
func (q *Queue) deadLetterQueue() string    { return q.name + ".dlq" }
func (q *Queue) retryQueue() string         { return q.name + ".retry" }

// SetupDeadLetterQueue sets up the dead letter queue infrastructure
func (q *Queue) SetupDeadLetterQueue() error {
	// Declare dead letter exchange
	err := q.channel.ExchangeDeclare(
		q.deadLetterExchange(),
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	// Declare dead letter queue
	_, err = q.channel.QueueDeclare(
		q.deadLetterQueue(),
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	// Bind DLQ to exchange
	err = q.channel.QueueBind(
		q.deadLetterQueue(),
		q.deadLetterQueue(),
		q.deadLetterExchange(),
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	// Expired retries are routed back to the main queue
	retryArgs := amqp.Table{
		"x-dead-letter-exchange":    q.exchange,
		"x-dead-letter-routing-key": q.name,
	}

	_, err = q.channel.QueueDeclare(
		q.retryQueue(),
		true,
		false,
		false,
		false,
		retryArgs,
	)
	if err != nil {
		return fmt.Errorf("failed to declare retry queue: %w", err)
	}

	q.logger.Info("Dead letter queue infrastructure set up successfully")
	return nil
}

// PublishToRetryQueue schedules an event for another attempt, or moves it
// to the dead letter queue once MaxRetries is reached
func (q *Queue) PublishToRetryQueue(ctx context.Context, event *models.RecordSavedEvent, retryCount int) error {
	if retryCount >= MaxRetries {
		return q.PublishToDeadLetterQueue(ctx, event, "max retries exceeded")
	}

	headers := amqp.Table{
		retryCountHeader: int32(retryCount + 1),
	}

	// Calculate exponential backoff delay
	delay := calculateBackoffDelay(retryCount)

	err := q.publish(ctx, "", q.retryQueue(), event, headers, fmt.Sprintf("%d", delay.Milliseconds()))
	if err != nil {
		return fmt.Errorf("failed to publish to retry queue: %w", err)
	}

	q.logger.WithRecordID(event.RecordID).Infof("event queued for retry #%d in %v", retryCount+1, delay)
	return nil
}

// PublishToDeadLetterQueue parks an event that could not be processed
func (q *Queue) PublishToDeadLetterQueue(ctx context.Context, event *models.RecordSavedEvent, reason string) error {
	headers := amqp.Table{
		"x-failure-reason": reason,
		"x-failed-at":      time.Now().Format(time.RFC3339),
	}

	err := q.publish(ctx, q.deadLetterExchange(), q.deadLetterQueue(), event, headers, "")
	if err != nil {
		return fmt.Errorf("failed to publish to DLQ: %w", err)
	}

	q.logger.WithRecordID(event.RecordID).Warnf("event moved to dead letter queue: %s", reason)
	return nil
}

// GetDLQDepth returns the number of messages in the dead letter queue
func (q *Queue) GetDLQDepth() (int, error) {
	info, err := q.channel.QueueInspect(q.deadLetterQueue())
	if err != nil {
		return 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}

	return info.Messages, nil
}

// calculateBackoffDelay calculates exponential backoff delay
func calculateBackoffDelay(retryCount int) time.Duration {
	// Exponential backoff: 10s, 20s, 40s, 80s, 160s
	baseDelay := 10 * time.Second
	delay := baseDelay * (1 << retryCount) // 2^retryCount

	// Cap at 10 minutes
	if delay > 10*time.Minute {
		delay = 10 * time.Minute
	}

	return delay
}
