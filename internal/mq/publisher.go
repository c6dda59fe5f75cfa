package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Event — конверт события в очереди.
type Event struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип события, он же routing key.
	Type string `json:"type"`

	// Payload — данные события.
	Payload any `json:"payload"`

	// Timestamp — время публикации (UTC).
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent создаёт конверт с новым ID.
func NewEvent(eventType string, payload any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher публикует события в ExchangeEvents.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// PublishEvent публикует событие eventType с данными payload.
func (p *Publisher) PublishEvent(ctx context.Context, eventType string, payload any) error {
	return p.Publish(ctx, NewEvent(eventType, payload))
}

// Publish публикует готовый конверт.
func (p *Publisher) Publish(ctx context.Context, evt *Event) error {
	msg, err := publishing(evt)
	if err != nil {
		return err
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.PublishWithContext(ctx, ExchangeEvents, evt.Type, false, false, msg); err != nil {
			return fmt.Errorf("publish %s: %w", evt.Type, err)
		}

		p.logger.Debug("published event",
			"exchange", ExchangeEvents,
			"type", evt.Type,
			"message_id", evt.ID,
		)
		return nil
	})
}

// publishing собирает AMQP сообщение из конверта.
func publishing(evt *Event) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event %s: %w", evt.Type, err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID,
		Type:         evt.Type,
		Timestamp:    evt.Timestamp,
		AppId:        "promptlib",
		Body:         body,
	}, nil
}
