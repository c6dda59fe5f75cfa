package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler обрабатывает одно событие.
// Ошибка возвращает сообщение в очередь.
type Handler func(ctx context.Context, d *Delivery) error

// Delivery — доставленное событие.
type Delivery struct {
	Event Event
	Raw   amqp.Delivery
}

// DeclareFunc объявляет очередь на канале и возвращает её имя.
// Вызывается при каждом (пере)подключении.
type DeclareFunc func(ch *amqp.Channel) (string, error)

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	// Queue — имя существующей очереди. Игнорируется, если задан Declare.
	Queue string

	// Declare — объявление очереди, например DeclareTailQueue.
	Declare DeclareFunc

	// Handler — обработчик событий.
	Handler Handler

	// Prefetch — сколько сообщений брокер отдаёт без ack (по умолчанию 1).
	Prefetch int
}

// Consumer читает события из очереди.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	declare  DeclareFunc
	handler  Handler
	prefetch int
}

var errDeliveriesClosed = errors.New("deliveries channel closed")

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		declare:  cfg.Declare,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Run читает события до отмены ctx. После разрыва соединения ждёт
// переподключения и подписывается заново.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, queue, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "queue", c.queue, "error", err)
		} else {
			c.logger.Info("consumer started", "queue", queue)
			err = c.process(ctx, deliveries)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("consumer interrupted, waiting for reconnect", "queue", queue, "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, string, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, "", ErrNoChannel
	}

	queue := c.queue
	if c.declare != nil {
		name, err := c.declare(ch)
		if err != nil {
			return nil, "", err
		}
		queue = name
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, "", fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		queue, // queue
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return nil, "", fmt.Errorf("consume %s: %w", queue, err)
	}
	return deliveries, queue, nil
}

func (c *Consumer) process(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			c.handle(ctx, raw)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) {
	evt, err := DecodeEvent(raw.Body)
	if err != nil {
		c.logger.Error("dropping malformed event", "error", err, "body", string(raw.Body))
		_ = raw.Nack(false, false)
		return
	}

	if err := c.handler(ctx, &Delivery{Event: *evt, Raw: raw}); err != nil {
		c.logger.Error("handler failed", "type", evt.Type, "message_id", evt.ID, "error", err)
		_ = raw.Nack(false, true)
		return
	}
	_ = raw.Ack(false)
}

// DecodeEvent разбирает тело сообщения.
func DecodeEvent(body []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if evt.Type == "" {
		return nil, fmt.Errorf("unmarshal event: empty type")
	}
	return &evt, nil
}

// ParsePayload приводит Payload события к типу T.
func ParsePayload[T any](evt *Event) (T, error) {
	var result T

	data, err := json.Marshal(evt.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
