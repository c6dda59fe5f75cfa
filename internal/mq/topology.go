package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeEvents — topic exchange для всех событий.
const ExchangeEvents = "promptlib.events"

// QueueAudit — долговременная очередь со всеми событиями.
const QueueAudit = "promptlib.audit"

// PatternAll — шаблон, совпадающий с любым событием.
const PatternAll = "#"

// SetupTopology объявляет exchange событий и очередь аудита.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchange(ch); err != nil {
			return err
		}

		_, err := ch.QueueDeclare(
			QueueAudit, // name
			true,       // durable
			false,      // delete when unused
			false,      // exclusive
			false,      // no-wait
			nil,        // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueAudit, err)
		}

		return bind(ch, QueueAudit, []string{PatternAll})
	})
}

// DeclareTailQueue объявляет временную очередь для просмотра событий.
//
// Очередь получает имя от сервера, эксклюзивна и удаляется при
// закрытии канала. Пустой patterns означает все события.
func DeclareTailQueue(ch *amqp.Channel, patterns []string) (string, error) {
	if err := declareExchange(ch); err != nil {
		return "", err
	}

	q, err := ch.QueueDeclare(
		"",    // name (выдаёт сервер)
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return "", fmt.Errorf("declare tail queue: %w", err)
	}

	if len(patterns) == 0 {
		patterns = []string{PatternAll}
	}
	if err := bind(ch, q.Name, patterns); err != nil {
		return "", err
	}
	return q.Name, nil
}

func declareExchange(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		ExchangeEvents, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
	}
	return nil
}

func bind(ch *amqp.Channel, queue string, patterns []string) error {
	for _, pattern := range patterns {
		if err := ch.QueueBind(queue, pattern, ExchangeEvents, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s (%s): %w", queue, ExchangeEvents, pattern, err)
		}
	}
	return nil
}
