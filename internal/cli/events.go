package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/shaiso/promptlib/internal/mq"
)

// NewEventsCmd создаёт группу команд для событий библиотеки.
// В отличие от остальных команд, работает напрямую с RabbitMQ.
func NewEventsCmd(urlFn func() string, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect lifecycle events",
	}

	cmd.AddCommand(newEventsTailCmd(urlFn, outputFn))

	return cmd
}

func newEventsTailCmd(urlFn func() string, outputFn func() *Output) *cobra.Command {
	var patterns []string

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print events as they are published (Ctrl+C to stop)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := outputFn()
			logger := slog.New(slog.NewTextHandler(out.errW, &slog.HandlerOptions{Level: slog.LevelWarn}))

			conn, err := mq.NewConnection(urlFn(), logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
				Declare: func(ch *amqp.Channel) (string, error) {
					return mq.DeclareTailQueue(ch, patterns)
				},
				Handler: func(_ context.Context, d *mq.Delivery) error {
					printEvent(out, &d.Event)
					return nil
				},
				Prefetch: 16,
			})

			out.Success(fmt.Sprintf("Listening for events on %s", mq.ExchangeEvents))
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&patterns, "pattern", []string{mq.PatternAll}, "Routing key pattern, e.g. prompt.* (repeatable)")

	return cmd
}

func printEvent(out *Output, evt *mq.Event) {
	if out.IsJSON() {
		out.JSON(evt)
		return
	}
	fmt.Fprintf(out.w, "%s  %-24s %v\n", evt.Timestamp.Format(time.RFC3339), evt.Type, evt.Payload)
}
