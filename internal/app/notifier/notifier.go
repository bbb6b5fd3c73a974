// Package notifier assembles the e-mail process: it consumes lifecycle
// events from RabbitMQ and hands them to the sender service.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/nusapalma/nusapalma/internal/config"
	"github.com/nusapalma/nusapalma/internal/lib/rabbitmq"
	"github.com/nusapalma/nusapalma/internal/lib/sl"
	"github.com/nusapalma/nusapalma/internal/lib/smtp"
	"github.com/nusapalma/nusapalma/internal/models"
	senderservice "github.com/nusapalma/nusapalma/internal/services/sender"
)

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// App is the running notifier process.
type App struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	handlers map[string]Handler
	workers  int
	logger   *slog.Logger
}

// New connects to RabbitMQ and declares the notification queues.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.notifier.New"

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sender := senderservice.NewService(smtp.NewTransport(cfg.SMTP, logger), catalog, logger)
	byKey := map[string]Handler{
		models.EventPaymentCreated:        sender.HandlePaymentCreated,
		models.EventSubscriptionActivated: sender.HandleSubscriptionActivated,
		models.EventSubscriptionExpiring:  sender.HandleSubscriptionExpiring,
	}
	if !cfg.SMTP.Enabled {
		logger.Warn("email disabled, notifications will be acknowledged and dropped")
	}

	return &App{
		conn:     conn,
		ch:       ch,
		handlers: Bind(rabbitmq.NotificationQueues(), byKey, cfg.SMTP.Enabled, logger),
		workers:  cfg.RabbitMQ.Workers,
		logger:   logger,
	}, nil
}

// Bind maps each queue to the handler of its routing key. When enabled is
// false every handler is replaced by one that drops the message.
func Bind(queues []rabbitmq.QueueConfig, byKey map[string]Handler, enabled bool, log *slog.Logger) map[string]Handler {
	out := make(map[string]Handler, len(queues))
	for _, q := range queues {
		h, ok := byKey[q.RoutingKey]
		if !ok {
			continue
		}
		if !enabled {
			queue := q.QueueName
			h = func(context.Context, []byte) error {
				log.Debug("email disabled, message dropped", slog.String("queue", queue))
				return nil
			}
		}
		out[q.QueueName] = h
	}
	return out
}

// Run consumes every queue until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	for queue, h := range a.handlers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.logger.Info("consuming", slog.String("queue", queue))
			err := rabbitmq.ConsumeMessages(ctx, a.ch, queue, a.workers, a.logger, h)
			if ctx.Err() != nil {
				return
			}
			if err == nil {
				err = fmt.Errorf("%s: deliveries closed", queue)
			}
			a.logger.Error("consumer stopped", slog.String("queue", queue), sl.Err(err))
			errOnce.Do(func() { firstErr = err })
			cancel()
		}()
	}

	<-ctx.Done()
	wg.Wait()
	a.logger.Info("notifier shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return firstErr
}
