package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/nusapalma/nusapalma/internal/lib/sl"
)

// Consumer is the consuming side of *amqp.Channel.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// ConsumeMessages delivers messages of queueName to handler, at most workers at
// a time. A handler error requeues the message. It blocks until ctx is done or
// the delivery channel closes, then waits for running handlers.
func ConsumeMessages(ctx context.Context, ch Consumer, queueName string, workers int, log *slog.Logger,
	handler func(ctx context.Context, body []byte) error) error {
	const op = "rabbitmq.ConsumeMessages"

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if workers < 1 {
		workers = 1
	}
	log = log.With(slog.String("op", op), slog.String("queue", queueName))

	var wg sync.WaitGroup
	defer wg.Wait()

	sem := make(chan struct{}, workers)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer func() {
					<-sem
					wg.Done()
				}()
				if err := handler(ctx, d.Body); err != nil {
					log.Warn("handler failed, requeueing", sl.Err(err))
					if nackErr := d.Nack(false, true); nackErr != nil {
						log.Error("failed to nack message", sl.Err(nackErr))
					}
					return
				}
				if ackErr := d.Ack(false); ackErr != nil {
					log.Error("failed to ack message", sl.Err(ackErr))
				}
			}(d)
		}
	}
}
