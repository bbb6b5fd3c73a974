// Package scheduler assembles the reminder process: it looks up
// subscriptions ending tomorrow on a fixed interval and publishes a
// subscription.expiring event for each.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/streadway/amqp"

	"github.com/nusapalma/nusapalma/internal/cache"
	"github.com/nusapalma/nusapalma/internal/config"
	"github.com/nusapalma/nusapalma/internal/lib/rabbitmq"
	"github.com/nusapalma/nusapalma/internal/lib/sl"
	schedulerservice "github.com/nusapalma/nusapalma/internal/services/scheduler"
	"github.com/nusapalma/nusapalma/internal/storage/postgres"
)

const (
	dbRetries    = 10
	dbRetryDelay = 3 * time.Second
)

// App is the running scheduler process.
type App struct {
	runner *schedulerservice.Runner
	pool   *pgxpool.Pool
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger
}

func waitForDB(ctx context.Context, connString string, logger *slog.Logger) (*pgxpool.Pool, error) {
	var lastErr error
	for attempt := 1; attempt <= dbRetries; attempt++ {
		pool, err := postgres.Connect(ctx, connString)
		if err == nil {
			return pool, nil
		}
		lastErr = err
		logger.Warn("database not ready", slog.Int("attempt", attempt), sl.Err(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(dbRetryDelay):
		}
	}
	return nil, fmt.Errorf("database not ready after %d attempts: %w", dbRetries, lastErr)
}

// New connects RabbitMQ, Postgres and Redis and registers the job.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.scheduler.New"

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.NotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pool, err := waitForDB(ctx, cfg.StorageConnectionString, logger)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	svc := schedulerservice.NewService(
		postgres.New(pool),
		rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange),
		cacheRedis,
		logger,
		time.Now,
	)
	runner, err := schedulerservice.NewRunner(ctx, svc, cfg.Scheduler.Interval, logger)
	if err != nil {
		_ = cacheRedis.Close()
		pool.Close()
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &App{
		runner: runner,
		pool:   pool,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
		logger: logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run schedules reminders until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.runner.Start()

	<-ctx.Done()
	a.logger.Info("shutting down scheduler service")

	err := a.runner.Stop()
	if cerr := a.cache.Close(); cerr != nil {
		a.logger.Error("failed to close redis", sl.Err(cerr))
	}
	a.pool.Close()
	closeResources(a.ch, a.conn, a.logger)
	return err
}
