// Package api assembles the HTTP API process: storage, cache, event
// publisher, services, the chi router and the gRPC health listener.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/nusapalma/nusapalma/internal/cache"
	"github.com/nusapalma/nusapalma/internal/config"
	"github.com/nusapalma/nusapalma/internal/grpc/health"
	"github.com/nusapalma/nusapalma/internal/lib/jwt"
	"github.com/nusapalma/nusapalma/internal/lib/rabbitmq"
	"github.com/nusapalma/nusapalma/internal/lib/sl"
	"github.com/nusapalma/nusapalma/internal/metrics"
	"github.com/nusapalma/nusapalma/internal/migrations"
	"github.com/nusapalma/nusapalma/internal/services/auth"
	"github.com/nusapalma/nusapalma/internal/services/subscription"
	"github.com/nusapalma/nusapalma/internal/storage/postgres"
)

const shutdownTimeout = 15 * time.Second

// App is the running API process.
type App struct {
	server  *http.Server
	health  *health.Server
	grpcLis net.Listener
	logger  *slog.Logger
	pool    *pgxpool.Pool
	cache   *cache.Cache
	conn    *amqp.Connection
	ch      *amqp.Channel
}

// New connects every dependency and builds the router. RabbitMQ is optional:
// without it the API runs and lifecycle e-mails are not sent.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.api.New"

	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pool, err := postgres.Connect(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.RunPool(pool, cfg.MigrationsPath); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	store := postgres.New(pool)

	cacheRedis, err := cache.InitServer(ctx, cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &App{logger: logger, pool: pool, cache: cacheRedis}
	m := metrics.New(prometheus.DefaultRegisterer)

	subOpts := []subscription.Option{
		subscription.WithCache(cacheRedis, cfg.Redis.CacheTTL),
		subscription.WithMetrics(m),
		subscription.WithLogger(logger),
	}
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		logger.Warn("rabbitmq unavailable, lifecycle events disabled", sl.Op(op), sl.Err(err))
	} else {
		ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.NotificationQueues())
		if err != nil {
			_ = conn.Close()
			a.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.conn, a.ch = conn, ch
		subOpts = append(subOpts, subscription.WithPublisher(rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange)))
	}

	subscriptionService := subscription.NewService(catalog, store, store, subOpts...)
	authService := auth.NewService(store, jwt.NewJWTMaker(cfg.JWTToken.SecretKey, cfg.JWTToken.TokenTTL), cfg.Security.BcryptCost, logger)

	pingers := map[string]health.Pinger{"postgres": store, "redis": cacheRedis}
	a.health = health.New(logger, pingers, cfg.GRPCServer.ProbeInterval)
	if a.grpcLis, err = net.Listen("tcp", cfg.GRPCServer.Address); err != nil {
		a.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	router := chi.NewRouter()
	RegisterRoutes(router, Deps{
		Log:           logger,
		Config:        cfg,
		Catalog:       catalog,
		Subscriptions: subscriptionService,
		Accounts:      authService,
		Metrics:       m,
		Pingers:       pingers,
	})

	a.server = &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}
	return a, nil
}

// Run serves HTTP and gRPC until ctx is done, then shuts both down and
// releases the connections.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("HTTP server starting", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	grpcCtx, stopGRPC := context.WithCancel(ctx)
	defer stopGRPC()
	go func() {
		if err := a.health.Run(grpcCtx, a.grpcLis); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
	}

	a.logger.Info("shutting down HTTP server gracefully")
	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(timeoutCtx); err != nil && runErr == nil {
		runErr = err
	}
	stopGRPC()
	a.close()
	return runErr
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	a.pool.Close()
}
