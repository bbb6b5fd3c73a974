// Package health serves grpc.health.v1.Health for the API process. A probe
// loop pings the storage dependencies and flips the serving status, so load
// balancers see the same answer as GET /health.
package health

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nusapalma/nusapalma/internal/lib/sl"
)

// Service is the name under which the API reports its status. The empty
// service name reports the same value.
const Service = "nusapalma.api"

// Pinger checks one dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server owns the gRPC server and the probe loop.
type Server struct {
	grpcServer *grpc.Server
	health     *grpchealth.Server
	pingers    map[string]Pinger
	interval   time.Duration
	log        *slog.Logger
}

// New creates a Server. Status is NOT_SERVING until the first probe passes.
func New(log *slog.Logger, pingers map[string]Pinger, interval time.Duration) *Server {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(Service, healthpb.HealthCheckResponse_NOT_SERVING)

	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	return &Server{
		grpcServer: gs,
		health:     hs,
		pingers:    pingers,
		interval:   interval,
		log:        log,
	}
}

// Probe pings every dependency once and updates the serving status.
// It reports whether all of them answered.
func (s *Server) Probe(ctx context.Context) bool {
	const op = "health.Probe"

	ok := true
	for name, p := range s.pingers {
		pctx, cancel := context.WithTimeout(ctx, s.interval/2)
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			s.log.Warn("dependency unreachable", sl.Op(op), slog.String("dependency", name), sl.Err(err))
			ok = false
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(Service, status)
	return ok
}

// Run serves on lis and probes every interval until ctx is done.
func (s *Server) Run(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gRPC health service listening", slog.String("address", lis.Addr().String()))
		errCh <- s.grpcServer.Serve(lis)
	}()

	s.Probe(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpcServer.GracefulStop()
			return nil
		case err := <-errCh:
			return err
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}
