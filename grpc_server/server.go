// Package grpcserver exposes the standard gRPC health service so that
// orchestrators and Consul can probe the process over gRPC.
package grpcserver

import (
	"context"
	"net"
	"time"

	"recipe-restful/interceptors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Server struct {
	grpc        *grpc.Server
	health      *health.Server
	serviceName string
	logger      *zap.Logger
}

// New creates a gRPC server serving grpc.health.v1.Health for the overall
// server ("") and for serviceName. Both start as SERVING.
func New(serviceName string, logger *zap.Logger) *Server {
	s := &Server{
		grpc:        grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors.ZapLoggingInterceptor(logger))),
		health:      health.NewServer(),
		serviceName: serviceName,
		logger:      logger,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *Server) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.serviceName, status)
}

// Serve blocks until the listener fails or Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("gRPC server listening", zap.String("address", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

// MonitorDependency flips the health status to NOT_SERVING while dep fails
// to answer a ping, checking every interval until ctx is done.
func (s *Server) MonitorDependency(ctx context.Context, dep Pinger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, interval/2)
		err := dep.PingContext(pingCtx)
		cancel()

		switch {
		case err != nil && serving:
			s.logger.Warn("dependency unreachable, reporting NOT_SERVING", zap.Error(err))
			s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
			serving = false
		case err == nil && !serving:
			s.logger.Info("dependency reachable again, reporting SERVING")
			s.setStatus(healthpb.HealthCheckResponse_SERVING)
			serving = true
		}
	}
}

// Stop marks the server NOT_SERVING and waits for in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
