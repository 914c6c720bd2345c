package transportgrpc

import (
	"context"
	"net"
	"sort"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcinterceptors "github.com/arklim/book-buyback/internal/transport/grpc/interceptors"
)

const defaultCheckTimeout = 2 * time.Second

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// ServerDependencies encapsulates what the gRPC server layer needs.
type ServerDependencies struct {
	Verifier grpcinterceptors.TokenVerifier
	Logger   *zap.Logger
	Metrics  *grpcinterceptors.GRPCMetrics
	Tracing  trace.TracerProvider
	// Checks are reported as individual health services and fold into the
	// overall ("") status.
	Checks map[string]ReadinessCheck
	// PublicMethods are served without a bearer token. Health and reflection
	// are always public.
	PublicMethods []string
}

// Server owns the gRPC listener surface and its health state.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	checks map[string]ReadinessCheck
	names  []string
	logger *zap.Logger
}

// NewServer builds a gRPC server traced through the otelgrpc stats handler,
// with metrics recorded before authentication runs.
func NewServer(deps ServerDependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	public := append([]string{
		healthpb.Health_Check_FullMethodName,
		healthpb.Health_Watch_FullMethodName,
		"/grpc.reflection.v1.ServerReflection/ServerReflectionInfo",
		"/grpc.reflection.v1alpha.ServerReflection/ServerReflectionInfo",
	}, deps.PublicMethods...)

	var traceOpts []otelgrpc.Option
	if deps.Tracing != nil {
		traceOpts = append(traceOpts, otelgrpc.WithTracerProvider(deps.Tracing))
	}
	auth := grpcinterceptors.NewAuthInterceptor(deps.Verifier, grpcinterceptors.AuthOptions{
		Logger:       logger,
		AllowMethods: public,
	})

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler(traceOpts...)),
		grpc.ChainUnaryInterceptor(deps.Metrics.Unary(), auth.Unary()),
		grpc.ChainStreamInterceptor(deps.Metrics.Stream(), auth.Stream()),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	reflection.Register(server)

	names := make([]string, 0, len(deps.Checks))
	for name := range deps.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Server{
		grpc:   server,
		health: healthServer,
		checks: deps.Checks,
		names:  names,
		logger: logger,
	}
}

// GRPC exposes the underlying server for service registration.
func (s *Server) GRPC() *grpc.Server {
	return s.grpc
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

// Refresh runs every readiness check once and publishes the result.
func (s *Server) Refresh(ctx context.Context) {
	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range s.names {
		checkCtx, cancel := context.WithTimeout(ctx, defaultCheckTimeout)
		err := s.checks[name](checkCtx)
		cancel()

		st := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
		}
		s.health.SetServingStatus(name, st)
	}
	s.health.SetServingStatus("", overall)
}

// MonitorReadiness refreshes health state every interval until ctx is done.
func (s *Server) MonitorReadiness(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	s.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Stop flips every service to NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
