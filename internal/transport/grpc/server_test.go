package transportgrpc

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/arklim/book-buyback/internal/infra/security"
	grpcinterceptors "github.com/arklim/book-buyback/internal/transport/grpc/interceptors"
)

func startServer(t *testing.T, checks map[string]ReadinessCheck) (*Server, healthpb.HealthClient) {
	t.Helper()

	verifier, err := security.NewTokenVerifier(security.TokenVerifierConfig{Secret: "grpc-secret"})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	metrics, err := grpcinterceptors.NewGRPCMetrics(grpcinterceptors.GRPCMetricsOptions{Registerer: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}

	srv := NewServer(ServerDependencies{
		Verifier: verifier,
		Logger:   zaptest.NewLogger(t),
		Metrics:  metrics,
		Checks:   checks,
	})

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return srv, healthpb.NewHealthClient(conn)
}

func TestHealthReflectsReadinessChecks(t *testing.T) {
	dbErr := errors.New("connection refused")
	failing := true
	srv, client := startServer(t, map[string]ReadinessCheck{
		"database": func(context.Context) error {
			if failing {
				return dbErr
			}
			return nil
		},
		"redis": func(context.Context) error { return nil },
	})
	ctx := context.Background()

	srv.Refresh(ctx)

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected overall NOT_SERVING, got %v", resp.GetStatus())
	}

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "redis"})
	if err != nil {
		t.Fatalf("check redis: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected redis SERVING, got %v", resp.GetStatus())
	}

	failing = false
	srv.Refresh(ctx)

	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("check after recovery: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected overall SERVING after recovery, got %v", resp.GetStatus())
	}
}

func TestHealthIsPublicWithoutChecks(t *testing.T) {
	_, client := startServer(t, nil)

	resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health check should not require a token: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", resp.GetStatus())
	}
}
