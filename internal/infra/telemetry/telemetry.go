package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/infra/config"
)

// Provider owns the process metrics registry and, when configured, the tracer provider.
type Provider struct {
	registry *prometheus.Registry
	tracer   *TracerProvider
}

// Attach configures telemetry exporters and returns a provider handle.
func Attach(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	provider := &Provider{registry: registry}

	if strings.TrimSpace(cfg.Telemetry.OTLPEndpoint) != "" {
		tp, err := NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Env, logger)
		if err != nil {
			return nil, fmt.Errorf("init tracer provider: %w", err)
		}
		provider.tracer = tp
	}

	return provider, nil
}

// Registerer is where HTTP, gRPC and event bus collectors register.
func (p *Provider) Registerer() prometheus.Registerer {
	if p == nil || p.registry == nil {
		return prometheus.DefaultRegisterer
	}
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Provider) Handler() http.Handler {
	if p == nil || p.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Tracing returns the configured tracer provider, or the global one when no
// OTLP endpoint is set.
func (p *Provider) Tracing() trace.TracerProvider {
	if p == nil || p.tracer == nil {
		return otel.GetTracerProvider()
	}
	return p.tracer.TracerProvider()
}

// Shutdown flushes pending spans.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tracer == nil {
		return nil
	}
	return p.tracer.Shutdown(ctx)
}
