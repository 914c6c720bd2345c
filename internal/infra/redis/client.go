package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/infra/config"
)

const pingTimeout = 5 * time.Second

// Client owns the Redis pool shared by the entity locker and the rate limiter.
type Client struct {
	client *redis.Client
	logger *zap.Logger
}

// NewClient connects and pings once so a misconfigured address fails at start.
func NewClient(ctx context.Context, cfg config.RedisSettings, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(clientOptions(cfg))

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("Redis connection established",
		zap.String("addr", client.Options().Addr),
		zap.Int("db", cfg.DB),
		zap.Bool("tls_enabled", cfg.TLSEnabled),
	)

	return &Client{client: client, logger: logger}, nil
}

// NewClientFrom wraps an existing client without pinging it.
func NewClientFrom(client *redis.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{client: client, logger: logger}
}

func clientOptions(cfg config.RedisSettings) *redis.Options {
	opts := &redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: cfg.Host}
	}
	return opts
}

func (c *Client) Client() *redis.Client {
	return c.client
}

// HealthCheck pings the server; readiness probes call it.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	c.logger.Info("Closing Redis connection")
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}

// PoolCollector exports connection pool statistics.
func (c *Client) PoolCollector(namespace string) prometheus.Collector {
	if namespace == "" {
		namespace = "books"
	}
	return &poolCollector{
		client: c.client,
		hits:   prometheus.NewDesc(prometheus.BuildFQName(namespace, "redis_pool", "hits_total"), "Times a free connection was found in the pool.", nil, nil),
		misses: prometheus.NewDesc(prometheus.BuildFQName(namespace, "redis_pool", "misses_total"), "Times a free connection was not found in the pool.", nil, nil),
		waits:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "redis_pool", "timeouts_total"), "Times a wait for a connection timed out.", nil, nil),
		total:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "redis_pool", "connections"), "Connections in the pool.", []string{"state"}, nil),
	}
}

type poolCollector struct {
	client *redis.Client
	hits   *prometheus.Desc
	misses *prometheus.Desc
	waits  *prometheus.Desc
	total  *prometheus.Desc
}

func (p *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.hits
	ch <- p.misses
	ch <- p.waits
	ch <- p.total
}

func (p *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := p.client.PoolStats()
	ch <- prometheus.MustNewConstMetric(p.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(p.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(p.waits, prometheus.CounterValue, float64(stats.Timeouts))
	ch <- prometheus.MustNewConstMetric(p.total, prometheus.GaugeValue, float64(stats.IdleConns), "idle")
	ch <- prometheus.MustNewConstMetric(p.total, prometheus.GaugeValue, float64(stats.TotalConns-stats.IdleConns), "in_use")
}
