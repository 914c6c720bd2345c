package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "BOOKS"

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	GRPC      GRPCSettings      `mapstructure:"grpc"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Orders    OrderSettings     `mapstructure:"orders"`
	Estimate  EstimateSettings  `mapstructure:"estimate"`
	EventBus  EventBusSettings  `mapstructure:"eventbus"`
	Shipping  ShippingSettings  `mapstructure:"shipping"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// SeedSystemRoles creates the built-in roles at start when missing.
	SeedSystemRoles bool     `mapstructure:"seed_system_roles"`
	CORSOrigins     []string `mapstructure:"cors_origins"`
}

type GRPCSettings struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Enabled    bool          `mapstructure:"enabled"`
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	DB         int           `mapstructure:"db"`
	Password   string        `mapstructure:"password"`
	TLSEnabled bool          `mapstructure:"tls_enabled"`
	LockPrefix string        `mapstructure:"lock_prefix"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
}

// KafkaSettings configures the outbound event producer
type KafkaSettings struct {
	Enabled       bool     `mapstructure:"enabled"`
	Brokers       []string `mapstructure:"brokers"`
	TopicPrefix   string   `mapstructure:"topic_prefix"`
	Async         bool     `mapstructure:"async"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
	TrackingTopic string   `mapstructure:"tracking_topic"`
}

// RateLimitSettings bounds anonymous estimate requests per client
type RateLimitSettings struct {
	WindowDuration      time.Duration `mapstructure:"window_duration"`
	EstimateMaxAttempts int           `mapstructure:"estimate_max_attempts"`
}

type JWTSettings struct {
	Secret   string        `mapstructure:"secret"`
	Issuer   string        `mapstructure:"issuer"`
	Audience string        `mapstructure:"audience"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type TelemetrySettings struct {
	MetricsPort  int     `mapstructure:"metrics_port"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// OrderSettings controls inventory holds and the expiry sweep.
type OrderSettings struct {
	HoldDuration   time.Duration `mapstructure:"hold_duration"`
	ExpirySchedule string        `mapstructure:"expiry_schedule"`
	ExpiryBatch    int           `mapstructure:"expiry_batch"`
}

type EstimateSettings struct {
	Validity time.Duration `mapstructure:"validity"`
}

type EventBusSettings struct {
	MaxDepth int `mapstructure:"max_depth"`
}

// ShippingSettings configures inbound labels for purchase requests.
type ShippingSettings struct {
	InboundCarrier string `mapstructure:"inbound_carrier"`
	LabelBaseURL   string `mapstructure:"label_base_url"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.seed_system_roles",
		"app.cors_origins",
		"grpc.host",
		"grpc.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.auto_migrate",
		"redis.enabled",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.lock_prefix",
		"redis.lock_ttl",
		"kafka.enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"kafka.consumer_group",
		"kafka.tracking_topic",
		"jwt.secret",
		"jwt.issuer",
		"jwt.audience",
		"jwt.ttl",
		"telemetry.metrics_port",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"rate_limit.window_duration",
		"rate_limit.estimate_max_attempts",
		"orders.hold_duration",
		"orders.expiry_schedule",
		"orders.expiry_batch",
		"estimate.validity",
		"eventbus.max_depth",
		"shipping.inbound_carrier",
		"shipping.label_base_url",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" && !c.IsDevelopment() {
		return fmt.Errorf("config: jwt.secret is required outside development")
	}
	if c.Orders.HoldDuration <= 0 {
		return fmt.Errorf("config: orders.hold_duration must be positive")
	}
	if c.EventBus.MaxDepth <= 0 {
		return fmt.Errorf("config: eventbus.max_depth must be positive")
	}
	return nil
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.App.Env, "development")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "book-buyback")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.seed_system_roles", true)
	v.SetDefault("app.cors_origins", []string{})

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "books")
	v.SetDefault("postgres.password", "books_password")
	v.SetDefault("postgres.database", "books")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.lock_prefix", "books:lock")
	v.SetDefault("redis.lock_ttl", "10s")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "books")
	v.SetDefault("kafka.async", true)
	v.SetDefault("kafka.consumer_group", "book-buyback")
	v.SetDefault("kafka.tracking_topic", "carrier.tracking")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "book-buyback")
	v.SetDefault("jwt.audience", "")
	v.SetDefault("jwt.ttl", "15m")

	v.SetDefault("telemetry.metrics_port", 9090)
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "book-buyback")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.estimate_max_attempts", 30)

	v.SetDefault("orders.hold_duration", "30m")
	v.SetDefault("orders.expiry_schedule", "@every 1m")
	v.SetDefault("orders.expiry_batch", 100)

	v.SetDefault("estimate.validity", "336h")

	v.SetDefault("eventbus.max_depth", 8)

	v.SetDefault("shipping.inbound_carrier", "usps")
	v.SetDefault("shipping.label_base_url", "https://labels.books.local/inbound")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envPrefix+"_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
