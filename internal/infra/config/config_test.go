package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.App.Port)
	}
	if cfg.Orders.HoldDuration != 30*time.Minute {
		t.Fatalf("expected 30m hold, got %v", cfg.Orders.HoldDuration)
	}
	if cfg.Estimate.Validity != 14*24*time.Hour {
		t.Fatalf("expected 14 day estimate validity, got %v", cfg.Estimate.Validity)
	}
	if cfg.EventBus.MaxDepth != 8 {
		t.Fatalf("expected max depth 8, got %d", cfg.EventBus.MaxDepth)
	}
	if cfg.Redis.Enabled || cfg.Kafka.Enabled {
		t.Fatal("expected redis and kafka disabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BOOKS_APP_PORT", "9000")
	t.Setenv("BOOKS_ORDERS_HOLD_DURATION", "45m")
	t.Setenv("BOOKS_REDIS_ENABLED", "true")
	t.Setenv("BOOKS_ORDERS_EXPIRY_SCHEDULE", "*/5 * * * *")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.App.Port)
	}
	if cfg.Orders.HoldDuration != 45*time.Minute {
		t.Fatalf("expected 45m hold, got %v", cfg.Orders.HoldDuration)
	}
	if !cfg.Redis.Enabled {
		t.Fatal("expected redis enabled")
	}
	if cfg.Orders.ExpirySchedule != "*/5 * * * *" {
		t.Fatalf("unexpected schedule %q", cfg.Orders.ExpirySchedule)
	}
}

func TestLoadRequiresSecretOutsideDevelopment(t *testing.T) {
	t.Setenv("BOOKS_APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when jwt secret is missing in production")
	}

	t.Setenv("BOOKS_JWT_SECRET", "s3cret")
	if _, err := Load(); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
}
