package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()

	t.Setenv("DATABASE_DSN", "postgres://localhost/outreach")
	t.Setenv("RABBITMQ_URL", "amqp://localhost:5672")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("FIRECRAWL_URL", "http://localhost:3002")
	t.Setenv("DRAFTER_URL", "http://localhost:3003")
	t.Setenv("SENDER_URL", "http://localhost:3004")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RateLimitPerSec != 10 {
		t.Fatalf("rate limit=%d, want=10", cfg.RateLimitPerSec)
	}
	if cfg.WorkerConcurrency != 8 {
		t.Fatalf("worker concurrency=%d, want=8", cfg.WorkerConcurrency)
	}
	if cfg.SendConcurrency != 4 {
		t.Fatalf("send concurrency=%d, want=4", cfg.SendConcurrency)
	}
	if cfg.QueueScanIntervalSec != 30 {
		t.Fatalf("queue scan interval=%d, want=30", cfg.QueueScanIntervalSec)
	}
	if cfg.FollowupScanIntervalSec != 60 {
		t.Fatalf("followup scan interval=%d, want=60", cfg.FollowupScanIntervalSec)
	}
	if cfg.SendWindowStartHour != 0 || cfg.SendWindowEndHour != 0 {
		t.Fatalf("send window=%d-%d, want disabled 0-0", cfg.SendWindowStartHour, cfg.SendWindowEndHour)
	}
	if cfg.APIPort != 8080 {
		t.Fatalf("api port=%d, want=8080", cfg.APIPort)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level=%q, want=info", cfg.LogLevel)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequiredEnv(t)
	// t.Setenv registered the restore; drop the variable for this load only.
	os.Unsetenv("DATABASE_DSN")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DATABASE_DSN")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_LIMIT_PER_SEC", "25")
	t.Setenv("SEND_WINDOW_START_HOUR", "9")
	t.Setenv("SEND_WINDOW_END_HOUR", "17")
	t.Setenv("APOLLO_API_KEY", "apollo-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.RateLimitPerSec != 25 {
		t.Fatalf("rate limit=%d, want=25", cfg.RateLimitPerSec)
	}
	if cfg.SendWindowStartHour != 9 || cfg.SendWindowEndHour != 17 {
		t.Fatalf("send window=%d-%d, want=9-17", cfg.SendWindowStartHour, cfg.SendWindowEndHour)
	}
	if cfg.ApolloAPIKey != "apollo-key" {
		t.Fatalf("apollo key=%q, want=apollo-key", cfg.ApolloAPIKey)
	}
}

func TestConfig_DurationHelpers(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		QueueScanIntervalSec:    30,
		FollowupScanIntervalSec: 60,
		WebsiteCacheRefreshDays: 30,
		WebsiteCacheTTLHours:    24,
	}

	if got := cfg.QueueScanInterval(); got != 30*time.Second {
		t.Fatalf("queue scan interval=%v, want=30s", got)
	}
	if got := cfg.FollowupScanInterval(); got != time.Minute {
		t.Fatalf("followup scan interval=%v, want=1m", got)
	}
	if got := cfg.WebsiteCacheRefresh(); got != 30*24*time.Hour {
		t.Fatalf("cache refresh=%v, want=720h", got)
	}
	if got := cfg.WebsiteCacheTTL(); got != 24*time.Hour {
		t.Fatalf("cache ttl=%v, want=24h", got)
	}
}
