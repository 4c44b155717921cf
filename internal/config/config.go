package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	ApolloAPIKey  string `env:"APOLLO_API_KEY"`
	ApolloBaseURL string `env:"APOLLO_BASE_URL"`
	ApifyToken    string `env:"APIFY_TOKEN"`
	ApifyBaseURL  string `env:"APIFY_BASE_URL"`
	ApifyActorID  string `env:"APIFY_ACTOR_ID"`

	FirecrawlURL    string `env:"FIRECRAWL_URL,required=true"`
	FirecrawlAPIKey string `env:"FIRECRAWL_API_KEY"`
	DrafterURL      string `env:"DRAFTER_URL,required=true"`
	DrafterAPIKey   string `env:"DRAFTER_API_KEY"`
	SenderURL       string `env:"SENDER_URL,required=true"`
	SenderAPIKey    string `env:"SENDER_API_KEY"`
	ReplyTrackerURL string `env:"REPLY_TRACKER_URL"`
	ReplyTrackerKey string `env:"REPLY_TRACKER_API_KEY"`

	RateLimitPerSec   int `env:"RATE_LIMIT_PER_SEC,default=10"`
	WorkerConcurrency int `env:"WORKER_CONCURRENCY,default=8"`
	SendConcurrency   int `env:"SEND_CONCURRENCY,default=4"`

	QueueScanIntervalSec    int `env:"QUEUE_SCAN_INTERVAL_SEC,default=30"`
	QueueScanLimit          int `env:"QUEUE_SCAN_LIMIT,default=100"`
	FollowupScanIntervalSec int `env:"FOLLOWUP_SCAN_INTERVAL_SEC,default=60"`
	FollowupScanLimit       int `env:"FOLLOWUP_SCAN_LIMIT,default=100"`

	SendWindowStartHour int `env:"SEND_WINDOW_START_HOUR,default=0"`
	SendWindowEndHour   int `env:"SEND_WINDOW_END_HOUR,default=0"`

	WebsiteCacheRefreshDays int `env:"WEBSITE_CACHE_REFRESH_DAYS,default=30"`
	WebsiteCacheTTLHours    int `env:"WEBSITE_CACHE_TTL_HOURS,default=24"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) QueueScanInterval() time.Duration {
	return time.Duration(c.QueueScanIntervalSec) * time.Second
}

func (c *Config) FollowupScanInterval() time.Duration {
	return time.Duration(c.FollowupScanIntervalSec) * time.Second
}

func (c *Config) WebsiteCacheRefresh() time.Duration {
	return time.Duration(c.WebsiteCacheRefreshDays) * 24 * time.Hour
}

func (c *Config) WebsiteCacheTTL() time.Duration {
	return time.Duration(c.WebsiteCacheTTLHours) * time.Hour
}
