package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config تنظیمات کل سرویس؛ ترتیب اولویت: مقادیر پیش‌فرض، فایل YAML (CONFIG_FILE)، متغیرهای محیطی
type Config struct {
	Env     string
	AppPort string

	DBDriver string // mysql | postgres | sqlite
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	TriggerBackend string // redis | database
	NodeID         string
	FeedSize       int

	Engine    EngineConfig
	Platforms PlatformsConfig
}

// EngineConfig تنظیمات اجرای پست‌ها و سیاست تلاش مجدد
type EngineConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	Workers          int
	LeaseDuration    time.Duration
	CallTimeout      time.Duration
	MaxParallelCalls int

	MaxRetries    int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	RetryJitter   float64

	StaleProcessingAfter time.Duration
	MaintenanceSchedule  string
}

type PlatformsConfig struct {
	XBaseURL            string
	InstagramBaseURL    string
	InstagramAPIVersion string
	TelegramAPIURL      string
	RatePerSec          int
}

func Default() Config {
	return Config{
		Env:            "development",
		AppPort:        "8080",
		DBDriver:       "mysql",
		TriggerBackend: "redis",
		NodeID:         defaultNodeID(),
		FeedSize:       200,
		Engine: EngineConfig{
			PollInterval:         time.Second,
			BatchSize:            100,
			Workers:              8,
			LeaseDuration:        5 * time.Minute,
			CallTimeout:          30 * time.Second,
			MaxParallelCalls:     4,
			MaxRetries:           3,
			RetryBase:            time.Minute,
			RetryMaxDelay:        30 * time.Minute,
			RetryJitter:          0.2,
			StaleProcessingAfter: 15 * time.Minute,
			MaintenanceSchedule:  "@every 1m",
		},
		Platforms: PlatformsConfig{
			XBaseURL:            "https://api.twitter.com",
			InstagramBaseURL:    "https://graph.facebook.com",
			InstagramAPIVersion: "v18.0",
			TelegramAPIURL:      "https://api.telegram.org",
			RatePerSec:          5,
		},
	}
}

// Load بارگذاری .env و تنظیمات
func Load() (Config, error) {
	// نبودن فایل .env خطا نیست؛ از متغیرهای سیستم استفاده می‌شود
	_ = godotenv.Load()
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(getenv("CONFIG_FILE")); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	if err := applyEnv(&cfg, getenv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.DBDSN == "" {
		return errors.New("DB_DSN is not set")
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	switch c.TriggerBackend {
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is not set")
		}
	case "database":
	default:
		return fmt.Errorf("TRIGGER_BACKEND %q is not supported", c.TriggerBackend)
	}
	if c.Engine.MaxRetries < 0 {
		return errors.New("MAX_RETRIES must be >= 0")
	}
	if c.Engine.RetryJitter < 0 || c.Engine.RetryJitter >= 1 {
		return errors.New("RETRY_JITTER must be in [0, 1)")
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", key, v)
		}
		*dst = n
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		d, err := ParseDurationOrDefault(key, getenv(key), *dst)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}

	str("APP_ENV", &cfg.Env)
	str("APP_PORT", &cfg.AppPort)
	str("DB_DRIVER", &cfg.DBDriver)
	str("DB_DSN", &cfg.DBDSN)
	str("REDIS_ADDR", &cfg.RedisAddr)
	str("REDIS_PASSWORD", &cfg.RedisPassword)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("TRIGGER_BACKEND", &cfg.TriggerBackend)
	str("NODE_ID", &cfg.NodeID)
	str("MAINTENANCE_SCHEDULE", &cfg.Engine.MaintenanceSchedule)
	str("X_API_BASE_URL", &cfg.Platforms.XBaseURL)
	str("INSTAGRAM_API_BASE_URL", &cfg.Platforms.InstagramBaseURL)
	str("INSTAGRAM_API_VERSION", &cfg.Platforms.InstagramAPIVersion)
	str("TELEGRAM_API_URL", &cfg.Platforms.TelegramAPIURL)

	ints := []struct {
		key string
		dst *int
	}{
		{"REDIS_DB", &cfg.RedisDB},
		{"FEED_SIZE", &cfg.FeedSize},
		{"BATCH_SIZE", &cfg.Engine.BatchSize},
		{"WORKERS", &cfg.Engine.Workers},
		{"MAX_PARALLEL_CALLS", &cfg.Engine.MaxParallelCalls},
		{"MAX_RETRIES", &cfg.Engine.MaxRetries},
		{"PLATFORM_RATE_PER_SEC", &cfg.Platforms.RatePerSec},
	}
	for _, it := range ints {
		if err := num(it.key, it.dst); err != nil {
			return err
		}
	}

	durs := []struct {
		key string
		dst *time.Duration
	}{
		{"POLL_INTERVAL", &cfg.Engine.PollInterval},
		{"LEASE_DURATION", &cfg.Engine.LeaseDuration},
		{"CALL_TIMEOUT", &cfg.Engine.CallTimeout},
		{"RETRY_BASE", &cfg.Engine.RetryBase},
		{"RETRY_MAX_DELAY", &cfg.Engine.RetryMaxDelay},
		{"STALE_PROCESSING_AFTER", &cfg.Engine.StaleProcessingAfter},
	}
	for _, it := range durs {
		if err := dur(it.key, it.dst); err != nil {
			return err
		}
	}

	if v := strings.TrimSpace(getenv("RETRY_JITTER")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RETRY_JITTER: invalid number %q", v)
		}
		cfg.Engine.RetryJitter = f
	}
	return nil
}

func defaultNodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "node"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
