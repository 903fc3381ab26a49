package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// fileConfig ساختار فایل YAML؛ فیلدهای خالی مقدار قبلی را تغییر نمی‌دهند
type fileConfig struct {
	Env     string `yaml:"env"`
	AppPort string `yaml:"app_port"`

	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       *int   `yaml:"db"`
	} `yaml:"redis"`

	TriggerBackend string `yaml:"trigger_backend"`
	NodeID         string `yaml:"node_id"`
	FeedSize       int    `yaml:"feed_size"`

	Engine struct {
		PollInterval         string   `yaml:"poll_interval"`
		BatchSize            int      `yaml:"batch_size"`
		Workers              int      `yaml:"workers"`
		LeaseDuration        string   `yaml:"lease_duration"`
		CallTimeout          string   `yaml:"call_timeout"`
		MaxParallelCalls     int      `yaml:"max_parallel_calls"`
		MaxRetries           *int     `yaml:"max_retries"`
		RetryBase            string   `yaml:"retry_base"`
		RetryMaxDelay        string   `yaml:"retry_max_delay"`
		RetryJitter          *float64 `yaml:"retry_jitter"`
		StaleProcessingAfter string   `yaml:"stale_processing_after"`
		MaintenanceSchedule  string   `yaml:"maintenance_schedule"`
	} `yaml:"engine"`

	Platforms struct {
		XBaseURL            string `yaml:"x_base_url"`
		InstagramBaseURL    string `yaml:"instagram_base_url"`
		InstagramAPIVersion string `yaml:"instagram_api_version"`
		TelegramAPIURL      string `yaml:"telegram_api_url"`
		RatePerSec          int    `yaml:"rate_per_sec"`
	} `yaml:"platforms"`
}

func applyFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc.apply(cfg)
}

func (fc fileConfig) apply(cfg *Config) error {
	setStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}

	setStr(&cfg.Env, fc.Env)
	setStr(&cfg.AppPort, fc.AppPort)
	setStr(&cfg.DBDriver, fc.Database.Driver)
	setStr(&cfg.DBDSN, fc.Database.DSN)
	setStr(&cfg.RedisAddr, fc.Redis.Addr)
	setStr(&cfg.RedisPassword, fc.Redis.Password)
	if fc.Redis.DB != nil {
		cfg.RedisDB = *fc.Redis.DB
	}
	setStr(&cfg.TriggerBackend, fc.TriggerBackend)
	setStr(&cfg.NodeID, fc.NodeID)
	setInt(&cfg.FeedSize, fc.FeedSize)

	e := &cfg.Engine
	setInt(&e.BatchSize, fc.Engine.BatchSize)
	setInt(&e.Workers, fc.Engine.Workers)
	setInt(&e.MaxParallelCalls, fc.Engine.MaxParallelCalls)
	if fc.Engine.MaxRetries != nil {
		e.MaxRetries = *fc.Engine.MaxRetries
	}
	if fc.Engine.RetryJitter != nil {
		e.RetryJitter = *fc.Engine.RetryJitter
	}
	setStr(&e.MaintenanceSchedule, fc.Engine.MaintenanceSchedule)

	durs := []struct {
		path string
		raw  string
		dst  *time.Duration
	}{
		{"engine.poll_interval", fc.Engine.PollInterval, &e.PollInterval},
		{"engine.lease_duration", fc.Engine.LeaseDuration, &e.LeaseDuration},
		{"engine.call_timeout", fc.Engine.CallTimeout, &e.CallTimeout},
		{"engine.retry_base", fc.Engine.RetryBase, &e.RetryBase},
		{"engine.retry_max_delay", fc.Engine.RetryMaxDelay, &e.RetryMaxDelay},
		{"engine.stale_processing_after", fc.Engine.StaleProcessingAfter, &e.StaleProcessingAfter},
	}
	for _, d := range durs {
		v, err := ParseDurationOrDefault(d.path, d.raw, *d.dst)
		if err != nil {
			return err
		}
		*d.dst = v
	}

	p := &cfg.Platforms
	setStr(&p.XBaseURL, fc.Platforms.XBaseURL)
	setStr(&p.InstagramBaseURL, fc.Platforms.InstagramBaseURL)
	setStr(&p.InstagramAPIVersion, fc.Platforms.InstagramAPIVersion)
	setStr(&p.TelegramAPIURL, fc.Platforms.TelegramAPIURL)
	setInt(&p.RatePerSec, fc.Platforms.RatePerSec)
	return nil
}
