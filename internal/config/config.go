package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	SES      SESConfig      `yaml:"ses"`
	Cron     CronConfig     `yaml:"cron"`
	App      AppConfig      `yaml:"app"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CronConfig holds authentication for the cron trigger endpoints
type CronConfig struct {
	Secret string `yaml:"secret"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	BaseURL string `yaml:"base_url"`
}

// WebhookConfig holds webhook delivery settings
type WebhookConfig struct {
	MaxRetries            int `yaml:"max_retries"`
	AttemptTimeoutSeconds int `yaml:"attempt_timeout_seconds"`
	InitialDelayMS        int `yaml:"initial_delay_ms"`
	MaxDelayMS            int `yaml:"max_delay_ms"`
}

// AttemptTimeout returns the per-attempt HTTP timeout as a duration
func (c WebhookConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSeconds) * time.Second
}

// InitialDelay returns the first retry backoff as a duration
func (c WebhookConfig) InitialDelay() time.Duration {
	return time.Duration(c.InitialDelayMS) * time.Millisecond
}

// MaxDelay returns the backoff ceiling as a duration
func (c WebhookConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelayMS) * time.Millisecond
}

// DispatchConfig holds batch dispatch settings for scheduled emails
// and broadcasts
type DispatchConfig struct {
	EmailBatchSize      int `yaml:"email_batch_size"`
	BroadcastBatchSize  int `yaml:"broadcast_batch_size"`
	SendDelayMS         int `yaml:"send_delay_ms"`
	QueuedSweepMinutes  int `yaml:"queued_sweep_minutes"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
}

// SendDelay returns the pause between per-contact sends as a duration
func (c DispatchConfig) SendDelay() time.Duration {
	return time.Duration(c.SendDelayMS) * time.Millisecond
}

// QueuedSweepThreshold returns how long an email may sit queued before
// the sweeper fails it
func (c DispatchConfig) QueuedSweepThreshold() time.Duration {
	return time.Duration(c.QueuedSweepMinutes) * time.Minute
}

// PollInterval returns the worker polling interval as a duration
func (c DispatchConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 5
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.Webhook.MaxRetries == 0 {
		cfg.Webhook.MaxRetries = 5
	}
	if cfg.Webhook.AttemptTimeoutSeconds == 0 {
		cfg.Webhook.AttemptTimeoutSeconds = 30
	}
	if cfg.Webhook.InitialDelayMS == 0 {
		cfg.Webhook.InitialDelayMS = 1000
	}
	if cfg.Webhook.MaxDelayMS == 0 {
		cfg.Webhook.MaxDelayMS = 300000
	}
	if cfg.Dispatch.EmailBatchSize == 0 {
		cfg.Dispatch.EmailBatchSize = 50
	}
	if cfg.Dispatch.BroadcastBatchSize == 0 {
		cfg.Dispatch.BroadcastBatchSize = 10
	}
	if cfg.Dispatch.SendDelayMS == 0 {
		cfg.Dispatch.SendDelayMS = 50
	}
	if cfg.Dispatch.QueuedSweepMinutes == 0 {
		cfg.Dispatch.QueuedSweepMinutes = 15
	}
	if cfg.Dispatch.PollIntervalSeconds == 0 {
		cfg.Dispatch.PollIntervalSeconds = 60
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.SES.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.SES.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.SES.Region = region
	}
	if secret := os.Getenv("CRON_SECRET"); secret != "" {
		cfg.Cron.Secret = secret
	}
	if baseURL := os.Getenv("APP_BASE_URL"); baseURL != "" {
		cfg.App.BaseURL = baseURL
	}

	return cfg, nil
}
