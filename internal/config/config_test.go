package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  port: 9090
  host: "0.0.0.0"

database:
  url: "postgres://localhost:5432/unosend?sslmode=disable"
  max_open_conns: 50

ses:
  region: "eu-west-1"
  access_key: "test-access"
  secret_key: "test-secret"
  timeout_seconds: 45

cron:
  secret: "cron-secret-token"

app:
  base_url: "https://app.unosend.com"

webhook:
  max_retries: 3
  attempt_timeout_seconds: 10
  initial_delay_ms: 500
  max_delay_ms: 60000

dispatch:
  email_batch_size: 25
  broadcast_batch_size: 5
  send_delay_ms: 100
  queued_sweep_minutes: 30
  poll_interval_seconds: 15
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Test server config
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Test database config
	assert.Equal(t, "postgres://localhost:5432/unosend?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)

	// Test SES config
	assert.Equal(t, "eu-west-1", cfg.SES.Region)
	assert.Equal(t, "test-access", cfg.SES.AccessKey)
	assert.Equal(t, 45, cfg.SES.TimeoutSeconds)

	// Test cron/app config
	assert.Equal(t, "cron-secret-token", cfg.Cron.Secret)
	assert.Equal(t, "https://app.unosend.com", cfg.App.BaseURL)

	// Test webhook config
	assert.Equal(t, 3, cfg.Webhook.MaxRetries)
	assert.Equal(t, 10, cfg.Webhook.AttemptTimeoutSeconds)
	assert.Equal(t, 500, cfg.Webhook.InitialDelayMS)
	assert.Equal(t, 60000, cfg.Webhook.MaxDelayMS)

	// Test dispatch config
	assert.Equal(t, 25, cfg.Dispatch.EmailBatchSize)
	assert.Equal(t, 5, cfg.Dispatch.BroadcastBatchSize)
	assert.Equal(t, 100, cfg.Dispatch.SendDelayMS)
	assert.Equal(t, 30, cfg.Dispatch.QueuedSweepMinutes)
	assert.Equal(t, 15, cfg.Dispatch.PollIntervalSeconds)
}

func TestLoadDefaults(t *testing.T) {
	// Create a minimal config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  url: "postgres://localhost/unosend"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Verify defaults are applied
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 30, cfg.SES.TimeoutSeconds)
	assert.Equal(t, "us-east-1", cfg.SES.Region)
	assert.Equal(t, 5, cfg.Webhook.MaxRetries)
	assert.Equal(t, 30, cfg.Webhook.AttemptTimeoutSeconds)
	assert.Equal(t, 1000, cfg.Webhook.InitialDelayMS)
	assert.Equal(t, 300000, cfg.Webhook.MaxDelayMS)
	assert.Equal(t, 50, cfg.Dispatch.EmailBatchSize)
	assert.Equal(t, 10, cfg.Dispatch.BroadcastBatchSize)
	assert.Equal(t, 50, cfg.Dispatch.SendDelayMS)
	assert.Equal(t, 15, cfg.Dispatch.QueuedSweepMinutes)
	assert.Equal(t, 60, cfg.Dispatch.PollIntervalSeconds)
}

func TestLoadFromEnv(t *testing.T) {
	// Create a minimal config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database:
  url: "postgres://file-host/unosend"
cron:
  secret: "file-secret"
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	// Set environment variables
	os.Setenv("DATABASE_URL", "postgres://env-host/unosend")
	os.Setenv("CRON_SECRET", "env-secret")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("CRON_SECRET")
	}()

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	// Environment variables should override file values
	assert.Equal(t, "postgres://env-host/unosend", cfg.Database.URL)
	assert.Equal(t, "env-secret", cfg.Cron.Secret)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	ses := SESConfig{TimeoutSeconds: 45}
	assert.Equal(t, 45*time.Second, ses.Timeout())

	wh := WebhookConfig{AttemptTimeoutSeconds: 10, InitialDelayMS: 500, MaxDelayMS: 60000}
	assert.Equal(t, 10*time.Second, wh.AttemptTimeout())
	assert.Equal(t, 500*time.Millisecond, wh.InitialDelay())
	assert.Equal(t, time.Minute, wh.MaxDelay())

	d := DispatchConfig{SendDelayMS: 50, QueuedSweepMinutes: 15, PollIntervalSeconds: 60}
	assert.Equal(t, 50*time.Millisecond, d.SendDelay())
	assert.Equal(t, 15*time.Minute, d.QueuedSweepThreshold())
	assert.Equal(t, time.Minute, d.PollInterval())
}
