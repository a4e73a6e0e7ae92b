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
  cors_origins: ["https://app.leadconvert.io"]

database:
  url: "postgres://localhost/leadconvert?sslmode=disable"

mailing:
  provider: ses
  from_email: "hello@leadconvert.io"
  count_unmatched_recipients: true
  dispatch_timeout_seconds: 10

ses:
  region: eu-west-1
  configuration_set: tracking

logging:
  level: debug
  redact_pii: false
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, []string{"https://app.leadconvert.io"}, cfg.Server.CORSOrigins)

	assert.Equal(t, ProviderSES, cfg.Mailing.Provider)
	assert.True(t, cfg.Mailing.CountUnmatchedRecipients)
	assert.False(t, cfg.Mailing.SkipSuppressed)
	assert.Equal(t, 10*time.Second, cfg.Mailing.DispatchTimeout())

	assert.Equal(t, "eu-west-1", cfg.SES.Region)
	assert.Equal(t, "eu-west-1", cfg.Archive.Region, "archive region falls back to SES region")
	assert.False(t, cfg.Logging.Redact())

	require.NoError(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("{}"), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, ProviderSendGrid, cfg.Mailing.Provider)
	assert.Equal(t, "LeadConvert", cfg.Mailing.DefaultSenderName)
	assert.Equal(t, 30*time.Second, cfg.Mailing.DispatchTimeout())
	assert.Equal(t, "https://api.sendgrid.com", cfg.SendGrid.BaseURL)
	assert.Equal(t, "webhooks", cfg.Archive.Prefix)
	assert.Equal(t, 72*time.Hour, cfg.Webhook.DedupTTL())
	assert.True(t, cfg.Logging.Redact())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	err := os.WriteFile(configPath, []byte("server: [port"), 0644)
	require.NoError(t, err)

	_, err = Load(configPath)
	assert.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("REDIS_URL", "redis://env:6379/0")
	t.Setenv("SENDGRID_API_KEY", "SG.env")
	t.Setenv("SENDGRID_FROM_EMAIL", "env@leadconvert.io")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("CORS_ORIGINS", "https://a.io, https://b.io,")
	t.Setenv("S3_ARCHIVE_BUCKET", "lc-webhooks")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, "redis://env:6379/0", cfg.Redis.URL)
	assert.Equal(t, "SG.env", cfg.SendGrid.APIKey)
	assert.Equal(t, "env@leadconvert.io", cfg.Mailing.FromEmail)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.io", "https://b.io"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "lc-webhooks", cfg.Archive.Bucket)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvBadPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	_, err := LoadFromEnv(filepath.Join(t.TempDir(), "config.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "SENDGRID_API_KEY")
	assert.Contains(t, err.Error(), "SENDGRID_FROM_EMAIL")

	cfg.Mailing.Provider = "mailchimp"
	assert.Contains(t, cfg.Validate().Error(), `"mailchimp"`)
}

func TestServerAddr(t *testing.T) {
	t.Setenv("ECS_CONTAINER_METADATA_URI", "")
	t.Setenv("AWS_EXECUTION_ENV", "")
	t.Setenv("SERVER_HOST", "")
	cfg := ServerConfig{Host: "127.0.0.1", Port: 8081}
	assert.Equal(t, "127.0.0.1:8081", cfg.Addr())
}
