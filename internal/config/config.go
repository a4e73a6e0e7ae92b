package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Mailing  MailingConfig  `yaml:"mailing"`
	SendGrid SendGridConfig `yaml:"sendgrid"`
	SES      SESConfig      `yaml:"ses"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Logging  LoggingConfig  `yaml:"logging"`
	Webhook  WebhookConfig  `yaml:"webhook"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int      `yaml:"port"`
	Host        string   `yaml:"host"`
	APIToken    string   `yaml:"api_token"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig holds the PostgreSQL connection.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the optional Redis connection. An empty URL disables
// Redis-backed dedup and locking.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// Mailing providers.
const (
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"
)

// MailingConfig controls campaign sending.
type MailingConfig struct {
	Provider                  string `yaml:"provider"`
	FromEmail                 string `yaml:"from_email"`
	DefaultSenderName         string `yaml:"default_sender_name"`
	CountUnmatchedRecipients  bool   `yaml:"count_unmatched_recipients"`
	SkipSuppressed            bool   `yaml:"skip_suppressed"`
	MarkFailedOnDispatchError bool   `yaml:"mark_failed_on_dispatch_error"`
	DispatchTimeoutSeconds    int    `yaml:"dispatch_timeout_seconds"`
}

// DispatchTimeout returns the configured timeout as a duration
func (c MailingConfig) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutSeconds) * time.Second
}

// SendGridConfig holds SendGrid API configuration
type SendGridConfig struct {
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	MaxRetries       int    `yaml:"max_retries"`
	WebhookPublicKey string `yaml:"webhook_public_key"`
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	ConfigurationSet string `yaml:"configuration_set"`
}

// ArchiveConfig enables raw webhook archiving to S3 when Bucket is set.
type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether email addresses are masked in logs. Defaults to true.
func (c LoggingConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// WebhookConfig controls event ingestion.
type WebhookConfig struct {
	DedupTTLHours int `yaml:"dedup_ttl_hours"`
}

// DedupTTL returns how long processed event keys are remembered in Redis.
func (c WebhookConfig) DedupTTL() time.Duration {
	return time.Duration(c.DedupTTLHours) * time.Hour
}

// Load reads and parses the configuration file. A missing file yields the
// defaults so the service can run from environment variables alone.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Mailing.Provider == "" {
		cfg.Mailing.Provider = ProviderSendGrid
	}
	if cfg.Mailing.DefaultSenderName == "" {
		cfg.Mailing.DefaultSenderName = "LeadConvert"
	}
	if cfg.Mailing.DispatchTimeoutSeconds == 0 {
		cfg.Mailing.DispatchTimeoutSeconds = 30
	}
	if cfg.SendGrid.BaseURL == "" {
		cfg.SendGrid.BaseURL = "https://api.sendgrid.com"
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-west-2"
	}
	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = "webhooks"
	}
	if cfg.Archive.Region == "" {
		cfg.Archive.Region = cfg.SES.Region
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Webhook.DedupTTLHours == 0 {
		cfg.Webhook.DedupTTLHours = 72
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("API_TOKEN"); v != "" {
		cfg.Server.APIToken = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("MAILING_PROVIDER"); v != "" {
		cfg.Mailing.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		cfg.SendGrid.APIKey = v
	}
	if v := os.Getenv("SENDGRID_FROM_EMAIL"); v != "" {
		cfg.Mailing.FromEmail = v
	}
	if v := os.Getenv("SENDGRID_WEBHOOK_PUBLIC_KEY"); v != "" {
		cfg.SendGrid.WebhookPublicKey = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("AWS_SES_CONFIGURATION_SET"); v != "" {
		cfg.SES.ConfigurationSet = v
	}
	if v := os.Getenv("S3_ARCHIVE_BUCKET"); v != "" {
		cfg.Archive.Bucket = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}

// Validate reports settings the server cannot start without.
func (cfg *Config) Validate() error {
	var problems []string
	if cfg.Database.URL == "" {
		problems = append(problems, "database.url (DATABASE_URL) is required")
	}
	if cfg.Mailing.FromEmail == "" {
		problems = append(problems, "mailing.from_email (SENDGRID_FROM_EMAIL) is required")
	}
	switch cfg.Mailing.Provider {
	case ProviderSendGrid:
		if cfg.SendGrid.APIKey == "" {
			problems = append(problems, "sendgrid.api_key (SENDGRID_API_KEY) is required")
		}
	case ProviderSES:
		if cfg.SES.Region == "" {
			problems = append(problems, "ses.region is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("mailing.provider %q is not one of sendgrid, ses", cfg.Mailing.Provider))
	}
	if cfg.Mailing.DispatchTimeoutSeconds < 0 {
		problems = append(problems, "mailing.dispatch_timeout_seconds must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
