// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Export   ExportConfig
	Mail     MailConfig
	Access   AccessConfig
	Rate     RateLimitConfig
	Report   ReportConfig
	Source   SourceConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, exports can be slow)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// TrustedProxies lists proxy CIDRs whose X-Real-IP and X-Forwarded-For
	// headers are believed. Empty means client IPs come from the connection.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// DatabaseConfig holds database connection settings.
// A connection is opened and closed for every operation; there is no pool.
type DatabaseConfig struct {
	// URL is a full PostgreSQL connection string. When set it overrides the
	// POSTGRES_* fields. Supports both DATABASE_URL and DB_URL env vars.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Driver is the database/sql driver name: pgx or postgres (default: pgx)
	Driver string `env:"DB_DRIVER" default:"pgx"`

	Host     string `env:"POSTGRES_HOST" default:"localhost"`
	Port     int    `env:"POSTGRES_PORT" default:"5432"`
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	Name     string `env:"POSTGRES_DB"`
	SSLMode  string `env:"POSTGRES_SSLMODE" default:"disable"`

	// ConnectTimeout bounds opening and pinging a connection (default: 10s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`
}

// UploadConfig holds CSV upload processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel ingestions (default: 2)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long an ingestion or export waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// BatchSize is the number of rows to insert per statement (default: 1000)
	BatchSize int `env:"UPLOAD_BATCH_SIZE" default:"1000"`

	// Timeout is the maximum duration for a single ingestion (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	// Timeout bounds query plus render for one export (default: 2m)
	Timeout time.Duration `env:"EXPORT_TIMEOUT" default:"2m"`

	// MaxConcurrent is the maximum number of parallel renders (default: 4)
	MaxConcurrent int `env:"EXPORT_MAX_CONCURRENT" default:"4"`
}

// MailConfig holds SMTP relay settings.
type MailConfig struct {
	// Server is the SMTP relay host. Email delivery is disabled when empty.
	Server string `env:"SMTP_SERVER"`

	// Port is the SMTP submission port (default: 587)
	Port int `env:"SMTP_PORT" default:"587"`

	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`

	// From is the sender address (default: SMTP_USER)
	From string `env:"MAIL_FROM"`

	// Timeout bounds one dial-and-send (default: 30s)
	Timeout time.Duration `env:"MAIL_TIMEOUT" default:"30s"`
}

// AccessConfig names the identity sources for the access gate.
type AccessConfig struct {
	// UsersJSON is a JSON object mapping identity to secret.
	UsersJSON string `env:"USERS_JSON"`

	// UsersFile is a TOML file with per-identity secret and role.
	UsersFile string `env:"USERS_FILE"`
}

// RateLimitConfig holds per-client token bucket settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RPS is the sustained request rate per client (default: 5)
	RPS float64 `env:"RATE_LIMIT_RPS" default:"5"`

	// Burst is the bucket size per client (default: 20)
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`
}

// ReportConfig holds the scheduled email report settings.
// The scheduler only runs when both Schedule and Recipients are set.
type ReportConfig struct {
	// Schedule is a standard five-field cron expression.
	Schedule string `env:"REPORT_SCHEDULE"`

	// Recipients is a comma-separated list of addresses.
	Recipients []string `env:"REPORT_RECIPIENTS"`

	// Format is the export format: xlsx or pdf (default: xlsx)
	Format string `env:"REPORT_FORMAT" default:"xlsx"`

	Subject string `env:"REPORT_SUBJECT" default:"Dados report"`
}

// SourceConfig holds settings for remote ingestion sources.
type SourceConfig struct {
	S3Region string `env:"S3_REGION" default:"us-east-1"`

	// S3Endpoint switches the client to path-style addressing against a
	// custom endpoint such as MinIO.
	S3Endpoint string `env:"S3_ENDPOINT"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// DSN returns the connection string for the configured driver.
// Both pgx and lib/pq accept the URL form.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}

	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if secs := int(c.ConnectTimeout / time.Second); secs > 0 {
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Enabled reports whether an SMTP relay is configured.
func (c *MailConfig) Enabled() bool {
	return c.Server != ""
}

// Sender returns the envelope sender address.
func (c *MailConfig) Sender() string {
	if c.From != "" {
		return c.From
	}
	return c.User
}

// Enabled reports whether the scheduled report should run.
func (c *ReportConfig) Enabled() bool {
	return c.Schedule != "" && len(c.Recipients) > 0
}
