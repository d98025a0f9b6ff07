// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"storefront/internal/auth/models"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Server is the full set of settings the server binary needs.
type Server struct {
	Addr            string        `env:"STOREFRONT_ADDR" envDefault:":8080"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	Auth     AuthConfig
	Session  SessionConfig
	Lockout  LockoutConfig
	Admin    AdminConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Audit    AuditConfig
}

// AuthConfig covers the mode authority and token settings.
type AuthConfig struct {
	Mode          string        `env:"AUTH_MODE" envDefault:"STATELESS"`
	JWTSigningKey string        `env:"JWT_SIGNING_KEY"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"storefront"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	BindModeEpoch bool          `env:"TOKEN_BIND_MODE_EPOCH" envDefault:"false"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`
	DeviceBinding bool          `env:"DEVICE_BINDING_ENABLED" envDefault:"false"`

	// InitialMode is Mode after parsing.
	InitialMode models.AuthMode
}

type SessionConfig struct {
	TTL          time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	CookieName   string        `env:"SESSION_COOKIE_NAME" envDefault:"STOREFRONT_SESSION"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	// CleanupInterval applies to the in-memory store only; Redis expires keys itself.
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1m"`
}

type LockoutConfig struct {
	MaxAttempts int           `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	Window      time.Duration `env:"LOGIN_LOCKOUT_WINDOW" envDefault:"15m"`
	Duration    time.Duration `env:"LOGIN_LOCKOUT_DURATION" envDefault:"15m"`
}

// AdminConfig seeds an administrator at startup when Username is set.
type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

// RedisConfig enables the Redis session and lockout stores when URL is set.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// DatabaseConfig enables the Postgres user store when URL is set.
type DatabaseConfig struct {
	URL      string `env:"DATABASE_URL"`
	MaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
}

type AuditConfig struct {
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic        string   `env:"AUDIT_TOPIC" envDefault:"storefront.audit"`
	DatabaseURL  string   `env:"AUDIT_DATABASE_URL"`
	// Buffer > 0 makes audit emission asynchronous.
	Buffer int `env:"AUDIT_BUFFER" envDefault:"0"`
}

// FromEnv loads an optional .env file, then parses and validates the
// environment.
func FromEnv() (Server, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Server{}, fmt.Errorf("load .env file: %w", err)
		}
	}
	return Parse(env.Options{})
}

// Parse reads configuration using opts, which lets tests supply their own
// environment map.
func Parse(opts env.Options) (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// IsProduction reports whether ENVIRONMENT names a production deployment.
func (c Server) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c *Server) validate() error {
	mode, err := models.ParseAuthMode(c.Auth.Mode)
	if err != nil {
		return fmt.Errorf("invalid AUTH_MODE %q: %w", c.Auth.Mode, err)
	}
	c.Auth.InitialMode = mode

	if c.Auth.JWTSigningKey == "" {
		if c.IsProduction() {
			return errors.New("JWT_SIGNING_KEY is required in production")
		}
		c.Auth.JWTSigningKey = devSigningKey
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.Session.CleanupInterval <= 0 {
		return errors.New("SESSION_CLEANUP_INTERVAL must be positive")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("SESSION_COOKIE_NAME must not be empty")
	}
	if c.Admin.Username != "" && c.Admin.Password == "" {
		return errors.New("ADMIN_PASSWORD is required when ADMIN_USERNAME is set")
	}
	if c.Lockout.MaxAttempts > 0 && c.Lockout.Window <= 0 {
		return errors.New("LOGIN_LOCKOUT_WINDOW must be positive")
	}
	return nil
}
