// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"expense-ledger/internal/log"
)

const minJWTSecretLength = 16

type Config struct {
	// HTTP server
	Port            string
	SecureCookie    bool
	SessionDuration time.Duration
	ShutdownTimeout time.Duration

	// Database
	DBDriver    string
	DBPath      string
	DatabaseURL string

	// Bearer tokens
	JWTSecret    string
	JWTExpiresIn time.Duration

	// AMQP budget alerts. An empty URL disables publishing.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Bootstrap account, created when no users exist yet
	AdminUser     string
	AdminPassword string

	// Logging
	LogLevel  string
	LogFormat string

	parseErrors []string
}

// Load reads an optional .env file and then the environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.SecureCookie = cfg.getEnvBool("SECURE_COOKIE", false)
	cfg.SessionDuration = cfg.getEnvDuration("SESSION_DURATION", 30*24*time.Hour)
	cfg.ShutdownTimeout = cfg.getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)

	cfg.DBDriver = getEnv("DB_DRIVER", "sqlite")
	cfg.DBPath = getEnv("DB_PATH", "expenses.db")
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTExpiresIn = cfg.getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour)

	cfg.AMQPURL = getEnv("AMQP_URL", "")
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", "expense-ledger")
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", "budget_alerts")

	cfg.AdminUser = getEnv("ADMIN_USER", "")
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", "")

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("LOG_FORMAT", "text")
	return cfg
}

// DSN returns the connection string for the selected driver.
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DatabaseURL
	}
	return c.DBPath
}

// Validate validates the configuration and returns every problem in one error.
func (c *Config) Validate() error {
	errs := slices.Clone(c.parseErrors)

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			errs = append(errs, "DB_PATH cannot be empty when using sqlite")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid database driver '%s': must be one of [sqlite postgres]", c.DBDriver))
	}

	if c.SessionDuration < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid session duration %v: must be at least 1 minute", c.SessionDuration))
	}
	if c.JWTExpiresIn < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid JWT lifetime %v: must be at least 1 minute", c.JWTExpiresIn))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Sprintf("JWT_SECRET must be at least %d characters", minJWTSecretLength))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if (c.AdminUser == "") != (c.AdminPassword == "") {
		errs = append(errs, "ADMIN_USER and ADMIN_PASSWORD must be set together")
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("invalid %s '%s': must be true or false", key, value))
		return defaultValue
	}
	return b
}

func (c *Config) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		c.parseErrors = append(c.parseErrors, fmt.Sprintf("invalid %s '%s': %v", key, value, err))
		return defaultValue
	}
	return d
}
