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

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Onboarding OnboardingConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string
	Env            string
	ReadTimeout    time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds SurrealDB connection settings
type DatabaseConfig struct {
	Host      string
	Port      string
	Namespace string
	Database  string
	User      string
	Password  string
}

// JWTConfig holds JWT signing settings
type JWTConfig struct {
	PrivateKeyPath string
	PublicKeyPath  string
	ExpirationMins int
	Issuer         string
}

// OnboardingConfig holds questionnaire session settings
type OnboardingConfig struct {
	SessionTTL     time.Duration // stored sessions expire after this long without a write
	IdleTimeout    time.Duration // in-memory engines are evicted after this long unused
	SweepInterval  time.Duration
	Redirect       string // where clients go after a successful submission
	IdempotencyTTL time.Duration
}

// RateLimitConfig holds per-user request limits
type RateLimitConfig struct {
	Rate   int
	Window time.Duration
	Burst  int
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first if present; real
// environment variables take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			AllowedOrigins: getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:      getEnv("DB_HOST", "localhost"),
			Port:      getEnv("DB_PORT", "8000"),
			Namespace: getEnv("DB_NAMESPACE", "saga"),
			Database:  getEnv("DB_DATABASE", "onboarding"),
			User:      getEnv("DB_USER", "root"),
			Password:  getEnv("DB_PASSWORD", "root"),
		},
		JWT: JWTConfig{
			PrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./keys/private.pem"),
			PublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./keys/public.pem"),
			ExpirationMins: getIntEnv("JWT_EXPIRATION_MINS", 15),
			Issuer:         getEnv("JWT_ISSUER", "saga.forgo.software"),
		},
		Onboarding: OnboardingConfig{
			SessionTTL:     getDurationEnv("ONBOARDING_SESSION_TTL", 72*time.Hour),
			IdleTimeout:    getDurationEnv("ONBOARDING_IDLE_TIMEOUT", 30*time.Minute),
			SweepInterval:  getDurationEnv("ONBOARDING_SWEEP_INTERVAL", 5*time.Minute),
			Redirect:       getEnv("ONBOARDING_REDIRECT", "/home"),
			IdempotencyTTL: getDurationEnv("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Rate:   getIntEnv("RATE_LIMIT_RATE", 100),
			Window: getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			Burst:  getIntEnv("RATE_LIMIT_BURST", 20),
		},
	}, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}

	// Database validation
	if c.Database.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.Database.Port == "" {
		errs = append(errs, errors.New("DB_PORT is required"))
	}
	if c.Database.Namespace == "" {
		errs = append(errs, errors.New("DB_NAMESPACE is required"))
	}
	if c.Database.Database == "" {
		errs = append(errs, errors.New("DB_DATABASE is required"))
	}

	// JWT validation - critical for production
	if c.IsProduction() {
		if c.JWT.PrivateKeyPath == "" {
			errs = append(errs, errors.New("JWT_PRIVATE_KEY_PATH is required in production"))
		}
		if c.JWT.PublicKeyPath == "" {
			errs = append(errs, errors.New("JWT_PUBLIC_KEY_PATH is required in production"))
		}
	}
	if c.JWT.ExpirationMins <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MINS must be positive"))
	}

	// Onboarding validation
	if c.Onboarding.SessionTTL <= 0 {
		errs = append(errs, errors.New("ONBOARDING_SESSION_TTL must be positive"))
	}
	if c.Onboarding.IdleTimeout <= 0 {
		errs = append(errs, errors.New("ONBOARDING_IDLE_TIMEOUT must be positive"))
	}
	if c.Onboarding.IdleTimeout > c.Onboarding.SessionTTL {
		errs = append(errs, errors.New("ONBOARDING_IDLE_TIMEOUT must not exceed ONBOARDING_SESSION_TTL"))
	}
	if c.Onboarding.SweepInterval <= 0 {
		errs = append(errs, errors.New("ONBOARDING_SWEEP_INTERVAL must be positive"))
	}
	if !strings.HasPrefix(c.Onboarding.Redirect, "/") {
		errs = append(errs, fmt.Errorf("ONBOARDING_REDIRECT must be a path, got '%s'", c.Onboarding.Redirect))
	}

	// Rate limit validation
	if c.RateLimit.Rate <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RATE must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
