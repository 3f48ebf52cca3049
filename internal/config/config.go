// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/stay-booking/internal/database"
	"github.com/joho/godotenv"
)

// Config holds every setting the API and the sweeper read.
type Config struct {
	Env  string
	Port string
	DB   database.Config

	RedisURL string

	JWTSecret string
	AdminKey  string

	StateMachineARN string
	EnableTracing   bool

	AllowedOrigins []string
	MigrateOnStart bool
	NotifyTimeout  time.Duration

	DocumentRetentionDays int
	SweepTimeout          time.Duration
}

// IsLocal reports whether the service runs outside AWS.
func (c *Config) IsLocal() bool {
	return c.Env == "LOCAL"
}

// Load reads the configuration. A .env file in the working directory is
// applied first if present; variables already set win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("could not read .env: %v", err)
	}

	cfg := &Config{
		Env:  getEnv("ENV", "LOCAL"),
		Port: getEnv("PORT", "8080"),
		DB: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "staybooking"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		RedisURL:              os.Getenv("REDIS_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		AdminKey:              os.Getenv("ADMIN_API_KEY"),
		StateMachineARN:       os.Getenv("NOTIFY_STATE_MACHINE_ARN"),
		EnableTracing:         getEnvBool("STAY_ENABLE_TRACING", false),
		AllowedOrigins:        splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		MigrateOnStart:        getEnvBool("DB_MIGRATE", true),
		NotifyTimeout:         getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),
		DocumentRetentionDays: getEnvInt("DOCUMENT_RETENTION_DAYS", 30),
		SweepTimeout:          getEnvDuration("SWEEP_TIMEOUT", 5*time.Minute),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.JWTSecret == "" {
		if !c.IsLocal() {
			errs = append(errs, errors.New("JWT_SECRET is required outside LOCAL"))
		} else {
			c.JWTSecret = "local-development-secret"
			log.Printf("JWT_SECRET is not set, using an insecure local secret")
		}
	}
	if c.AdminKey == "" && !c.IsLocal() {
		errs = append(errs, errors.New("ADMIN_API_KEY is required outside LOCAL"))
	}
	if c.DocumentRetentionDays < 1 {
		errs = append(errs, errors.New("DOCUMENT_RETENTION_DAYS must be at least 1"))
	}
	if c.NotifyTimeout <= 0 {
		errs = append(errs, errors.New("NOTIFY_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
