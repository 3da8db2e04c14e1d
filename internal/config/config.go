// Package config loads service configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gatherly/gatherly-api/internal/database"
)

// Config holds the application configuration.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	// AppBaseURL is where the web app lives; OAuth return targets are resolved against it.
	AppBaseURL  string
	CORSOrigins []string

	Database database.Config

	// Supabase session verification.
	JWTSecret     string
	SessionCookie string

	Google GoogleConfig

	// loadErrs holds values that were set but could not be parsed.
	loadErrs []error
}

// GoogleConfig holds the OAuth client used for the Google Forms integration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Configured reports whether an OAuth client can be built from these settings.
func (g GoogleConfig) Configured() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

// Load reads configuration from environment variables, falling back to
// local-development defaults.
func Load() *Config {
	// Missing .env is normal outside development.
	_ = godotenv.Load()

	var loadErrs []error
	maxConns, err := strconv.ParseInt(getEnv("DB_MAX_CONNS", "0"), 10, 32)
	if err != nil || maxConns < 0 {
		loadErrs = append(loadErrs, fmt.Errorf("DB_MAX_CONNS must be a non-negative integer, got %q", os.Getenv("DB_MAX_CONNS")))
		maxConns = 0
	}

	return &Config{
		Env:         getEnv("ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		AppBaseURL:  strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		Database: database.Config{
			URL:         os.Getenv("DATABASE_URL"),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			DBName:      getEnv("DB_NAME", "gatherly"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    int32(maxConns),
			AutoMigrate: getEnv("DB_AUTO_MIGRATE", "false") == "true",
		},
		JWTSecret:     os.Getenv("SUPABASE_JWT_SECRET"),
		SessionCookie: getEnv("SESSION_COOKIE", "sb-access-token"),
		Google: GoogleConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		},
		loadErrs: loadErrs,
	}
}

// Validate reports settings the server cannot start without.
// The Google client is optional; the integration reports itself unavailable instead.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.loadErrs...)
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("SUPABASE_JWT_SECRET is required"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.Env == "production" && c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required in production"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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
