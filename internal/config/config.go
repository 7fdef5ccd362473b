// Package config loads application configuration from environment variables,
// with .env file support for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/evandyer/cleanloop/internal/imagestore"
	"github.com/evandyer/cleanloop/internal/oracle"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	DBPath      string
	LogLevel    string
	LogFormat   string
	Environment string // "development" or "production"

	Oracle oracle.Config
	Images imagestore.Config

	// LoginRateLimit is login attempts allowed per minute per IP.
	LoginRateLimit int
}

// Load reads configuration from the environment. A .env file is honored when
// present (development convenience).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("CLEANLOOP_PORT", "8080"),
		DBPath:      getEnv("CLEANLOOP_DB_PATH", "cleanloop.db"),
		LogLevel:    getEnv("CLEANLOOP_LOG_LEVEL", "info"),
		LogFormat:   getEnv("CLEANLOOP_LOG_FORMAT", "text"),
		Environment: getEnv("CLEANLOOP_ENV", "development"),

		Oracle: oracle.Config{
			APIKey:  getEnv("CLEANLOOP_GEMINI_API_KEY", ""),
			Model:   getEnv("CLEANLOOP_GEMINI_MODEL", ""),
			BaseURL: getEnv("CLEANLOOP_GEMINI_BASE_URL", ""),
		},

		Images: imagestore.Config{
			Endpoint:  getEnv("CLEANLOOP_S3_ENDPOINT", ""),
			Bucket:    getEnv("CLEANLOOP_S3_BUCKET", ""),
			Region:    getEnv("CLEANLOOP_S3_REGION", "auto"),
			AccessKey: getEnv("CLEANLOOP_S3_ACCESS_KEY", ""),
			SecretKey: getEnv("CLEANLOOP_S3_SECRET_KEY", ""),
		},

		LoginRateLimit: getEnvInt("CLEANLOOP_LOGIN_RATE_LIMIT", 10),
	}

	if cfg.Environment == "production" {
		if cfg.Oracle.APIKey == "" {
			return nil, fmt.Errorf("CLEANLOOP_GEMINI_API_KEY is required in production")
		}
		if cfg.Images.Bucket == "" {
			return nil, fmt.Errorf("CLEANLOOP_S3_BUCKET is required in production")
		}
	}

	return cfg, nil
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
		return fallback
	}
	return n
}
