package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Upstream REST API. Optional at startup: a missing value is reported
	// per request as a configuration error rather than failing the process.
	APIBaseURL      string
	UpstreamTimeout time.Duration

	// Directory holding the built dashboard assets served for non-API paths.
	WebDir string

	// Storage Configuration
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	UploadDir string // Directory uploaded files are written to
	UploadURL string // Public URL prefix for uploaded files

	UploadMaxBytes int64

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// Login rate limiting
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Honour X-Forwarded-For / X-Real-IP when resolving client addresses.
	// Enable only behind a reverse proxy that sets them.
	TrustProxyHeaders bool

	// Upload rate limiting (every upload counts)
	UploadRateLimit  int
	UploadRateWindow time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string

	TracingEnabled bool
}

// IsDevelopment reports whether the process runs with ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		APIBaseURL:      os.Getenv("API_BASE_URL"),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 60*time.Second),

		WebDir: getEnv("WEB_DIR", "./web"),

		// Storage defaults to the local public directory
		StorageProvider: getEnv("STORAGE_PROVIDER", "local"),
		UploadDir:       getEnv("UPLOAD_DIR", "./public/uploads"),
		UploadURL:       getEnv("UPLOAD_URL", "/uploads"),
		UploadMaxBytes:  int64(getEnvInt("UPLOAD_MAX_BYTES", 10<<20)),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 5),
		LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", 15*time.Minute),

		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),

		UploadRateLimit:  getEnvInt("UPLOAD_RATE_LIMIT", 30),
		UploadRateWindow: getEnvDuration("UPLOAD_RATE_WINDOW", time.Minute),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
	}

	// Validate storage configuration
	if cfg.StorageProvider == "r2" {
		if cfg.R2AccountID == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2AccessKeyID == "" {
			return nil, fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2SecretAccessKey == "" {
			return nil, fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2BucketName == "" {
			return nil, fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if cfg.StorageProvider != "local" {
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", cfg.StorageProvider)
	}

	if cfg.UploadMaxBytes <= 0 {
		return nil, fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got: %d", cfg.UploadMaxBytes)
	}
	if cfg.LoginRateLimit <= 0 {
		return nil, fmt.Errorf("LOGIN_RATE_LIMIT must be positive, got: %d", cfg.LoginRateLimit)
	}
	if cfg.UploadRateLimit <= 0 {
		return nil, fmt.Errorf("UPLOAD_RATE_LIMIT must be positive, got: %d", cfg.UploadRateLimit)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
