package config

import (
	"os"
	"strconv"
)

// DatabaseConfig holds the document store connection settings.
// Driver selects the engine ("sqlite" or "postgres"). URL is used as-is when set;
// for postgres an empty URL is built from the discrete Host/Port/User/... fields.
type DatabaseConfig struct {
	Driver             string
	URL                string
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for released app bundles.
// Storage is disabled when Endpoint is empty.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// CompletionConfig holds settings for the text-generation provider.
type CompletionConfig struct {
	APIKey       string
	BaseURL      string
	Version      string
	DefaultModel string
	MaxTokens    int
	TimeoutSec   int
}

// RateLimitConfig bounds how often a single client may hit the generation routes.
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port        string
	Timezone    string
	LogLevel    string
	FrontendURL string
	Database    DatabaseConfig
	MinIO       MinIOConfig
	Completion  CompletionConfig
	RateLimit   RateLimitConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() *AppConfig {
	driver := getEnv("DB_DRIVER", "sqlite")
	defaultURL := ""
	if driver == "sqlite" {
		defaultURL = "file:data.db"
	}

	return &AppConfig{
		Port:        getEnv("PORT", "10000"),
		Timezone:    getEnv("APP_TIMEZONE", "UTC"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: getEnv("FRONTEND_URL", "https://node-alpha-lovat.vercel.app/"),
		Database: DatabaseConfig{
			Driver:             driver,
			URL:                getEnv("DATABASE_URL", defaultURL),
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Completion: CompletionConfig{
			APIKey:       getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:      getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
			Version:      getEnv("ANTHROPIC_VERSION", "2023-06-01"),
			DefaultModel: getEnv("ANTHROPIC_DEFAULT_MODEL", "claude-3-haiku-20240307"),
			MaxTokens:    getEnvInt("ANTHROPIC_MAX_TOKENS", 4096),
			TimeoutSec:   getEnvInt("ANTHROPIC_TIMEOUT_SEC", 300),
		},
		RateLimit: RateLimitConfig{
			PerSecond: getEnvFloat("GENERATE_RATE_PER_SEC", 2),
			Burst:     getEnvInt("GENERATE_BURST", 5),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
