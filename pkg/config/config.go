package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/zatekoja/geyser-noncompliance/pkg/secrets"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Typesense  TypesenseConfig
	PDFService PDFServiceConfig
	Drafts     DraftConfig
	Reclassify ReclassifyConfig
	OTEL       OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MigrationsPath  string
	ApplicationName string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host       string
	Port       int
	Password   string
	DB         int
	ClientName string
	PoolSize   int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// PDFServiceConfig points at the document rendering service.
// A zero timeout means requests are bounded only by the caller's context.
type PDFServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DraftConfig controls how long an open assessment session survives without edits
type DraftConfig struct {
	TTLSeconds int
}

// ReclassifyConfig controls the batch job that re-derives stored classifications.
// An empty Schedule runs the job once.
type ReclassifyConfig struct {
	Workers  int
	PageSize int
	Schedule string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first; real environment values win.
// When VAULT_ENABLED is set, the configured KV secret is exported before parsing.
func Load() (*Config, error) {
	_ = godotenv.Load()

	if _, err := secrets.ApplyVaultSecrets(context.Background(), secrets.VaultConfigFromEnv()); err != nil {
		return nil, fmt.Errorf("failed to load secrets from vault: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Env:            getEnv("APP_ENV", "development"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvAsInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			Database:       getEnv("DB_NAME", "geyser_noncompliance"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),

			ApplicationName: getEnv("DB_APPLICATION_NAME", "geyser-noncompliance"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvAsInt("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),

			ClientName: getEnv("REDIS_CLIENT_NAME", "geyser-noncompliance"),
			PoolSize:   getEnvAsInt("REDIS_POOL_SIZE", 0),
		},
		Typesense: TypesenseConfig{
			URL:    getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey: getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		PDFService: PDFServiceConfig{
			BaseURL: getEnv("PDF_SERVICE_URL", "http://localhost:5000"),
			Timeout: time.Duration(getEnvAsInt("PDF_SERVICE_TIMEOUT_SECONDS", 0)) * time.Second,
		},
		Drafts: DraftConfig{
			TTLSeconds: getEnvAsInt("DRAFT_TTL_SECONDS", 86400),
		},
		Reclassify: ReclassifyConfig{
			Workers:  getEnvAsInt("RECLASSIFY_WORKERS", 4),
			PageSize: getEnvAsInt("RECLASSIFY_PAGE_SIZE", 200),
			Schedule: getEnv("RECLASSIFY_SCHEDULE", ""),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "geyser-noncompliance"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if cfg.Drafts.TTLSeconds <= 0 {
		return nil, fmt.Errorf("DRAFT_TTL_SECONDS must be positive, got %d", cfg.Drafts.TTLSeconds)
	}
	if cfg.PDFService.Timeout < 0 {
		return nil, fmt.Errorf("PDF_SERVICE_TIMEOUT_SECONDS must not be negative")
	}
	if cfg.Reclassify.Workers <= 0 || cfg.Reclassify.PageSize <= 0 {
		return nil, fmt.Errorf("RECLASSIFY_WORKERS and RECLASSIFY_PAGE_SIZE must be positive")
	}

	return cfg, nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
	if c.ApplicationName != "" {
		dsn += " application_name=" + c.ApplicationName
	}
	return dsn
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
