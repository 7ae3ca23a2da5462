package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_PDFServiceConfig(t *testing.T) {
	t.Setenv("PDF_SERVICE_URL", "http://pdf-renderer:5000")
	t.Setenv("PDF_SERVICE_TIMEOUT_SECONDS", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://pdf-renderer:5000", cfg.PDFService.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.PDFService.Timeout)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PDF_SERVICE_URL", "")
	t.Setenv("PDF_SERVICE_TIMEOUT_SECONDS", "")
	t.Setenv("DRAFT_TTL_SECONDS", "")
	t.Setenv("TYPESENSE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.PDFService.BaseURL)
	assert.Zero(t, cfg.PDFService.Timeout)
	assert.Equal(t, 86400, cfg.Drafts.TTLSeconds)
	assert.Equal(t, "http://localhost:8108", cfg.Typesense.URL)
	assert.Equal(t, "migrations", cfg.Database.MigrationsPath)
}

func TestLoad_RejectsNonPositiveDraftTTL(t *testing.T) {
	t.Setenv("DRAFT_TTL_SECONDS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "n", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require", cfg.DatabaseDSN())

	cfg.ApplicationName = "ncadmin"
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=n sslmode=require application_name=ncadmin", cfg.DatabaseDSN())
}

func TestLoad_ConnectionPools(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "40")
	t.Setenv("DB_CONN_MAX_LIFETIME_SECONDS", "60")
	t.Setenv("REDIS_POOL_SIZE", "12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "geyser-noncompliance", cfg.Database.ApplicationName)
	assert.Equal(t, 12, cfg.Redis.PoolSize)
	assert.Equal(t, "geyser-noncompliance", cfg.Redis.ClientName)
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://jobs.example.co.za, https://admin.example.co.za,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://jobs.example.co.za", "https://admin.example.co.za"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Reclassify(t *testing.T) {
	t.Setenv("RECLASSIFY_WORKERS", "8")
	t.Setenv("RECLASSIFY_SCHEDULE", "0 3 * * *")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Reclassify.Workers)
	assert.Equal(t, 200, cfg.Reclassify.PageSize)
	assert.Equal(t, "0 3 * * *", cfg.Reclassify.Schedule)

	t.Setenv("RECLASSIFY_WORKERS", "-1")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_IncompleteVaultConfigFails(t *testing.T) {
	t.Setenv("VAULT_ENABLED", "true")
	t.Setenv("VAULT_ADDR", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault")
}
