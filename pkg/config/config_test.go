package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"APP_ENV", "LOG_LEVEL", "DASHBOARD_VERSION", "DASHBOARD_SOURCE", "FETCH_TIMEOUT",
	"NOTION_TOKEN", "NOTION_BASE_URL", "NOTION_VERSION",
	"NOTION_PITCH_DB", "NOTION_EXPERIMENT_DB", "NOTION_ROADMAP_DB", "NOTION_GLOBAL_DB",
	"GOOGLE_SHEET_CSV_URL", "OWNER_DIRECTORY_FILE", "WATCH_DIRECTORY",
	"OWNER_RESOLVE_MODE", "OWNER_DEDUP", "DROP_OWNERLESS_TASKS",
	"BREAKER_FAILURE_THRESHOLD", "BREAKER_OPEN_TIMEOUT",
	"REDIS_URL", "SNAPSHOT_KEY_PREFIX", "SNAPSHOT_TTL", "RABBITMQ_URL", "HTTP_ADDR",
}

// clearEnv blanks every dashboard variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, SourceNotion, cfg.Source)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "https://api.notion.com", cfg.NotionBaseURL)
	assert.Equal(t, "2022-06-28", cfg.NotionVersion)
	assert.NotEmpty(t, cfg.NotionPitchDB)
	assert.Equal(t, "strict", cfg.OwnerResolveMode)
	assert.False(t, cfg.OwnerDedup)
	assert.False(t, cfg.DropOwnerless)
	assert.False(t, cfg.WatchDirectory)
	assert.Equal(t, 3, cfg.BreakerFailureThreshold)
	assert.Equal(t, time.Minute, cfg.BreakerOpenTimeout)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.RabbitMQURL)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DASHBOARD_SOURCE", SourceSheet)
	t.Setenv("GOOGLE_SHEET_CSV_URL", "https://docs.google.com/export?format=csv")
	t.Setenv("OWNER_RESOLVE_MODE", "passthrough")
	t.Setenv("OWNER_DEDUP", "true")
	t.Setenv("DROP_OWNERLESS_TASKS", "1")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "5")
	t.Setenv("SNAPSHOT_TTL", "10m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, SourceSheet, cfg.Source)
	assert.Equal(t, "https://docs.google.com/export?format=csv", cfg.SheetCSVURL)
	assert.Equal(t, "passthrough", cfg.OwnerResolveMode)
	assert.True(t, cfg.OwnerDedup)
	assert.True(t, cfg.DropOwnerless)
	assert.Equal(t, 5, cfg.BreakerFailureThreshold)
	assert.Equal(t, 10*time.Minute, cfg.SnapshotTTL)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "many")
	t.Setenv("FETCH_TIMEOUT", "soon")
	t.Setenv("OWNER_DEDUP", "maybe")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.BreakerFailureThreshold)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.False(t, cfg.OwnerDedup)
}
