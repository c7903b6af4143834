package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Source kinds.
const (
	SourceNotion = "notion"
	SourceSheet  = "sheet"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string
	Version  string

	// Ingestion
	Source       string
	FetchTimeout time.Duration

	// Notion
	NotionToken        string
	NotionBaseURL      string
	NotionVersion      string
	NotionPitchDB      string
	NotionExperimentDB string
	NotionRoadmapDB    string
	NotionGlobalDB     string

	// Sheet
	SheetCSVURL string

	// Owner directory
	DirectoryFile    string
	WatchDirectory   bool
	OwnerResolveMode string
	OwnerDedup       bool
	DropOwnerless    bool

	// Circuit breaker
	BreakerFailureThreshold int
	BreakerOpenTimeout      time.Duration

	// Redis snapshot store; empty keeps snapshots in memory
	RedisURL          string
	SnapshotKeyPrefix string
	SnapshotTTL       time.Duration

	// RabbitMQ notifications; empty disables them
	RabbitMQURL string

	// HTTP
	HTTPAddr string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Version:  getEnv("DASHBOARD_VERSION", ""),

		Source:       getEnv("DASHBOARD_SOURCE", SourceNotion),
		FetchTimeout: getDurationEnv("FETCH_TIMEOUT", 30*time.Second),

		NotionToken:        getEnv("NOTION_TOKEN", ""),
		NotionBaseURL:      getEnv("NOTION_BASE_URL", "https://api.notion.com"),
		NotionVersion:      getEnv("NOTION_VERSION", "2022-06-28"),
		NotionPitchDB:      getEnv("NOTION_PITCH_DB", "26fa0be0969d80a19173f39596399beb"),
		NotionExperimentDB: getEnv("NOTION_EXPERIMENT_DB", "2a7a0be0969d80169503f6d966cf2f47"),
		NotionRoadmapDB:    getEnv("NOTION_ROADMAP_DB", "2b5a0be0969d80f08836000ba6a10ba2"),
		NotionGlobalDB:     getEnv("NOTION_GLOBAL_DB", "2d9a0be0969d81be9c23ec5f26afd586"),

		SheetCSVURL: getEnv("GOOGLE_SHEET_CSV_URL", ""),

		DirectoryFile:    getEnv("OWNER_DIRECTORY_FILE", "configs/directory.yaml"),
		WatchDirectory:   getBoolEnv("WATCH_DIRECTORY", false),
		OwnerResolveMode: getEnv("OWNER_RESOLVE_MODE", "strict"),
		OwnerDedup:       getBoolEnv("OWNER_DEDUP", false),
		DropOwnerless:    getBoolEnv("DROP_OWNERLESS_TASKS", false),

		BreakerFailureThreshold: getIntEnv("BREAKER_FAILURE_THRESHOLD", 3),
		BreakerOpenTimeout:      getDurationEnv("BREAKER_OPEN_TIMEOUT", time.Minute),

		RedisURL:          getEnv("REDIS_URL", ""),
		SnapshotKeyPrefix: getEnv("SNAPSHOT_KEY_PREFIX", "dashboard:snapshot"),
		SnapshotTTL:       getDurationEnv("SNAPSHOT_TTL", 0),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		HTTPAddr: getEnv("HTTP_ADDR", "0.0.0.0:8080"),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

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

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
