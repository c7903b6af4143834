package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/letsur-product-team/product-team-dashboard/internal/shared/infrastructure/eventbus"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/commands"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/queries"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/services"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/infrastructure/directory"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/infrastructure/notion"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/infrastructure/resilience"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/infrastructure/sheets"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/infrastructure/snapshot"
	"github.com/letsur-product-team/product-team-dashboard/pkg/config"
	"github.com/letsur-product-team/product-team-dashboard/pkg/observability"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.InMemoryMetrics
	Health  *observability.HealthRegistry

	// Redis
	RedisClient *redis.Client

	// Reference data
	Reference        domain.ReferenceProvider
	directoryWatcher *directory.Watcher

	// Ingestion
	Source *resilience.BreakerSource

	// Snapshot storage
	SnapshotStore domain.SnapshotStore

	// Publishers
	EventPublisher eventbus.Publisher

	// Command Handlers
	RefreshHandler *commands.RefreshHandler

	// Query Handlers
	BoardHandler   *queries.BoardHandler
	SummaryHandler *queries.SummaryHandler
	MembersHandler *queries.MembersHandler
}

// NewContainer wires the dashboard. Redis and RabbitMQ are optional; in
// development an unreachable broker or cache falls back to the in-process
// implementation.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewInMemoryMetrics(),
		Health:  observability.NewHealthRegistry(),
	}

	policy, err := policyFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	rules := domain.DefaultRuleTable()
	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule table: %w", err)
	}

	if err := c.loadReference(ctx); err != nil {
		return nil, err
	}

	source, err := newSource(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Source = resilience.NewBreakerSource(source, resilience.BreakerConfig{
		MaxRequests:      1,
		Timeout:          cfg.BreakerOpenTimeout,
		FailureThreshold: uint32(max(cfg.BreakerFailureThreshold, 1)),
	}, c.Metrics, logger)
	c.Health.Register("source", c.Source.HealthChecker())

	if err := c.connectSnapshotStore(ctx); err != nil {
		c.Close()
		return nil, err
	}

	if err := c.connectPublisher(); err != nil {
		c.Close()
		return nil, err
	}

	c.RefreshHandler = commands.NewRefreshHandler(c.Source, c.SnapshotStore, c.Reference, rules, policy, logger).
		WithNotifier(c.EventPublisher).
		WithMetrics(c.Metrics)
	c.BoardHandler = queries.NewBoardHandler(c.SnapshotStore)
	c.SummaryHandler = queries.NewSummaryHandler(c.SnapshotStore)
	c.MembersHandler = queries.NewMembersHandler(c.Reference)

	logger.Info("dashboard container ready",
		"source", c.Source.Name(),
		"resolve_mode", policy.ResolveMode.String(),
		"dedup_owners", policy.DedupOwners,
		"drop_ownerless", policy.DropOwnerless,
	)
	return c, nil
}

func policyFromConfig(cfg *config.Config) (services.Policy, error) {
	mode, err := domain.ParseResolveMode(cfg.OwnerResolveMode)
	if err != nil {
		return services.Policy{}, fmt.Errorf("OWNER_RESOLVE_MODE: %w", err)
	}
	return services.Policy{
		ResolveMode:   mode,
		DedupOwners:   cfg.OwnerDedup,
		DropOwnerless: cfg.DropOwnerless,
	}, nil
}

func (c *Container) loadReference(ctx context.Context) error {
	cfg := c.Config
	if cfg.WatchDirectory {
		w, err := directory.NewWatcher(cfg.DirectoryFile, c.Logger)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			_ = w.Close()
			return err
		}
		c.directoryWatcher = w
		c.Reference = w
		return nil
	}

	ref, err := directory.LoadFile(cfg.DirectoryFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || !cfg.IsDevelopment() {
			return err
		}
		c.Logger.Warn("owner directory not found, resolving no owners", "path", cfg.DirectoryFile)
		ref = directory.File{}.Reference()
	}
	c.Reference = domain.StaticReference(ref)
	return nil
}

func newSource(cfg *config.Config, logger *slog.Logger) (commands.Source, error) {
	switch cfg.Source {
	case config.SourceNotion:
		if cfg.NotionToken == "" {
			return nil, errors.New("NOTION_TOKEN is required for the notion source")
		}
		databases := notion.DefaultDatabases(notion.DatabaseIDs{
			Pitch:      cfg.NotionPitchDB,
			Experiment: cfg.NotionExperimentDB,
			Roadmap:    cfg.NotionRoadmapDB,
			Global:     cfg.NotionGlobalDB,
		})
		return notion.NewSource(cfg.NotionToken, databases, logger).
			WithBaseURL(cfg.NotionBaseURL).
			WithVersion(cfg.NotionVersion).
			WithTimeout(cfg.FetchTimeout), nil
	case config.SourceSheet:
		if cfg.SheetCSVURL == "" {
			return nil, errors.New("GOOGLE_SHEET_CSV_URL is required for the sheet source")
		}
		return sheets.NewSource(cfg.SheetCSVURL, logger).WithTimeout(cfg.FetchTimeout), nil
	default:
		return nil, fmt.Errorf("unknown DASHBOARD_SOURCE %q", cfg.Source)
	}
}

func (c *Container) connectSnapshotStore(ctx context.Context) error {
	cfg := c.Config
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			if !cfg.IsDevelopment() {
				return fmt.Errorf("failed to parse Redis URL: %w", err)
			}
			c.Logger.Warn("invalid Redis URL, snapshots will be kept in memory", "error", err)
		} else {
			redisClient := redis.NewClient(opt)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				_ = redisClient.Close()
				if !cfg.IsDevelopment() {
					return fmt.Errorf("failed to connect to Redis: %w", err)
				}
				c.Logger.Warn("Redis not available, snapshots will be kept in memory", "error", err)
			} else {
				c.RedisClient = redisClient
				store := snapshot.NewRedisStore(redisClient).
					WithPrefix(cfg.SnapshotKeyPrefix).
					WithTTL(cfg.SnapshotTTL)
				c.SnapshotStore = store
				c.Health.Register("redis", observability.PingHealthChecker("redis", observability.HealthStatusUnhealthy, store.Ping))
				c.Logger.Info("connected to Redis")
			}
		}
	}
	if c.SnapshotStore == nil {
		c.SnapshotStore = snapshot.NewMemoryStore()
	}
	c.Health.Register("snapshot", snapshotHealthChecker(c.SnapshotStore))
	return nil
}

func (c *Container) connectPublisher() error {
	cfg := c.Config
	if cfg.RabbitMQURL == "" {
		c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
		return nil
	}
	publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, c.Logger)
	if err != nil {
		// Fall back to noop publisher in development
		if cfg.IsDevelopment() {
			c.Logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
			c.EventPublisher = eventbus.NewNoopPublisher(c.Logger)
			return nil
		}
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	c.EventPublisher = publisher
	c.Health.Register("rabbitmq", observability.PingHealthChecker("rabbitmq", observability.HealthStatusDegraded, publisher.Ping))
	return nil
}

// snapshotHealthChecker is degraded until the first refresh publishes.
func snapshotHealthChecker(store domain.SnapshotStore) observability.HealthChecker {
	return func(ctx context.Context) observability.HealthCheckResult {
		latest, err := store.Latest(ctx)
		switch {
		case errors.Is(err, domain.ErrNoSnapshot):
			return observability.HealthCheckResult{
				Status:  observability.HealthStatusDegraded,
				Message: "no snapshot published yet",
			}
		case err != nil:
			return observability.HealthCheckResult{
				Status:  observability.HealthStatusUnhealthy,
				Message: "snapshot store failed: " + err.Error(),
			}
		}
		return observability.HealthCheckResult{
			Status:  observability.HealthStatusHealthy,
			Message: "snapshot available",
			Details: map[string]any{
				"generation":   latest.Generation,
				"refreshed_at": latest.RefreshedAt,
				"tasks":        len(latest.Tasks),
			},
		}
	}
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.directoryWatcher != nil {
		if err := c.directoryWatcher.Close(); err != nil {
			c.Logger.Warn("error closing directory watcher", "error", err)
		}
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}
}
