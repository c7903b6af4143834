package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/services"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"github.com/letsur-product-team/product-team-dashboard/pkg/observability"
)

// RoutingKeySnapshotPublished is the routing key of the notification sent
// after a snapshot is published.
const RoutingKeySnapshotPublished = "tracking.snapshot.published"

// Source is an ingestion collaborator: it supplies the current records or
// fails as a whole.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.RawRecord, error)
}

// TransportError reports that a source could not deliver its records.
type TransportError struct {
	Source string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch from %s failed: %v", e.Source, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Notifier announces published snapshots to interested parties.
type Notifier interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
}

// SnapshotPublished is the payload of RoutingKeySnapshotPublished.
type SnapshotPublished struct {
	Generation    uint64    `json:"generation"`
	CorrelationID string    `json:"correlation_id"`
	Source        string    `json:"source"`
	TaskCount     int       `json:"task_count"`
	Skipped       int       `json:"skipped"`
	RefreshedAt   time.Time `json:"refreshed_at"`
}

// RefreshHandler runs one full refresh cycle: fetch, normalize, publish.
type RefreshHandler struct {
	source    Source
	store     domain.SnapshotStore
	reference domain.ReferenceProvider
	rules     domain.RuleTable
	policy    services.Policy
	notifier  Notifier
	metrics   observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewRefreshHandler creates a new RefreshHandler.
func NewRefreshHandler(
	source Source,
	store domain.SnapshotStore,
	reference domain.ReferenceProvider,
	rules domain.RuleTable,
	policy services.Policy,
	logger *slog.Logger,
) *RefreshHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshHandler{
		source:    source,
		store:     store,
		reference: reference,
		rules:     rules,
		policy:    policy,
		metrics:   observability.NoopMetrics{},
		logger:    logger,
		now:       time.Now,
	}
}

// WithNotifier sets the notifier called after each publish.
func (h *RefreshHandler) WithNotifier(n Notifier) *RefreshHandler {
	h.notifier = n
	return h
}

// WithMetrics sets the metrics sink.
func (h *RefreshHandler) WithMetrics(m observability.Metrics) *RefreshHandler {
	if m != nil {
		h.metrics = m
	}
	return h
}

// Handle refreshes the published snapshot. A transport failure is returned
// whole as a *TransportError and leaves the previous snapshot in place. If a
// newer refresh published first, this result is dropped and the newer
// snapshot is returned.
func (h *RefreshHandler) Handle(ctx context.Context) (*domain.Snapshot, error) {
	start := h.now()
	correlationID := observability.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		ctx = observability.WithCorrelationID(ctx, "")
		correlationID = observability.CorrelationIDFromContext(ctx)
	}
	logger := observability.LogOperation(h.logger, "refresh", "source", h.source.Name())
	tags := []observability.Tag{observability.T("source", h.source.Name())}

	h.metrics.Counter(observability.MetricRefreshTotal, 1, tags...)
	logger.InfoContext(ctx, "refresh started")

	generation, err := h.store.NextGeneration(ctx)
	if err != nil {
		h.metrics.Counter(observability.MetricRefreshErrors, 1, tags...)
		return nil, fmt.Errorf("reserve snapshot generation: %w", err)
	}

	records, err := h.source.Fetch(ctx)
	if err != nil {
		h.metrics.Counter(observability.MetricRefreshErrors, 1, tags...)
		logger.ErrorContext(ctx, "refresh fetch failed", "generation", generation, "error", err)
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			return nil, err
		}
		return nil, &TransportError{Source: h.source.Name(), Err: err}
	}

	normalizer := services.NewNormalizer(h.rules, h.reference.Reference(), h.policy, logger)
	batch := normalizer.NormalizeAll(ctx, records)

	snapshot := &domain.Snapshot{
		Generation:    generation,
		CorrelationID: correlationID,
		Source:        h.source.Name(),
		RefreshedAt:   h.now().UTC(),
		Skipped:       len(batch.Skipped),
		Tasks:         batch.Tasks,
	}

	if err := h.store.Publish(ctx, snapshot); err != nil {
		if errors.Is(err, domain.ErrStaleSnapshot) {
			h.metrics.Counter(observability.MetricSnapshotStale, 1, tags...)
			logger.WarnContext(ctx, "dropping stale refresh result", "generation", generation)
			return h.store.Latest(ctx)
		}
		h.metrics.Counter(observability.MetricRefreshErrors, 1, tags...)
		return nil, fmt.Errorf("publish snapshot: %w", err)
	}

	h.metrics.Counter(observability.MetricRecordsSkipped, int64(len(batch.Skipped)), tags...)
	h.metrics.Gauge(observability.MetricTasksPublished, float64(len(snapshot.Tasks)), tags...)
	h.metrics.Timing(observability.MetricRefreshDuration, h.now().Sub(start), tags...)

	logger.InfoContext(ctx, "refresh completed",
		"generation", generation,
		"records", len(records),
		"tasks", len(snapshot.Tasks),
		"skipped", len(batch.Skipped),
		"dropped", batch.Dropped,
		observability.DurationKey, h.now().Sub(start).Milliseconds(),
	)

	h.notify(ctx, snapshot)
	return snapshot, nil
}

func (h *RefreshHandler) notify(ctx context.Context, snapshot *domain.Snapshot) {
	if h.notifier == nil {
		return
	}
	payload, err := json.Marshal(SnapshotPublished{
		Generation:    snapshot.Generation,
		CorrelationID: snapshot.CorrelationID,
		Source:        snapshot.Source,
		TaskCount:     len(snapshot.Tasks),
		Skipped:       snapshot.Skipped,
		RefreshedAt:   snapshot.RefreshedAt,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode snapshot notification", "error", err)
		return
	}
	if err := h.notifier.Publish(ctx, RoutingKeySnapshotPublished, payload); err != nil {
		h.logger.WarnContext(ctx, "snapshot notification failed", "generation", snapshot.Generation, "error", err)
	}
}
