// Package resilience guards ingestion sources with a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/commands"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"github.com/letsur-product-team/product-team-dashboard/pkg/observability"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned while the breaker rejects fetches.
var ErrCircuitOpen = errors.New("source circuit breaker is open")

// BreakerConfig configures the breaker.
type BreakerConfig struct {
	// MaxRequests is the number of trial fetches allowed while half-open.
	MaxRequests uint32
	// Interval is the cyclic period of the closed state.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// FailureThreshold trips the breaker after this many consecutive failures.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         0,
		Timeout:          time.Minute,
		FailureThreshold: 3,
	}
}

// BreakerSource wraps a source so repeated transport failures stop hitting
// the backing service for a while.
type BreakerSource struct {
	source  commands.Source
	breaker *gobreaker.CircuitBreaker[[]domain.RawRecord]
	metrics observability.Metrics
	logger  *slog.Logger
}

// NewBreakerSource creates a BreakerSource around source.
func NewBreakerSource(source commands.Source, cfg BreakerConfig, metrics observability.Metrics, logger *slog.Logger) *BreakerSource {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}

	b := &BreakerSource{source: source, metrics: metrics, logger: logger}
	b.breaker = gobreaker.NewCircuitBreaker[[]domain.RawRecord](gobreaker.Settings{
		Name:        source.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// A caller that gave up says nothing about the source.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				"source", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return b
}

// Name implements commands.Source.
func (b *BreakerSource) Name() string {
	return b.source.Name()
}

// Fetch implements commands.Source.
func (b *BreakerSource) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	tags := []observability.Tag{observability.T("source", b.Name())}
	b.metrics.Counter(observability.MetricSourceFetches, 1, tags...)

	records, err := b.breaker.Execute(func() ([]domain.RawRecord, error) {
		return b.source.Fetch(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.metrics.Counter(observability.MetricSourceCircuitOpen, 1, tags...)
		return nil, &commands.TransportError{Source: b.Name(), Err: ErrCircuitOpen}
	}
	return records, err
}

// State reports the breaker state: closed, half-open or open.
func (b *BreakerSource) State() string {
	return b.breaker.State().String()
}

// HealthChecker reports the breaker as degraded while it is not closed.
func (b *BreakerSource) HealthChecker() observability.HealthChecker {
	return func(context.Context) observability.HealthCheckResult {
		state := b.breaker.State()
		result := observability.HealthCheckResult{
			Status:  observability.HealthStatusHealthy,
			Message: "source circuit " + state.String(),
			Details: map[string]any{"source": b.Name(), "state": state.String()},
		}
		if state != gobreaker.StateClosed {
			result.Status = observability.HealthStatusDegraded
		}
		return result
	}
}
