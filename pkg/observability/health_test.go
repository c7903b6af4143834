package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthRegistry(t *testing.T) {
	ctx := context.Background()
	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("connection refused") }

	t.Run("empty registry is healthy", func(t *testing.T) {
		health := NewHealthRegistry().GetOverallHealth(ctx)
		assert.Equal(t, HealthStatusHealthy, health.Status)
		assert.Empty(t, health.Checks)
	})

	t.Run("degrades on a degraded check", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("snapshot", PingHealthChecker("snapshot", HealthStatusUnhealthy, ok))
		r.Register("redis", PingHealthChecker("redis", HealthStatusDegraded, fail))

		health := r.GetOverallHealth(ctx)

		assert.Equal(t, HealthStatusDegraded, health.Status)
		require.Contains(t, health.Checks, "redis")
		assert.Contains(t, health.Checks["redis"].Message, "connection refused")
		assert.False(t, health.Checks["redis"].Timestamp.IsZero())
	})

	t.Run("unhealthy wins over degraded", func(t *testing.T) {
		r := NewHealthRegistry()
		r.Register("redis", PingHealthChecker("redis", HealthStatusDegraded, fail))
		r.Register("snapshot", PingHealthChecker("snapshot", HealthStatusUnhealthy, fail))

		assert.Equal(t, HealthStatusUnhealthy, r.GetOverallHealth(ctx).Status)
	})
}
