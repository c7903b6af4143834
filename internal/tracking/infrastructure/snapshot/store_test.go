package snapshot

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot(generation uint64) *domain.Snapshot {
	return &domain.Snapshot{
		Generation:  generation,
		Source:      "test",
		RefreshedAt: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC),
		Tasks: []domain.NormalizedTask{
			{
				ID:              "t1",
				Title:           "Opencost 자동화 (FinOps)",
				Category:        domain.CategoryRoadmap,
				Status:          "완료",
				Phases:          domain.PhaseFlags{InDiscovery: true, InDelivery: true},
				DiscoveryOwners: []string{"송재현"},
				DeliveryOwners:  []string{"송재현"},
			},
		},
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("latest before publish is ErrNoSnapshot", func(t *testing.T) {
		store := NewMemoryStore()
		_, err := store.Latest(ctx)
		assert.ErrorIs(t, err, domain.ErrNoSnapshot)
	})

	t.Run("generations increase", func(t *testing.T) {
		store := NewMemoryStore()
		first, err := store.NextGeneration(ctx)
		require.NoError(t, err)
		second, err := store.NextGeneration(ctx)
		require.NoError(t, err)
		assert.Greater(t, second, first)
	})

	t.Run("rejects stale snapshot and keeps the newer one", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Publish(ctx, sampleSnapshot(2)))

		err := store.Publish(ctx, sampleSnapshot(1))
		assert.ErrorIs(t, err, domain.ErrStaleSnapshot)

		latest, err := store.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), latest.Generation)
	})

	t.Run("concurrent publishers leave the highest generation", func(t *testing.T) {
		store := NewMemoryStore()
		var wg sync.WaitGroup
		for i := 1; i <= 20; i++ {
			wg.Add(1)
			go func(gen uint64) {
				defer wg.Done()
				_ = store.Publish(ctx, sampleSnapshot(gen))
			}(uint64(i))
		}
		wg.Wait()

		latest, err := store.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(20), latest.Generation)
	})
}

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	prefix := fmt.Sprintf("dashboard-test:%d", time.Now().UnixNano())
	t.Cleanup(func() {
		client.Del(ctx, prefix+":generation", prefix+":published", prefix+":latest")
	})
	return NewRedisStore(client).WithPrefix(prefix)
}

func TestRedisStore(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, domain.ErrNoSnapshot)

	gen, err := store.NextGeneration(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Publish(ctx, sampleSnapshot(gen)))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen, latest.Generation)
	require.Len(t, latest.Tasks, 1)
	assert.Equal(t, domain.CategoryRoadmap, latest.Tasks[0].Category)
	assert.Equal(t, []string{"송재현"}, latest.Tasks[0].DeliveryOwners)

	err = store.Publish(ctx, sampleSnapshot(gen))
	assert.ErrorIs(t, err, domain.ErrStaleSnapshot)
	assert.NoError(t, store.Ping(ctx))
}
