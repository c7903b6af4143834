package commands

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/application/services"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/domain"
	"github.com/letsur-product-team/product-team-dashboard/internal/tracking/infrastructure/snapshot"
	"github.com/letsur-product-team/product-team-dashboard/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Name() string {
	return "mock"
}

func (m *mockSource) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawRecord), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Publish(ctx context.Context, routingKey string, payload []byte) error {
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

func testRecords() []domain.RawRecord {
	return []domain.RawRecord{
		{CategoryLabel: "ShapeUp", ExternalID: "p1", Title: "V2 인증 시스템", Status: "Delivering",
			DiscoveryCandidates: []string{"u1"}, DeliveryCandidates: []string{"u2"}},
		{CategoryLabel: "Experiment", ExternalID: "e1", Title: "Memory Framework", Status: "Archive",
			DiscoveryCandidates: []string{"u1"}, DeliveryCandidates: []string{"u1", "u3"}},
		{CategoryLabel: "", Title: "broken row"},
	}
}

func testReference() domain.ReferenceProvider {
	return domain.StaticReference(domain.ReferenceData{
		Owners: domain.NewOwnerDirectory(map[string]string{"u1": "Alice", "u2": "Bob"}, nil),
	})
}

func newTestHandler(source Source, store domain.SnapshotStore) *RefreshHandler {
	return NewRefreshHandler(source, store, testReference(), domain.DefaultRuleTable(), services.Policy{}, nil)
}

func TestRefreshHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes the normalized snapshot", func(t *testing.T) {
		source := new(mockSource)
		store := snapshot.NewMemoryStore()
		metrics := observability.NewInMemoryMetrics()
		handler := newTestHandler(source, store).WithMetrics(metrics)
		source.On("Fetch", mock.Anything).Return(testRecords(), nil)

		result, err := handler.Handle(ctx)

		require.NoError(t, err)
		require.Len(t, result.Tasks, 2)
		assert.Equal(t, 1, result.Skipped)
		assert.Equal(t, "mock", result.Source)
		assert.NotEmpty(t, result.CorrelationID)
		assert.Equal(t, []string{"Alice"}, result.Tasks[0].DiscoveryOwners)
		assert.Empty(t, result.Tasks[0].DeliveryOwners)
		assert.Equal(t, []string{"Alice"}, result.Tasks[1].DeliveryOwners)

		latest, err := store.Latest(ctx)
		require.NoError(t, err)
		assert.Same(t, result, latest)

		tag := observability.T("source", "mock")
		assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricRefreshTotal, tag))
		assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricRecordsSkipped, tag))
		assert.Equal(t, float64(2), metrics.GetGauge(observability.MetricTasksPublished, tag))
		source.AssertExpectations(t)
	})

	t.Run("keeps the correlation id from context", func(t *testing.T) {
		source := new(mockSource)
		handler := newTestHandler(source, snapshot.NewMemoryStore())
		source.On("Fetch", mock.Anything).Return(testRecords(), nil)

		result, err := handler.Handle(observability.WithCorrelationID(ctx, "corr-1"))

		require.NoError(t, err)
		assert.Equal(t, "corr-1", result.CorrelationID)
	})

	t.Run("transport failure leaves the previous snapshot published", func(t *testing.T) {
		source := new(mockSource)
		store := snapshot.NewMemoryStore()
		handler := newTestHandler(source, store)
		source.On("Fetch", mock.Anything).Return(testRecords(), nil).Once()
		source.On("Fetch", mock.Anything).Return(nil, errors.New("connection refused")).Once()

		first, err := handler.Handle(ctx)
		require.NoError(t, err)

		_, err = handler.Handle(ctx)
		require.Error(t, err)
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "mock", transportErr.Source)
		assert.Contains(t, err.Error(), "connection refused")

		latest, err := store.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, first.Generation, latest.Generation)
		source.AssertExpectations(t)
	})

	t.Run("does not double-wrap transport errors", func(t *testing.T) {
		source := new(mockSource)
		handler := newTestHandler(source, snapshot.NewMemoryStore())
		inner := &TransportError{Source: "notion:pitch", Err: errors.New("503")}
		source.On("Fetch", mock.Anything).Return(nil, inner)

		_, err := handler.Handle(ctx)

		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, "notion:pitch", transportErr.Source)
	})

	t.Run("stale result returns the newer snapshot", func(t *testing.T) {
		source := new(mockSource)
		store := snapshot.NewMemoryStore()
		handler := newTestHandler(source, store)
		newer := &domain.Snapshot{Generation: 100, Source: "other"}
		source.On("Fetch", mock.Anything).Run(func(mock.Arguments) {
			require.NoError(t, store.Publish(ctx, newer))
		}).Return(testRecords(), nil)

		result, err := handler.Handle(ctx)

		require.NoError(t, err)
		assert.Same(t, newer, result)
	})

	t.Run("notifies after publishing", func(t *testing.T) {
		source := new(mockSource)
		notifier := new(mockNotifier)
		handler := newTestHandler(source, snapshot.NewMemoryStore()).WithNotifier(notifier)
		source.On("Fetch", mock.Anything).Return(testRecords(), nil)

		var payload SnapshotPublished
		notifier.On("Publish", mock.Anything, RoutingKeySnapshotPublished, mock.Anything).Run(func(args mock.Arguments) {
			require.NoError(t, json.Unmarshal(args.Get(2).([]byte), &payload))
		}).Return(errors.New("broker down"))

		result, err := handler.Handle(ctx)

		require.NoError(t, err)
		assert.Equal(t, result.Generation, payload.Generation)
		assert.Equal(t, 2, payload.TaskCount)
		notifier.AssertExpectations(t)
	})
}

func TestRefreshHandler_ConcurrentRefreshes(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	source := new(mockSource)
	store := snapshot.NewMemoryStore()
	handler := newTestHandler(source, store)
	source.On("Fetch", mock.Anything).Return(testRecords(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := handler.Handle(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), latest.Generation)
	assert.Len(t, latest.Tasks, 2)
}
