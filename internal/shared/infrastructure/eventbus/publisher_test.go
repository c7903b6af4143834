package eventbus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/letsur-product-team/product-team-dashboard/pkg/observability"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NewNoopPublisher(nil)

	assert.NoError(t, p.Publish(context.Background(), "tracking.snapshot.published", []byte(`{}`)))
	assert.NoError(t, p.Close())
}

func TestPublishing(t *testing.T) {
	ctx := observability.WithCorrelationID(context.Background(), "corr-9")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	msg := publishing(ctx, []byte(`{"generation":1}`), at)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "corr-9", msg.CorrelationId)
	assert.NotEmpty(t, msg.MessageId)
	assert.Equal(t, at, msg.Timestamp)
	assert.JSONEq(t, `{"generation":1}`, string(msg.Body))
}

func TestRabbitMQPublisher(t *testing.T) {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		t.Skip("RABBITMQ_URL not set")
	}

	p, err := NewRabbitMQPublisher(url, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, p.Ping(ctx))
	require.NoError(t, p.Publish(ctx, "tracking.snapshot.published", []byte(`{}`)))
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(ctx, "tracking.snapshot.published", []byte(`{}`)), ErrPublisherClosed)
	assert.NoError(t, p.Close())
}
