package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoSnapshot    = errors.New("no snapshot published")
	ErrStaleSnapshot = errors.New("snapshot is older than the published one")
)

// Snapshot is the full task set produced by one refresh.
type Snapshot struct {
	Generation    uint64           `json:"generation"`
	CorrelationID string           `json:"correlationId"`
	Source        string           `json:"source"`
	RefreshedAt   time.Time        `json:"refreshedAt"`
	Skipped       int              `json:"skipped"`
	Tasks         []NormalizedTask `json:"tasks"`
}

// SnapshotStore publishes snapshots atomically. A snapshot whose generation is
// not newer than the published one is rejected with ErrStaleSnapshot.
type SnapshotStore interface {
	// NextGeneration reserves a generation number for a refresh about to start.
	NextGeneration(ctx context.Context) (uint64, error)
	Publish(ctx context.Context, snapshot *Snapshot) error
	// Latest returns the published snapshot or ErrNoSnapshot.
	Latest(ctx context.Context) (*Snapshot, error)
}
