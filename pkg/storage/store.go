package storage

import (
	"context"

	"github.com/ledgerops/feetrack/pkg/models"
)

// Store persists diagnostic load history. It is write-mostly: nothing in
// the fee tracker ever reads its own state back from here.
type Store interface {
	// SaveSample persists one tracker snapshot.
	SaveSample(ctx context.Context, sample *models.LoadSample) error

	// SaveEvent persists one effective raise/lower transition.
	SaveEvent(ctx context.Context, event *models.LevelEvent) error

	// RecentSamples returns the newest samples for a node, newest first.
	RecentSamples(ctx context.Context, nodeID string, limit int) ([]*models.LoadSample, error)

	// RecentEvents returns the newest level transitions for a node, newest first.
	RecentEvents(ctx context.Context, nodeID string, limit int) ([]*models.LevelEvent, error)

	// Close releases the underlying connections.
	Close() error
}
