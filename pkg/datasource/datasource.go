package datasource

import "context"

// Source provides the node utilization reading the monitor turns into
// raise/lower signals for the fee tracker.
type Source interface {
	// Utilization returns the node's current utilization as a 0..1 fraction.
	Utilization(ctx context.Context) (float64, error)

	// IsAvailable reports whether the source can be queried right now.
	IsAvailable(ctx context.Context) bool

	// Name identifies the source in logs.
	Name() string
}
