// Package peers aggregates gossiped load levels from individual peers into
// the two aggregate levels the fee tracker consumes: the remote level (the
// worst load any peer reports) and the cluster level (the worst load a
// trusted cluster member reports).
package peers

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerops/feetrack/pkg/feetrack"
	"github.com/ledgerops/feetrack/pkg/models"
)

// Registry keeps the latest report per peer. It owns its own lock; the
// tracker is only touched through its setters in Apply.
type Registry struct {
	mu      sync.Mutex
	reports map[string]models.PeerReport
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		reports: make(map[string]models.PeerReport),
	}
}

// Report records a peer's load level, replacing any earlier report from
// the same peer. Peer IDs are UUIDs assigned at connection time.
func (r *Registry) Report(rep models.PeerReport) error {
	if _, err := uuid.Parse(rep.PeerID); err != nil {
		return fmt.Errorf("invalid peer ID %q: %w", rep.PeerID, err)
	}
	if rep.ReportedAt.IsZero() {
		rep.ReportedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[rep.PeerID] = rep
	return nil
}

// Forget drops a peer's report, typically on disconnect.
func (r *Registry) Forget(peerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reports, peerID)
}

// Prune removes reports older than maxAge and returns how many were
// dropped. A peer that goes quiet stops influencing fees.
func (r *Registry) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for id, rep := range r.reports {
		if rep.ReportedAt.Before(cutoff) {
			delete(r.reports, id)
			dropped++
		}
	}
	return dropped
}

// RemoteLevel returns the highest level reported by any non-cluster peer,
// floored at the baseline so an empty registry reads as "no load".
func (r *Registry) RemoteLevel() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	level := feetrack.LoadBase
	for _, rep := range r.reports {
		if !rep.Cluster && rep.Level > level {
			level = rep.Level
		}
	}
	return level
}

// ClusterLevel returns the highest level reported by a cluster peer,
// floored at the baseline.
func (r *Registry) ClusterLevel() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	level := feetrack.LoadBase
	for _, rep := range r.reports {
		if rep.Cluster && rep.Level > level {
			level = rep.Level
		}
	}
	return level
}

// Len returns the number of live reports.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

// Apply pushes the current aggregates into the tracker.
func (r *Registry) Apply(t *feetrack.Tracker) {
	t.SetRemoteLevel(r.RemoteLevel())
	t.SetClusterLevel(r.ClusterLevel())
}
