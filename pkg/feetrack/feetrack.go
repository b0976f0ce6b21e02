// Package feetrack tracks the perceived load of a ledger node and converts
// that load into the fee multiplier used to price transaction admission.
//
// Load levels are scale factors relative to LoadBase: a level of LoadBase
// means "charge the base fee", 2*LoadBase doubles it. The tracker holds
// three levels — the node's own (local), the highest seen from any peer
// (remote), and the highest reported by trusted cluster members (cluster) —
// and applies hysteresis to the local one so a single transient spike does
// not move fees.
package feetrack

import "sync"

const (
	// LoadBase is the minimum/normal load factor.
	LoadBase uint32 = 256

	// LevelMax caps the local level at one million times LoadBase.
	LevelMax uint32 = LoadBase * 1_000_000

	// raiseFraction and decayFraction size each hysteresis step: a raise or
	// lower moves the local level by level/fraction.
	raiseFraction uint32 = 4
	decayFraction uint32 = 4

	// raiseDebounce is the number of consecutive raise requests needed
	// before the first one takes effect. A lone spike is ignored.
	raiseDebounce = 2
)

// Tracker holds the shared load state. All fields move together: every
// operation that reads or writes more than one field takes a single
// consistent snapshot under mu.
type Tracker struct {
	mu sync.Mutex

	localLevel   uint32
	remoteLevel  uint32
	clusterLevel uint32
	raiseCount   int
}

// NewTracker returns a tracker at baseline: all levels at LoadBase, no
// pending raise signal.
func NewTracker() *Tracker {
	return &Tracker{
		localLevel:   LoadBase,
		remoteLevel:  LoadBase,
		clusterLevel: LoadBase,
	}
}

// SetRemoteLevel overwrites the highest load level observed from peers.
func (t *Tracker) SetRemoteLevel(level uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remoteLevel = level
}

// SetClusterLevel overwrites the load level aggregated from trusted
// cluster peers.
func (t *Tracker) SetClusterLevel(level uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clusterLevel = level
}

// LocalLevel returns the node's self-assessed load level.
func (t *Tracker) LocalLevel() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.localLevel
}

// RemoteLevel returns the last level set from peer observations.
func (t *Tracker) RemoteLevel() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remoteLevel
}

// ClusterLevel returns the last level set from cluster reports.
func (t *Tracker) ClusterLevel() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clusterLevel
}

// LoadFactor returns the current load multiplier relative to LoadBase: the
// maximum of the local, remote and cluster levels, read as one snapshot.
func (t *Tracker) LoadFactor() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return max(t.clusterLevel, max(t.localLevel, t.remoteLevel))
}

// RaiseLocalLevel requests an increase of the local load level. The first
// request after a lower is debounced; once two arrive consecutively the
// level is snapped up to at least the remote level and then bumped by a
// quarter, clamped at LevelMax. Reports whether the level actually changed.
func (t *Tracker) RaiseLocalLevel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.raiseCount++
	if t.raiseCount < raiseDebounce {
		return false
	}

	orig := t.localLevel

	// Never hold the local level below what peers already observe.
	if t.localLevel < t.remoteLevel {
		t.localLevel = t.remoteLevel
	}

	t.localLevel += t.localLevel / raiseFraction
	if t.localLevel > LevelMax {
		t.localLevel = LevelMax
	}

	return t.localLevel != orig
}

// LowerLocalLevel decays the local load level by a quarter, never below
// LoadBase, and cancels any pending raise debounce. Reports whether the
// level actually changed.
func (t *Tracker) LowerLocalLevel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	orig := t.localLevel
	t.raiseCount = 0

	t.localLevel -= t.localLevel / decayFraction
	if t.localLevel < LoadBase {
		t.localLevel = LoadBase
	}

	return t.localLevel != orig
}

// IsLoadedLocal reports whether this node considers itself loaded: either
// an elevated local level or a raise signal still inside the debounce
// window.
func (t *Tracker) IsLoadedLocal() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.raiseCount != 0 || t.localLevel != LoadBase
}

// IsLoadedCluster reports whether this node or its cluster is loaded.
func (t *Tracker) IsLoadedCluster() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.raiseCount != 0 || t.localLevel != LoadBase || t.clusterLevel != LoadBase
}
