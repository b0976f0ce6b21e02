// Package monitor runs the periodic loops that feed the fee tracker: a
// probe loop turning node utilization into raise/lower signals, and a
// sample loop publishing tracker state to metrics and the history store.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/ledgerops/feetrack/pkg/config"
	"github.com/ledgerops/feetrack/pkg/datasource"
	"github.com/ledgerops/feetrack/pkg/feetrack"
	"github.com/ledgerops/feetrack/pkg/metrics"
	"github.com/ledgerops/feetrack/pkg/models"
	"github.com/ledgerops/feetrack/pkg/peers"
	"github.com/ledgerops/feetrack/pkg/storage"
)

// Monitor owns no load state itself; it only drives the tracker and the
// registry through their public operations.
type Monitor struct {
	cfg      *config.Config
	tracker  *feetrack.Tracker
	source   datasource.Source
	registry *peers.Registry
	store    storage.Store // nil when storage is disabled
	log      *slog.Logger
}

// New wires a monitor. store may be nil.
func New(cfg *config.Config, tracker *feetrack.Tracker, source datasource.Source,
	registry *peers.Registry, store storage.Store, log *slog.Logger) *Monitor {
	return &Monitor{
		cfg:      cfg,
		tracker:  tracker,
		source:   source,
		registry: registry,
		store:    store,
		log:      log,
	}
}

// Run blocks until ctx is cancelled, driving the probe and sample loops.
func (m *Monitor) Run(ctx context.Context) error {
	probe := time.NewTicker(m.cfg.ProbeInterval)
	defer probe.Stop()
	sample := time.NewTicker(m.cfg.SampleInterval)
	defer sample.Stop()

	m.log.Info("monitor started",
		"probe_interval", m.cfg.ProbeInterval,
		"sample_interval", m.cfg.SampleInterval,
		"source", m.source.Name())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-probe.C:
			m.probeOnce(ctx)
		case <-sample.C:
			m.sampleOnce(ctx)
		}
	}
}

// probeOnce reads utilization and converts it into at most one raise or
// lower request. The hysteresis in the tracker handles debounce and decay;
// the thresholds here only decide direction.
func (m *Monitor) probeOnce(ctx context.Context) {
	u, err := m.source.Utilization(ctx)
	if err != nil {
		m.log.Warn("utilization probe failed", "source", m.source.Name(), "err", err)
		return
	}

	switch {
	case u >= m.cfg.RaiseThreshold:
		orig := m.tracker.LocalLevel()
		changed := m.tracker.RaiseLocalLevel()
		metrics.RecordRaise(changed)
		if changed {
			m.recordEvent(ctx, models.DirectionRaise, orig, m.tracker.LocalLevel())
		}
	case u <= m.cfg.LowerThreshold:
		orig := m.tracker.LocalLevel()
		changed := m.tracker.LowerLocalLevel()
		metrics.RecordLower(changed)
		if changed {
			m.recordEvent(ctx, models.DirectionLower, orig, m.tracker.LocalLevel())
		}
	}
}

// sampleOnce refreshes peer aggregates and publishes one tracker snapshot.
func (m *Monitor) sampleOnce(ctx context.Context) {
	if pruned := m.registry.Prune(m.cfg.PeerMaxAge); pruned > 0 {
		m.log.Debug("pruned stale peer reports", "count", pruned)
	}
	m.registry.Apply(m.tracker)
	metrics.Observe(m.tracker)

	if m.store == nil {
		return
	}

	status, err := m.tracker.Status(m.cfg.BaseFee, m.cfg.ReferenceFeeUnits)
	if err != nil {
		metrics.RecordScaleError()
		m.log.Error("status computation failed", "err", err)
		return
	}

	sample := &models.LoadSample{
		NodeID:     m.cfg.NodeID,
		Local:      m.tracker.LocalLevel(),
		Remote:     m.tracker.RemoteLevel(),
		Cluster:    m.tracker.ClusterLevel(),
		LoadFactor: m.tracker.LoadFactor(),
		LoadFee:    status.LoadFee,
	}
	if err := m.store.SaveSample(ctx, sample); err != nil {
		m.log.Warn("failed to save load sample", "err", err)
	}
}

func (m *Monitor) recordEvent(ctx context.Context, direction string, from, to uint32) {
	m.log.Info("local load level changed", "direction", direction, "from", from, "to", to)

	if m.store == nil {
		return
	}

	event := &models.LevelEvent{
		NodeID:    m.cfg.NodeID,
		Direction: direction,
		FromLevel: from,
		ToLevel:   to,
	}
	if err := m.store.SaveEvent(ctx, event); err != nil {
		m.log.Warn("failed to save level event", "err", err)
	}
}
