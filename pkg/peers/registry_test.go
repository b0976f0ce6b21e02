package peers

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerops/feetrack/pkg/feetrack"
	"github.com/ledgerops/feetrack/pkg/models"
)

func report(level uint32, cluster bool) models.PeerReport {
	return models.PeerReport{
		PeerID:  uuid.New().String(),
		Level:   level,
		Cluster: cluster,
	}
}

func TestEmptyRegistryReadsBaseline(t *testing.T) {
	r := NewRegistry()

	if r.RemoteLevel() != feetrack.LoadBase {
		t.Errorf("Empty registry remote level = %d, want %d", r.RemoteLevel(), feetrack.LoadBase)
	}
	if r.ClusterLevel() != feetrack.LoadBase {
		t.Errorf("Empty registry cluster level = %d, want %d", r.ClusterLevel(), feetrack.LoadBase)
	}
}

func TestReportRejectsBadPeerID(t *testing.T) {
	r := NewRegistry()

	err := r.Report(models.PeerReport{PeerID: "not-a-uuid", Level: 512})
	if err == nil {
		t.Fatalf("Expected error for malformed peer ID")
	}
	if r.Len() != 0 {
		t.Errorf("Rejected report must not be stored")
	}
}

func TestAggregatesSplitByClusterFlag(t *testing.T) {
	r := NewRegistry()

	for _, rep := range []models.PeerReport{
		report(512, false),
		report(1024, false),
		report(300, true),
		report(700, true),
	} {
		if err := r.Report(rep); err != nil {
			t.Fatalf("Report failed: %v", err)
		}
	}

	if got := r.RemoteLevel(); got != 1024 {
		t.Errorf("RemoteLevel = %d, want 1024", got)
	}
	if got := r.ClusterLevel(); got != 700 {
		t.Errorf("ClusterLevel = %d, want 700", got)
	}
}

func TestReportReplacesEarlierReport(t *testing.T) {
	r := NewRegistry()

	rep := report(2048, false)
	if err := r.Report(rep); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	rep.Level = 512
	if err := r.Report(rep); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	if got := r.RemoteLevel(); got != 512 {
		t.Errorf("Latest report should win, RemoteLevel = %d, want 512", got)
	}
	if r.Len() != 1 {
		t.Errorf("Replacement should not grow the registry, len = %d", r.Len())
	}
}

func TestPruneDropsStaleReports(t *testing.T) {
	r := NewRegistry()

	stale := report(4096, false)
	stale.ReportedAt = time.Now().Add(-2 * time.Minute)
	fresh := report(512, false)

	if err := r.Report(stale); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if err := r.Report(fresh); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	if dropped := r.Prune(time.Minute); dropped != 1 {
		t.Errorf("Expected 1 pruned report, got %d", dropped)
	}
	if got := r.RemoteLevel(); got != 512 {
		t.Errorf("Stale peer should stop influencing the level, got %d", got)
	}
}

func TestApplyPushesAggregates(t *testing.T) {
	r := NewRegistry()
	tr := feetrack.NewTracker()

	if err := r.Report(report(800, false)); err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if err := r.Report(report(600, true)); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	r.Apply(tr)

	if tr.RemoteLevel() != 800 {
		t.Errorf("Tracker remote level = %d, want 800", tr.RemoteLevel())
	}
	if tr.ClusterLevel() != 600 {
		t.Errorf("Tracker cluster level = %d, want 600", tr.ClusterLevel())
	}
	if tr.LoadFactor() != 800 {
		t.Errorf("LoadFactor = %d, want 800", tr.LoadFactor())
	}
}
