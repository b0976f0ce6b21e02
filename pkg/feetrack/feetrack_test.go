package feetrack

import (
	"sync"
	"testing"
)

func TestNewTrackerBaseline(t *testing.T) {
	tr := NewTracker()

	if tr.LocalLevel() != LoadBase {
		t.Errorf("Expected local level %d, got %d", LoadBase, tr.LocalLevel())
	}
	if tr.RemoteLevel() != LoadBase {
		t.Errorf("Expected remote level %d, got %d", LoadBase, tr.RemoteLevel())
	}
	if tr.ClusterLevel() != LoadBase {
		t.Errorf("Expected cluster level %d, got %d", LoadBase, tr.ClusterLevel())
	}
	if tr.IsLoadedLocal() {
		t.Errorf("Fresh tracker should not be loaded")
	}
	if tr.IsLoadedCluster() {
		t.Errorf("Fresh tracker should not report cluster load")
	}
}

func TestLoadFactorIsMaxOfLevels(t *testing.T) {
	cases := []struct {
		name            string
		remote, cluster uint32
		raises          int
		want            uint32
	}{
		{"all baseline", LoadBase, LoadBase, 0, LoadBase},
		{"remote dominates", 1024, 300, 0, 1024},
		{"cluster dominates", 300, 2048, 0, 2048},
		{"local dominates", 257, 258, 2, 321}, // snapped to 257, then +257/4
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := NewTracker()
			tr.SetRemoteLevel(tc.remote)
			tr.SetClusterLevel(tc.cluster)
			for i := 0; i < tc.raises; i++ {
				tr.RaiseLocalLevel()
			}

			if got := tr.LoadFactor(); got != tc.want {
				t.Errorf("LoadFactor = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSettersOverwriteUnconditionally(t *testing.T) {
	tr := NewTracker()

	// Below baseline is accepted verbatim; the store does not validate.
	tr.SetRemoteLevel(1)
	tr.SetClusterLevel(0)

	if tr.RemoteLevel() != 1 {
		t.Errorf("Expected remote 1, got %d", tr.RemoteLevel())
	}
	if tr.ClusterLevel() != 0 {
		t.Errorf("Expected cluster 0, got %d", tr.ClusterLevel())
	}
}

func TestRaiseDebounce(t *testing.T) {
	tr := NewTracker()

	if changed := tr.RaiseLocalLevel(); changed {
		t.Errorf("First raise should be debounced")
	}
	if tr.LocalLevel() != LoadBase {
		t.Errorf("Debounced raise must not move the level, got %d", tr.LocalLevel())
	}
	if !tr.IsLoadedLocal() {
		t.Errorf("Pending raise signal should count as loaded")
	}

	if changed := tr.RaiseLocalLevel(); !changed {
		t.Errorf("Second consecutive raise should take effect")
	}
	want := LoadBase + LoadBase/4
	if tr.LocalLevel() != want {
		t.Errorf("Expected level %d after effective raise, got %d", want, tr.LocalLevel())
	}
}

func TestLowerResetsDebounce(t *testing.T) {
	tr := NewTracker()

	tr.RaiseLocalLevel()
	tr.LowerLocalLevel() // cancels the pending raise

	if tr.IsLoadedLocal() {
		t.Errorf("Lower should clear the pending raise signal")
	}

	// The raise streak starts over: one more raise is still debounced.
	if changed := tr.RaiseLocalLevel(); changed {
		t.Errorf("Raise after lower should be debounced again")
	}
	if tr.LocalLevel() != LoadBase {
		t.Errorf("Expected baseline level, got %d", tr.LocalLevel())
	}
}

func TestRaiseSnapsUpToRemote(t *testing.T) {
	tr := NewTracker()
	tr.SetRemoteLevel(4096)

	tr.RaiseLocalLevel()
	if changed := tr.RaiseLocalLevel(); !changed {
		t.Fatalf("Second raise should take effect")
	}

	want := uint32(4096 + 4096/4)
	if tr.LocalLevel() != want {
		t.Errorf("Expected snap to remote then bump: %d, got %d", want, tr.LocalLevel())
	}
}

func TestRaiseCeiling(t *testing.T) {
	tr := NewTracker()

	for i := 0; i < 200; i++ {
		tr.RaiseLocalLevel()
	}

	if tr.LocalLevel() != LevelMax {
		t.Errorf("Expected clamp at %d, got %d", LevelMax, tr.LocalLevel())
	}

	// Fully saturated: a further raise changes nothing.
	if changed := tr.RaiseLocalLevel(); changed {
		t.Errorf("Raise at ceiling should report no change")
	}
}

func TestLowerDecayAndFloor(t *testing.T) {
	tr := NewTracker()
	tr.RaiseLocalLevel()
	tr.RaiseLocalLevel()
	tr.RaiseLocalLevel()

	elevated := tr.LocalLevel()
	if elevated <= LoadBase {
		t.Fatalf("Setup failed, level not elevated: %d", elevated)
	}

	if changed := tr.LowerLocalLevel(); !changed {
		t.Errorf("Lower from elevated level should report a change")
	}
	want := elevated - elevated/4
	if tr.LocalLevel() != want {
		t.Errorf("Expected decay to %d, got %d", want, tr.LocalLevel())
	}

	for i := 0; i < 100; i++ {
		tr.LowerLocalLevel()
	}
	if tr.LocalLevel() != LoadBase {
		t.Errorf("Decay must floor at %d, got %d", LoadBase, tr.LocalLevel())
	}
}

func TestLowerAtBaselineIsNoop(t *testing.T) {
	tr := NewTracker()

	if changed := tr.LowerLocalLevel(); changed {
		t.Errorf("Lower at baseline should report no change")
	}
	if tr.LocalLevel() != LoadBase {
		t.Errorf("Lower at baseline must leave the level at %d, got %d", LoadBase, tr.LocalLevel())
	}
	if tr.IsLoadedLocal() {
		t.Errorf("Tracker should stay unloaded")
	}
}

func TestIsLoadedCluster(t *testing.T) {
	tr := NewTracker()

	tr.SetClusterLevel(512)
	if tr.IsLoadedLocal() {
		t.Errorf("Cluster load must not mark the node self-loaded")
	}
	if !tr.IsLoadedCluster() {
		t.Errorf("Elevated cluster level should report cluster load")
	}

	tr.SetClusterLevel(LoadBase)
	if tr.IsLoadedCluster() {
		t.Errorf("Cluster back at baseline should clear the signal")
	}
}

func TestConcurrentMutation(t *testing.T) {
	tr := NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				switch n % 4 {
				case 0:
					tr.RaiseLocalLevel()
				case 1:
					tr.LowerLocalLevel()
				case 2:
					tr.SetRemoteLevel(uint32(512 + j))
				case 3:
					tr.LoadFactor()
				}
			}
		}(i)
	}
	wg.Wait()

	if tr.LocalLevel() < LoadBase || tr.LocalLevel() > LevelMax {
		t.Errorf("Local level escaped its bounds: %d", tr.LocalLevel())
	}
}
