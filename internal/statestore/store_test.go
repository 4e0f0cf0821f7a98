package statestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/netguy204/ve/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newWorkUnit(chunk string) *types.WorkUnit {
	return &types.WorkUnit{
		Chunk:     chunk,
		Phase:     types.PhaseGoal,
		Status:    types.WUReady,
		BlockedBy: nil,
		Priority:  0,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestCreateAndGetWorkUnit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	wu := newWorkUnit("alpha")
	wu.BlockedBy = []string{"beta", "gamma"}
	if err := store.CreateWorkUnit(ctx, wu); err != nil {
		t.Fatalf("CreateWorkUnit returned error: %v", err)
	}

	got, err := store.GetWorkUnit(ctx, "alpha")
	if err != nil {
		t.Fatalf("GetWorkUnit returned error: %v", err)
	}
	if got == nil {
		t.Fatal("expected to find the created work unit")
	}
	if got.Status != types.WUReady || len(got.BlockedBy) != 2 {
		t.Fatalf("GetWorkUnit = %+v", got)
	}
}

func TestGetWorkUnitMissing(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetWorkUnit(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetWorkUnit returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a missing work unit, got %+v", got)
	}
}

func TestUpdateWorkUnitLogsStatusChange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	wu := newWorkUnit("alpha")
	if err := store.CreateWorkUnit(ctx, wu); err != nil {
		t.Fatal(err)
	}

	if err := store.UpdateWorkUnit(ctx, "alpha", func(wu *types.WorkUnit) {
		wu.Status = types.WURunning
	}); err != nil {
		t.Fatalf("UpdateWorkUnit returned error: %v", err)
	}

	log, err := store.StatusLog(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 2 {
		t.Fatalf("StatusLog = %v, want 2 entries (creation + transition)", log)
	}
	if log[0].NewStatus != types.WUReady || log[1].NewStatus != types.WURunning {
		t.Fatalf("StatusLog entries out of order: %+v", log)
	}
}

func TestUpdateWorkUnitNoLogWhenStatusUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	wu := newWorkUnit("alpha")
	if err := store.CreateWorkUnit(ctx, wu); err != nil {
		t.Fatal(err)
	}

	if err := store.UpdateWorkUnit(ctx, "alpha", func(wu *types.WorkUnit) {
		wu.Priority = 5
	}); err != nil {
		t.Fatal(err)
	}

	log, err := store.StatusLog(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 1 {
		t.Fatalf("StatusLog = %v, want only the creation entry", log)
	}

	got, err := store.GetWorkUnit(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if got.Priority != 5 {
		t.Fatalf("Priority = %d, want 5", got.Priority)
	}
}

func TestDeleteWorkUnit(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.CreateWorkUnit(ctx, newWorkUnit("alpha")); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteWorkUnit(ctx, "alpha"); err != nil {
		t.Fatalf("DeleteWorkUnit returned error: %v", err)
	}
	got, err := store.GetWorkUnit(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("expected work unit to be gone after DeleteWorkUnit")
	}
}

func TestListWorkUnitsWithFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	ready := newWorkUnit("alpha")
	blocked := newWorkUnit("beta")
	blocked.Status = types.WUBlocked
	if err := store.CreateWorkUnit(ctx, ready); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateWorkUnit(ctx, blocked); err != nil {
		t.Fatal(err)
	}

	all, err := store.ListWorkUnits(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("ListWorkUnits(nil) = %v, want 2", all)
	}

	onlyReady, err := store.ListWorkUnits(ctx, func(s types.WorkUnitStatus) bool { return s == types.WUReady })
	if err != nil {
		t.Fatal(err)
	}
	if len(onlyReady) != 1 || onlyReady[0].Chunk != "alpha" {
		t.Fatalf("ListWorkUnits(READY filter) = %v", onlyReady)
	}
}

func TestCountByStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.CreateWorkUnit(ctx, newWorkUnit("alpha")); err != nil {
		t.Fatal(err)
	}
	beta := newWorkUnit("beta")
	beta.Status = types.WUBlocked
	if err := store.CreateWorkUnit(ctx, beta); err != nil {
		t.Fatal(err)
	}

	counts, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts["READY"] != 1 || counts["BLOCKED"] != 1 {
		t.Fatalf("CountByStatus = %v", counts)
	}
}

func TestReadyQueueOrdering(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	low := newWorkUnit("low-priority")
	low.Priority = 1
	high := newWorkUnit("high-priority")
	high.Priority = 10

	if err := store.CreateWorkUnit(ctx, low); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateWorkUnit(ctx, high); err != nil {
		t.Fatal(err)
	}

	queue, err := store.ReadyQueue(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(queue) != 2 || queue[0].Chunk != "high-priority" {
		t.Fatalf("ReadyQueue = %v, want high-priority first", queue)
	}
}

func TestAttentionQueue(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	stuck := newWorkUnit("stuck")
	stuck.Status = types.WUNeedsAttention
	stuck.AttentionReason = "ambiguous plan"
	if err := store.CreateWorkUnit(ctx, stuck); err != nil {
		t.Fatal(err)
	}
	blockedOnStuck := newWorkUnit("waiting")
	blockedOnStuck.Status = types.WUBlocked
	blockedOnStuck.BlockedBy = []string{"stuck"}
	if err := store.CreateWorkUnit(ctx, blockedOnStuck); err != nil {
		t.Fatal(err)
	}

	items, err := store.AttentionQueue(ctx)
	if err != nil {
		t.Fatalf("AttentionQueue returned error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("AttentionQueue = %v, want one NEEDS_ATTENTION entry", items)
	}
	if items[0].WorkUnit.Chunk != "stuck" {
		t.Fatalf("AttentionQueue entry = %+v", items[0])
	}
}

func TestConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.SetConfig(ctx, "max_agents", "5"); err != nil {
		t.Fatalf("SetConfig returned error: %v", err)
	}
	got, err := store.GetConfig(ctx, "max_agents")
	if err != nil {
		t.Fatal(err)
	}
	if got != "5" {
		t.Fatalf("GetConfig(max_agents) = %q, want 5", got)
	}

	if err := store.SetConfig(ctx, "max_agents", "8"); err != nil {
		t.Fatal(err)
	}
	got, err = store.GetConfig(ctx, "max_agents")
	if err != nil {
		t.Fatal(err)
	}
	if got != "8" {
		t.Fatalf("GetConfig(max_agents) after upsert = %q, want 8", got)
	}
}

func TestLoadOrchestratorConfigDefaults(t *testing.T) {
	store := newTestStore(t)
	cfg, err := store.LoadOrchestratorConfig(context.Background())
	if err != nil {
		t.Fatalf("LoadOrchestratorConfig returned error: %v", err)
	}
	want := types.DefaultOrchestratorConfig()
	if cfg != want {
		t.Fatalf("LoadOrchestratorConfig on a fresh db = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadOrchestratorConfigFromSetValues(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.SetConfig(ctx, "max_agents", "4"); err != nil {
		t.Fatal(err)
	}
	if err := store.SetConfig(ctx, "dispatch_interval_seconds", "2.5"); err != nil {
		t.Fatal(err)
	}

	cfg, err := store.LoadOrchestratorConfig(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxAgents != 4 || cfg.DispatchIntervalSeconds != 2.5 {
		t.Fatalf("LoadOrchestratorConfig = %+v", cfg)
	}
}
