package scheduler

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/netguy204/ve/internal/statestore"
	"github.com/netguy204/ve/internal/types"
	"github.com/netguy204/ve/internal/worktree"
)

func newTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v\n%s", args, err, out)
		}
	}
	run("init", "-q", "-b", "main")
	run("config", "user.email", "tester@example.com")
	run("config", "user.name", "tester")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}
	run("add", "-A")
	run("commit", "-q", "-m", "init")
	return dir
}

func newTestStore(t *testing.T) *statestore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := statestore.Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestScheduler(t *testing.T, runner AgentRunner, chunkActive ChunkStatusChecker) (*Scheduler, *statestore.Store) {
	repo := newTestRepo(t)
	store := newTestStore(t)
	wm := worktree.New(repo)
	s := New(store, wm, runner, chunkActive, nil, 2, nil)
	return s, store
}

func waitForStatus(t *testing.T, store *statestore.Store, chunk string, want types.WorkUnitStatus) *types.WorkUnit {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		wu, err := store.GetWorkUnit(context.Background(), chunk)
		if err != nil {
			t.Fatal(err)
		}
		if wu != nil && wu.Status == want {
			return wu
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("chunk %s never reached status %s", chunk, want)
	return nil
}

func TestTickDispatchesReadyUnitBackToReadyAfterNonFinalPhase(t *testing.T) {
	ctx := context.Background()
	s, store := newTestScheduler(t, NoopRunner{}, nil)

	wu := &types.WorkUnit{Chunk: "alpha", Phase: types.PhaseGoal, Status: types.WUReady, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.CreateWorkUnit(ctx, wu); err != nil {
		t.Fatal(err)
	}

	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}

	got := waitForStatus(t, store, "alpha", types.WUReady)
	if got.Worktree == "" {
		t.Fatal("expected dispatch to have assigned a worktree path")
	}
}

func TestTickCompletesFinalPhaseWhenChunkGoesActive(t *testing.T) {
	ctx := context.Background()
	s, store := newTestScheduler(t, NoopRunner{}, func(chunk string) (bool, error) { return true, nil })

	wu := &types.WorkUnit{Chunk: "alpha", Phase: types.PhaseComplete, Status: types.WUReady, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.CreateWorkUnit(ctx, wu); err != nil {
		t.Fatal(err)
	}

	if err := s.Tick(ctx); err != nil {
		t.Fatal(err)
	}

	waitForStatus(t, store, "alpha", types.WUDone)
}

func TestTickRetriesThenEscalatesWhenCompletionNeverVerifies(t *testing.T) {
	ctx := context.Background()
	s, store := newTestScheduler(t, NoopRunner{}, func(chunk string) (bool, error) { return false, nil })

	wu := &types.WorkUnit{Chunk: "alpha", Phase: types.PhaseComplete, Status: types.WUReady, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.CreateWorkUnit(ctx, wu); err != nil {
		t.Fatal(err)
	}

	cfg := types.DefaultOrchestratorConfig() // MaxCompletionRetries = 2
	for i := 0; i <= cfg.MaxCompletionRetries; i++ {
		if err := s.Tick(ctx); err != nil {
			t.Fatal(err)
		}
		waitForStatus(t, store, "alpha", statusAfterRetry(i, cfg.MaxCompletionRetries))
	}
}

// statusAfterRetry mirrors onCompletion's retry/escalate decision so the
// test can assert the expected status after each retry without duplicating
// the scheduler's internal counting state.
func statusAfterRetry(attempt, max int) types.WorkUnitStatus {
	if attempt < max {
		return types.WUReady
	}
	return types.WUNeedsAttention
}

func TestOnSuspendBlocksDependents(t *testing.T) {
	ctx := context.Background()
	s, store := newTestScheduler(t, NoopRunner{}, nil)

	blocker := &types.WorkUnit{Chunk: "blocker", Phase: types.PhaseGoal, Status: types.WURunning, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	dependent := &types.WorkUnit{Chunk: "dependent", Phase: types.PhaseGoal, Status: types.WUReady, BlockedBy: []string{"blocker"}, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.CreateWorkUnit(ctx, blocker); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateWorkUnit(ctx, dependent); err != nil {
		t.Fatal(err)
	}

	s.onSuspend(ctx, "blocker", types.AgentResult{Suspended: true, Question: map[string]any{"text": "which approach?"}})

	got, err := store.GetWorkUnit(ctx, "blocker")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.WUNeedsAttention || got.AttentionReason != "operator_question" {
		t.Fatalf("blocker after onSuspend = %+v", got)
	}

	gotDependent, err := store.GetWorkUnit(ctx, "dependent")
	if err != nil {
		t.Fatal(err)
	}
	if gotDependent.Status != types.WUBlocked {
		t.Fatalf("dependent should become BLOCKED once its blocker suspends: %+v", gotDependent)
	}
}

func TestAnswerResumesSuspendedUnit(t *testing.T) {
	ctx := context.Background()
	s, store := newTestScheduler(t, NoopRunner{}, nil)

	wu := &types.WorkUnit{Chunk: "alpha", Phase: types.PhaseGoal, Status: types.WUNeedsAttention, AttentionReason: "operator_question", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.CreateWorkUnit(ctx, wu); err != nil {
		t.Fatal(err)
	}

	if err := s.Answer(ctx, "alpha", "use approach B"); err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}

	got, err := store.GetWorkUnit(ctx, "alpha")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.WUReady || got.PendingAnswer != "use approach B" || got.AttentionReason != "" {
		t.Fatalf("after Answer = %+v", got)
	}
}

func TestDispatchClearsPendingAnswerOnceConsumed(t *testing.T) {
	ctx := context.Background()
	s, store := newTestScheduler(t, NoopRunner{}, nil)

	wu := &types.WorkUnit{Chunk: "alpha", Phase: types.PhaseGoal, Status: types.WUNeedsAttention, AttentionReason: "operator_question", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.CreateWorkUnit(ctx, wu); err != nil {
		t.Fatal(err)
	}
	if err := s.Answer(ctx, "alpha", "use approach B"); err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}

	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}

	got := waitForStatus(t, store, "alpha", types.WUReady)
	if got.PendingAnswer != "" {
		t.Fatalf("pending_answer should be cleared once the next dispatch consumes it, got %q", got.PendingAnswer)
	}
}

func TestTickRespectsMaxAgentsCapacity(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	store := newTestStore(t)
	wm := worktree.New(repo)
	slow := NoopRunner{Delay: 200 * time.Millisecond}
	s := New(store, wm, slow, nil, nil, 1, nil)

	for _, chunk := range []string{"alpha", "beta"} {
		wu := &types.WorkUnit{Chunk: chunk, Phase: types.PhaseGoal, Status: types.WUReady, CreatedAt: time.Now(), UpdatedAt: time.Now()}
		if err := store.CreateWorkUnit(ctx, wu); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Tick(ctx); err != nil {
		t.Fatal(err)
	}

	running, err := store.ListWorkUnits(ctx, func(st types.WorkUnitStatus) bool { return st == types.WURunning })
	if err != nil {
		t.Fatal(err)
	}
	if len(running) != 1 {
		t.Fatalf("ListWorkUnits(RUNNING) = %v, want exactly 1 with max_agents=1", running)
	}
}
