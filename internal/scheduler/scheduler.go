// Package scheduler implements the orchestrator's dispatch loop: a
// cooperative, single-threaded tick that pulls READY work units, hands
// them to a bounded worker pool to run one agent phase, and reconciles the
// result back into the state store.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/netguy204/ve/internal/statestore"
	"github.com/netguy204/ve/internal/types"
	"github.com/netguy204/ve/internal/worktree"
)

// ChunkStatusChecker reports whether a chunk artifact's frontmatter status
// is currently ACTIVE, used by completion verification (step 4). Injected
// rather than imported directly so the scheduler stays decoupled from
// on-disk frontmatter layout.
type ChunkStatusChecker func(chunk string) (active bool, err error)

// DisplacementTracker demotes/restores the single IMPLEMENTING chunk when a
// worktree request displaces it. Injected for the same reason as
// ChunkStatusChecker.
type DisplacementTracker interface {
	// CurrentlyImplementing returns the short name of the chunk presently
	// IMPLEMENTING, or "".
	CurrentlyImplementing() (string, error)
	// Displace demotes 'from' to FUTURE so 'to' may become IMPLEMENTING.
	Displace(from, to string) error
	// Restore promotes chunk back to IMPLEMENTING.
	Restore(chunk string) error
}

// Scheduler runs the orchestrator's dispatch loop.
type Scheduler struct {
	Store       *statestore.Store
	Worktrees   *worktree.Manager
	Runner      AgentRunner
	ChunkActive ChunkStatusChecker
	Displace    DisplacementTracker
	Log         *slog.Logger

	pool chan struct{} // bounded worker pool slots
}

// New builds a Scheduler with a worker pool sized to config.MaxAgents.
func New(store *statestore.Store, wm *worktree.Manager, runner AgentRunner, chunkActive ChunkStatusChecker, disp DisplacementTracker, maxAgents int, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if maxAgents < 1 {
		maxAgents = 1
	}
	return &Scheduler{
		Store: store, Worktrees: wm, Runner: runner, ChunkActive: chunkActive, Displace: disp, Log: log,
		pool: make(chan struct{}, maxAgents),
	}
}

// Tick runs one dispatch cycle: load config, count running units, pull
// READY work up to remaining capacity, and dispatch each. Picked units are
// dispatched to the worker pool and run to completion asynchronously; Tick
// itself never blocks on agent execution.
func (s *Scheduler) Tick(ctx context.Context) error {
	cfg, err := s.Store.LoadOrchestratorConfig(ctx)
	if err != nil {
		return err
	}

	running, err := s.Store.ListWorkUnits(ctx, func(st types.WorkUnitStatus) bool { return st == types.WURunning })
	if err != nil {
		return err
	}
	capacity := cfg.MaxAgents - len(running)
	if capacity <= 0 {
		return nil
	}

	ready, err := s.Store.ReadyQueue(ctx, capacity)
	if err != nil {
		return err
	}

	for _, wu := range ready {
		wu := wu
		select {
		case s.pool <- struct{}{}:
		default:
			// Pool saturated between the ready-queue read and dispatch;
			// leave the unit READY for the next tick.
			continue
		}
		if err := s.dispatch(ctx, wu); err != nil {
			s.Log.Error("dispatch failed", "chunk", wu.Chunk, "error", err)
			<-s.pool
		}
	}
	return nil
}

// dispatch transitions wu to RUNNING and launches its phase on the worker
// pool. The scheduler re-checks status immediately before the transition:
// if an operator PATCH intervenes between the ready-queue read and the
// transition, the unit is skipped if it is no longer READY.
func (s *Scheduler) dispatch(ctx context.Context, wu types.WorkUnit) error {
	current, err := s.Store.GetWorkUnit(ctx, wu.Chunk)
	if err != nil {
		return err
	}
	if current == nil || current.Status != types.WUReady {
		<-s.pool
		return nil
	}

	displaced := ""
	if s.Displace != nil {
		impl, err := s.Displace.CurrentlyImplementing()
		if err == nil && impl != "" && impl != wu.Chunk {
			if err := s.Displace.Displace(impl, wu.Chunk); err == nil {
				displaced = impl
			}
		}
	}

	path, err := s.Worktrees.Create(wu.Chunk)
	if err != nil {
		<-s.pool
		return err
	}

	// A pending_answer is consumed by this dispatch alone: carry it into the
	// phase that's about to run, then clear it in the store so a later
	// transition never resurfaces a stale answer.
	answer := current.PendingAnswer
	if err := s.Store.UpdateWorkUnit(ctx, wu.Chunk, func(w *types.WorkUnit) {
		w.Status = types.WURunning
		w.Worktree = path
		w.DisplacedChunk = displaced
		w.PendingAnswer = ""
	}); err != nil {
		<-s.pool
		return err
	}

	go s.runPhase(ctx, wu.Chunk, answer)
	return nil
}

func (s *Scheduler) runPhase(ctx context.Context, chunk, answer string) {
	defer func() { <-s.pool }()

	wu, err := s.Store.GetWorkUnit(ctx, chunk)
	if err != nil || wu == nil {
		s.Log.Error("runPhase: work unit vanished", "chunk", chunk, "error", err)
		return
	}
	wu.PendingAnswer = answer

	result, err := s.Runner.RunPhase(ctx, *wu)
	if err != nil {
		s.Log.Warn("agent phase errored", "chunk", chunk, "error", err)
	}

	switch {
	case result.Suspended:
		s.onSuspend(ctx, chunk, result)
	default:
		s.onCompletion(ctx, chunk, result)
	}
}

// onCompletion reconciles a completed agent phase back into the store.
func (s *Scheduler) onCompletion(ctx context.Context, chunk string, result types.AgentResult) {
	wu, err := s.Store.GetWorkUnit(ctx, chunk)
	if err != nil || wu == nil {
		return
	}

	if wu.Phase != types.PhaseComplete {
		_ = s.Store.UpdateWorkUnit(ctx, chunk, func(w *types.WorkUnit) {
			w.Status = types.WUReady
			w.SessionID = result.SessionID
		})
		return
	}

	active := false
	if s.ChunkActive != nil {
		active, _ = s.ChunkActive(chunk)
	}
	if active {
		_ = s.Store.UpdateWorkUnit(ctx, chunk, func(w *types.WorkUnit) {
			w.Status = types.WUDone
		})
		return
	}

	cfg, err := s.Store.LoadOrchestratorConfig(ctx)
	if err != nil {
		cfg = types.DefaultOrchestratorConfig()
	}
	_ = s.Store.UpdateWorkUnit(ctx, chunk, func(w *types.WorkUnit) {
		w.CompletionRetries++
		if w.CompletionRetries <= cfg.MaxCompletionRetries {
			w.Status = types.WUReady
		} else {
			w.Status = types.WUNeedsAttention
			w.AttentionReason = "completion_not_verified"
		}
	})
}

// onSuspend records a suspended agent phase and cascades BLOCKED to
// dependents.
func (s *Scheduler) onSuspend(ctx context.Context, chunk string, result types.AgentResult) {
	_ = s.Store.UpdateWorkUnit(ctx, chunk, func(w *types.WorkUnit) {
		w.Status = types.WUNeedsAttention
		w.SessionID = result.SessionID
		w.AttentionReason = "operator_question"
	})

	all, err := s.Store.ListWorkUnits(ctx, nil)
	if err != nil {
		return
	}
	for _, other := range all {
		for _, blocker := range other.BlockedBy {
			if blocker == chunk && other.Status != types.WUBlocked {
				chunkCopy := other.Chunk
				_ = s.Store.UpdateWorkUnit(ctx, chunkCopy, func(w *types.WorkUnit) {
					w.Status = types.WUBlocked
				})
			}
		}
	}
}

// Answer attaches the operator's answer and moves the unit back to READY
// so the next dispatch resumes its session.
func (s *Scheduler) Answer(ctx context.Context, chunk, answer string) error {
	return s.Store.UpdateWorkUnit(ctx, chunk, func(w *types.WorkUnit) {
		w.PendingAnswer = answer
		w.Status = types.WUReady
		w.AttentionReason = ""
	})
}

// Run drives Tick on a fixed interval (dispatch_interval_seconds, default
// 1.0) until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				s.Log.Error("dispatch tick failed", "error", err)
			}
		}
	}
}
