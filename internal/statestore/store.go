// Package statestore is the orchestrator's durable state: work units, their
// status history, and scheduler config, backed by a schema-in-Go-string,
// transaction-migrated SQLite database.
package statestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/netguy204/ve/internal/types"
)

// Store is the orchestrator's SQLite-backed state store.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if absent) the state database at path in WAL mode
// and runs pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		path,
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer daemon process; avoid SQLITE_BUSY churn

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error { return s.db.Close() }
func (s *Store) Path() string { return s.path }

func marshalBlockedBy(chunks []string) string {
	if len(chunks) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(chunks)
	return string(b)
}

func unmarshalBlockedBy(raw string) []string {
	var out []string
	if raw == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

const workUnitColumns = `chunk, phase, status, blocked_by, worktree, priority, session_id,
	completion_retries, attention_reason, displaced_chunk, pending_answer, created_at, updated_at`

func scanWorkUnit(row interface{ Scan(...any) error }) (*types.WorkUnit, error) {
	var wu types.WorkUnit
	var blockedBy string
	if err := row.Scan(
		&wu.Chunk, &wu.Phase, &wu.Status, &blockedBy, &wu.Worktree, &wu.Priority, &wu.SessionID,
		&wu.CompletionRetries, &wu.AttentionReason, &wu.DisplacedChunk, &wu.PendingAnswer,
		&wu.CreatedAt, &wu.UpdatedAt,
	); err != nil {
		return nil, err
	}
	wu.BlockedBy = unmarshalBlockedBy(blockedBy)
	return &wu, nil
}

// CreateWorkUnit inserts a new work unit bound to chunk and logs its
// initial status: every status change, including creation, is logged.
func (s *Store) CreateWorkUnit(ctx context.Context, wu *types.WorkUnit) error {
	now := wu.CreatedAt
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO work_units (chunk, phase, status, blocked_by, worktree, priority, session_id,
			completion_retries, attention_reason, displaced_chunk, pending_answer, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wu.Chunk, wu.Phase, wu.Status, marshalBlockedBy(wu.BlockedBy), wu.Worktree, wu.Priority, wu.SessionID,
		wu.CompletionRetries, wu.AttentionReason, wu.DisplacedChunk, wu.PendingAnswer, now, now,
	)
	if err != nil {
		return fmt.Errorf("creating work unit %s: %w", wu.Chunk, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO status_log (chunk, old_status, new_status, timestamp) VALUES (?, '', ?, ?)`,
		wu.Chunk, wu.Status, now,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// GetWorkUnit returns the work unit bound to chunk, or nil if absent.
func (s *Store) GetWorkUnit(ctx context.Context, chunk string) (*types.WorkUnit, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workUnitColumns+` FROM work_units WHERE chunk = ?`, chunk)
	wu, err := scanWorkUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return wu, nil
}

// UpdateWorkUnit loads chunk's work unit, applies mutate, and persists the
// result inside one transaction. A status_log row is appended iff status
// actually changed, never unconditionally.
func (s *Store) UpdateWorkUnit(ctx context.Context, chunk string, mutate func(*types.WorkUnit)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+workUnitColumns+` FROM work_units WHERE chunk = ?`, chunk)
	wu, err := scanWorkUnit(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("work unit %s not found", chunk)
		}
		return err
	}

	oldStatus := wu.Status
	mutate(wu)
	wu.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, `
		UPDATE work_units SET phase = ?, status = ?, blocked_by = ?, worktree = ?, priority = ?,
			session_id = ?, completion_retries = ?, attention_reason = ?, displaced_chunk = ?,
			pending_answer = ?, updated_at = ?
		WHERE chunk = ?`,
		wu.Phase, wu.Status, marshalBlockedBy(wu.BlockedBy), wu.Worktree, wu.Priority,
		wu.SessionID, wu.CompletionRetries, wu.AttentionReason, wu.DisplacedChunk,
		wu.PendingAnswer, wu.UpdatedAt, chunk,
	)
	if err != nil {
		return fmt.Errorf("updating work unit %s: %w", chunk, err)
	}

	if wu.Status != oldStatus {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO status_log (chunk, old_status, new_status, timestamp) VALUES (?, ?, ?, ?)`,
			chunk, oldStatus, wu.Status, wu.UpdatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteWorkUnit removes chunk's work unit and its status log (ON DELETE
// CASCADE).
func (s *Store) DeleteWorkUnit(ctx context.Context, chunk string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM work_units WHERE chunk = ?`, chunk)
	return err
}

// WorkUnitFilter narrows ListWorkUnits to a subset of statuses. A nil
// filter matches every status, mirroring index.StatusFilter's contract.
type WorkUnitFilter func(types.WorkUnitStatus) bool

// ListWorkUnits returns every work unit passing filter, ordered by chunk
// name for determinism.
func (s *Store) ListWorkUnits(ctx context.Context, filter WorkUnitFilter) ([]types.WorkUnit, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+workUnitColumns+` FROM work_units ORDER BY chunk ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.WorkUnit
	for rows.Next() {
		wu, err := scanWorkUnit(rows)
		if err != nil {
			return nil, err
		}
		if filter == nil || filter(wu.Status) {
			out = append(out, *wu)
		}
	}
	return out, rows.Err()
}

// CountByStatus returns a status -> count histogram for the GET /status
// endpoint's work_unit_counts field.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM work_units GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ReadyQueue returns up to limit READY work units ordered by priority
// descending then creation order ascending.
func (s *Store) ReadyQueue(ctx context.Context, limit int) ([]types.WorkUnit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+workUnitColumns+` FROM work_units
		WHERE status = 'READY'
		ORDER BY priority DESC, created_at ASC, chunk ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.WorkUnit
	for rows.Next() {
		wu, err := scanWorkUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *wu)
	}
	return out, rows.Err()
}

// AttentionQueue returns NEEDS_ATTENTION work units via the attention_queue
// view, most-blocking first.
func (s *Store) AttentionQueue(ctx context.Context) ([]types.AttentionItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+workUnitColumns+`, blocking_count FROM attention_queue`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.AttentionItem
	for rows.Next() {
		var wu types.WorkUnit
		var blockedBy string
		var blockingCount int
		if err := rows.Scan(
			&wu.Chunk, &wu.Phase, &wu.Status, &blockedBy, &wu.Worktree, &wu.Priority, &wu.SessionID,
			&wu.CompletionRetries, &wu.AttentionReason, &wu.DisplacedChunk, &wu.PendingAnswer,
			&wu.CreatedAt, &wu.UpdatedAt, &blockingCount,
		); err != nil {
			return nil, err
		}
		wu.BlockedBy = unmarshalBlockedBy(blockedBy)
		out = append(out, types.AttentionItem{WorkUnit: wu, BlockingCount: blockingCount})
	}
	return out, rows.Err()
}

// StatusLog returns chunk's status history in chronological order.
func (s *Store) StatusLog(ctx context.Context, chunk string) ([]types.StatusLogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chunk, old_status, new_status, timestamp FROM status_log WHERE chunk = ? ORDER BY id ASC`, chunk)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.StatusLogEntry
	for rows.Next() {
		var e types.StatusLogEntry
		if err := rows.Scan(&e.ID, &e.Chunk, &e.OldStatus, &e.NewStatus, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetConfig reads a scheduler config value.
func (s *Store) GetConfig(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

// SetConfig upserts a scheduler config value.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// LoadOrchestratorConfig reads the three tunables into an
// types.OrchestratorConfig, falling back to defaults for any key absent
// from the config table. The schema seeds all three keys with the default
// values, so a fresh database already has them.
func (s *Store) LoadOrchestratorConfig(ctx context.Context) (types.OrchestratorConfig, error) {
	cfg := types.DefaultOrchestratorConfig()

	if v, err := s.GetConfig(ctx, "max_agents"); err != nil {
		return cfg, err
	} else if v != "" {
		fmt.Sscanf(v, "%d", &cfg.MaxAgents)
	}
	if v, err := s.GetConfig(ctx, "dispatch_interval_seconds"); err != nil {
		return cfg, err
	} else if v != "" {
		fmt.Sscanf(v, "%f", &cfg.DispatchIntervalSeconds)
	}
	if v, err := s.GetConfig(ctx, "max_completion_retries"); err != nil {
		return cfg, err
	} else if v != "" {
		fmt.Sscanf(v, "%d", &cfg.MaxCompletionRetries)
	}
	return cfg, nil
}
