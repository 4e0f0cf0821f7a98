package statestore

// schema is the inline CREATE TABLE IF NOT EXISTS/CREATE VIEW set for this
// store: a work_units table bound 1:1 to a chunk, an append-only
// status_log, and a config table for orchestrator settings. blocked_by is
// stored as a JSON array of chunk names rather than modeled as a join table;
// reads decode it as stored, without checking it against live work_units,
// and the attention_queue view matches it with a LIKE on the quoted name.
const schema = `
CREATE TABLE IF NOT EXISTS work_units (
    chunk               TEXT PRIMARY KEY,
    phase               TEXT NOT NULL DEFAULT 'GOAL',
    status              TEXT NOT NULL DEFAULT 'BLOCKED',
    blocked_by          TEXT NOT NULL DEFAULT '[]',
    worktree            TEXT DEFAULT '',
    priority            INTEGER NOT NULL DEFAULT 0,
    session_id          TEXT DEFAULT '',
    completion_retries  INTEGER NOT NULL DEFAULT 0,
    attention_reason    TEXT DEFAULT '',
    displaced_chunk     TEXT DEFAULT '',
    pending_answer      TEXT DEFAULT '',
    created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_work_units_status ON work_units(status);
CREATE INDEX IF NOT EXISTS idx_work_units_priority ON work_units(priority DESC);

-- Append-only audit trail: one row per status transition. old_status is
-- empty for a unit's first row.
CREATE TABLE IF NOT EXISTS status_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    chunk       TEXT NOT NULL,
    old_status  TEXT NOT NULL DEFAULT '',
    new_status  TEXT NOT NULL,
    timestamp   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (chunk) REFERENCES work_units(chunk) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_status_log_chunk ON status_log(chunk);
CREATE INDEX IF NOT EXISTS idx_status_log_timestamp ON status_log(timestamp);

CREATE TABLE IF NOT EXISTS config (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

INSERT OR IGNORE INTO config (key, value) VALUES
    ('max_agents', '2'),
    ('dispatch_interval_seconds', '1.0'),
    ('max_completion_retries', '2');

-- Attention queue: units stuck NEEDS_ATTENTION, ordered by how many other
-- units they block (most-blocking first) then by how long they've been
-- waiting.
CREATE VIEW IF NOT EXISTS attention_queue AS
SELECT
    w.*,
    (
        SELECT COUNT(*)
        FROM work_units other
        WHERE other.status = 'BLOCKED'
          AND other.blocked_by LIKE '%"' || w.chunk || '"%'
    ) AS blocking_count
FROM work_units w
WHERE w.status = 'NEEDS_ATTENTION'
ORDER BY blocking_count DESC, w.updated_at ASC;
`
