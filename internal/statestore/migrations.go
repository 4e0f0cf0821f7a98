package statestore

import (
	"database/sql"
	"fmt"
)

// migration is one forward-only schema change, recorded by version number
// in schema_migrations once applied. This store's schema is new and small
// enough that schema.go's CREATE TABLE IF NOT EXISTS covers the baseline,
// so migrationsList starts near-empty and exists for the runner shape, not
// because there is decades of history to replay.
type migration struct {
	Version int
	Name    string
	Func    func(*sql.Tx) error
}

var migrationsList = []migration{
	{1, "baseline", func(tx *sql.Tx) error {
		_, err := tx.Exec(schema)
		return err
	}},
}

// runMigrations applies every migration whose version is not yet recorded
// in schema_migrations, inside one transaction (SQLite's default deferred
// kind, not EXCLUSIVE), so each migration and its schema_migrations row
// commit or roll back together.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning migration transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	applied := map[int]bool{}
	rows, err := tx.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("reading schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	rows.Close()

	for _, m := range migrationsList {
		if applied[m.Version] {
			continue
		}
		if err := m.Func(tx); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
			return fmt.Errorf("recording migration %d: %w", m.Version, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migrations: %w", err)
	}
	committed = true
	return nil
}
