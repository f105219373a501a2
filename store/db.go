// Package store persists arena sessions to sqlite, grounded on the
// teacher's StrategyStore conventions: a single *sql.DB, CREATE TABLE IF
// NOT EXISTS schema migrations run once at construction, JSON-blob
// columns for anything that doesn't need to be queried relationally.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store is the sqlite-backed implementation of orchestrator.Store.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the sqlite database at path and runs schema
// migrations. path may be ":memory:" for tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers

	s := &Store{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init tables: %w", err)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS arena_sessions (
			id TEXT PRIMARY KEY,
			pair TEXT NOT NULL,
			agent_count INTEGER NOT NULL,
			starting_capital REAL NOT NULL,
			decision_interval_ms INTEGER NOT NULL DEFAULT 0,
			max_duration_ms INTEGER NOT NULL DEFAULT 0,
			model_id TEXT NOT NULL DEFAULT '',
			leverage INTEGER NOT NULL DEFAULT 1,
			session_budget_usd REAL NOT NULL DEFAULT 0,
			per_agent_budget_usd REAL NOT NULL DEFAULT 0,
			roster_theme TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'idle',
			start_price REAL NOT NULL DEFAULT 0,
			end_price REAL NOT NULL DEFAULT 0,
			total_runtime_ms INTEGER NOT NULL DEFAULT 0,
			summary TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			started_at DATETIME,
			ended_at DATETIME,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS arena_agents (
			session_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			archetype TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '{}',
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, agent_id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS arena_positions (
			session_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			position TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, agent_id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS arena_decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			agent_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			action TEXT NOT NULL,
			reasoning TEXT NOT NULL DEFAULT '',
			confidence REAL NOT NULL DEFAULT 0,
			used_model BOOLEAN NOT NULL DEFAULT 0,
			price_at REAL NOT NULL DEFAULT 0,
			balance_at REAL NOT NULL DEFAULT 0,
			pnl_at REAL NOT NULL DEFAULT 0,
			input_tokens INTEGER NOT NULL DEFAULT 0,
			output_tokens INTEGER NOT NULL DEFAULT 0,
			timestamp DATETIME NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_arena_decisions_session ON arena_decisions(session_id)`)

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS arena_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			market_price REAL NOT NULL,
			agents TEXT NOT NULL DEFAULT '[]',
			timestamp DATETIME NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, _ = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_arena_snapshots_session ON arena_snapshots(session_id)`)

	_, err = s.db.Exec(`
		CREATE TRIGGER IF NOT EXISTS update_arena_sessions_updated_at
		AFTER UPDATE ON arena_sessions
		BEGIN
			UPDATE arena_sessions SET updated_at = CURRENT_TIMESTAMP WHERE id = NEW.id;
		END
	`)
	return err
}
