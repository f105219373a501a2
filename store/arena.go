package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"xrparena/execution"
	"xrparena/orchestrator"
)

// compile-time assertion that Store satisfies orchestrator.Store.
var _ orchestrator.Store = (*Store)(nil)

// CreateSession inserts the row backing a new ArenaSession.
func (s *Store) CreateSession(id string, cfg orchestrator.SessionConfig, rosterTheme string) error {
	_, err := s.db.Exec(`
		INSERT INTO arena_sessions (
			id, pair, agent_count, starting_capital, decision_interval_ms, max_duration_ms,
			model_id, leverage, session_budget_usd, per_agent_budget_usd, roster_theme, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'idle')
	`, id, cfg.Pair, cfg.AgentCount, cfg.StartingCapital, cfg.DecisionInterval.Milliseconds(), cfg.MaxDuration.Milliseconds(),
		cfg.ModelID, cfg.Leverage, cfg.SessionBudgetUSD, cfg.PerAgentBudgetUSD, rosterTheme)
	return err
}

// UpdateSessionStatus writes the session's current lifecycle status.
func (s *Store) UpdateSessionStatus(id string, status orchestrator.Status) error {
	_, err := s.db.Exec(`UPDATE arena_sessions SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// RecordSessionStart stamps the session as running with its opening price.
func (s *Store) RecordSessionStart(id string, startedAt time.Time, startPrice float64) error {
	_, err := s.db.Exec(`
		UPDATE arena_sessions SET status = 'running', started_at = ?, start_price = ? WHERE id = ?
	`, startedAt, startPrice, id)
	return err
}

// RecordSessionEnd persists the final summary produced by Stop.
func (s *Store) RecordSessionEnd(id string, summary orchestrator.SessionSummary) error {
	blob, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	_, err = s.db.Exec(`
		UPDATE arena_sessions SET
			status = 'idle', ended_at = ?, end_price = ?, total_runtime_ms = ?, summary = ?
		WHERE id = ?
	`, summary.EndedAt, summary.EndPrice, summary.TotalRuntimeMs, string(blob), id)
	return err
}

// UpsertAgent writes the full agent state blob.
func (s *Store) UpsertAgent(sessionID string, a execution.AgentState) error {
	blob, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal agent state: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO arena_agents (session_id, agent_id, name, archetype, state)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, agent_id) DO UPDATE SET
			name = excluded.name, archetype = excluded.archetype, state = excluded.state,
			updated_at = CURRENT_TIMESTAMP
	`, sessionID, a.ID, a.Name, a.Archetype, string(blob))
	return err
}

// UpsertPosition writes or clears an agent's at-most-one open position.
func (s *Store) UpsertPosition(sessionID, agentID string, p *execution.Position) error {
	var blob sql.NullString
	if p != nil {
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal position: %w", err)
		}
		blob = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO arena_positions (session_id, agent_id, position)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id, agent_id) DO UPDATE SET
			position = excluded.position, updated_at = CURRENT_TIMESTAMP
	`, sessionID, agentID, blob)
	return err
}

// AppendDecisions writes a batch of buffered decision records in one
// transaction, matching the orchestrator's every-10-ticks flush cadence.
func (s *Store) AppendDecisions(sessionID string, records []orchestrator.DecisionRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
		INSERT INTO arena_decisions (
			session_id, agent_id, tick, action, reasoning, confidence, used_model,
			price_at, balance_at, pnl_at, input_tokens, output_tokens, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(sessionID, r.AgentID, r.Tick, r.Action, r.Reasoning, r.Confidence, r.UsedModel,
			r.PriceAt, r.BalanceAt, r.PnLAt, r.InputTokens, r.OutputTokens, r.Timestamp); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// WriteSnapshot records the every-5-minute full-roster snapshot.
func (s *Store) WriteSnapshot(sessionID string, marketPrice float64, agents []execution.AgentState) error {
	blob, err := json.Marshal(agents)
	if err != nil {
		return fmt.Errorf("marshal agents: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO arena_snapshots (session_id, market_price, agents, timestamp)
		VALUES (?, ?, ?, ?)
	`, sessionID, marketPrice, string(blob), time.Now())
	return err
}

// LoadAgents reconstructs the full agent roster for a session from its
// most recently written per-agent state rows, used by stopLocked's
// crash-recovery path when the in-memory map has been lost.
func (s *Store) LoadAgents(sessionID string) ([]execution.AgentState, error) {
	rows, err := s.db.Query(`SELECT state FROM arena_agents WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []execution.AgentState
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var a execution.AgentState
		if err := json.Unmarshal([]byte(blob), &a); err != nil {
			return nil, fmt.Errorf("unmarshal agent state: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("no agents recorded for session")
	}
	return out, nil
}
