// Package orchestrator is the centrepiece of spec.md §4.8: a single
// logical instance per process owning session lifecycle, the global
// tick loop, subscriber fan-out, auto-pause, and persistence
// scheduling. Every other package here is a pure data-in/data-out
// transformation; the orchestrator is the only place state lives.
package orchestrator

import (
	"time"

	"xrparena/events"
	"xrparena/execution"
	"xrparena/scoring"
)

// Status is the session lifecycle state of spec.md §4.8.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusStopping Status = "stopping"
)

// SessionConfig is the immutable-after-creation configuration of
// spec.md §3.
type SessionConfig struct {
	Pair              string
	AgentCount        int
	StartingCapital   float64
	DecisionInterval  time.Duration
	MaxDuration       time.Duration
	ModelID           string
	Leverage          int
	SessionBudgetUSD  float64
	PerAgentBudgetUSD float64
}

// Sink receives every non-tick event plus the per-tick composite event.
// Sinks must be non-blocking; a sink that returns an error is isolated
// and does not affect delivery to any other sink.
type Sink func(events.Event) error

// Unsubscribe removes a previously registered sink.
type Unsubscribe func()

// SessionSummary is returned by Stop and persisted as ArenaSession.summary.
type SessionSummary struct {
	SessionID      string
	Status         Status
	StartedAt      time.Time
	EndedAt        time.Time
	StartPrice     float64
	EndPrice       float64
	TotalRuntimeMs int64
	Rankings       []scoring.Ranked
	Titles         scoring.Titles
}

// AgentView pairs an agent's state with its activity tag and never
// aliases orchestrator-owned state. Subscribers and the read-only
// accessors receive execution.AgentState copies, not AgentView values.
type AgentView struct {
	Agent    execution.AgentState
	Activity string
}

// Store is the persistence contract spec.md §6 describes. The
// orchestrator is the only writer; any host may read independently.
type Store interface {
	CreateSession(id string, cfg SessionConfig, rosterTheme string) error
	UpdateSessionStatus(id string, status Status) error
	RecordSessionStart(id string, startedAt time.Time, startPrice float64) error
	RecordSessionEnd(id string, summary SessionSummary) error
	UpsertAgent(sessionID string, a execution.AgentState) error
	UpsertPosition(sessionID, agentID string, p *execution.Position) error
	AppendDecisions(sessionID string, records []DecisionRecord) error
	WriteSnapshot(sessionID string, marketPrice float64, agents []execution.AgentState) error
	LoadAgents(sessionID string) ([]execution.AgentState, error)
}

// DecisionRecord is one ArenaDecision row, buffered and flushed in
// batches per spec.md §6.
type DecisionRecord struct {
	AgentID      string
	Tick         int
	Action       string
	Reasoning    string
	Confidence   float64
	UsedModel    bool
	PriceAt      float64
	BalanceAt    float64
	PnLAt        float64
	InputTokens  int
	OutputTokens int
	Timestamp    time.Time
}
