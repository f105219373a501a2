// Package execution implements the pure, I/O-free position-management
// functions of spec.md §4.3: open, DCA, close, liquidation check, and
// unrealised P&L/health maintenance.
package execution

import "time"

// Side is long or short.
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// HealthZone is the fixed band tag derived from an agent's health.
type HealthZone string

const (
	ZoneSafe     HealthZone = "safe"
	ZoneCaution  HealthZone = "caution"
	ZoneDanger   HealthZone = "danger"
	ZoneCritical HealthZone = "critical"
	ZoneDeathRow HealthZone = "death_row"
	ZoneDead     HealthZone = "dead"
)

// Status is the agent's terminal-or-not trading status.
type Status string

const (
	StatusAlive      Status = "alive"
	StatusLiquidated Status = "liquidated"
	StatusBankrupt   Status = "bankrupt"
)

// DCAEntry records one averaging-in event within a position's lifetime.
type DCAEntry struct {
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Margin    float64   `json:"margin"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}

// Position is the at-most-one open trade an agent may hold.
type Position struct {
	ID              string     `json:"id"`
	Pair            string     `json:"pair"`
	Side            Side       `json:"side"`
	Volume          float64    `json:"volume"`
	AvgEntryPrice   float64    `json:"avg_entry_price"`
	Leverage        int        `json:"leverage"`
	MarginUsed      float64    `json:"margin_used"`
	TotalFees       float64    `json:"total_fees"`
	DCACount        int        `json:"dca_count"`
	DCAHistory      []DCAEntry `json:"dca_history"`
	Open            bool       `json:"open"`
	OpenedAt        time.Time  `json:"opened_at"`
	UnrealizedPnL   float64    `json:"unrealized_pnl"`
	UnrealizedPct   float64    `json:"unrealized_pct"` // percent of margin
	LiquidationPrice float64   `json:"liquidation_price"`
}

// AgentState is the mutable per-agent record the execution engine reads
// and rewrites. Fields outside the engine's remit (name, archetype,
// avatar, rank, badges, activity, rationale...) are carried through
// unchanged by every operation.
type AgentState struct {
	ID              string
	Name            string
	Archetype       string
	AvatarShape     string
	ColourIndex     int
	Balance         float64
	StartingCapital float64
	Equity          float64
	Position        *Position
	RealizedPnL     float64
	TotalFees       float64
	WinCount        int
	LossCount       int
	PeakEquity      float64
	MaxDrawdownPct  float64
	Health          float64
	HealthZone      HealthZone
	Rank            int
	Dead            bool
	Status          Status
	DeathReason     string

	ModelCallCount  int
	InputTokens     int64
	OutputTokens    int64
	EstimatedCostUSD float64

	TradeCount   int
	Badges       map[string]bool
	Activity     string
	LastRationale string
}

// Outcome describes the result of one execution-engine operation, for
// callers that need to know whether it succeeded and what happened.
type Outcome struct {
	Applied      bool
	Error        string
	RealizedPnL  float64
	FeesCharged  float64
	Liquidated   bool
	Bankrupt     bool
}

// Fee rates are fixed constants per spec.md §4.3.
const (
	TakerFeeRate        = 0.0005
	MakerFeeRate        = 0.0002
	MarginOpenFeeRate   = 0.0005
	MarginRolloverRate  = 0.0001 // per 4-hour period, on notional-at-open
	LiquidationPct      = 20.0   // 20/leverage percent adverse move triggers liquidation
)
