// Package metrics exposes prometheus gauges and counters for the arena
// domain: per-agent equity/health/PnL, per-session lifecycle, and
// per-model spend. Shaped after SynapseStrike's trader/position/ai
// metric groups, relabelled for agents and arena sessions.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry is the custom prometheus registry for xrparena metrics.
	Registry = prometheus.NewRegistry()

	mu sync.RWMutex

	// ============================================
	// Agent performance metrics
	// ============================================

	AgentEquityTotal = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "agent",
			Name:      "equity_total",
			Help:      "Current total equity in EUR",
		},
		[]string{"session_id", "agent_id", "archetype"},
	)

	AgentBalance = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "agent",
			Name:      "balance",
			Help:      "Current free balance in EUR",
		},
		[]string{"session_id", "agent_id"},
	)

	AgentHealth = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "agent",
			Name:      "health",
			Help:      "Agent health score 0-100",
		},
		[]string{"session_id", "agent_id"},
	)

	AgentUnrealizedPnL = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "agent",
			Name:      "unrealized_pnl",
			Help:      "Unrealised P&L of the open position in EUR",
		},
		[]string{"session_id", "agent_id"},
	)

	AgentRealizedPnL = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "agent",
			Name:      "realized_pnl",
			Help:      "Cumulative realised P&L in EUR",
		},
		[]string{"session_id", "agent_id"},
	)

	AgentRARSScore = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "agent",
			Name:      "rars_score",
			Help:      "Risk-Adjusted Return Score",
		},
		[]string{"session_id", "agent_id"},
	)

	AgentRank = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "agent",
			Name:      "rank",
			Help:      "Current leaderboard rank, 1-based",
		},
		[]string{"session_id", "agent_id"},
	)

	// ============================================
	// Win/loss statistics
	// ============================================

	AgentTradesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xrparena",
			Subsystem: "agent",
			Name:      "trades_total",
			Help:      "Total number of closed trades",
		},
		[]string{"session_id", "agent_id", "result"}, // result: "win", "loss"
	)

	AgentWinRate = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "agent",
			Name:      "win_rate",
			Help:      "Win rate, 0-1",
		},
		[]string{"session_id", "agent_id"},
	)

	// ============================================
	// Position metrics
	// ============================================

	PositionMarginUsed = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "position",
			Name:      "margin_used",
			Help:      "Margin used by the open position in EUR",
		},
		[]string{"session_id", "agent_id", "side"},
	)

	PositionLeverage = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "position",
			Name:      "leverage",
			Help:      "Leverage of the open position",
		},
		[]string{"session_id", "agent_id", "side"},
	)

	PositionHoldDuration = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "position",
			Name:      "hold_duration_seconds",
			Help:      "How long the open position has been held",
		},
		[]string{"session_id", "agent_id", "side"},
	)

	// ============================================
	// Model (tier-2) metrics
	// ============================================

	ModelRequestDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xrparena",
			Subsystem: "model",
			Name:      "request_duration_seconds",
			Help:      "Tier-2 model call latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"agent_id", "model_id"},
	)

	ModelCallsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xrparena",
			Subsystem: "model",
			Name:      "calls_total",
			Help:      "Total tier-2 model invocations",
		},
		[]string{"agent_id", "model_id"},
	)

	ModelErrorsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "xrparena",
			Subsystem: "model",
			Name:      "errors_total",
			Help:      "Total tier-2 model call failures, each a silent fallback to tier 1",
		},
		[]string{"agent_id", "model_id"},
	)

	ModelSpendUSD = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "model",
			Name:      "spend_usd_total",
			Help:      "Cumulative estimated model spend per agent in USD",
		},
		[]string{"session_id", "agent_id"},
	)

	// ============================================
	// Session / system metrics
	// ============================================

	TickDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "xrparena",
			Subsystem: "session",
			Name:      "tick_duration_seconds",
			Help:      "Wall-clock time spent in one orchestrator tick",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"session_id"},
	)

	SessionRunning = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "session",
			Name:      "running",
			Help:      "1 if the session is running, 0 otherwise",
		},
		[]string{"session_id"},
	)

	SessionAliveAgents = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "session",
			Name:      "alive_agents",
			Help:      "Number of agents not yet dead",
		},
		[]string{"session_id"},
	)

	SystemUptimeSeconds = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "system",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds",
		},
	)

	SystemActiveSessions = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: "xrparena",
			Subsystem: "system",
			Name:      "active_sessions",
			Help:      "Number of running or paused arena sessions",
		},
	)
)

// UpdateAgentMetrics updates all per-agent gauges observed on a tick.
func UpdateAgentMetrics(sessionID, agentID, archetype string, equity, balance, health, unrealizedPnL, realizedPnL, rars float64, rank int) {
	mu.Lock()
	defer mu.Unlock()

	AgentEquityTotal.WithLabelValues(sessionID, agentID, archetype).Set(equity)
	AgentBalance.WithLabelValues(sessionID, agentID).Set(balance)
	AgentHealth.WithLabelValues(sessionID, agentID).Set(health)
	AgentUnrealizedPnL.WithLabelValues(sessionID, agentID).Set(unrealizedPnL)
	AgentRealizedPnL.WithLabelValues(sessionID, agentID).Set(realizedPnL)
	AgentRARSScore.WithLabelValues(sessionID, agentID).Set(rars)
	AgentRank.WithLabelValues(sessionID, agentID).Set(float64(rank))
}

// RecordTrade increments the win/loss counter for a closed trade.
func RecordTrade(sessionID, agentID string, isWin bool) {
	result := "loss"
	if isWin {
		result = "win"
	}
	AgentTradesTotal.WithLabelValues(sessionID, agentID, result).Inc()
}

// UpdateWinRate sets the current win rate gauge.
func UpdateWinRate(sessionID, agentID string, winRate float64) {
	AgentWinRate.WithLabelValues(sessionID, agentID).Set(winRate)
}

// UpdatePositionMetrics updates position-related metrics for an open position.
func UpdatePositionMetrics(sessionID, agentID, side string, marginUsed float64, leverage int, holdDurationSeconds float64) {
	mu.Lock()
	defer mu.Unlock()

	PositionMarginUsed.WithLabelValues(sessionID, agentID, side).Set(marginUsed)
	PositionLeverage.WithLabelValues(sessionID, agentID, side).Set(float64(leverage))
	PositionHoldDuration.WithLabelValues(sessionID, agentID, side).Set(holdDurationSeconds)
}

// ClearPositionMetrics removes the per-position gauges once a position closes.
func ClearPositionMetrics(sessionID, agentID, side string) {
	mu.Lock()
	defer mu.Unlock()

	PositionMarginUsed.DeleteLabelValues(sessionID, agentID, side)
	PositionLeverage.DeleteLabelValues(sessionID, agentID, side)
	PositionHoldDuration.DeleteLabelValues(sessionID, agentID, side)
}

// RecordModelCall records a tier-2 model invocation's duration and outcome.
func RecordModelCall(agentID, modelID string, durationMs int64, hasError bool) {
	ModelRequestDuration.WithLabelValues(agentID, modelID).Observe(float64(durationMs) / 1000.0)
	ModelCallsTotal.WithLabelValues(agentID, modelID).Inc()
	if hasError {
		ModelErrorsTotal.WithLabelValues(agentID, modelID).Inc()
	}
}

// UpdateModelSpend sets the cumulative estimated model spend for an agent.
func UpdateModelSpend(sessionID, agentID string, spendUSD float64) {
	ModelSpendUSD.WithLabelValues(sessionID, agentID).Set(spendUSD)
}

// RecordTickDuration records one orchestrator tick's wall-clock cost.
func RecordTickDuration(sessionID string, durationSeconds float64) {
	TickDuration.WithLabelValues(sessionID).Observe(durationSeconds)
}

// SetSessionRunning flips the running gauge for a session.
func SetSessionRunning(sessionID string, running bool) {
	val := 0.0
	if running {
		val = 1.0
	}
	SessionRunning.WithLabelValues(sessionID).Set(val)
}

// SetAliveAgents sets the alive-agent-count gauge for a session.
func SetAliveAgents(sessionID string, count int) {
	SessionAliveAgents.WithLabelValues(sessionID).Set(float64(count))
}

// Init registers the standard process/go collectors alongside the
// domain-specific ones declared above.
func Init() {
	Registry.MustRegister(prometheus.NewGoCollector())
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}
