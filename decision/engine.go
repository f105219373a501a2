package decision

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"xrparena/execution"
	"xrparena/market"
	"xrparena/mcp"
	"xrparena/metrics"
	"xrparena/strategy"
)

// Engine wires the three tiers of spec.md §4.5 together for one agent.
// A single Engine can be shared across agents; all state it needs lives
// in AgentState and the per-call arguments.
type Engine struct {
	Client       mcp.AIClient
	ModelID      string
	MaxTokens    int
	MaxSpendUSD  float64
	ModelTimeout time.Duration
	logger       zerolog.Logger
}

// NewEngine builds an Engine. Passing a nil or LocalFunc client keeps
// every decision at tier 1 — no model call is ever attempted.
func NewEngine(client mcp.AIClient, modelID string, maxTokens int, maxSpendUSD float64) *Engine {
	if client == nil {
		client = mcp.NewLocalFuncClient()
	}
	return &Engine{
		Client:       client,
		ModelID:      modelID,
		MaxTokens:    maxTokens,
		MaxSpendUSD:  maxSpendUSD,
		ModelTimeout: 8 * time.Second,
		logger:       log.With().Str("component", "decision").Logger(),
	}
}

// Decide runs tier 1 rules, then attempts tier 2 model refinement when a
// model is configured and the agent has budget remaining, falling back
// silently to the tier 1 decision (tier 3) on any model failure.
func (e *Engine) Decide(ctx context.Context, snap *market.Snapshot, cfg strategy.Config, zone execution.HealthZone, pos *execution.Position, knife market.KnifeState, agent execution.AgentState, now time.Time) Decision {
	var base Decision
	if pos != nil && pos.Open {
		base = PositionTier1(snap, cfg, zone, *pos, now)
	} else {
		base = EntryTier1(snap, cfg, zone, knife)
	}

	if e.Client == nil || e.Client.Provider() == mcp.ProviderLocalFunc {
		return base
	}
	if e.MaxSpendUSD > 0 && agent.EstimatedCostUSD >= e.MaxSpendUSD {
		return base
	}
	if !escalatesToTier2(base) {
		return base
	}

	callStart := time.Now()
	refined, err := e.tier2(ctx, snap, cfg, zone, pos, base)
	metrics.RecordModelCall(agent.ID, e.ModelID, time.Since(callStart).Milliseconds(), err != nil)
	if err != nil {
		e.logger.Debug().Err(err).Str("agent", agent.ID).Msg("tier 2 model call failed, falling back to rules decision")
		return base
	}
	return refined
}

// escalatesToTier2 reports whether a tier 1 decision qualifies for tier
// 2 model refinement, per spec.md §4.5: only open/close/dca actions
// with confidence in [30,70) are ambiguous enough to escalate. Holds
// and waits are never escalated.
func escalatesToTier2(base Decision) bool {
	switch base.Action {
	case OpenLong, OpenShort, Close, DCA:
	default:
		return false
	}
	return base.Confidence >= 30 && base.Confidence < 70
}

// tier2 invokes the configured model and parses its reply. The caller
// treats any error here as "fall back to tier 1" (tier 3).
func (e *Engine) tier2(ctx context.Context, snap *market.Snapshot, cfg strategy.Config, zone execution.HealthZone, pos *execution.Position, base Decision) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, e.ModelTimeout)
	defer cancel()

	req := mcp.Request{
		ModelID:      e.ModelID,
		SystemPrompt: buildSystemPrompt(cfg),
		UserPrompt:   buildUserPrompt(snap, zone, pos, base),
		MaxTokens:    e.MaxTokens,
	}
	resp, err := e.Client.Invoke(ctx, req)
	if err != nil {
		return Decision{}, err
	}

	decision, err := parseModelDecision(resp.Text)
	if err != nil {
		return Decision{}, err
	}
	decision.InputTokens = resp.InputTokens
	decision.OutputTokens = resp.OutputTokens
	if decision.MarginPercent <= 0 {
		decision.MarginPercent = base.MarginPercent
	}
	return decision, nil
}
