package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"xrparena/decision"
	"xrparena/events"
	"xrparena/execution"
	"xrparena/mcp"
	"xrparena/metrics"
	"xrparena/scoring"
	"xrparena/strategy"
)

// onTick runs the nine numbered steps of spec.md §4.8 tick behaviour.
// Must only be invoked on the actor goroutine.
func (o *Orchestrator) onTick(ctx context.Context) {
	if o.status != StatusRunning {
		return
	}

	tickStart := time.Now()
	defer func() {
		metrics.RecordTickDuration(o.sessionID, time.Since(tickStart).Seconds())
	}()

	// 1. tick counter / max duration.
	o.tick++
	elapsed := time.Since(o.startedAt)
	if o.cfg.MaxDuration > 0 && elapsed >= o.cfg.MaxDuration {
		o.stopLocked()
		return
	}

	// 2. countdown events.
	remaining := o.cfg.MaxDuration - elapsed
	for _, e := range o.detector.CheckCountdowns(remaining, o.lastKnownPrice(), time.Now()) {
		o.emitLocked(e)
	}

	// 3. subscriber absence auto-pause.
	if len(o.subscribers) == 0 && !o.lastSubscribed.IsZero() && time.Since(o.lastSubscribed) >= o.autoPauseAfter {
		o.disarmTicker()
		o.status = StatusPaused
		if o.store != nil {
			_ = o.store.UpdateSessionStatus(o.sessionID, StatusPaused)
		}
		o.emitLocked(events.Event{ID: uuid.NewString(), Type: events.TypeSessionPaused, Importance: events.ImportanceMedium, Timestamp: time.Now()})
		return
	}

	// 4. market fetch.
	snap, err := o.cache.Fetch(ctx, false)
	if err != nil {
		o.logger.Error().Err(err).Msg("market fetch failed this tick, retaining stale data")
		return
	}

	// 5. alive-agent count.
	aliveCount := 0
	for _, a := range o.agents {
		if !a.Dead {
			aliveCount++
		}
	}
	metrics.SetAliveAgents(o.sessionID, aliveCount)
	if aliveCount <= 1 {
		o.stopLocked()
		return
	}

	// refresh knife FSM once per tick from the 1h view, shared by every
	// agent's decision engine this tick.
	if view, ok := snap.Timeframes["1h"]; ok {
		o.knife.Observe("1h", view.Candles, view.Indicators.VolumeRatio)
	}
	knifeState := o.knife.State("1h")
	now := time.Now()

	// 6. per-agent decision and execution, in deterministic agent-ID order.
	for _, agentID := range o.orderedAgentIDs() {
		a := o.agents[agentID]
		if a.Dead {
			continue
		}
		rosterAgent := o.strategiesRaw[agentID]
		cfg := rosterAgent.Strategy

		if a.Position != nil && a.Position.Open {
			updated, outcome := execution.CheckLiquidation(*a, snap.Last, now)
			if outcome.Liquidated {
				*a = updated
				o.emitLocked(events.Event{
					ID: uuid.NewString(), Type: events.TypeAgentDeath, AgentID: a.ID, AgentName: a.Name,
					Importance: events.ImportanceCritical, Title: "Liquidated",
					Detail:    o.commentaryFor(a.ID, "on_death", fmt.Sprintf("%s was liquidated", a.Name)),
					PriceAt:   snap.Last, Timestamp: now,
				})
				if o.store != nil {
					_ = o.store.UpsertAgent(o.sessionID, *a)
					_ = o.store.UpsertPosition(o.sessionID, a.ID, a.Position)
				}
				continue
			}
			*a = execution.UpdateUnrealised(*a, snap.Last)
		}

		engine := o.engines[agentID]
		d := engine.Decide(ctx, snap, cfg, a.HealthZone, a.Position, knifeState, *a, now)
		o.applyDecision(agentID, a, cfg, d, snap.Last, now)

		a.InputTokens += int64(d.InputTokens)
		a.OutputTokens += int64(d.OutputTokens)
		if d.UsedModel {
			a.ModelCallCount++
			a.EstimatedCostUSD += mcp.EstimateCost(o.cfg.ModelID, d.InputTokens, d.OutputTokens)
		}

		o.recordDecision(agentID, d, snap.Last, *a, now)

		if a.Balance <= 0 && (a.Position == nil || !a.Position.Open) && !a.Dead {
			a.Dead = true
			a.Status = execution.StatusBankrupt
			a.DeathReason = "balance depleted"
			o.emitLocked(events.Event{
				ID: uuid.NewString(), Type: events.TypeAgentDeath, AgentID: a.ID, AgentName: a.Name,
				Importance: events.ImportanceCritical, Title: "Bankrupt",
				Detail:    o.commentaryFor(a.ID, "on_death", fmt.Sprintf("%s went bankrupt", a.Name)),
				PriceAt:   snap.Last, Timestamp: now,
			})
		}
	}

	// 7. event detector + rankings.
	agentStates := o.snapshotAgentsLocked()
	for _, e := range o.detector.Observe(agentStates, snap.Last, now) {
		o.emitLocked(e)
	}
	ranked := scoring.Rank(agentStates)
	for _, r := range ranked {
		if a, ok := o.agents[r.Agent.ID]; ok {
			a.Rank = r.Agent.Rank
		}
		winRate := 0.0
		if total := r.Agent.WinCount + r.Agent.LossCount; total > 0 {
			winRate = float64(r.Agent.WinCount) / float64(total)
		}
		unrealized := 0.0
		if r.Agent.Position != nil {
			unrealized = r.Agent.Position.UnrealizedPnL
		}
		metrics.UpdateAgentMetrics(o.sessionID, r.Agent.ID, r.Agent.Archetype,
			r.Agent.Equity, r.Agent.Balance, r.Agent.Health, unrealized, r.Agent.RealizedPnL, r.Score, r.Agent.Rank)
		metrics.UpdateWinRate(o.sessionID, r.Agent.ID, winRate)
		metrics.UpdateModelSpend(o.sessionID, r.Agent.ID, r.Agent.EstimatedCostUSD)
	}

	// 8. composite tick event.
	o.emitLocked(events.Event{
		ID: uuid.NewString(), Type: events.TypeTick, Importance: events.ImportanceLow,
		PriceAt: snap.Last, Timestamp: now,
		Metadata: map[string]any{"tick": o.tick, "agents": o.snapshotAgentsLocked()},
	})

	// 9. persistence scheduling.
	if o.tick%decisionFlushEvery == 0 {
		o.flushDecisions()
	}
	if time.Since(o.lastSnapshotFlush) >= snapshotFlushEvery {
		o.lastSnapshotFlush = time.Now()
		if o.store != nil {
			if serr := o.store.WriteSnapshot(o.sessionID, snap.Last, o.snapshotAgentsLocked()); serr != nil {
				o.logger.Error().Err(serr).Msg("failed to write snapshot")
			}
		}
	}
}

// commentaryFor looks up the agent's archetype commentary template for
// trigger (spec.md §4.9's fixed trigger set), falling back to fallback
// when the agent has no line recorded for that trigger.
func (o *Orchestrator) commentaryFor(agentID, trigger, fallback string) string {
	if line, ok := o.strategiesRaw[agentID].Commentary[trigger]; ok && line != "" {
		return line
	}
	return fallback
}

func (o *Orchestrator) applyDecision(agentID string, a *execution.AgentState, cfg strategy.Config, d decision.Decision, price float64, now time.Time) {
	switch d.Action {
	case decision.OpenLong, decision.OpenShort:
		side := execution.Long
		if d.Action == decision.OpenShort {
			side = execution.Short
		}
		updated, outcome := execution.OpenPosition(*a, side, price, d.MarginPercent, cfg.Leverage, now)
		if outcome.Applied {
			*a = updated
			a.LastRationale = d.Rationale
			a.Activity = "trading"
			o.emitLocked(events.Event{
				ID: uuid.NewString(), Type: events.TypeTradeOpen, AgentID: a.ID, AgentName: a.Name,
				Importance: events.ImportanceMedium, Title: "Position opened",
				Detail:  o.commentaryFor(a.ID, "on_entry", d.Rationale),
				PriceAt: price, Timestamp: now,
			})
			if o.store != nil {
				_ = o.store.UpsertAgent(o.sessionID, *a)
				_ = o.store.UpsertPosition(o.sessionID, a.ID, a.Position)
			}
			metrics.UpdatePositionMetrics(o.sessionID, a.ID, string(a.Position.Side), a.Position.MarginUsed, a.Position.Leverage, 0)
		}
	case decision.Close:
		if a.Position != nil && a.Position.Open {
			won := a.Position.UnrealizedPnL >= 0
			side := string(a.Position.Side)
			updated, outcome := execution.ClosePosition(*a, price, now)
			*a = updated
			a.LastRationale = d.Rationale
			a.Activity = "idle"
			exitTrigger := "on_exit_loss"
			if won {
				exitTrigger = "on_exit_profit"
			}
			o.emitLocked(events.Event{
				ID: uuid.NewString(), Type: events.TypeTradeClose, AgentID: a.ID, AgentName: a.Name,
				Importance: events.ImportanceMedium, Title: "Position closed",
				Detail:   o.commentaryFor(a.ID, exitTrigger, d.Rationale),
				PriceAt:  price, Timestamp: now,
				Metadata: map[string]any{"realized_pnl": outcome.RealizedPnL},
			})
			if e := o.detector.OnTradeClose(a.ID, a.Name, won, price, now); e != nil {
				o.emitLocked(*e)
			}
			if o.store != nil {
				_ = o.store.UpsertAgent(o.sessionID, *a)
				_ = o.store.UpsertPosition(o.sessionID, a.ID, nil)
			}
			metrics.RecordTrade(o.sessionID, a.ID, won)
			metrics.ClearPositionMetrics(o.sessionID, a.ID, side)
		}
	case decision.DCA:
		if a.Position != nil && a.Position.Open {
			updated, outcome := execution.DCA(*a, price, d.MarginPercent, cfg.Leverage, cfg.MaxDCACount, d.Rationale, now)
			if outcome.Applied {
				*a = updated
				a.LastRationale = d.Rationale
				o.emitLocked(events.Event{
					ID: uuid.NewString(), Type: events.TypeTradeDCA, AgentID: a.ID, AgentName: a.Name,
					Importance: events.ImportanceMedium, Title: "Averaging in", Detail: d.Rationale,
					PriceAt: price, Timestamp: now,
				})
				if o.store != nil {
					_ = o.store.UpsertAgent(o.sessionID, *a)
					_ = o.store.UpsertPosition(o.sessionID, a.ID, a.Position)
				}
			}
		}
	case decision.Hold:
		a.Activity = "holding"
		a.LastRationale = d.Rationale
		o.emitLocked(events.Event{
			ID: uuid.NewString(), Type: events.TypeAgentHold, AgentID: a.ID, AgentName: a.Name,
			Importance: events.ImportanceLow, Title: "Holding", Detail: d.Rationale, PriceAt: price, Timestamp: now,
		})
	case decision.Wait:
		a.Activity = "waiting"
		a.LastRationale = d.Rationale
		o.emitLocked(events.Event{
			ID: uuid.NewString(), Type: events.TypeAgentWait, AgentID: a.ID, AgentName: a.Name,
			Importance: events.ImportanceLow, Title: "Waiting", Detail: d.Rationale, PriceAt: price, Timestamp: now,
		})
	}
}

func (o *Orchestrator) recordDecision(agentID string, d decision.Decision, price float64, a execution.AgentState, now time.Time) {
	isQuiet := d.Action == decision.Hold || d.Action == decision.Wait
	if isQuiet && o.tick%10 != 0 {
		return
	}
	o.pendingDecisions = append(o.pendingDecisions, DecisionRecord{
		AgentID: agentID, Tick: o.tick, Action: string(d.Action), Reasoning: d.Rationale,
		Confidence: d.Confidence, UsedModel: d.UsedModel, PriceAt: price,
		BalanceAt: a.Balance, PnLAt: a.RealizedPnL, InputTokens: d.InputTokens, OutputTokens: d.OutputTokens,
		Timestamp: now,
	})
}

func (o *Orchestrator) flushDecisions() {
	if len(o.pendingDecisions) == 0 || o.store == nil {
		return
	}
	if err := o.store.AppendDecisions(o.sessionID, o.pendingDecisions); err != nil {
		o.logger.Error().Err(err).Msg("failed to flush decisions, retaining for next cadence")
		return
	}
	o.pendingDecisions = nil
}

func (o *Orchestrator) orderedAgentIDs() []string {
	ids := make([]string, 0, len(o.agents))
	for id := range o.agents {
		ids = append(ids, id)
	}
	// deterministic agent-id order, per spec.md §4.8 step 6 and §9's
	// ordering guarantee for parallel tier-2 implementations.
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
	return ids
}

func (o *Orchestrator) lastKnownPrice() float64 {
	if snap := o.cache.Peek(); snap != nil {
		return snap.Last
	}
	return 0
}
