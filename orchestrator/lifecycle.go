package orchestrator

import (
	"time"

	"github.com/google/uuid"

	"xrparena/decision"
	"xrparena/events"
	"xrparena/execution"
	"xrparena/metrics"
	"xrparena/roster"
	"xrparena/scoring"
)

// stopLocked implements spec.md §4.8 stop. Must only run on the actor
// goroutine. Idempotent and degrades gracefully against a partly
// missing in-memory state, per spec.md §7.
func (o *Orchestrator) stopLocked() SessionSummary {
	if o.status == StatusIdle && len(o.agents) == 0 {
		return SessionSummary{SessionID: o.sessionID, Status: StatusIdle}
	}

	o.disarmTicker()
	endPrice := o.lastKnownPrice()
	now := time.Now()

	agents := o.agents
	if len(agents) == 0 && o.store != nil {
		if loaded, err := o.store.LoadAgents(o.sessionID); err == nil {
			agents = make(map[string]*execution.AgentState, len(loaded))
			for i := range loaded {
				a := loaded[i]
				agents[a.ID] = &a
			}
		}
	}

	for id, a := range agents {
		if a.Position != nil && a.Position.Open && endPrice > 0 {
			updated, _ := execution.ClosePosition(*a, endPrice, now)
			agents[id] = &updated
			if o.store != nil {
				_ = o.store.UpsertAgent(o.sessionID, updated)
				_ = o.store.UpsertPosition(o.sessionID, id, nil)
			}
		}
	}

	states := make([]execution.AgentState, 0, len(agents))
	for _, a := range agents {
		states = append(states, *a)
	}
	ranked := scoring.Rank(states)
	titles := scoring.ComputeTitles(states)

	var runtimeMs int64
	if !o.startedAt.IsZero() {
		runtimeMs = now.Sub(o.startedAt).Milliseconds()
	}
	summary := SessionSummary{
		SessionID: o.sessionID, Status: StatusIdle, StartedAt: o.startedAt, EndedAt: now,
		StartPrice: o.startPrice, EndPrice: endPrice, TotalRuntimeMs: runtimeMs,
		Rankings: ranked, Titles: titles,
	}

	o.flushDecisions()
	if o.store != nil {
		if err := o.store.RecordSessionEnd(o.sessionID, summary); err != nil {
			o.logger.Error().Err(err).Msg("failed to persist session summary, returning in-memory result")
		}
	}

	metrics.SetSessionRunning(o.sessionID, false)
	o.emitLocked(events.Event{ID: uuid.NewString(), Type: events.TypeSessionEnded, Importance: events.ImportanceHigh, PriceAt: endPrice, Timestamp: now})

	o.agents = make(map[string]*execution.AgentState)
	o.engines = make(map[string]*decision.Engine)
	o.strategiesRaw = make(map[string]roster.Agent)
	o.status = StatusIdle
	o.sessionID = ""
	return summary
}

// Subscribe registers sink, resets the auto-pause timer, and resumes a
// paused session, per spec.md §4.8 subscribe.
func (o *Orchestrator) Subscribe(sink Sink) Unsubscribe {
	var id int
	o.do(func() {
		id = o.nextSubscriber
		o.nextSubscriber++
		o.subscribers[id] = sink
		o.lastSubscribed = time.Now()
		if o.status == StatusPaused && o.sessionID != "" {
			o.status = StatusRunning
			if o.store != nil {
				_ = o.store.UpdateSessionStatus(o.sessionID, StatusRunning)
			}
			metrics.SetSessionRunning(o.sessionID, true)
			o.emitLocked(events.Event{ID: uuid.NewString(), Type: events.TypeSessionResumed, Importance: events.ImportanceMedium, Timestamp: time.Now()})
			o.armTicker()
		}
		for _, e := range o.eventRing {
			_ = sink(e)
		}
	})
	return func() {
		o.do(func() {
			delete(o.subscribers, id)
			o.lastSubscribed = time.Now()
		})
	}
}

// emitLocked appends e to the bounded replay ring and synchronously
// delivers it to every subscriber. A sink that errors is isolated and
// logged; it never stops delivery to the rest. Must only run on the
// actor goroutine.
func (o *Orchestrator) emitLocked(e events.Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Type != events.TypeTick {
		o.eventRing = append(o.eventRing, e)
		if len(o.eventRing) > eventRingSize {
			o.eventRing = o.eventRing[len(o.eventRing)-eventRingSize:]
		}
	}
	for _, sink := range o.subscribers {
		if err := sink(e); err != nil {
			o.logger.Debug().Err(err).Str("event_type", string(e.Type)).Msg("subscriber sink returned an error, isolated")
		}
	}
}

// Status, SessionID, CurrentTick, ElapsedMs, CurrentPrice, Rankings,
// AgentStates and EventBuffer are the read-only accessors of spec.md §6.

func (o *Orchestrator) Status() Status {
	var s Status
	o.do(func() { s = o.status })
	return s
}

func (o *Orchestrator) SessionID() string {
	var id string
	o.do(func() { id = o.sessionID })
	return id
}

func (o *Orchestrator) CurrentTick() int {
	var t int
	o.do(func() { t = o.tick })
	return t
}

func (o *Orchestrator) ElapsedMs() int64 {
	var ms int64
	o.do(func() {
		if !o.startedAt.IsZero() {
			ms = time.Since(o.startedAt).Milliseconds()
		}
	})
	return ms
}

func (o *Orchestrator) CurrentPrice() float64 {
	var p float64
	o.do(func() { p = o.lastKnownPrice() })
	return p
}

func (o *Orchestrator) Rankings() []scoring.Ranked {
	var r []scoring.Ranked
	o.do(func() { r = scoring.Rank(o.snapshotAgentsLocked()) })
	return r
}

func (o *Orchestrator) AgentStates() []execution.AgentState {
	var s []execution.AgentState
	o.do(func() { s = o.snapshotAgentsLocked() })
	return s
}

func (o *Orchestrator) EventBuffer() []events.Event {
	var buf []events.Event
	o.do(func() {
		buf = make([]events.Event, len(o.eventRing))
		copy(buf, o.eventRing)
	})
	return buf
}
