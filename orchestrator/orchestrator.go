package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"xrparena/arenaerr"
	"xrparena/decision"
	"xrparena/events"
	"xrparena/execution"
	"xrparena/market"
	"xrparena/mcp"
	"xrparena/metrics"
	"xrparena/roster"
)

const (
	eventRingSize      = 500
	subscriberIdleMax  = 30 * time.Second
	decisionFlushEvery = 10
	snapshotFlushEvery = 5 * time.Minute
)

// instances holds the process-wide named singletons of spec.md §9,
// guarded by instancesMu the same way market.Cache's process-wide
// singleton is guarded by processCacheMu.
var (
	instancesMu sync.Mutex
	instances   = map[string]*Orchestrator{}
)

// Get returns the process-wide Orchestrator for name, constructing it
// on first call so that hot-reload or re-entrant construction returns
// the same instance. Tests should use New directly for isolation.
func Get(name string, cache *market.Cache, store Store, modelClient mcp.AIClient) *Orchestrator {
	instancesMu.Lock()
	defer instancesMu.Unlock()
	if existing, ok := instances[name]; ok {
		return existing
	}
	o := New(cache, store, modelClient)
	instances[name] = o
	return o
}

// Orchestrator owns all session-mutating state. Every public method is
// serialised through a single actor goroutine and command channel, per
// SPEC_FULL.md §5, so no internal field is ever touched concurrently.
type Orchestrator struct {
	cmdCh       chan func()
	cache       *market.Cache
	store       Store
	modelClient mcp.AIClient

	logger zerolog.Logger

	status    Status
	sessionID string
	cfg       SessionConfig

	agents        map[string]*execution.AgentState
	engines       map[string]*decision.Engine
	strategiesRaw map[string]roster.Agent
	knife         *market.KnifeTracker
	detector      *events.Detector

	subscribers     map[int]Sink
	nextSubscriber  int
	lastSubscribed  time.Time

	eventRing []events.Event

	tick             int
	startedAt        time.Time
	startPrice       float64
	lastSnapshotFlush time.Time
	pendingDecisions []DecisionRecord

	ticker          *time.Ticker
	stopCh          chan struct{}
	autoPauseAfter  time.Duration
}

// New builds an isolated Orchestrator, suitable for tests per spec.md
// §9's "tests must construct an isolated instance" note. modelClient
// may be nil, in which case every agent's decision engine falls back
// to mcp.NewLocalFuncClient() and tier 2 never fires.
func New(cache *market.Cache, store Store, modelClient mcp.AIClient) *Orchestrator {
	o := &Orchestrator{
		cmdCh:         make(chan func()),
		cache:         cache,
		store:         store,
		modelClient:   modelClient,
		logger:        log.With().Str("component", "orchestrator").Logger(),
		status:        StatusIdle,
		agents:        make(map[string]*execution.AgentState),
		engines:       make(map[string]*decision.Engine),
		strategiesRaw: make(map[string]roster.Agent),
		knife:         market.NewKnifeTracker(),
		detector:      events.New(),
		subscribers:   make(map[int]Sink),
		autoPauseAfter: subscriberIdleMax,
	}
	go o.run()
	return o
}

// SetAutoPauseThreshold overrides the 30s default of spec.md §4.8 step
// 3. Intended for tests that need the auto-pause behaviour to trigger
// without a real 30-second wait.
func (o *Orchestrator) SetAutoPauseThreshold(d time.Duration) {
	o.do(func() { o.autoPauseAfter = d })
}

// run is the single actor loop. Every field access in this file outside
// run's call stack must go through do to preserve serialisation.
func (o *Orchestrator) run() {
	for cmd := range o.cmdCh {
		cmd()
	}
}

// do executes fn on the actor goroutine and blocks until it completes,
// returning whatever fn returned through the closure capture.
func (o *Orchestrator) do(fn func()) {
	done := make(chan struct{})
	o.cmdCh <- func() {
		fn()
		close(done)
	}
	<-done
}

// CreateSession implements spec.md §4.8 create_session.
func (o *Orchestrator) CreateSession(cfg SessionConfig, r roster.Roster) (string, []execution.AgentState, error) {
	var (
		sessionID string
		snapshot  []execution.AgentState
		err       error
	)
	o.do(func() {
		if o.status != StatusIdle {
			err = fmt.Errorf("%w: create_session requires status=idle, got %s", arenaerr.ErrPrecondition, o.status)
			return
		}
		if o.sessionID != "" {
			err = fmt.Errorf("%w: create_session requires no pending session, %s exists", arenaerr.ErrPrecondition, o.sessionID)
			return
		}
		sessionID = uuid.NewString()
		o.sessionID = sessionID
		o.cfg = cfg
		o.agents = make(map[string]*execution.AgentState)
		o.engines = make(map[string]*decision.Engine)
		o.strategiesRaw = make(map[string]roster.Agent)
		o.knife = market.NewKnifeTracker()
		o.detector = events.New()
		o.eventRing = nil
		o.tick = 0
		o.pendingDecisions = nil

		for i, agent := range r.Agents {
			state := execution.AgentState{
				ID:              agent.ID,
				Name:            agent.Name,
				Archetype:       agent.Personality,
				AvatarShape:     agent.AvatarShape,
				ColourIndex:     agent.ColourIndex,
				Balance:         cfg.StartingCapital,
				StartingCapital: cfg.StartingCapital,
				Equity:          cfg.StartingCapital,
				PeakEquity:      cfg.StartingCapital,
				Health:          100,
				HealthZone:      execution.ZoneSafe,
				Status:          execution.StatusAlive,
				Rank:            i + 1,
				Badges:          make(map[string]bool),
				Activity:        "idle",
			}
			o.agents[agent.ID] = &state
			o.strategiesRaw[agent.ID] = agent
			o.engines[agent.ID] = decision.NewEngine(o.modelClient, cfg.ModelID, 500, cfg.PerAgentBudgetUSD)
		}

		if store := o.store; store != nil {
			if serr := store.CreateSession(sessionID, cfg, r.Theme); serr != nil {
				o.logger.Error().Err(serr).Msg("failed to persist new session")
			}
		}

		snapshot = o.snapshotAgentsLocked()
	})
	return sessionID, snapshot, err
}

// snapshotAgentsLocked must only be called from the actor goroutine.
func (o *Orchestrator) snapshotAgentsLocked() []execution.AgentState {
	out := make([]execution.AgentState, 0, len(o.agents))
	for _, a := range o.agents {
		out = append(out, *a)
	}
	return out
}

// Start implements spec.md §4.8 start.
func (o *Orchestrator) Start(ctx context.Context) error {
	var err error
	o.do(func() {
		if o.sessionID == "" {
			err = fmt.Errorf("%w: start requires a created session", arenaerr.ErrPrecondition)
			return
		}
		if o.status == StatusRunning {
			err = fmt.Errorf("%w: session is already running", arenaerr.ErrPrecondition)
			return
		}
		snap, ferr := o.cache.Fetch(ctx, true)
		if ferr != nil {
			o.logger.Error().Err(ferr).Msg("initial market fetch failed, session reset to idle")
			o.status = StatusIdle
			err = fmt.Errorf("%w: %v", arenaerr.ErrUpstreamData, ferr)
			return
		}

		o.startedAt = time.Now()
		o.startPrice = snap.Last
		o.lastSnapshotFlush = o.startedAt
		o.status = StatusRunning

		if o.store != nil {
			_ = o.store.RecordSessionStart(o.sessionID, o.startedAt, o.startPrice)
		}

		metrics.SetSessionRunning(o.sessionID, true)
		o.emitLocked(events.Event{
			ID: uuid.NewString(), Type: events.TypeSessionStarted, Importance: events.ImportanceHigh,
			Title: "Session started", PriceAt: o.startPrice, Timestamp: o.startedAt,
		})
		o.armTicker()
	})
	return err
}

func (o *Orchestrator) armTicker() {
	if o.ticker != nil {
		o.ticker.Stop()
	}
	interval := o.cfg.DecisionInterval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	o.ticker = time.NewTicker(interval)
	stopCh := make(chan struct{})
	o.stopCh = stopCh
	ticker := o.ticker
	go func() {
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				o.do(func() { o.onTick(context.Background()) })
			}
		}
	}()
}

func (o *Orchestrator) disarmTicker() {
	if o.ticker != nil {
		o.ticker.Stop()
		o.ticker = nil
	}
	if o.stopCh != nil {
		close(o.stopCh)
		o.stopCh = nil
	}
}

// Pause implements spec.md §4.8 pause.
func (o *Orchestrator) Pause() error {
	var err error
	o.do(func() {
		if o.status != StatusRunning {
			err = fmt.Errorf("%w: pause requires status=running, got %s", arenaerr.ErrPrecondition, o.status)
			return
		}
		o.disarmTicker()
		o.status = StatusPaused
		if o.store != nil {
			_ = o.store.UpdateSessionStatus(o.sessionID, StatusPaused)
		}
		metrics.SetSessionRunning(o.sessionID, false)
		o.emitLocked(events.Event{ID: uuid.NewString(), Type: events.TypeSessionPaused, Importance: events.ImportanceMedium, Timestamp: time.Now()})
	})
	return err
}

// Resume implements spec.md §4.8 resume.
func (o *Orchestrator) Resume() error {
	var err error
	o.do(func() {
		if o.status != StatusPaused {
			err = fmt.Errorf("%w: resume requires status=paused, got %s", arenaerr.ErrPrecondition, o.status)
			return
		}
		o.lastSubscribed = time.Now()
		o.status = StatusRunning
		if o.store != nil {
			_ = o.store.UpdateSessionStatus(o.sessionID, StatusRunning)
		}
		metrics.SetSessionRunning(o.sessionID, true)
		o.emitLocked(events.Event{ID: uuid.NewString(), Type: events.TypeSessionResumed, Importance: events.ImportanceMedium, Timestamp: time.Now()})
		o.armTicker()
	})
	return err
}

// Stop implements spec.md §4.8 stop. Idempotent: calling it while
// already idle returns a best-effort summary instead of erroring.
func (o *Orchestrator) Stop() SessionSummary {
	var summary SessionSummary
	o.do(func() {
		summary = o.stopLocked()
	})
	return summary
}
