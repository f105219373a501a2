package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrparena/events"
	"xrparena/execution"
	"xrparena/market"
	"xrparena/roster"
)

func testOrchestrator(t *testing.T, interval time.Duration) *Orchestrator {
	t.Helper()
	source := market.NewSyntheticSource(1, 0.60, 0.002, 0)
	cache := market.New("XRP/EUR", "BTC/EUR", source)
	o := New(cache, nil, nil)
	o.SetAutoPauseThreshold(150 * time.Millisecond)

	r, err := roster.GenerateArchetype(2, nil, 10, 1, 7)
	require.NoError(t, err)

	cfg := SessionConfig{
		Pair: "XRP/EUR", AgentCount: 2, StartingCapital: 1000,
		DecisionInterval: interval, MaxDuration: time.Hour, Leverage: 10,
	}
	_, _, err = o.CreateSession(cfg, r)
	require.NoError(t, err)
	return o
}

func TestCreateSessionRequiresIdle(t *testing.T) {
	o := testOrchestrator(t, 50*time.Millisecond)
	r, _ := roster.GenerateArchetype(2, nil, 10, 1, 7)
	_, _, err := o.CreateSession(SessionConfig{}, r)
	assert.Error(t, err)
}

func TestStartRequiresCreatedSession(t *testing.T) {
	source := market.NewSyntheticSource(1, 0.60, 0.002, 0)
	cache := market.New("XRP/EUR", "BTC/EUR", source)
	o := New(cache, nil, nil)
	err := o.Start(context.Background())
	assert.Error(t, err)
}

func TestInvariant7TickAtomicityAllSinksSeeSameAgentCount(t *testing.T) {
	o := testOrchestrator(t, 30*time.Millisecond)
	require.NoError(t, o.Start(context.Background()))

	var mu sync.Mutex
	counts := []int{}
	unsub := o.Subscribe(func(e events.Event) error {
		if e.Type == events.TypeTick {
			agents, _ := e.Metadata["agents"].([]execution.AgentState)
			mu.Lock()
			counts = append(counts, len(agents))
			mu.Unlock()
		}
		return nil
	})
	defer unsub()

	time.Sleep(120 * time.Millisecond)
	o.Stop()

	mu.Lock()
	defer mu.Unlock()
	for _, c := range counts {
		assert.Equal(t, 2, c)
	}
}

func TestS5AutoPauseAndResume(t *testing.T) {
	o := testOrchestrator(t, 30*time.Millisecond)
	require.NoError(t, o.Start(context.Background()))

	unsub := o.Subscribe(func(events.Event) error { return nil })
	unsub()

	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, StatusPaused, o.Status())

	pausedTick := o.CurrentTick()
	o.Subscribe(func(events.Event) error { return nil })
	assert.Equal(t, StatusRunning, o.Status())

	time.Sleep(80 * time.Millisecond)
	assert.GreaterOrEqual(t, o.CurrentTick(), pausedTick)

	o.Stop()
}

func TestInvariant14AutoPauseLatency(t *testing.T) {
	o := testOrchestrator(t, 20*time.Millisecond)
	o.SetAutoPauseThreshold(60 * time.Millisecond)
	require.NoError(t, o.Start(context.Background()))

	unsub := o.Subscribe(func(events.Event) error { return nil })
	unsub()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, StatusPaused, o.Status())
	o.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	o := testOrchestrator(t, 30*time.Millisecond)
	require.NoError(t, o.Start(context.Background()))
	first := o.Stop()
	assert.NotEmpty(t, first.SessionID)

	second := o.Stop()
	assert.Equal(t, StatusIdle, second.Status)
}

func TestPauseResumeRequirePriorState(t *testing.T) {
	o := testOrchestrator(t, 30*time.Millisecond)
	assert.Error(t, o.Pause(), "cannot pause before start")

	require.NoError(t, o.Start(context.Background()))
	assert.NoError(t, o.Pause())
	assert.Error(t, o.Pause(), "cannot pause twice")
	assert.NoError(t, o.Resume())
	o.Stop()
}
