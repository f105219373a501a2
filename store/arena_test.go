package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrparena/execution"
	"xrparena/orchestrator"
	"xrparena/scoring"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateSessionThenRecordStartAndEnd(t *testing.T) {
	s := newTestStore(t)
	cfg := orchestrator.SessionConfig{
		Pair: "XRP/EUR", AgentCount: 3, StartingCapital: 1000,
		DecisionInterval: 30 * time.Second, MaxDuration: time.Hour, Leverage: 10,
	}
	require.NoError(t, s.CreateSession("sess-1", cfg, "Cyberpunk Traders"))
	require.NoError(t, s.RecordSessionStart("sess-1", time.Now(), 0.60))
	require.NoError(t, s.UpdateSessionStatus("sess-1", orchestrator.StatusRunning))

	summary := orchestrator.SessionSummary{
		SessionID: "sess-1", Status: orchestrator.StatusIdle, EndPrice: 0.65, TotalRuntimeMs: 1000,
		Rankings: []scoring.Ranked{{Agent: execution.AgentState{ID: "a1"}, Score: 12.5}},
		Titles:   scoring.Titles{BestTrader: "a1"},
	}
	require.NoError(t, s.RecordSessionEnd("sess-1", summary))
}

func TestUpsertAgentRoundTripsThroughLoadAgents(t *testing.T) {
	s := newTestStore(t)
	cfg := orchestrator.SessionConfig{Pair: "XRP/EUR", AgentCount: 1, StartingCapital: 500}
	require.NoError(t, s.CreateSession("sess-2", cfg, ""))

	agent := execution.AgentState{ID: "a1", Name: "Scalper", Balance: 480, Equity: 495, Health: 72}
	require.NoError(t, s.UpsertAgent("sess-2", agent))

	agent.Balance = 470
	require.NoError(t, s.UpsertAgent("sess-2", agent))

	loaded, err := s.LoadAgents("sess-2")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "a1", loaded[0].ID)
	assert.Equal(t, 470.0, loaded[0].Balance)
}

func TestLoadAgentsErrorsWhenSessionHasNone(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadAgents("does-not-exist")
	assert.Error(t, err)
}

func TestUpsertPositionAcceptsNilToClear(t *testing.T) {
	s := newTestStore(t)
	cfg := orchestrator.SessionConfig{Pair: "XRP/EUR", AgentCount: 1, StartingCapital: 500}
	require.NoError(t, s.CreateSession("sess-3", cfg, ""))

	pos := &execution.Position{ID: "p1", Pair: "XRP/EUR", Side: execution.Long, Volume: 100, Open: true}
	require.NoError(t, s.UpsertPosition("sess-3", "a1", pos))
	require.NoError(t, s.UpsertPosition("sess-3", "a1", nil))
}

func TestAppendDecisionsBatchesInOneTransaction(t *testing.T) {
	s := newTestStore(t)
	cfg := orchestrator.SessionConfig{Pair: "XRP/EUR", AgentCount: 1, StartingCapital: 500}
	require.NoError(t, s.CreateSession("sess-4", cfg, ""))

	records := []orchestrator.DecisionRecord{
		{AgentID: "a1", Tick: 1, Action: "hold", Timestamp: time.Now()},
		{AgentID: "a1", Tick: 2, Action: "open_long", Confidence: 80, Timestamp: time.Now()},
	}
	require.NoError(t, s.AppendDecisions("sess-4", records))
	require.NoError(t, s.AppendDecisions("sess-4", nil))
}

func TestWriteSnapshotAcceptsEmptyRoster(t *testing.T) {
	s := newTestStore(t)
	cfg := orchestrator.SessionConfig{Pair: "XRP/EUR", AgentCount: 0, StartingCapital: 500}
	require.NoError(t, s.CreateSession("sess-5", cfg, ""))
	require.NoError(t, s.WriteSnapshot("sess-5", 0.6, nil))
}
