package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrparena/execution"
)

func TestS6RankingStability(t *testing.T) {
	a := execution.AgentState{ID: "a", Name: "A", StartingCapital: 1000, Equity: 1123, RealizedPnL: 123, WinCount: 6, LossCount: 4}
	b := execution.AgentState{ID: "b", Name: "B", StartingCapital: 1000, Equity: 1123.001, RealizedPnL: 123.001, WinCount: 6, LossCount: 4}
	c := execution.AgentState{ID: "c", Name: "C", StartingCapital: 1000, Equity: 0, RealizedPnL: 500, Dead: true}

	ranked := Rank([]execution.AgentState{a, b, c})
	require.Len(t, ranked, 3)
	assert.Equal(t, "B", ranked[0].Agent.Name)
	assert.Equal(t, "A", ranked[1].Agent.Name)
	assert.Equal(t, "C", ranked[2].Agent.Name)
	assert.Equal(t, 1, ranked[0].Agent.Rank)
	assert.Equal(t, 3, ranked[2].Agent.Rank)
}

func TestInvariantDeadAlwaysRanksLast(t *testing.T) {
	alive := execution.AgentState{ID: "alive", StartingCapital: 1000, Equity: 1, RealizedPnL: -999}
	dead := execution.AgentState{ID: "dead", StartingCapital: 1000, Equity: 5000, RealizedPnL: 4000, Dead: true}

	ranked := Rank([]execution.AgentState{dead, alive})
	assert.Equal(t, "alive", ranked[0].Agent.ID)
	assert.Equal(t, "dead", ranked[1].Agent.ID)
}

func TestRARSAppliesDeadPenalty(t *testing.T) {
	agent := execution.AgentState{StartingCapital: 1000, Equity: 1000, RealizedPnL: 100, Dead: true}
	assert.Less(t, RARS(agent), -9000.0)
}

func TestComputeTitlesMostConsistentRequiresThreeTrades(t *testing.T) {
	agents := []execution.AgentState{
		{Name: "Rookie", WinCount: 2, LossCount: 0, StartingCapital: 1000},
		{Name: "Veteran", WinCount: 7, LossCount: 3, StartingCapital: 1000},
	}
	titles := ComputeTitles(agents)
	assert.Equal(t, "Veteran", titles.MostConsistent)
}

func TestComputeTitlesSurvivorRequiresAliveAndTraded(t *testing.T) {
	agents := []execution.AgentState{
		{Name: "Ghost", Dead: true, TradeCount: 5},
		{Name: "Idle", Dead: false, TradeCount: 0},
		{Name: "Grinder", Dead: false, TradeCount: 3},
	}
	titles := ComputeTitles(agents)
	assert.Equal(t, "Grinder", titles.Survivor)
}
