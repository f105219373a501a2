package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrparena/execution"
)

func agentWith(id string, equity, health float64, dead bool, side execution.Side, open bool) execution.AgentState {
	var pos *execution.Position
	if open {
		pos = &execution.Position{Side: side, Open: true}
	}
	return execution.AgentState{ID: id, Name: id, Equity: equity, Health: health, Dead: dead, Position: pos}
}

func TestS4FaceOffEmittedOnceThenSuppressed(t *testing.T) {
	d := New()
	now := time.Now()
	agents := []execution.AgentState{
		agentWith("a", 1000, 100, false, execution.Long, true),
		agentWith("b", 1000, 100, false, execution.Short, true),
	}
	events := d.Observe(agents, 0.6, now)
	require.Len(t, filterType(events, TypeFaceOff), 1)

	events = d.Observe(agents, 0.6, now)
	assert.Len(t, filterType(events, TypeFaceOff), 0)
}

func TestFaceOffReArmsAfterBothSameSided(t *testing.T) {
	d := New()
	now := time.Now()
	agents := []execution.AgentState{
		agentWith("a", 1000, 100, false, execution.Long, true),
		agentWith("b", 1000, 100, false, execution.Short, true),
	}
	d.Observe(agents, 0.6, now)

	agents[1].Position.Side = execution.Long
	d.Observe(agents, 0.6, now)

	agents[1].Position.Side = execution.Short
	events := d.Observe(agents, 0.6, now)
	assert.Len(t, filterType(events, TypeFaceOff), 1)
}

func TestLeadChangeOnlyFiresOnActualChange(t *testing.T) {
	d := New()
	now := time.Now()
	agents := []execution.AgentState{
		agentWith("a", 1000, 100, false, "", false),
		agentWith("b", 900, 100, false, "", false),
	}
	events := d.Observe(agents, 0.6, now)
	assert.Len(t, filterType(events, TypeLeadChange), 0) // first observation seeds memory, no prior leader

	agents[1].Equity = 1100
	events = d.Observe(agents, 0.6, now)
	require.Len(t, filterType(events, TypeLeadChange), 1)

	events = d.Observe(agents, 0.6, now)
	assert.Len(t, filterType(events, TypeLeadChange), 0)
}

func TestNearDeathHysteresis(t *testing.T) {
	d := New()
	now := time.Now()
	agents := []execution.AgentState{agentWith("a", 500, 20, false, "", false)}

	events := d.Observe(agents, 0.6, now)
	assert.Len(t, filterType(events, TypeNearDeath), 1)

	events = d.Observe(agents, 0.6, now)
	assert.Len(t, filterType(events, TypeNearDeath), 0, "must not re-fire without recovery above 40")

	agents[0].Health = 50
	d.Observe(agents, 0.6, now)
	agents[0].Health = 15
	events = d.Observe(agents, 0.6, now)
	assert.Len(t, filterType(events, TypeNearDeath), 1, "re-arms after crossing back above 40")
}

func TestMarketShockThreshold(t *testing.T) {
	d := New()
	now := time.Now()
	d.Observe(nil, 0.60, now)
	events := d.Observe(nil, 0.6059, now)
	assert.Len(t, filterType(events, TypeMarketShock), 0, "0.98% move must not fire")

	events = d.Observe(nil, 0.615, now)
	assert.Len(t, filterType(events, TypeMarketShock), 1, "1.5% move must fire")
}

func TestHotStreakEscalatesImportance(t *testing.T) {
	d := New()
	now := time.Now()
	for i := 0; i < 2; i++ {
		e := d.OnTradeClose("a", "Agent A", true, 0.6, now)
		assert.Nil(t, e)
	}
	e := d.OnTradeClose("a", "Agent A", true, 0.6, now)
	require.NotNil(t, e)
	assert.Equal(t, ImportanceMedium, e.Importance)

	for i := 0; i < 2; i++ {
		d.OnTradeClose("a", "Agent A", true, 0.6, now)
	}
	e = d.OnTradeClose("a", "Agent A", true, 0.6, now)
	require.NotNil(t, e)
	assert.Equal(t, ImportanceHigh, e.Importance)
}

func TestHotStreakResetsOnLoss(t *testing.T) {
	d := New()
	now := time.Now()
	d.OnTradeClose("a", "Agent A", true, 0.6, now)
	d.OnTradeClose("a", "Agent A", true, 0.6, now)
	d.OnTradeClose("a", "Agent A", false, 0.6, now)
	e := d.OnTradeClose("a", "Agent A", true, 0.6, now)
	assert.Nil(t, e)
}

func TestCheckCountdownsFiresOncePerThreshold(t *testing.T) {
	d := New()
	now := time.Now()
	events := d.CheckCountdowns(59*time.Minute, 0.6, now)
	require.Len(t, events, 1)

	events = d.CheckCountdowns(58*time.Minute, 0.6, now)
	assert.Len(t, events, 0)

	events = d.CheckCountdowns(14*time.Minute, 0.6, now)
	require.Len(t, events, 1)
}

func filterType(events []Event, typ Type) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
