package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freshState(capital float64) AgentState {
	return AgentState{
		ID:              "agent-1",
		Balance:         capital,
		StartingCapital: capital,
		Equity:          capital,
		PeakEquity:      capital,
		Health:          100,
		HealthZone:      ZoneSafe,
		Status:          StatusAlive,
	}
}

func TestS1LongProfitableClose(t *testing.T) {
	now := time.Now()
	s := freshState(1000)
	s, out := OpenPosition(s, Long, 0.60, 10, 10, now)
	require.True(t, out.Applied)
	assert.InDelta(t, 1666.67, s.Position.Volume, 0.5)
	assert.InDelta(t, 900, s.Balance, 0.01)

	s = UpdateUnrealised(s, 0.62)
	s, out = ClosePosition(s, 0.62, now.Add(time.Hour))
	require.True(t, out.Applied)
	assert.Equal(t, 1, s.WinCount)
	assert.Greater(t, out.RealizedPnL, 25.0)
	assert.Less(t, out.RealizedPnL, 35.0)
	assert.InDelta(t, 900+100+out.RealizedPnL, s.Balance, 0.01)
}

func TestS2ShortLiquidation(t *testing.T) {
	now := time.Now()
	s := freshState(1000)
	s, out := OpenPosition(s, Short, 0.50, 15, 10, now)
	require.True(t, out.Applied)

	s2, liqOutcome := CheckLiquidation(s, 0.51, now.Add(time.Minute))
	require.True(t, liqOutcome.Liquidated)
	assert.True(t, s2.Dead)
	assert.Equal(t, StatusLiquidated, s2.Status)
	assert.GreaterOrEqual(t, s2.Balance, 0.0)
}

func TestS2NoLiquidationBeforeThreshold(t *testing.T) {
	now := time.Now()
	s := freshState(1000)
	s, _ = OpenPosition(s, Short, 0.50, 15, 10, now)
	_, out := CheckLiquidation(s, 0.505, now)
	assert.False(t, out.Liquidated)
}

func TestS3DCAAveraging(t *testing.T) {
	now := time.Now()
	s := freshState(1000)
	s, out := OpenPosition(s, Long, 0.600, 6, 10, now)
	require.True(t, out.Applied)
	require.InDelta(t, 1000, s.Position.Volume, 0.01)
	require.InDelta(t, 60, s.Position.MarginUsed, 0.01)

	// 57 EUR of the 940 EUR balance left after the open.
	s, out = DCA(s, 0.570, 57.0/940*100, 10, 3, "dip buy", now)
	require.True(t, out.Applied)
	assert.InDelta(t, 0.585, s.Position.AvgEntryPrice, 0.001)
	assert.InDelta(t, 2000, s.Position.Volume, 0.01)
	assert.InDelta(t, 117, s.Position.MarginUsed, 0.5)
	assert.InDelta(t, 0.585*(1-0.02), s.Position.LiquidationPrice, 0.001)
}

func TestDCAFailsWithoutOpenPosition(t *testing.T) {
	s := freshState(1000)
	s2, out := DCA(s, 0.5, 5, 10, 3, "x", time.Now())
	assert.False(t, out.Applied)
	assert.Equal(t, s, s2)
}

func TestDCAFailsAtMaxCount(t *testing.T) {
	now := time.Now()
	s := freshState(1000)
	s, _ = OpenPosition(s, Long, 0.6, 10, 10, now)
	s.Position.DCACount = 3
	_, out := DCA(s, 0.59, 5, 10, 3, "x", now)
	assert.False(t, out.Applied)
}

func TestOpenFailsWhenAlreadyOpen(t *testing.T) {
	now := time.Now()
	s := freshState(1000)
	s, _ = OpenPosition(s, Long, 0.6, 10, 10, now)
	s2, out := OpenPosition(s, Short, 0.6, 10, 10, now)
	assert.False(t, out.Applied)
	assert.Equal(t, s, s2)
}

func TestInvariantEquityConservation(t *testing.T) {
	now := time.Now()
	s := freshState(1000)
	s, _ = OpenPosition(s, Long, 0.6, 10, 10, now)
	s = UpdateUnrealised(s, 0.65)
	expected := s.Balance + s.Position.MarginUsed + s.Position.UnrealizedPnL
	assert.InDelta(t, expected, s.Equity, 0.0001)
}

func TestInvariantFeeMonotonicity(t *testing.T) {
	now := time.Now()
	s := freshState(1000)
	s, _ = OpenPosition(s, Long, 0.6, 10, 10, now)
	feesAfterOpen := s.TotalFees
	s, _ = DCA(s, 0.59, 5, 10, 3, "x", now)
	assert.GreaterOrEqual(t, s.TotalFees, feesAfterOpen)
	feesAfterDCA := s.TotalFees
	s, _ = ClosePosition(s, 0.61, now.Add(time.Hour))
	assert.GreaterOrEqual(t, s.TotalFees, feesAfterDCA)
}

func TestInvariantHealthMapping(t *testing.T) {
	s := freshState(1000)
	s.Balance = 300
	s.Position = nil
	recomputeDerived(&s)
	assert.InDelta(t, 30, s.Health, 0.001)
	assert.Equal(t, ZoneCritical, s.HealthZone)
}

func TestInvariantLeverageAppliedToLiquidationPrice(t *testing.T) {
	now := time.Now()
	s := freshState(1000)
	s, _ = OpenPosition(s, Long, 1.0, 10, 5, now)
	assert.InDelta(t, 1.0*(1-20.0/5/100), s.Position.LiquidationPrice, 0.0001)
}
