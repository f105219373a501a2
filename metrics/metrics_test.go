package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestUpdateAgentMetricsSetsGauges(t *testing.T) {
	UpdateAgentMetrics("sess-1", "a1", "scalper", 1050, 900, 72, 15, 50, 12.3, 1)
	assert.Equal(t, 1050.0, testutil.ToFloat64(AgentEquityTotal.WithLabelValues("sess-1", "a1", "scalper")))
	assert.Equal(t, 72.0, testutil.ToFloat64(AgentHealth.WithLabelValues("sess-1", "a1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(AgentRank.WithLabelValues("sess-1", "a1")))
}

func TestRecordTradeIncrementsCorrectResultLabel(t *testing.T) {
	before := testutil.ToFloat64(AgentTradesTotal.WithLabelValues("sess-2", "a2", "win"))
	RecordTrade("sess-2", "a2", true)
	assert.Equal(t, before+1, testutil.ToFloat64(AgentTradesTotal.WithLabelValues("sess-2", "a2", "win")))
}

func TestClearPositionMetricsRemovesLabels(t *testing.T) {
	UpdatePositionMetrics("sess-3", "a3", "long", 100, 10, 60)
	ClearPositionMetrics("sess-3", "a3", "long")
	assert.Equal(t, 0.0, testutil.ToFloat64(PositionMarginUsed.WithLabelValues("sess-3", "a3", "long")))
}

func TestSetSessionRunningTogglesGauge(t *testing.T) {
	SetSessionRunning("sess-4", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(SessionRunning.WithLabelValues("sess-4")))
	SetSessionRunning("sess-4", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(SessionRunning.WithLabelValues("sess-4")))
}
