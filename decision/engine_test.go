package decision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrparena/execution"
	"xrparena/market"
	"xrparena/mcp"
	"xrparena/strategy"
)

type fakeClient struct {
	provider string
	resp     mcp.Response
	err      error
}

func (f *fakeClient) Provider() string { return f.provider }
func (f *fakeClient) Invoke(ctx context.Context, req mcp.Request) (mcp.Response, error) {
	return f.resp, f.err
}

func snapshotWithBias(bias float64, tag, action string, confidence float64) *market.Snapshot {
	return &market.Snapshot{
		Pair: "XRP/EUR",
		Last: 0.6,
		Timeframes: map[string]*market.TimeframeView{
			"1h": {
				Timeframe: "1h",
				Indicators: market.Indicators{
					RSI: 55, BollPosition: 0.5, ATR: 0.005, BiasTag: tag,
				},
			},
		},
		Recommendation: market.Recommendation{Action: action, Confidence: confidence},
	}
}

func TestDecideWithoutModelReturnsTier1(t *testing.T) {
	e := NewEngine(nil, "", 0, 0)
	snap := snapshotWithBias(0, "neutral", "WAIT", 50)
	cfg := strategy.Default()
	agent := execution.AgentState{}
	d := e.Decide(context.Background(), snap, cfg, execution.ZoneSafe, nil, market.KnifeState{}, agent, time.Now())
	assert.False(t, d.UsedModel)
	assert.Equal(t, Wait, d.Action)
}

func TestDecideFallsBackWhenModelErrors(t *testing.T) {
	client := &fakeClient{provider: mcp.ProviderOpenAICompatible, err: assert.AnError}
	e := NewEngine(client, "test-model", 200, 0)
	snap := snapshotWithBias(0, "neutral", "LONG", 55)
	cfg := strategy.Default()
	agent := execution.AgentState{}
	d := e.Decide(context.Background(), snap, cfg, execution.ZoneSafe, nil, market.KnifeState{}, agent, time.Now())
	assert.False(t, d.UsedModel)
}

func TestDecideUsesModelWhenItRefines(t *testing.T) {
	client := &fakeClient{
		provider: mcp.ProviderOpenAICompatible,
		resp:     mcp.Response{Text: `{"action":"hold","confidence":61,"rationale":"waiting for confirmation"}`, InputTokens: 10, OutputTokens: 5},
	}
	e := NewEngine(client, "test-model", 200, 1.0)
	// "LONG" at confidence 55 resolves to an OpenLong tier 1 decision
	// with confidence in [30,70), the only band spec.md §4.5 escalates.
	snap := snapshotWithBias(0, "neutral", "LONG", 55)
	cfg := strategy.Default()
	agent := execution.AgentState{}
	d := e.Decide(context.Background(), snap, cfg, execution.ZoneSafe, nil, market.KnifeState{}, agent, time.Now())
	require.True(t, d.UsedModel)
	assert.Equal(t, Hold, d.Action)
	assert.Equal(t, 10, d.InputTokens)
}

func TestDecideNeverEscalatesHoldOrWaitTier1(t *testing.T) {
	client := &fakeClient{
		provider: mcp.ProviderOpenAICompatible,
		resp:     mcp.Response{Text: `{"action":"hold","confidence":61}`, InputTokens: 10, OutputTokens: 5},
	}
	e := NewEngine(client, "test-model", 200, 1.0)
	snap := snapshotWithBias(0, "neutral", "WAIT", 50)
	cfg := strategy.Default()
	agent := execution.AgentState{}
	d := e.Decide(context.Background(), snap, cfg, execution.ZoneSafe, nil, market.KnifeState{}, agent, time.Now())
	assert.False(t, d.UsedModel)
	assert.Equal(t, Wait, d.Action)
}

func TestDecideNeverEscalatesHighConfidenceTier1(t *testing.T) {
	client := &fakeClient{
		provider: mcp.ProviderOpenAICompatible,
		resp:     mcp.Response{Text: `{"action":"hold","confidence":61}`, InputTokens: 10, OutputTokens: 5},
	}
	e := NewEngine(client, "test-model", 200, 1.0)
	// confidence 95 resolves well above the [30,70) ambiguity band.
	snap := snapshotWithBias(0, "neutral", "LONG", 95)
	cfg := strategy.Default()
	agent := execution.AgentState{}
	d := e.Decide(context.Background(), snap, cfg, execution.ZoneSafe, nil, market.KnifeState{}, agent, time.Now())
	assert.False(t, d.UsedModel)
	assert.Equal(t, OpenLong, d.Action)
}

func TestDecideSkipsModelWhenBudgetExhausted(t *testing.T) {
	client := &fakeClient{provider: mcp.ProviderOpenAICompatible, resp: mcp.Response{Text: `{"action":"hold","confidence":90}`}}
	e := NewEngine(client, "test-model", 200, 0.01)
	snap := snapshotWithBias(0, "neutral", "LONG", 55)
	cfg := strategy.Default()
	agent := execution.AgentState{EstimatedCostUSD: 0.02}
	d := e.Decide(context.Background(), snap, cfg, execution.ZoneSafe, nil, market.KnifeState{}, agent, time.Now())
	assert.False(t, d.UsedModel)
}

func TestParseModelDecisionToleratesMarkdownFence(t *testing.T) {
	text := "Here is my decision:\n```json\n{\"action\": \"open_long\", \"confidence\": 80, \"margin_percent\": 12}\n```\nThanks."
	d, err := parseModelDecision(text)
	require.NoError(t, err)
	assert.Equal(t, OpenLong, d.Action)
	assert.InDelta(t, 80, d.Confidence, 0.001)
}

func TestParseModelDecisionRejectsUnknownAction(t *testing.T) {
	_, err := parseModelDecision(`{"action":"yolo","confidence":50}`)
	assert.Error(t, err)
}

func TestParseModelDecisionClampsConfidence(t *testing.T) {
	d, err := parseModelDecision(`{"action":"hold","confidence":500}`)
	require.NoError(t, err)
	assert.Equal(t, 100.0, d.Confidence)
}
