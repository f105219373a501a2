package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xrparena/mcp"
)

type fakeClient struct {
	resp mcp.Response
	err  error
}

func (f *fakeClient) Provider() string { return mcp.ProviderOpenAICompatible }
func (f *fakeClient) Invoke(ctx context.Context, req mcp.Request) (mcp.Response, error) {
	return f.resp, f.err
}

func TestGenerateArchetypeProducesRequestedCount(t *testing.T) {
	r, err := GenerateArchetype(4, nil, 10, 8, 1)
	require.NoError(t, err)
	assert.Len(t, r.Agents, 4)
	for _, a := range r.Agents {
		assert.Equal(t, 10, a.Strategy.Leverage)
		w := a.Strategy.TimeframeWeights
		assert.InDelta(t, 100, w.D1+w.H4+w.H1+w.M15+w.M5, 0.01)
	}
}

func TestGenerateArchetypeRejectsOutOfRangeCount(t *testing.T) {
	_, err := GenerateArchetype(1, nil, 10, 8, 1)
	assert.Error(t, err)
	_, err = GenerateArchetype(9, nil, 10, 8, 1)
	assert.Error(t, err)
}

func TestGenerateArchetypeRestrictsToRequestedIDs(t *testing.T) {
	r, err := GenerateArchetype(2, []string{"scalper"}, 10, 8, 1)
	require.NoError(t, err)
	for _, a := range r.Agents {
		assert.Equal(t, "Scalper", a.Name)
	}
}

func TestGenerateModelParsesMarkdownFencedReply(t *testing.T) {
	client := &fakeClient{resp: mcp.Response{
		Text: "```json\n" + `{"theme":"Cyberpunk Traders","master_commentary":"Let the games begin.","agents":[{"name":"Neon","personality":"bold","strategy":{"leverage":5},"commentary":{"on_entry":"Lighting it up."}}]}` + "\n```",
		InputTokens: 50, OutputTokens: 20,
	}}
	r, err := GenerateModel(context.Background(), client, "gpt-4o-mini", 1, 8, 10, "")
	require.NoError(t, err)
	assert.Equal(t, "Cyberpunk Traders", r.Theme)
	require.Len(t, r.Agents, 1)
	assert.Equal(t, "Neon", r.Agents[0].Name)
	assert.Equal(t, 10, r.Agents[0].Strategy.Leverage, "session leverage always wins over model suggestion")
	assert.Greater(t, r.EstimatedCostUSD, 0.0)
}

func TestGenerateModelRejectsEmptyAgentList(t *testing.T) {
	client := &fakeClient{resp: mcp.Response{Text: `{"theme":"x","agents":[]}`}}
	_, err := GenerateModel(context.Background(), client, "gpt-4o-mini", 1, 8, 10, "")
	assert.Error(t, err)
}
