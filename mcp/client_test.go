package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteClientInvokeParsesUsage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": `{"action":"hold"}`}},
			},
			"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 40},
		})
	}))
	defer srv.Close()

	c := NewRemoteClient(WithBaseURL(srv.URL), WithModel("test-model"), WithAPIKey("secret"))
	resp, err := c.Invoke(context.Background(), Request{SystemPrompt: "sys", UserPrompt: "usr", MaxTokens: 200})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"hold"}`, resp.Text)
	assert.Equal(t, 120, resp.InputTokens)
	assert.Equal(t, 40, resp.OutputTokens)
}

func TestRemoteClientInvokePropagatesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	c := NewRemoteClient(WithBaseURL(srv.URL), WithModel("test-model"))
	_, err := c.Invoke(context.Background(), Request{})
	assert.Error(t, err)
}

func TestLocalFuncClientAlwaysErrors(t *testing.T) {
	c := NewLocalFuncClient()
	_, err := c.Invoke(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrNoModelConfigured)
	assert.Equal(t, ProviderLocalFunc, c.Provider())
}

func TestEstimateCostUsesKnownModelPrice(t *testing.T) {
	cost := EstimateCost("gpt-4o-mini", 1000, 1000)
	assert.InDelta(t, 0.00015+0.0006, cost, 1e-9)
}

func TestEstimateCostFallsBackForUnknownModel(t *testing.T) {
	cost := EstimateCost("some-unlisted-model", 1000, 1000)
	assert.InDelta(t, defaultPrice.InputPer1K+defaultPrice.OutputPer1K, cost, 1e-9)
}
