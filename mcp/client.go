// Package mcp is the language-model invocation abstraction of spec.md
// §6: invoke(model_id, system_prompt, user_prompt, max_tokens) ->
// {text, input_tokens, output_tokens} or error. Multiple providers share
// one base Client and override just the request/response shaping via a
// small hooks interface, the way the source project layers
// provider-specific clients over a common transport.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	ProviderOpenAICompatible = "openai-compatible"
	ProviderLocalFunc        = "localfunc"
)

// Request is the invocation spec.md §6 describes.
type Request struct {
	ModelID      string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// Response is the invocation result spec.md §6 describes.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// AIClient is implemented by every provider client.
type AIClient interface {
	Invoke(ctx context.Context, req Request) (Response, error)
	Provider() string
}

// hooks lets a provider-specific client override request/response
// shaping without reimplementing transport.
type hooks interface {
	setAuthHeader(h http.Header)
	buildURL(base string) string
	buildRequestBody(req Request) map[string]any
	parseResponse(body []byte) (Response, error)
}

// Client is the shared base: HTTP transport, option-configured identity,
// and hook-based dispatch for provider quirks.
type Client struct {
	provider string
	Model    string
	BaseURL  string
	APIKey   string

	httpClient *http.Client
	logger     zerolog.Logger
	hooks      hooks
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

func WithProvider(provider string) ClientOption { return func(c *Client) { c.provider = provider } }
func WithModel(model string) ClientOption       { return func(c *Client) { c.Model = model } }
func WithBaseURL(url string) ClientOption       { return func(c *Client) { c.BaseURL = url } }
func WithAPIKey(key string) ClientOption        { return func(c *Client) { c.APIKey = key } }

// NewClient builds the base client and wires its own default hooks
// (standard OpenAI-compatible chat-completions shape). Provider
// constructors wrap this and override baseClient.hooks with themselves.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		provider:   ProviderOpenAICompatible,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     log.With().Str("component", "mcp").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.hooks = c
	return c
}

func (c *Client) Provider() string { return c.provider }

func (c *Client) setAuthHeader(h http.Header) {
	if c.APIKey != "" {
		h.Set("Authorization", "Bearer "+c.APIKey)
	}
}

func (c *Client) buildURL(base string) string {
	return base + "/chat/completions"
}

func (c *Client) buildRequestBody(req Request) map[string]any {
	model := req.ModelID
	if model == "" {
		model = c.Model
	}
	return map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": req.SystemPrompt},
			{"role": "user", "content": req.UserPrompt},
		},
		"max_tokens": req.MaxTokens,
	}
}

func (c *Client) parseResponse(body []byte) (Response, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fmt.Errorf("mcp: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("mcp: empty choices in response")
	}
	return Response{
		Text:         parsed.Choices[0].Message.Content,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}, nil
}

// Invoke performs one model call. The core never retries within a tick
// (spec.md §6); callers that want a retry must invoke again on a
// subsequent tick.
func (c *Client) Invoke(ctx context.Context, req Request) (Response, error) {
	url := c.hooks.buildURL(c.BaseURL)
	bodyMap := c.hooks.buildRequestBody(req)
	payload, err := json.Marshal(bodyMap)
	if err != nil {
		return Response{}, fmt.Errorf("mcp: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("mcp: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.hooks.setAuthHeader(httpReq.Header)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("mcp: transport: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("mcp: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Response{}, fmt.Errorf("mcp: provider returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return c.hooks.parseResponse(respBody)
}
