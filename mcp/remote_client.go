package mcp

import (
	"net/http"
)

// RemoteClient talks to an OpenAI-compatible chat-completions endpoint.
// It embeds the base Client and installs itself as its own hooks, the
// way provider-specific clients layer over the shared transport.
type RemoteClient struct {
	*Client
}

// NewRemoteClient builds a RemoteClient from functional options.
func NewRemoteClient(opts ...ClientOption) *RemoteClient {
	base := NewClient(append([]ClientOption{WithProvider(ProviderOpenAICompatible)}, opts...)...)
	rc := &RemoteClient{Client: base}
	base.hooks = rc
	return rc
}

func (rc *RemoteClient) setAuthHeader(h http.Header) { rc.Client.setAuthHeader(h) }
func (rc *RemoteClient) buildURL(base string) string { return rc.Client.buildURL(base) }
func (rc *RemoteClient) buildRequestBody(req Request) map[string]any {
	return rc.Client.buildRequestBody(req)
}

// parseResponse delegates to the base Client's parser and does no fence
// or commentary stripping itself. Tolerance for a decision payload
// wrapped in markdown code fences or surrounded by commentary happens one
// layer up in decision.parseModelDecision, since that is where the
// JSON-shaped decision text is extracted.
func (rc *RemoteClient) parseResponse(body []byte) (Response, error) {
	return rc.Client.parseResponse(body)
}
