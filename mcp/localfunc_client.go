package mcp

import (
	"context"
	"errors"
)

// ErrNoModelConfigured is returned by LocalFuncClient.Invoke. It exists
// so callers can treat "no model wired up" the same way they treat any
// other tier-2 failure: fall through to the tier-3 deterministic
// fallback, per spec.md §4.5.
var ErrNoModelConfigured = errors.New("mcp: no model configured for this session")

// LocalFuncClient is the no-op AIClient used when a session runs
// without a language model. It satisfies AIClient so callers never need
// a nil check, only an error check.
type LocalFuncClient struct{}

func NewLocalFuncClient() *LocalFuncClient { return &LocalFuncClient{} }

func (l *LocalFuncClient) Provider() string { return ProviderLocalFunc }

func (l *LocalFuncClient) Invoke(ctx context.Context, req Request) (Response, error) {
	return Response{}, ErrNoModelConfigured
}
