package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{ Source }

func (failingSource) FetchCandles(context.Context, string, int, int) ([]Candle, error) {
	return nil, errors.New("boom")
}
func (failingSource) FetchTicker(context.Context, string) (Ticker, error) {
	return Ticker{}, errors.New("boom")
}

func TestCacheFetchSharesIdenticalSnapshot(t *testing.T) {
	c := New("XRPEUR", "", NewSyntheticSource(1, 0.6, 0.002, 0))
	snap1, err := c.Fetch(context.Background(), true)
	require.NoError(t, err)
	snap2, err := c.Fetch(context.Background(), false)
	require.NoError(t, err)
	assert.Same(t, snap1, snap2)
}

func TestCacheFetchRetainsPreviousSnapshotOnFailure(t *testing.T) {
	c := New("XRPEUR", "", NewSyntheticSource(1, 0.6, 0.002, 0))
	snap1, err := c.Fetch(context.Background(), true)
	require.NoError(t, err)

	c.source = failingSource{}
	_, err = c.Fetch(context.Background(), true)
	assert.Error(t, err)
	assert.Same(t, snap1, c.Peek())
}

func TestCacheFetchRespectsRefreshInterval(t *testing.T) {
	c := New("XRPEUR", "", NewSyntheticSource(1, 0.6, 0.002, 0))
	c.refreshInterval = time.Hour
	snap1, err := c.Fetch(context.Background(), true)
	require.NoError(t, err)
	snap2, err := c.Fetch(context.Background(), false)
	require.NoError(t, err)
	assert.Same(t, snap1, snap2)
}

func TestPeekReturnsNilBeforeFirstFetch(t *testing.T) {
	c := New("XRPEUR", "", NewSyntheticSource(1, 0.6, 0.002, 0))
	assert.Nil(t, c.Peek())
}
