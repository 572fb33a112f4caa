package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryPacesRequests(t *testing.T) {
	l := Every("musicbrainz", 50*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}

	// first token is immediate, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestWaitCancelled(t *testing.T) {
	l := Every("spotify", time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := l.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait for spotify")
}

func TestNilLimiterNeverBlocks(t *testing.T) {
	var l *Limiter
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, l.Wait(ctx))
}
