package offline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubPinger struct{ err error }

func (s *stubPinger) Ping(context.Context) error { return s.err }

func TestTracker(t *testing.T) {
	ctx := context.Background()
	pinger := &stubPinger{}
	tracker := NewTracker(pinger, 0, nil)

	reconnects := 0
	tracker.OnReconnect(func(context.Context) { reconnects++ })

	assert.True(t, tracker.Reachable(ctx))

	pinger.err = errors.New("connection refused")
	assert.True(t, tracker.IsOnline())
	assert.False(t, tracker.Reachable(ctx))

	pinger.err = nil
	tracker.SetOnline(ctx, false)
	assert.False(t, tracker.Reachable(ctx))
	tracker.SetOnline(ctx, false)
	tracker.SetOnline(ctx, true)
	tracker.SetOnline(ctx, true)
	assert.Equal(t, 1, reconnects)
	assert.True(t, tracker.Reachable(ctx))

	assert.False(t, NewTracker(nil, 0, nil).CheckServer(ctx))
}
