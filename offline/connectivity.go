package offline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"uamvh.cloud/escolar/infrastructure/logging"
)

// Pinger checks that the API answers authenticated requests.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Tracker combines the coarse network flag with a server ping. Every
// write path asks Reachable before talking to the API.
type Tracker struct {
	pinger      Pinger
	pingTimeout time.Duration
	logger      *zap.Logger

	online atomic.Bool

	mu          sync.Mutex
	onReconnect []func(context.Context)
}

func NewTracker(pinger Pinger, pingTimeout time.Duration, logger *zap.Logger) *Tracker {
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}
	t := &Tracker{
		pinger:      pinger,
		pingTimeout: pingTimeout,
		logger:      logging.OrNop(logger).Named("connectivity"),
	}
	t.online.Store(true)
	return t
}

func (t *Tracker) IsOnline() bool {
	return t.online.Load()
}

// SetOnline records a network change. Going from offline to online runs
// the reconnect callbacks before returning.
func (t *Tracker) SetOnline(ctx context.Context, online bool) {
	was := t.online.Swap(online)
	if online && !was {
		t.logger.Info("connection restored")
		t.fireReconnect(ctx)
	} else if !online && was {
		t.logger.Info("connection lost")
	}
}

// OnReconnect registers fn to run on every offline to online transition.
func (t *Tracker) OnReconnect(fn func(context.Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReconnect = append(t.onReconnect, fn)
}

func (t *Tracker) fireReconnect(ctx context.Context) {
	t.mu.Lock()
	callbacks := append([]func(context.Context){}, t.onReconnect...)
	t.mu.Unlock()
	for _, fn := range callbacks {
		fn(ctx)
	}
}

// CheckServer pings the API. Any error counts as unreachable.
func (t *Tracker) CheckServer(ctx context.Context) bool {
	if t.pinger == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, t.pingTimeout)
	defer cancel()
	if err := t.pinger.Ping(ctx); err != nil {
		t.logger.Debug("server not available", zap.Error(err))
		return false
	}
	return true
}

func (t *Tracker) Reachable(ctx context.Context) bool {
	return t.IsOnline() && t.CheckServer(ctx)
}

// Watch pings the server every interval and drives the online flag from
// the result until ctx is done.
func (t *Tracker) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.SetOnline(ctx, t.CheckServer(ctx))
		}
	}
}
