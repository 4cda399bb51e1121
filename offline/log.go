package offline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"uamvh.cloud/escolar/infrastructure/logging"
	"uamvh.cloud/escolar/store"
	"uamvh.cloud/escolar/utils"
)

// ActionLog is the durable queue of mutations waiting to reach the server.
type ActionLog struct {
	store  store.Store
	logger *zap.Logger
	mu     sync.Mutex
}

func NewActionLog(s store.Store, logger *zap.Logger) *ActionLog {
	return &ActionLog{store: s, logger: logging.OrNop(logger).Named("actionlog")}
}

func (l *ActionLog) load(ctx context.Context, key string) ([]Action, error) {
	actions, err := store.Load[[]Action](ctx, l.store, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return actions, nil
}

func (l *ActionLog) update(ctx context.Context, key string, fn func([]Action) []Action) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	actions, err := l.load(ctx, key)
	if err != nil {
		return err
	}
	next := fn(actions)
	if len(next) == 0 {
		return l.store.Delete(ctx, key)
	}
	return l.store.Put(ctx, key, next)
}

// Save appends an action. Saving an id already in the queue is a no-op.
func (l *ActionLog) Save(ctx context.Context, a Action) error {
	return l.update(ctx, store.KeyOfflineActions, func(actions []Action) []Action {
		for _, existing := range actions {
			if existing.ID == a.ID {
				return actions
			}
		}
		l.logger.Debug("action queued",
			zap.String("id", a.ID),
			zap.String("type", string(a.Type)),
			zap.String("action", string(a.Action)),
			zap.String("entity", a.EntityID))
		return append(actions, a)
	})
}

func (l *ActionLog) List(ctx context.Context) ([]Action, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx, store.KeyOfflineActions)
}

func (l *ActionLog) Len(ctx context.Context) (int, error) {
	actions, err := l.List(ctx)
	return len(actions), err
}

// Pending reports whether any queued action targets the entity.
func (l *ActionLog) Pending(ctx context.Context, t EntityType, entityID string) (bool, error) {
	if entityID == "" {
		return false, nil
	}
	actions, err := l.List(ctx)
	if err != nil {
		return false, err
	}
	found := utils.Find(actions, func(a Action) bool { return a.Type == t && a.EntityID == entityID })
	return found != nil, nil
}

// QueuedCreate reports whether the create of a pending entity is still in
// the queue.
func (l *ActionLog) QueuedCreate(ctx context.Context, t EntityType, clientID string) (bool, error) {
	actions, err := l.List(ctx)
	if err != nil {
		return false, err
	}
	found := utils.Find(actions, func(a Action) bool {
		return a.Type == t && a.Action == KindCreate && a.EntityID == clientID
	})
	return found != nil, nil
}

// PendingOf returns the queued actions for one entity type, oldest first.
func (l *ActionLog) PendingOf(ctx context.Context, t EntityType) ([]Action, error) {
	actions, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	return utils.Filter(actions, func(a Action) bool { return a.Type == t }), nil
}

func (l *ActionLog) Remove(ctx context.Context, ids ...string) error {
	drop := map[string]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	return l.update(ctx, store.KeyOfflineActions, func(actions []Action) []Action {
		kept := actions[:0]
		for _, a := range actions {
			if !drop[a.ID] {
				kept = append(kept, a)
			}
		}
		return kept
	})
}

func (l *ActionLog) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Delete(ctx, store.KeyOfflineActions)
}

func (l *ActionLog) DeadLetters(ctx context.Context) ([]Action, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx, store.KeyOfflineDeadLetters)
}

func (l *ActionLog) deadLetter(ctx context.Context, dead []Action) error {
	if len(dead) == 0 {
		return nil
	}
	return l.update(ctx, store.KeyOfflineDeadLetters, func(actions []Action) []Action {
		return append(actions, dead...)
	})
}

// Requeue moves dead letters back to the end of the queue with a fresh
// retry budget. With no ids every dead letter is requeued. Actions are
// queued before they leave the dead letters, so a failed write never loses
// them.
func (l *ActionLog) Requeue(ctx context.Context, ids ...string) (int, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}

	dead, err := l.DeadLetters(ctx)
	if err != nil {
		return 0, err
	}
	moved := map[string]bool{}
	for _, a := range dead {
		if len(want) > 0 && !want[a.ID] {
			continue
		}
		a.Attempts = 0
		a.LastError = ""
		if err := l.Save(ctx, a); err != nil {
			return 0, err
		}
		moved[a.ID] = true
	}
	if len(moved) == 0 {
		return 0, nil
	}

	err = l.update(ctx, store.KeyOfflineDeadLetters, func(actions []Action) []Action {
		return utils.Filter(actions, func(a Action) bool { return !moved[a.ID] })
	})
	if err != nil {
		return 0, err
	}
	return len(moved), nil
}
