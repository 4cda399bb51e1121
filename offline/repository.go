package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"uamvh.cloud/escolar/store"
)

// DefaultFetchLimit is the page size of a full list download.
const DefaultFetchLimit = 1000

type Page struct {
	Limit  int `form:"limit" json:"limit"`
	Offset int `form:"offset" json:"offset"`
}

// Paginate slices items the way the server would.
func Paginate[T any](items []T, p Page) []T {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if p.Limit > 0 && p.Offset+p.Limit < end {
		end = p.Offset + p.Limit
	}
	return items[p.Offset:end]
}

type RepositoryConfig[T any] struct {
	Type       EntityType
	Key        string
	Messages   Messages
	Resource   *Resource[T]
	SetID      func(*T, int64)
	FetchLimit int
}

// Repository is the offline-aware access path for one entity list.
type Repository[T any] struct {
	cfg     RepositoryConfig[T]
	gateway *Gateway
	mirror  *Mirror[T]
}

func NewRepository[T any](gw *Gateway, s store.Store, cfg RepositoryConfig[T]) *Repository[T] {
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = DefaultFetchLimit
	}
	return &Repository[T]{
		cfg:     cfg,
		gateway: gw,
		mirror:  NewMirror[T](s, cfg.Key, cfg.SetID),
	}
}

func (r *Repository[T]) Type() EntityType { return r.cfg.Type }

func (r *Repository[T]) Create(ctx context.Context, item T) (Record[T], Outcome, error) {
	if err := r.gateway.Validate(ctx, item); err != nil {
		return Record[T]{}, "", err
	}

	rec := Record[T]{Ref: NewPendingRef(), Item: item}
	outcome, err := r.gateway.Mutate(ctx, Mutation{
		Type:     r.cfg.Type,
		Kind:     KindCreate,
		EntityID: rec.Ref.ClientID,
		Data:     item,
		Messages: r.cfg.Messages,
		Online: func(ctx context.Context) error {
			created, err := r.cfg.Resource.CreateFn(ctx, &item)
			if err != nil {
				return err
			}
			if created != nil {
				rec = Record[T]{Ref: ServerRef(r.cfg.Resource.ID(*created)), Item: *created}
			}
			return nil
		},
		Local: func(ctx context.Context) error {
			return r.mirror.Add(ctx, rec)
		},
		Refresh: r.Refresh,
	})
	return rec, outcome, err
}

// Update applies a partial change to the entity named by key.
func (r *Repository[T]) Update(ctx context.Context, key string, patch any) (Outcome, error) {
	raw, err := encodePatch(patch)
	if err != nil {
		return "", err
	}

	cached, err := r.resolve(ctx, key)
	if err != nil {
		return "", err
	}
	if cached != nil {
		merged, err := MergePatch(cached.Item, raw)
		if err != nil {
			return "", err
		}
		if err := r.gateway.Validate(ctx, merged); err != nil {
			return "", err
		}
		key = cached.Key()
	}

	ref := ParseRef(key)
	return r.gateway.Mutate(ctx, Mutation{
		Type:     r.cfg.Type,
		Kind:     KindUpdate,
		EntityID: key,
		Data:     raw,
		Messages: r.cfg.Messages,
		Online: r.onlineOnly(ref, func(ctx context.Context, id int64) error {
			_, err := r.cfg.Resource.UpdateFn(ctx, id, raw)
			return err
		}),
		Local: func(ctx context.Context) error {
			return r.mirror.Patch(ctx, key, raw)
		},
		Refresh: r.Refresh,
	})
}

func (r *Repository[T]) Delete(ctx context.Context, key string) (Outcome, error) {
	cached, err := r.resolve(ctx, key)
	if err != nil {
		return "", err
	}
	if cached != nil {
		key = cached.Key()
	}

	ref := ParseRef(key)
	return r.gateway.Mutate(ctx, Mutation{
		Type:     r.cfg.Type,
		Kind:     KindDelete,
		EntityID: key,
		Messages: r.cfg.Messages,
		Online:   r.onlineOnly(ref, r.cfg.Resource.DeleteFn),
		Local: func(ctx context.Context) error {
			return r.mirror.Remove(ctx, key)
		},
		Refresh: r.Refresh,
	})
}

// resolve finds the cached record named by key. A server id missing from
// the cache is left for the server to judge; a client id must belong to a
// cached record or to a create still in the queue.
func (r *Repository[T]) resolve(ctx context.Context, key string) (*Record[T], error) {
	cached, err := r.mirror.Get(ctx, key)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if !ParseRef(key).Pending() {
		return nil, nil
	}
	queued, err := r.gateway.Log().QueuedCreate(ctx, r.cfg.Type, key)
	if err != nil {
		return nil, err
	}
	if !queued {
		return nil, fmt.Errorf("%s %s: %w", r.cfg.Type, key, ErrNotFound)
	}
	return nil, nil
}

// onlineOnly returns nil for entities the server has not assigned an id
// yet, which forces the write into the queue behind their create.
func (r *Repository[T]) onlineOnly(ref Ref, fn func(context.Context, int64) error) func(context.Context) error {
	if ref.Pending() {
		return nil
	}
	return func(ctx context.Context) error {
		return fn(ctx, ref.ServerID)
	}
}

// List serves one page: from the server when it answers (refreshing the
// cache), otherwise from the cache.
func (r *Repository[T]) List(ctx context.Context, p Page) ([]Record[T], int, error) {
	if r.gateway.Tracker().Reachable(ctx) {
		if err := r.Refresh(ctx); err != nil {
			r.gateway.Logger().Warn("list from server failed, using cache",
				zap.String("type", string(r.cfg.Type)), zap.Error(err))
		}
	}

	records, err := r.mirror.List(ctx)
	if err != nil {
		return nil, 0, err
	}
	return Paginate(records, p), len(records), nil
}

// Cached returns the local list without contacting the server.
func (r *Repository[T]) Cached(ctx context.Context) ([]Record[T], error) {
	return r.mirror.List(ctx)
}

func (r *Repository[T]) Get(ctx context.Context, key string) (Record[T], error) {
	return r.mirror.Get(ctx, key)
}

// Refresh replaces the cache with the server list, then replays the
// actions still queued for this entity over it.
func (r *Repository[T]) Refresh(ctx context.Context) error {
	items, err := r.cfg.Resource.List(ctx, r.cfg.FetchLimit)
	if err != nil {
		return fmt.Errorf("fetch %s list: %w", r.cfg.Type, err)
	}

	// keep client ids of synced entities so old keys keep resolving
	clientIDs := map[int64]string{}
	if cached, err := r.mirror.List(ctx); err == nil {
		for _, rec := range cached {
			if rec.Ref.ServerID != 0 && rec.Ref.ClientID != "" {
				clientIDs[rec.Ref.ServerID] = rec.Ref.ClientID
			}
		}
	}

	records := make([]Record[T], 0, len(items))
	for _, item := range items {
		id := r.cfg.Resource.ID(item)
		records = append(records, Record[T]{Ref: Ref{ClientID: clientIDs[id], ServerID: id}, Item: item})
	}

	pending, err := r.gateway.Log().PendingOf(ctx, r.cfg.Type)
	if err != nil {
		return err
	}
	records = r.overlay(records, pending)

	return r.mirror.Replace(ctx, records)
}

func (r *Repository[T]) overlay(records []Record[T], pending []Action) []Record[T] {
	for _, a := range pending {
		switch a.Action {
		case KindCreate:
			var item T
			if err := json.Unmarshal(a.Data, &item); err != nil {
				r.gateway.Logger().Warn("skipping undecodable queued create", zap.String("id", a.ID), zap.Error(err))
				continue
			}
			records = append(records, Record[T]{Ref: ParseRef(a.EntityID), Item: item})
		case KindUpdate:
			if next, err := patchRecords(records, a.EntityID, a.Data); err == nil {
				records = next
			}
		case KindDelete:
			records = removeRecord(records, a.EntityID)
		}
	}
	return records
}

// Reconcile implements Reconciler.
func (r *Repository[T]) Reconcile(ctx context.Context, a Action, serverID int64, _ bool) error {
	if a.Type != r.cfg.Type || a.Action != KindCreate || serverID == 0 {
		return nil
	}
	return r.mirror.Confirm(ctx, a.EntityID, serverID)
}

// Discard implements Discarder. A rejected create never gets a server
// record, so its pending entry goes; rejected updates and deletes are
// undone by the refresh that follows the pass.
func (r *Repository[T]) Discard(ctx context.Context, a Action) error {
	if a.Type != r.cfg.Type || a.Action != KindCreate || !ParseRef(a.EntityID).Pending() {
		return nil
	}
	return r.mirror.Remove(ctx, a.EntityID)
}

func encodePatch(patch any) (json.RawMessage, error) {
	if raw, ok := patch.(json.RawMessage); ok {
		return raw, nil
	}
	raw, err := json.Marshal(patch)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	return raw, nil
}
