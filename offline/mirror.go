package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"uamvh.cloud/escolar/store"
)

// Record is one cached entity with its identity.
type Record[T any] struct {
	Ref  Ref `json:"ref"`
	Item T   `json:"item"`
}

func (r Record[T]) Key() string {
	return r.Ref.Key()
}

// Mirror is the local copy of one entity list.
type Mirror[T any] struct {
	store store.Store
	key   string
	setID func(*T, int64)
	mu    sync.Mutex
}

func NewMirror[T any](s store.Store, key string, setID func(*T, int64)) *Mirror[T] {
	return &Mirror[T]{store: s, key: key, setID: setID}
}

func (m *Mirror[T]) load(ctx context.Context) ([]Record[T], error) {
	records, err := store.Load[[]Record[T]](ctx, m.store, m.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", m.key, err)
	}
	return records, nil
}

func (m *Mirror[T]) update(ctx context.Context, fn func([]Record[T]) ([]Record[T], error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.load(ctx)
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil {
		return err
	}
	if next == nil {
		next = []Record[T]{}
	}
	return m.store.Put(ctx, m.key, next)
}

func (m *Mirror[T]) List(ctx context.Context) ([]Record[T], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

func (m *Mirror[T]) Get(ctx context.Context, key string) (Record[T], error) {
	records, err := m.List(ctx)
	if err != nil {
		return Record[T]{}, err
	}
	for _, r := range records {
		if r.Ref.Matches(key) {
			return r, nil
		}
	}
	return Record[T]{}, fmt.Errorf("%s %s: %w", m.key, key, ErrNotFound)
}

// Replace overwrites the whole list.
func (m *Mirror[T]) Replace(ctx context.Context, records []Record[T]) error {
	return m.update(ctx, func([]Record[T]) ([]Record[T], error) {
		return records, nil
	})
}

func (m *Mirror[T]) Add(ctx context.Context, rec Record[T]) error {
	return m.update(ctx, func(records []Record[T]) ([]Record[T], error) {
		return append(records, rec), nil
	})
}

// Patch merges a JSON object into the entity named by key.
func (m *Mirror[T]) Patch(ctx context.Context, key string, patch json.RawMessage) error {
	return m.update(ctx, func(records []Record[T]) ([]Record[T], error) {
		return patchRecords(records, key, patch)
	})
}

func (m *Mirror[T]) Remove(ctx context.Context, key string) error {
	return m.update(ctx, func(records []Record[T]) ([]Record[T], error) {
		return removeRecord(records, key), nil
	})
}

// Confirm swaps a pending client id for the id the server assigned.
func (m *Mirror[T]) Confirm(ctx context.Context, clientID string, serverID int64) error {
	return m.update(ctx, func(records []Record[T]) ([]Record[T], error) {
		for i := range records {
			if records[i].Ref.ClientID == clientID && records[i].Ref.Pending() {
				records[i].Ref.ServerID = serverID
				if m.setID != nil {
					m.setID(&records[i].Item, serverID)
				}
			}
		}
		return records, nil
	})
}

func patchRecords[T any](records []Record[T], key string, patch json.RawMessage) ([]Record[T], error) {
	for i := range records {
		if !records[i].Ref.Matches(key) {
			continue
		}
		merged, err := MergePatch(records[i].Item, patch)
		if err != nil {
			return nil, err
		}
		records[i].Item = merged
		return records, nil
	}
	return records, fmt.Errorf("%s: %w", key, ErrNotFound)
}

func removeRecord[T any](records []Record[T], key string) []Record[T] {
	kept := records[:0]
	for _, r := range records {
		if !r.Ref.Matches(key) {
			kept = append(kept, r)
		}
	}
	return kept
}

// MergePatch applies a JSON merge patch to item. Null members delete the
// field.
func MergePatch[T any](item T, patch json.RawMessage) (T, error) {
	var out T
	if len(patch) == 0 {
		return item, nil
	}

	base, err := json.Marshal(item)
	if err != nil {
		return out, err
	}
	var doc map[string]any
	if err := json.Unmarshal(base, &doc); err != nil {
		return out, err
	}
	if doc == nil {
		doc = map[string]any{}
	}

	var changes map[string]any
	if err := json.Unmarshal(patch, &changes); err != nil {
		return out, fmt.Errorf("patch must be a JSON object: %w", err)
	}
	for k, v := range changes {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(merged, &out); err != nil {
		return out, err
	}
	return out, nil
}
