package offline

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/escolar/v1/common/attend"
	"uamvh.cloud/escolar/store"
	"uamvh.cloud/escolar/utils"
)

// AttendanceRetention is how long synced attendance stays in the cache.
const AttendanceRetention = 30 * 24 * time.Hour

type AttendanceRecord struct {
	ID                   int64         `json:"id,omitempty"`
	CourseGroupStudentID int64         `json:"courseGroupStudentId"`
	Date                 string        `json:"date"`
	Attend               attend.Attend `json:"attend"`
	Partial              int           `json:"partial"`
	IsOffline            bool          `json:"isOffline,omitempty"`
	OfflineID            string        `json:"offlineId,omitempty"`
	Timestamp            int64         `json:"timestamp,omitempty"`
}

func (r AttendanceRecord) Key() string {
	if r.ID > 0 {
		return strconv.FormatInt(r.ID, 10)
	}
	return r.OfflineID
}

func (r AttendanceRecord) Matches(key string) bool {
	return key != "" && (key == r.Key() || key == r.OfflineID)
}

func (r AttendanceRecord) DTO() common.AttendanceDTO {
	return common.AttendanceDTO{
		ID:                   r.ID,
		CourseGroupStudentID: r.CourseGroupStudentID,
		Date:                 r.Date,
		Attend:               r.Attend,
		Partial:              r.Partial,
	}
}

func (r AttendanceRecord) sameSlot(o AttendanceRecord) bool {
	return r.CourseGroupStudentID == o.CourseGroupStudentID && r.Date == o.Date && r.Partial == o.Partial
}

// AttendanceStore records attendance with the offline fallback. A student
// has at most one record per date and partial.
type AttendanceStore struct {
	gateway *Gateway
	store   store.Store
	api     *Resource[common.AttendanceDTO]
	now     func() time.Time
	mu      sync.Mutex
}

func NewAttendanceStore(gw *Gateway, s store.Store, api *Resource[common.AttendanceDTO]) *AttendanceStore {
	return &AttendanceStore{gateway: gw, store: s, api: api, now: utils.SchoolNow}
}

var attendanceMessages = Messages{
	Created:        "Asistencia guardada exitosamente",
	Updated:        "Asistencia actualizada exitosamente",
	Deleted:        "Asistencia eliminada exitosamente",
	CreatedOffline: "Asistencia guardada offline. Se sincronizará cuando haya conexión.",
	UpdatedOffline: "Actualización guardada offline. Se sincronizará cuando haya conexión.",
	DeletedOffline: "Eliminación guardada offline. Se sincronizará cuando haya conexión.",
	Failed:         "No se pudo guardar la asistencia",
}

func (a *AttendanceStore) List(ctx context.Context) ([]AttendanceRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return store.Load[[]AttendanceRecord](ctx, a.store, store.KeyOfflineAttendances)
}

func (a *AttendanceStore) update(ctx context.Context, fn func([]AttendanceRecord) []AttendanceRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	records, err := store.Load[[]AttendanceRecord](ctx, a.store, store.KeyOfflineAttendances)
	if err != nil {
		return err
	}
	return a.store.Put(ctx, store.KeyOfflineAttendances, fn(records))
}

func (a *AttendanceStore) upsert(ctx context.Context, rec AttendanceRecord) error {
	return a.update(ctx, func(records []AttendanceRecord) []AttendanceRecord {
		for i := range records {
			if records[i].sameSlot(rec) {
				records[i] = rec
				return records
			}
		}
		return append(records, rec)
	})
}

func (a *AttendanceStore) find(ctx context.Context, match func(AttendanceRecord) bool) (*AttendanceRecord, error) {
	records, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if match(records[i]) {
			return &records[i], nil
		}
	}
	return nil, nil
}

// Save records the attendance of one student for a date and partial,
// replacing any earlier mark for the same slot.
func (a *AttendanceStore) Save(ctx context.Context, dto common.AttendanceDTO) (AttendanceRecord, Outcome, error) {
	if err := a.gateway.Validate(ctx, dto); err != nil {
		return AttendanceRecord{}, "", err
	}

	rec := AttendanceRecord{
		ID:                   dto.ID,
		CourseGroupStudentID: dto.CourseGroupStudentID,
		Date:                 dto.Date,
		Attend:               dto.Attend,
		Partial:              dto.Partial,
		Timestamp:            a.now().UnixMilli(),
	}

	existing, err := a.find(ctx, rec.sameSlot)
	if err != nil {
		return rec, "", err
	}

	kind := KindCreate
	switch {
	case rec.ID == 0 && existing != nil && existing.ID > 0:
		rec.ID = existing.ID
		kind = KindUpdate
	case rec.ID > 0:
		kind = KindUpdate
	case existing != nil && existing.OfflineID != "":
		rec.OfflineID = existing.OfflineID
		kind = KindUpdate
	default:
		rec.OfflineID = NewClientID()
	}
	if existing != nil && rec.OfflineID == "" {
		rec.OfflineID = existing.OfflineID
	}
	dto = rec.DTO()

	var online func(context.Context) error
	switch {
	case kind == KindCreate:
		online = func(ctx context.Context) error {
			created, err := a.api.CreateFn(ctx, &dto)
			if err != nil {
				return err
			}
			if created != nil {
				rec.ID = created.ID
			}
			return nil
		}
	case rec.ID > 0:
		online = func(ctx context.Context) error {
			_, err := a.api.UpdateFn(ctx, rec.ID, dto)
			return err
		}
	}

	entityID := rec.Key()
	if kind == KindCreate {
		entityID = rec.OfflineID
	}

	outcome, err := a.gateway.Mutate(ctx, Mutation{
		Type:     EntityAttendance,
		Kind:     kind,
		EntityID: entityID,
		Data:     dto,
		Messages: attendanceMessages,
		Online:   online,
		Local: func(ctx context.Context) error {
			rec.IsOffline = true
			return a.upsert(ctx, rec)
		},
		Refresh: func(ctx context.Context) error {
			return a.upsert(ctx, rec)
		},
	})
	return rec, outcome, err
}

// Update changes fields of the record named by key.
func (a *AttendanceStore) Update(ctx context.Context, key string, patch any) (Outcome, error) {
	existing, err := a.find(ctx, func(r AttendanceRecord) bool { return r.Matches(key) })
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", fmt.Errorf("attendance %s: %w", key, ErrNotFound)
	}

	raw, err := encodePatch(patch)
	if err != nil {
		return "", err
	}
	merged, err := MergePatch(*existing, raw)
	if err != nil {
		return "", err
	}
	if err := a.gateway.Validate(ctx, merged.DTO()); err != nil {
		return "", err
	}
	merged.Timestamp = a.now().UnixMilli()
	dto := merged.DTO()

	var online func(context.Context) error
	if merged.ID > 0 {
		online = func(ctx context.Context) error {
			_, err := a.api.UpdateFn(ctx, merged.ID, dto)
			return err
		}
	}

	return a.gateway.Mutate(ctx, Mutation{
		Type:     EntityAttendance,
		Kind:     KindUpdate,
		EntityID: existing.Key(),
		Data:     dto,
		Messages: attendanceMessages,
		Online:   online,
		Local: func(ctx context.Context) error {
			merged.IsOffline = true
			return a.replace(ctx, key, merged)
		},
		Refresh: func(ctx context.Context) error {
			return a.replace(ctx, key, merged)
		},
	})
}

func (a *AttendanceStore) replace(ctx context.Context, key string, rec AttendanceRecord) error {
	return a.update(ctx, func(records []AttendanceRecord) []AttendanceRecord {
		for i := range records {
			if records[i].Matches(key) {
				records[i] = rec
			}
		}
		return records
	})
}

func (a *AttendanceStore) Delete(ctx context.Context, key string) (Outcome, error) {
	existing, err := a.find(ctx, func(r AttendanceRecord) bool { return r.Matches(key) })
	if err != nil {
		return "", err
	}
	if existing == nil {
		return "", fmt.Errorf("attendance %s: %w", key, ErrNotFound)
	}

	var online func(context.Context) error
	if existing.ID > 0 {
		id := existing.ID
		online = func(ctx context.Context) error {
			return a.api.DeleteFn(ctx, id)
		}
	}

	remove := func(ctx context.Context) error {
		return a.update(ctx, func(records []AttendanceRecord) []AttendanceRecord {
			kept := records[:0]
			for _, r := range records {
				if !r.Matches(key) {
					kept = append(kept, r)
				}
			}
			return kept
		})
	}

	return a.gateway.Mutate(ctx, Mutation{
		Type:     EntityAttendance,
		Kind:     KindDelete,
		EntityID: existing.Key(),
		Data:     existing.DTO(),
		Messages: attendanceMessages,
		Online:   online,
		Local:    remove,
		Refresh:  remove,
	})
}

func (a *AttendanceStore) filter(ctx context.Context, keep func(AttendanceRecord) bool) ([]AttendanceRecord, error) {
	records, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	return utils.Filter(records, keep), nil
}

// Find returns the records taken on a date for a partial.
func (a *AttendanceStore) Find(ctx context.Context, date string, partial int) ([]AttendanceRecord, error) {
	return a.filter(ctx, func(r AttendanceRecord) bool {
		return r.CourseGroupStudentID != 0 && r.Date == date && r.Partial == partial
	})
}

// ByStudents returns the records of the given course group students.
func (a *AttendanceStore) ByStudents(ctx context.Context, courseGroupStudentIDs []int64) ([]AttendanceRecord, error) {
	want := map[int64]bool{}
	for _, id := range courseGroupStudentIDs {
		want[id] = true
	}
	return a.filter(ctx, func(r AttendanceRecord) bool { return want[r.CourseGroupStudentID] })
}

// Pending returns the records that have not reached the server.
func (a *AttendanceStore) Pending(ctx context.Context) ([]AttendanceRecord, error) {
	return a.filter(ctx, func(r AttendanceRecord) bool { return r.IsOffline })
}

// Sweep drops synced records older than the retention window. Records
// still waiting to sync are kept.
func (a *AttendanceStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-AttendanceRetention).UnixMilli()
	removed := 0
	err := a.update(ctx, func(records []AttendanceRecord) []AttendanceRecord {
		kept := records[:0]
		for _, r := range records {
			if r.IsOffline || r.Timestamp > cutoff {
				kept = append(kept, r)
				continue
			}
			removed++
		}
		return kept
	})
	return removed, err
}

// RunSweeper sweeps once a day until ctx is done.
func (a *AttendanceStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Sweep(ctx, a.now())
			if err != nil {
				a.gateway.Logger().Warn("attendance sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				a.gateway.Logger().Info("old offline attendance removed", zap.Int("count", n))
			}
		}
	}
}

// Reconcile implements Reconciler.
func (a *AttendanceStore) Reconcile(ctx context.Context, action Action, serverID int64, settled bool) error {
	if action.Type != EntityAttendance || action.Action == KindDelete {
		return nil
	}
	return a.update(ctx, func(records []AttendanceRecord) []AttendanceRecord {
		for i := range records {
			match := records[i].Matches(action.EntityID) || (serverID > 0 && records[i].ID == serverID)
			if !match {
				continue
			}
			if serverID > 0 {
				records[i].ID = serverID
			}
			if settled {
				records[i].IsOffline = false
			}
		}
		return records
	})
}

// Discard implements Discarder. A record whose create was rejected never
// existed on the server and is dropped. A rejected update keeps the local
// values but stops counting as pending, so the sweep can retire it.
func (a *AttendanceStore) Discard(ctx context.Context, action Action) error {
	if action.Type != EntityAttendance || action.Action == KindDelete {
		return nil
	}
	return a.update(ctx, func(records []AttendanceRecord) []AttendanceRecord {
		kept := records[:0]
		for _, r := range records {
			if r.Matches(action.EntityID) {
				if action.Action == KindCreate && r.ID == 0 {
					continue
				}
				r.IsOffline = false
			}
			kept = append(kept, r)
		}
		return kept
	})
}
