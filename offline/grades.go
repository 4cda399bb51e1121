package offline

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/store"
	"uamvh.cloud/escolar/utils"
)

// Pending marks a grade that may not have reached the server.
type Pending struct {
	OfflineID string `json:"offlineId,omitempty"`
	IsOffline bool   `json:"isOffline,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type EvaluationGradeRecord struct {
	common.PartialEvaluationGradeDTO
	Pending
}

type PartialGradeRecord struct {
	common.PartialGradeDTO
	Pending
}

type FinalGradeRecord struct {
	common.FinalGradeDTO
	Pending
}

func entityKey(serverID int64, offlineID string) string {
	if serverID > 0 {
		return strconv.FormatInt(serverID, 10)
	}
	return offlineID
}

func matchesKey(key string, serverID int64, offlineID string) bool {
	return key != "" && (key == entityKey(serverID, offlineID) || key == offlineID)
}

// resolveIdentity decides whether a save creates a new entity or updates
// the one already cached for the same slot.
func resolveIdentity(id, existingID int64, existingOffline string) (Kind, int64, string) {
	if id == 0 && existingID > 0 {
		id = existingID
	}
	switch {
	case id > 0:
		return KindUpdate, id, existingOffline
	case existingOffline != "":
		return KindUpdate, 0, existingOffline
	}
	return KindCreate, 0, NewClientID()
}

func gradeMessages(noun string) Messages {
	return Messages{
		Created:        noun + " guardada exitosamente",
		Updated:        noun + " actualizada exitosamente",
		CreatedOffline: noun + " guardada offline. Se sincronizará cuando haya conexión.",
		UpdatedOffline: "Actualización guardada offline. Se sincronizará cuando haya conexión.",
		Failed:         "No se pudo guardar la " + strings.ToLower(noun),
	}
}

// GradeStore saves rubric, partial and final grades with the offline
// fallback. Each kind lives in its own map keyed by course group student.
type GradeStore struct {
	gateway  *Gateway
	store    store.Store
	grades   *Resource[common.PartialEvaluationGradeDTO]
	partials *Resource[common.PartialGradeDTO]
	finals   *Resource[common.FinalGradeDTO]
	now      func() time.Time
	mu       sync.Mutex
}

func NewGradeStore(gw *Gateway, s store.Store, grades *Resource[common.PartialEvaluationGradeDTO], partials *Resource[common.PartialGradeDTO], finals *Resource[common.FinalGradeDTO]) *GradeStore {
	return &GradeStore{gateway: gw, store: s, grades: grades, partials: partials, finals: finals, now: utils.SchoolNow}
}

func loadMap[V any](ctx context.Context, s store.Store, key string) (map[int64]V, error) {
	m, err := store.Load[map[int64]V](ctx, s, key)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = map[int64]V{}
	}
	return m, nil
}

func updateMap[V any](ctx context.Context, g *GradeStore, key string, fn func(map[int64]V)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, err := loadMap[V](ctx, g.store, key)
	if err != nil {
		return err
	}
	fn(m)
	return g.store.Put(ctx, key, m)
}

func readMap[V any](ctx context.Context, g *GradeStore, key string) (map[int64]V, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return loadMap[V](ctx, g.store, key)
}

type gradeWrite struct {
	t         EntityType
	kind      Kind
	serverID  int64
	offlineID string
	data      any
	messages  Messages
	create    func(ctx context.Context) (int64, error)
	update    func(ctx context.Context, id int64) error
	local     func(ctx context.Context, serverID int64, offline bool) error
}

func (g *GradeStore) write(ctx context.Context, w gradeWrite) (Outcome, int64, error) {
	serverID := w.serverID
	entityID := entityKey(serverID, w.offlineID)

	var online func(context.Context) error
	switch {
	case w.kind == KindCreate:
		entityID = w.offlineID
		online = func(ctx context.Context) error {
			id, err := w.create(ctx)
			if err == nil {
				serverID = id
			}
			return err
		}
	case serverID > 0:
		online = func(ctx context.Context) error {
			return w.update(ctx, serverID)
		}
	}

	outcome, err := g.gateway.Mutate(ctx, Mutation{
		Type:     w.t,
		Kind:     w.kind,
		EntityID: entityID,
		Data:     w.data,
		Messages: w.messages,
		Online:   online,
		Local: func(ctx context.Context) error {
			return w.local(ctx, serverID, true)
		},
		Refresh: func(ctx context.Context) error {
			return w.local(ctx, serverID, false)
		},
	})
	return outcome, serverID, err
}

// SaveGrade stores the grade of one rubric evaluation.
func (g *GradeStore) SaveGrade(ctx context.Context, dto common.PartialEvaluationGradeDTO) (EvaluationGradeRecord, Outcome, error) {
	if err := g.gateway.Validate(ctx, dto); err != nil {
		return EvaluationGradeRecord{}, "", err
	}

	all, err := readMap[[]EvaluationGradeRecord](ctx, g, store.KeyOfflineGrades)
	if err != nil {
		return EvaluationGradeRecord{}, "", err
	}
	var existing EvaluationGradeRecord
	if found := utils.Find(all[dto.CourseGroupStudentID], func(r EvaluationGradeRecord) bool {
		return r.PartialEvaluationID == dto.PartialEvaluationID
	}); found != nil {
		existing = *found
	}

	kind, serverID, offlineID := resolveIdentity(dto.ID, existing.ID, existing.OfflineID)
	dto.ID = serverID
	rec := EvaluationGradeRecord{PartialEvaluationGradeDTO: dto, Pending: Pending{OfflineID: offlineID}}

	outcome, id, err := g.write(ctx, gradeWrite{
		t:         EntityGrade,
		kind:      kind,
		serverID:  serverID,
		offlineID: offlineID,
		data:      dto,
		messages:  gradeMessages("Calificación"),
		create: func(ctx context.Context) (int64, error) {
			return g.grades.CreateItem(ctx, dto)
		},
		update: func(ctx context.Context, id int64) error {
			_, err := g.grades.UpdateFn(ctx, id, dto)
			return err
		},
		local: func(ctx context.Context, serverID int64, offline bool) error {
			rec.ID = serverID
			rec.IsOffline = offline
			rec.Timestamp = g.now().UnixMilli()
			return updateMap(ctx, g, store.KeyOfflineGrades, func(m map[int64][]EvaluationGradeRecord) {
				list := m[rec.CourseGroupStudentID]
				for i := range list {
					if list[i].PartialEvaluationID == rec.PartialEvaluationID {
						list[i] = rec
						return
					}
				}
				m[rec.CourseGroupStudentID] = append(list, rec)
			})
		},
	})
	rec.ID = id
	return rec, outcome, err
}

// SavePartialGrade stores the grade of a partial. Saving with an id, or
// for a partial already cached, updates it.
func (g *GradeStore) SavePartialGrade(ctx context.Context, dto common.PartialGradeDTO) (PartialGradeRecord, Outcome, error) {
	if err := g.gateway.Validate(ctx, dto); err != nil {
		return PartialGradeRecord{}, "", err
	}
	if dto.Date == "" {
		dto.Date = g.now().Format(utils.DateLayout)
	}

	all, err := readMap[PartialGradeRecord](ctx, g, store.KeyOfflinePartialGrade)
	if err != nil {
		return PartialGradeRecord{}, "", err
	}
	existing, ok := all[dto.CourseGroupStudentID]
	if !ok || existing.Partial != dto.Partial {
		existing = PartialGradeRecord{}
	}

	kind, serverID, offlineID := resolveIdentity(dto.ID, existing.ID, existing.OfflineID)
	dto.ID = serverID
	rec := PartialGradeRecord{PartialGradeDTO: dto, Pending: Pending{OfflineID: offlineID}}

	outcome, id, err := g.write(ctx, gradeWrite{
		t:         EntityPartialGrade,
		kind:      kind,
		serverID:  serverID,
		offlineID: offlineID,
		data:      dto,
		messages:  gradeMessages("Calificación parcial"),
		create: func(ctx context.Context) (int64, error) {
			return g.partials.CreateItem(ctx, dto)
		},
		update: func(ctx context.Context, id int64) error {
			_, err := g.partials.UpdateFn(ctx, id, dto)
			return err
		},
		local: func(ctx context.Context, serverID int64, offline bool) error {
			rec.ID = serverID
			rec.IsOffline = offline
			rec.Timestamp = g.now().UnixMilli()
			return updateMap(ctx, g, store.KeyOfflinePartialGrade, func(m map[int64]PartialGradeRecord) {
				m[rec.CourseGroupStudentID] = rec
			})
		},
	})
	rec.ID = id
	return rec, outcome, err
}

// SaveFinalGrade stores the final grade of a course group student.
func (g *GradeStore) SaveFinalGrade(ctx context.Context, dto common.FinalGradeDTO) (FinalGradeRecord, Outcome, error) {
	if err := g.gateway.Validate(ctx, dto); err != nil {
		return FinalGradeRecord{}, "", err
	}
	if dto.Date == "" {
		dto.Date = g.now().Format(utils.DateLayout)
	}

	all, err := readMap[FinalGradeRecord](ctx, g, store.KeyOfflineFinalGrade)
	if err != nil {
		return FinalGradeRecord{}, "", err
	}
	existing := all[dto.CourseGroupStudentID]

	kind, serverID, offlineID := resolveIdentity(dto.ID, existing.ID, existing.OfflineID)
	dto.ID = serverID
	rec := FinalGradeRecord{FinalGradeDTO: dto, Pending: Pending{OfflineID: offlineID}}

	outcome, id, err := g.write(ctx, gradeWrite{
		t:         EntityFinalGrade,
		kind:      kind,
		serverID:  serverID,
		offlineID: offlineID,
		data:      dto,
		messages:  gradeMessages("Calificación final"),
		create: func(ctx context.Context) (int64, error) {
			return g.finals.CreateItem(ctx, dto)
		},
		update: func(ctx context.Context, id int64) error {
			_, err := g.finals.UpdateFn(ctx, id, dto)
			return err
		},
		local: func(ctx context.Context, serverID int64, offline bool) error {
			rec.ID = serverID
			rec.IsOffline = offline
			rec.Timestamp = g.now().UnixMilli()
			return updateMap(ctx, g, store.KeyOfflineFinalGrade, func(m map[int64]FinalGradeRecord) {
				m[rec.CourseGroupStudentID] = rec
			})
		},
	})
	rec.ID = id
	return rec, outcome, err
}

func (g *GradeStore) Grades(ctx context.Context, courseGroupStudentID int64) ([]EvaluationGradeRecord, error) {
	m, err := readMap[[]EvaluationGradeRecord](ctx, g, store.KeyOfflineGrades)
	if err != nil {
		return nil, err
	}
	return m[courseGroupStudentID], nil
}

func (g *GradeStore) PartialGrade(ctx context.Context, courseGroupStudentID int64) (*PartialGradeRecord, error) {
	m, err := readMap[PartialGradeRecord](ctx, g, store.KeyOfflinePartialGrade)
	if err != nil {
		return nil, err
	}
	if r, ok := m[courseGroupStudentID]; ok {
		return &r, nil
	}
	return nil, nil
}

func (g *GradeStore) FinalGrade(ctx context.Context, courseGroupStudentID int64) (*FinalGradeRecord, error) {
	m, err := readMap[FinalGradeRecord](ctx, g, store.KeyOfflineFinalGrade)
	if err != nil {
		return nil, err
	}
	if r, ok := m[courseGroupStudentID]; ok {
		return &r, nil
	}
	return nil, nil
}

// Reconcile implements Reconciler.
func (g *GradeStore) Reconcile(ctx context.Context, a Action, serverID int64, settled bool) error {
	if a.Action == KindDelete {
		return nil
	}
	apply := func(p *Pending, id *int64) {
		if !matchesKey(a.EntityID, *id, p.OfflineID) {
			return
		}
		if serverID > 0 {
			*id = serverID
		}
		if settled {
			p.IsOffline = false
		}
	}

	switch a.Type {
	case EntityGrade:
		return updateMap(ctx, g, store.KeyOfflineGrades, func(m map[int64][]EvaluationGradeRecord) {
			for k, list := range m {
				for i := range list {
					apply(&list[i].Pending, &list[i].ID)
				}
				m[k] = list
			}
		})
	case EntityPartialGrade:
		return updateMap(ctx, g, store.KeyOfflinePartialGrade, func(m map[int64]PartialGradeRecord) {
			for k, r := range m {
				apply(&r.Pending, &r.ID)
				m[k] = r
			}
		})
	case EntityFinalGrade:
		return updateMap(ctx, g, store.KeyOfflineFinalGrade, func(m map[int64]FinalGradeRecord) {
			for k, r := range m {
				apply(&r.Pending, &r.ID)
				m[k] = r
			}
		})
	}
	return nil
}

// Discard implements Discarder. Grades whose create was rejected are
// dropped; grades behind a rejected update stop counting as pending.
func (g *GradeStore) Discard(ctx context.Context, a Action) error {
	if a.Action == KindDelete {
		return nil
	}
	// drop reports whether the record goes; otherwise it is settled in place
	drop := func(p *Pending, id int64) bool {
		if !matchesKey(a.EntityID, id, p.OfflineID) {
			return false
		}
		if a.Action == KindCreate && id == 0 {
			return true
		}
		p.IsOffline = false
		return false
	}

	switch a.Type {
	case EntityGrade:
		return updateMap(ctx, g, store.KeyOfflineGrades, func(m map[int64][]EvaluationGradeRecord) {
			for k, list := range m {
				kept := list[:0]
				for i := range list {
					if !drop(&list[i].Pending, list[i].ID) {
						kept = append(kept, list[i])
					}
				}
				if len(kept) == 0 {
					delete(m, k)
					continue
				}
				m[k] = kept
			}
		})
	case EntityPartialGrade:
		return updateMap(ctx, g, store.KeyOfflinePartialGrade, func(m map[int64]PartialGradeRecord) {
			for k, r := range m {
				if drop(&r.Pending, r.ID) {
					delete(m, k)
					continue
				}
				m[k] = r
			}
		})
	case EntityFinalGrade:
		return updateMap(ctx, g, store.KeyOfflineFinalGrade, func(m map[int64]FinalGradeRecord) {
			for k, r := range m {
				if drop(&r.Pending, r.ID) {
					delete(m, k)
					continue
				}
				m[k] = r
			}
		})
	}
	return nil
}
