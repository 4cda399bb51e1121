package offline

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/mockapi"
	"uamvh.cloud/escolar/notify"
	"uamvh.cloud/escolar/store"
)

func TestCreateOnline(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	ctx := context.Background()

	rec, outcome, err := f.svc.Students.Create(ctx, common.StudentDTO{FullName: "Ana Ruiz", RegistrationNumber: "A001"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOnline, outcome)
	assert.False(t, rec.Ref.Pending())
	assert.Equal(t, rec.Ref.ServerID, rec.Item.ID)
	assert.Empty(t, f.queue(t))

	cached, err := f.svc.Students.Cached(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "Ana Ruiz", cached[0].Item.FullName)

	last, _ := f.notes.Last()
	assert.Equal(t, notify.Notification{Level: notify.LevelSuccess, Message: "Estudiante creado exitosamente"}, last)
}

func TestCreateOffline(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	ctx := context.Background()
	f.offline()

	rec, outcome, err := f.svc.Students.Create(ctx, common.StudentDTO{FullName: "Ana Ruiz", RegistrationNumber: "A001"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)
	assert.True(t, rec.Ref.Pending())

	actions := f.queue(t)
	require.Len(t, actions, 1)
	assert.Equal(t, EntityStudent, actions[0].Type)
	assert.Equal(t, KindCreate, actions[0].Action)
	assert.Equal(t, rec.Ref.ClientID, actions[0].EntityID)

	cached, err := f.svc.Students.Cached(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.True(t, cached[0].Ref.Pending())
	assert.Empty(t, f.api.Items("students"))

	last, _ := f.notes.Last()
	assert.Equal(t, "Estudiante guardado offline. Se sincronizará cuando haya conexión.", last.Message)
}

func TestCreateFallsBackWhenServerFails(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	ctx := context.Background()
	f.api.Fail(http.MethodPost, "/students", http.StatusInternalServerError, 1)

	_, outcome, err := f.svc.Students.Create(ctx, common.StudentDTO{FullName: "Luis Paz", RegistrationNumber: "A002"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)
	assert.Len(t, f.queue(t), 1)
}

func TestCreateRejectsInvalid(t *testing.T) {
	f := newFixture(t, ServiceOptions{})

	_, _, err := f.svc.Students.Create(context.Background(), common.StudentDTO{FullName: "Sin Matricula"})
	require.Error(t, err)
	assert.Empty(t, f.queue(t))
	assert.Equal(t, 1, f.notes.Count(notify.LevelError))
}

func TestPendingEntityStaysQueued(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	ctx := context.Background()
	ids := f.api.Seed("students", mockapi.Item{"fullName": "Ana Ruiz", "registrationNumber": "A001"})
	_, _, err := f.svc.Students.List(ctx, Page{})
	require.NoError(t, err)
	key := "1"
	require.Equal(t, int64(1), ids[0])

	f.offline()
	outcome, err := f.svc.Students.Update(ctx, key, map[string]any{"fullName": "Ana Ruiz López"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)

	f.online()
	outcome, err = f.svc.Students.Update(ctx, key, map[string]any{"registrationNumber": "A009"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome, "a later write must not overtake the queued one")
	assert.Empty(t, f.api.Calls())

	report, err := f.svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Synced)

	items := f.api.Items("students")
	require.Len(t, items, 1)
	assert.Equal(t, "Ana Ruiz López", items[0]["fullName"])
	assert.Equal(t, "A009", items[0]["registrationNumber"])
}

func TestWritesToUnknownClientID(t *testing.T) {
	tests := []struct {
		name    string
		offline bool
	}{
		{"online", false},
		{"offline", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, ServiceOptions{})
			ctx := context.Background()
			if tt.offline {
				f.offline()
			}

			_, err := f.svc.Students.Delete(ctx, "no-such-student")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = f.svc.Students.Update(ctx, "no-such-student", map[string]any{"fullName": "Nadie"})
			assert.ErrorIs(t, err, ErrNotFound)

			assert.Empty(t, f.queue(t))
			assert.Empty(t, f.api.Calls())
		})
	}
}

func TestWriteBehindQueuedCreateWithoutCache(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	ctx := context.Background()
	f.offline()

	rec, _, err := f.svc.Students.Create(ctx, common.StudentDTO{FullName: "Ana Ruiz", RegistrationNumber: "A001"})
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(ctx, store.KeyOfflineStudents))

	outcome, err := f.svc.Students.Update(ctx, rec.Key(), map[string]any{"fullName": "Ana Ruiz López"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)
	assert.Len(t, f.queue(t), 2)
}

func TestRefreshFetchesEveryPage(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	ctx := context.Background()
	f.api.Seed("students",
		mockapi.Item{"fullName": "Ana Ruiz", "registrationNumber": "A001"},
		mockapi.Item{"fullName": "Luis Paz", "registrationNumber": "A002"},
		mockapi.Item{"fullName": "Eva Sol", "registrationNumber": "A003"},
	)

	repo := NewRepository(f.svc.Gateway, f.store, RepositoryConfig[common.StudentDTO]{
		Type:       EntityStudent,
		Key:        store.KeyOfflineStudents,
		Messages:   MessagesFor("Estudiante"),
		Resource:   Students(f.svc.Client),
		FetchLimit: 2,
	})
	require.NoError(t, repo.Refresh(ctx))

	cached, err := repo.Cached(ctx)
	require.NoError(t, err)
	var names []string
	for _, r := range cached {
		names = append(names, r.Item.FullName)
	}
	assert.Equal(t, []string{"Ana Ruiz", "Luis Paz", "Eva Sol"}, names)
}

func TestResourceListPages(t *testing.T) {
	items := []common.CourseDTO{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}}
	tests := []struct {
		name    string
		total   func(n int) int64
		want    int
		offsets []int
	}{
		{"reported total", func(int) int64 { return 5 }, 5, []int{0, 2, 4}},
		{"bare array", func(n int) int64 { return int64(n) }, 2, []int{0}},
		{"total larger than served", func(int) int64 { return 9 }, 5, []int{0, 2, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var offsets []int
			r := &Resource[common.CourseDTO]{
				ListFn: func(_ context.Context, limit, offset int) (*common.ListResponse[common.CourseDTO], error) {
					offsets = append(offsets, offset)
					page := Paginate(items, Page{Limit: limit, Offset: offset})
					return &common.ListResponse[common.CourseDTO]{Items: page, Total: tt.total(len(page))}, nil
				},
			}

			got, err := r.List(context.Background(), 2)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
			assert.Equal(t, tt.offsets, offsets)
		})
	}
}

func TestListFallsBackToCache(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	ctx := context.Background()
	f.api.Seed("groups",
		mockapi.Item{"name": "1A", "semester": 1},
		mockapi.Item{"name": "1B", "semester": 1},
		mockapi.Item{"name": "3A", "semester": 3},
	)

	page, total, err := f.svc.Groups.List(ctx, Page{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	f.api.SetDown(true)
	page, total, err = f.svc.Groups.List(ctx, Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "3A", page[0].Item.Name)
}

func TestRefreshOverlaysQueuedActions(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	ctx := context.Background()
	f.api.Seed("periods",
		mockapi.Item{"name": "2025-A", "startDate": "2025-01-06", "endDate": "2025-06-30"},
		mockapi.Item{"name": "2025-B", "startDate": "2025-08-04", "endDate": "2025-12-15"},
	)
	_, _, err := f.svc.Periods.List(ctx, Page{})
	require.NoError(t, err)

	f.offline()
	_, err = f.svc.Periods.Delete(ctx, "1")
	require.NoError(t, err)
	_, _, err = f.svc.Periods.Create(ctx, common.PeriodDTO{Name: "2026-A", StartDate: "2026-01-05", EndDate: "2026-06-30"})
	require.NoError(t, err)

	// a server refresh must not resurrect the deletion or drop the create
	require.NoError(t, f.svc.Periods.Refresh(ctx))
	cached, err := f.svc.Periods.Cached(ctx)
	require.NoError(t, err)
	var names []string
	for _, r := range cached {
		names = append(names, r.Item.Name)
	}
	assert.Equal(t, []string{"2025-B", "2026-A"}, names)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name string
		page Page
		want []int
	}{
		{"all", Page{}, []int{1, 2, 3, 4, 5}},
		{"first page", Page{Limit: 2}, []int{1, 2}},
		{"middle", Page{Limit: 2, Offset: 2}, []int{3, 4}},
		{"tail", Page{Limit: 10, Offset: 3}, []int{4, 5}},
		{"past end", Page{Limit: 2, Offset: 9}, []int{}},
		{"negative offset", Page{Limit: 1, Offset: -1}, []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paginate(items, tt.page))
		})
	}
}

func TestMergePatch(t *testing.T) {
	active := true
	p := common.PeriodDTO{ID: 4, Name: "2025-A", StartDate: "2025-01-06", EndDate: "2025-06-30", IsActive: &active}

	tests := []struct {
		name  string
		patch string
		check func(t *testing.T, got common.PeriodDTO)
	}{
		{"empty patch", ``, func(t *testing.T, got common.PeriodDTO) {
			assert.Equal(t, p, got)
		}},
		{"set field", `{"name":"2025-A bis"}`, func(t *testing.T, got common.PeriodDTO) {
			assert.Equal(t, "2025-A bis", got.Name)
			assert.Equal(t, int64(4), got.ID)
		}},
		{"null clears", `{"isActive":null}`, func(t *testing.T, got common.PeriodDTO) {
			assert.Nil(t, got.IsActive)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MergePatch(p, json.RawMessage(tt.patch))
			require.NoError(t, err)
			tt.check(t, got)
		})
	}

	_, err := MergePatch(p, json.RawMessage(`[1]`))
	assert.Error(t, err)
}
