package offline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/escolar/v1/common/attend"
	"uamvh.cloud/escolar/store"
	"uamvh.cloud/escolar/utils"
)

func TestAttendanceOfflineUpsert(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	ctx := context.Background()
	f.offline()

	first, outcome, err := f.svc.Attendances.Save(ctx, common.AttendanceDTO{CourseGroupStudentID: 11, Date: "2025-03-10", Attend: attend.Absent, Partial: 1})
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, outcome)
	assert.NotEmpty(t, first.OfflineID)

	second, _, err := f.svc.Attendances.Save(ctx, common.AttendanceDTO{CourseGroupStudentID: 11, Date: "2025-03-10", Attend: attend.Late, Partial: 1})
	require.NoError(t, err)
	assert.Equal(t, first.OfflineID, second.OfflineID)

	records, err := f.svc.Attendances.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, attend.Late, records[0].Attend)
	assert.True(t, records[0].IsOffline)

	actions := f.queue(t)
	require.Len(t, actions, 2)
	assert.Equal(t, KindCreate, actions[0].Action)
	assert.Equal(t, KindUpdate, actions[1].Action)
	assert.Equal(t, first.OfflineID, actions[1].EntityID)

	f.online()
	report, err := f.svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Synced)

	items := f.api.Items("attendances")
	require.Len(t, items, 1)
	assert.EqualValues(t, attend.Late, items[0]["attend"])

	records, err = f.svc.Attendances.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, items[0].ID(), records[0].ID)
	assert.False(t, records[0].IsOffline)
}

func TestAttendanceOnline(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	ctx := context.Background()

	rec, outcome, err := f.svc.Attendances.Save(ctx, common.AttendanceDTO{CourseGroupStudentID: 11, Date: "2025-03-10", Attend: attend.Present, Partial: 2})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOnline, outcome)
	assert.Positive(t, rec.ID)

	// same slot again updates the server record
	_, outcome, err = f.svc.Attendances.Save(ctx, common.AttendanceDTO{CourseGroupStudentID: 11, Date: "2025-03-10", Attend: attend.Absent, Partial: 2})
	require.NoError(t, err)
	assert.Equal(t, OutcomeOnline, outcome)
	require.Len(t, f.api.Items("attendances"), 1)
	assert.EqualValues(t, attend.Absent, f.api.Items("attendances")[0]["attend"])

	found, err := f.svc.Attendances.Find(ctx, "2025-03-10", 2)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.False(t, found[0].IsOffline)

	_, err = f.svc.Attendances.Delete(ctx, found[0].Key())
	require.NoError(t, err)
	assert.Empty(t, f.api.Items("attendances"))
	records, err := f.svc.Attendances.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAttendanceRejectsInvalid(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	tests := []struct {
		name string
		dto  common.AttendanceDTO
	}{
		{"missing student", common.AttendanceDTO{Date: "2025-03-10", Attend: attend.Present, Partial: 1}},
		{"bad date", common.AttendanceDTO{CourseGroupStudentID: 1, Date: "10/03/2025", Attend: attend.Present, Partial: 1}},
		{"unknown mark", common.AttendanceDTO{CourseGroupStudentID: 1, Date: "2025-03-10", Partial: 1}},
		{"partial out of range", common.AttendanceDTO{CourseGroupStudentID: 1, Date: "2025-03-10", Attend: attend.Present, Partial: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.svc.Attendances.Save(context.Background(), tt.dto)
			assert.Error(t, err)
		})
	}
}

func TestAttendanceSweep(t *testing.T) {
	f := newFixture(t, ServiceOptions{})
	ctx := context.Background()
	now := utils.MustParseDate("2025-05-01").Add(8 * time.Hour)
	old := now.Add(-AttendanceRetention - time.Hour).UnixMilli()
	recent := now.Add(-time.Hour).UnixMilli()

	require.NoError(t, f.store.Put(ctx, store.KeyOfflineAttendances, []AttendanceRecord{
		{ID: 1, CourseGroupStudentID: 1, Date: "2025-03-01", Attend: attend.Present, Partial: 1, Timestamp: old},
		{OfflineID: "p", CourseGroupStudentID: 2, Date: "2025-03-01", Attend: attend.Absent, Partial: 1, Timestamp: old, IsOffline: true},
		{ID: 3, CourseGroupStudentID: 3, Date: "2025-04-30", Attend: attend.Late, Partial: 2, Timestamp: recent},
	}))

	n, err := f.svc.Attendances.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := f.svc.Attendances.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "p", records[0].OfflineID)
	assert.Equal(t, int64(3), records[1].ID)

	pending, err := f.svc.Attendances.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	byStudent, err := f.svc.Attendances.ByStudents(ctx, []int64{3})
	require.NoError(t, err)
	assert.Len(t, byStudent, 1)
}
