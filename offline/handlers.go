package offline

import (
	"context"
	"encoding/json"
	"fmt"

	v1 "uamvh.cloud/escolar/escolar/v1"
	"uamvh.cloud/escolar/escolar/v1/common"
)

// Handler replays queued actions of one entity type against the API.
type Handler interface {
	Create(ctx context.Context, data json.RawMessage) (int64, error)
	Update(ctx context.Context, id int64, data json.RawMessage) error
	Delete(ctx context.Context, id int64) error
}

// Resource binds a typed API endpoint. It serves both the replay table
// and the repositories' online path.
type Resource[T any] struct {
	ListFn   func(ctx context.Context, limit, offset int) (*common.ListResponse[T], error)
	CreateFn func(ctx context.Context, item *T) (*T, error)
	UpdateFn func(ctx context.Context, id int64, patch any) (*T, error)
	DeleteFn func(ctx context.Context, id int64) error
	ID       func(T) int64
}

func (r *Resource[T]) Create(ctx context.Context, data json.RawMessage) (int64, error) {
	if r.CreateFn == nil {
		return 0, ErrUnsupported
	}
	var item T
	if err := json.Unmarshal(data, &item); err != nil {
		return 0, fmt.Errorf("decode payload: %w", err)
	}
	return r.CreateItem(ctx, item)
}

// CreateItem creates item and returns the id the server assigned, or 0
// when the response carried none.
func (r *Resource[T]) CreateItem(ctx context.Context, item T) (int64, error) {
	if r.CreateFn == nil {
		return 0, ErrUnsupported
	}
	created, err := r.CreateFn(ctx, &item)
	if err != nil {
		return 0, err
	}
	if created == nil || r.ID == nil {
		return 0, nil
	}
	return r.ID(*created), nil
}

func (r *Resource[T]) Update(ctx context.Context, id int64, data json.RawMessage) error {
	if r.UpdateFn == nil {
		return ErrUnsupported
	}
	_, err := r.UpdateFn(ctx, id, data)
	return err
}

func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	if r.DeleteFn == nil {
		return ErrUnsupported
	}
	return r.DeleteFn(ctx, id)
}

// List fetches every item, pageSize at a time, until the reported total
// is reached. A bare array response counts as the whole list.
func (r *Resource[T]) List(ctx context.Context, pageSize int) ([]T, error) {
	if r.ListFn == nil {
		return nil, ErrUnsupported
	}
	if pageSize <= 0 {
		pageSize = DefaultFetchLimit
	}

	items := []T{}
	for {
		res, err := r.ListFn(ctx, pageSize, len(items))
		if err != nil {
			return nil, err
		}
		if res == nil || len(res.Items) == 0 {
			return items, nil
		}
		items = append(items, res.Items...)
		if int64(len(items)) >= res.Total {
			return items, nil
		}
	}
}

func Students(c *v1.EscolarClient) *Resource[common.StudentDTO] {
	return &Resource[common.StudentDTO]{
		ListFn:   c.Students.List,
		CreateFn: c.Students.Create,
		UpdateFn: c.Students.Update,
		DeleteFn: c.Students.Delete,
		ID:       func(s common.StudentDTO) int64 { return s.ID },
	}
}

func Groups(c *v1.EscolarClient) *Resource[common.GroupDTO] {
	return &Resource[common.GroupDTO]{
		ListFn:   c.Groups.List,
		CreateFn: c.Groups.Create,
		UpdateFn: c.Groups.Update,
		DeleteFn: c.Groups.Delete,
		ID:       func(g common.GroupDTO) int64 { return g.ID },
	}
}

func Periods(c *v1.EscolarClient) *Resource[common.PeriodDTO] {
	return &Resource[common.PeriodDTO]{
		ListFn:   c.Periods.List,
		CreateFn: c.Periods.Create,
		UpdateFn: c.Periods.Update,
		DeleteFn: c.Periods.Delete,
		ID:       func(p common.PeriodDTO) int64 { return p.ID },
	}
}

func Courses(c *v1.EscolarClient) *Resource[common.CourseDTO] {
	return &Resource[common.CourseDTO]{
		ListFn:   c.Courses.List,
		CreateFn: c.Courses.Create,
		UpdateFn: c.Courses.Update,
		DeleteFn: c.Courses.Delete,
		ID:       func(co common.CourseDTO) int64 { return co.ID },
	}
}

// Teachers are users with the teacher role.
func Teachers(c *v1.EscolarClient) *Resource[common.UserDTO] {
	return &Resource[common.UserDTO]{
		ListFn:   c.Users.List,
		CreateFn: c.Users.Create,
		UpdateFn: c.Users.Update,
		DeleteFn: c.Users.Delete,
		ID:       func(u common.UserDTO) int64 { return u.ID },
	}
}

func Attendances(c *v1.EscolarClient) *Resource[common.AttendanceDTO] {
	return &Resource[common.AttendanceDTO]{
		CreateFn: c.Attendances.Create,
		UpdateFn: c.Attendances.Update,
		DeleteFn: c.Attendances.Delete,
		ID:       func(a common.AttendanceDTO) int64 { return a.ID },
	}
}

func EvaluationGrades(c *v1.EscolarClient) *Resource[common.PartialEvaluationGradeDTO] {
	return &Resource[common.PartialEvaluationGradeDTO]{
		CreateFn: c.Grades.CreatePartialEvaluationGrade,
		UpdateFn: c.Grades.UpdatePartialEvaluationGrade,
		ID:       func(g common.PartialEvaluationGradeDTO) int64 { return g.ID },
	}
}

func PartialGrades(c *v1.EscolarClient) *Resource[common.PartialGradeDTO] {
	return &Resource[common.PartialGradeDTO]{
		CreateFn: c.Grades.CreatePartialGrade,
		UpdateFn: c.Grades.UpdatePartialGrade,
		ID:       func(g common.PartialGradeDTO) int64 { return g.ID },
	}
}

func FinalGrades(c *v1.EscolarClient) *Resource[common.FinalGradeDTO] {
	return &Resource[common.FinalGradeDTO]{
		CreateFn: c.Grades.CreateFinalGrade,
		UpdateFn: c.Grades.UpdateFinalGrade,
		ID:       func(g common.FinalGradeDTO) int64 { return g.ID },
	}
}

// Handlers is the replay table for every entity type.
func Handlers(c *v1.EscolarClient) map[EntityType]Handler {
	return map[EntityType]Handler{
		EntityStudent:      Students(c),
		EntityTeacher:      Teachers(c),
		EntityCourse:       Courses(c),
		EntityGroup:        Groups(c),
		EntityPeriod:       Periods(c),
		EntityAttendance:   Attendances(c),
		EntityGrade:        EvaluationGrades(c),
		EntityPartialGrade: PartialGrades(c),
		EntityFinalGrade:   FinalGrades(c),
	}
}
