package v1

import (
	"context"
	"fmt"

	"uamvh.cloud/escolar/escolar/v1/common"
)

type StudentEndpoint struct {
	transport *Transport
}

func (this *StudentEndpoint) List(ctx context.Context, limit, offset int) (*common.ListResponse[common.StudentDTO], error) {
	return decode[*common.ListResponse[common.StudentDTO]](this.transport.Get(ctx, "/students", page(limit, offset)))
}

func (this *StudentEndpoint) Get(ctx context.Context, id int64) (*common.StudentDTO, error) {
	return decode[*common.StudentDTO](this.transport.Get(ctx, fmt.Sprintf("/students/%d", id), nil))
}

func (this *StudentEndpoint) Create(ctx context.Context, dto *common.StudentDTO) (*common.StudentDTO, error) {
	return decode[*common.StudentDTO](this.transport.Post(ctx, "/students", dto, nil))
}

// Update sends a partial update; patch may be a DTO or a field map.
func (this *StudentEndpoint) Update(ctx context.Context, id int64, patch any) (*common.StudentDTO, error) {
	return decode[*common.StudentDTO](this.transport.Patch(ctx, fmt.Sprintf("/students/%d", id), patch))
}

func (this *StudentEndpoint) Delete(ctx context.Context, id int64) error {
	return this.transport.Delete(ctx, fmt.Sprintf("/students/%d", id))
}

func (this *StudentEndpoint) NotInCourseGroup(ctx context.Context, courseGroupID int64, limit, offset int, search string) ([]common.StudentDTO, error) {
	q := page(limit, offset)
	q["search"] = search
	res, err := decode[common.ListResponse[common.StudentDTO]](this.transport.Get(ctx, fmt.Sprintf("/students/not-in-course-group/%d", courseGroupID), q))
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// ByGroup lists the students enrolled in a group, unwrapping the join rows.
func (this *StudentEndpoint) ByGroup(ctx context.Context, groupID int64) ([]common.StudentDTO, error) {
	res, err := decode[common.ListResponse[common.Nested[common.StudentDTO]]](this.transport.Get(ctx, fmt.Sprintf("/courses-groups-students/byGroup/%d", groupID), nil))
	if err != nil {
		return nil, err
	}
	students := make([]common.StudentDTO, 0, len(res.Items))
	for _, item := range res.Items {
		students = append(students, item.Value)
	}
	return students, nil
}
