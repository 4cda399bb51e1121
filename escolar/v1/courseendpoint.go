package v1

import (
	"context"
	"fmt"

	"uamvh.cloud/escolar/escolar/v1/common"
)

type CourseEndpoint struct {
	transport *Transport
}

func (this *CourseEndpoint) List(ctx context.Context, limit, offset int) (*common.ListResponse[common.CourseDTO], error) {
	return decode[*common.ListResponse[common.CourseDTO]](this.transport.Get(ctx, "/courses", page(limit, offset)))
}

func (this *CourseEndpoint) Get(ctx context.Context, id int64) (*common.CourseDTO, error) {
	return decode[*common.CourseDTO](this.transport.Get(ctx, fmt.Sprintf("/courses/%d", id), nil))
}

func (this *CourseEndpoint) Create(ctx context.Context, dto *common.CourseDTO) (*common.CourseDTO, error) {
	return decode[*common.CourseDTO](this.transport.Post(ctx, "/courses", dto, nil))
}

func (this *CourseEndpoint) Update(ctx context.Context, id int64, patch any) (*common.CourseDTO, error) {
	return decode[*common.CourseDTO](this.transport.Patch(ctx, fmt.Sprintf("/courses/%d", id), patch))
}

func (this *CourseEndpoint) Delete(ctx context.Context, id int64) error {
	return this.transport.Delete(ctx, fmt.Sprintf("/courses/%d", id))
}

func (this *CourseEndpoint) AssignGroup(ctx context.Context, dto *common.CourseAssignmentDTO) (*common.CourseGroupDTO, error) {
	return decode[*common.CourseGroupDTO](this.transport.Post(ctx, "/courses-groups", dto, nil))
}

func (this *CourseEndpoint) Assignments(ctx context.Context, courseID int64, limit, offset int) (*common.ListResponse[common.CourseGroupDTO], error) {
	return decode[*common.ListResponse[common.CourseGroupDTO]](this.transport.Get(ctx, fmt.Sprintf("/courses-groups/%d", courseID), page(limit, offset)))
}

func (this *CourseEndpoint) DeleteAssignment(ctx context.Context, courseGroupID int64) error {
	return this.transport.Delete(ctx, fmt.Sprintf("/courses-groups/%d", courseGroupID))
}
