package v1

import (
	"context"
	"fmt"

	"uamvh.cloud/escolar/escolar/v1/common"
)

type GroupEndpoint struct {
	transport *Transport
}

func (this *GroupEndpoint) List(ctx context.Context, limit, offset int) (*common.ListResponse[common.GroupDTO], error) {
	return decode[*common.ListResponse[common.GroupDTO]](this.transport.Get(ctx, "/groups", page(limit, offset)))
}

func (this *GroupEndpoint) Create(ctx context.Context, dto *common.GroupDTO) (*common.GroupDTO, error) {
	return decode[*common.GroupDTO](this.transport.Post(ctx, "/groups", dto, nil))
}

func (this *GroupEndpoint) Update(ctx context.Context, id int64, patch any) (*common.GroupDTO, error) {
	return decode[*common.GroupDTO](this.transport.Patch(ctx, fmt.Sprintf("/groups/%d", id), patch))
}

func (this *GroupEndpoint) Delete(ctx context.Context, id int64) error {
	return this.transport.Delete(ctx, fmt.Sprintf("/groups/%d", id))
}

func (this *GroupEndpoint) AssignStudents(ctx context.Context, groupID int64, studentIDs []int64) (*common.GroupDTO, error) {
	payload := map[string][]int64{"studentIds": studentIDs}
	return decode[*common.GroupDTO](this.transport.Post(ctx, fmt.Sprintf("/groups/%d/students", groupID), payload, nil))
}

func (this *GroupEndpoint) DetailedStudents(ctx context.Context) (*common.DetailedGroupsDTO, error) {
	return decode[*common.DetailedGroupsDTO](this.transport.Get(ctx, "/groups/detailed-students", nil))
}

// FindBoletas returns the report card rows of every student in a group.
func (this *GroupEndpoint) FindBoletas(ctx context.Context, groupID int64) ([]common.BoletaDTO, error) {
	return decode[[]common.BoletaDTO](this.transport.Get(ctx, fmt.Sprintf("/groups/%d/find-boletas", groupID), nil))
}
