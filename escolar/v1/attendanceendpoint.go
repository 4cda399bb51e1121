package v1

import (
	"context"
	"fmt"

	"uamvh.cloud/escolar/escolar/v1/common"
)

type AttendanceEndpoint struct {
	transport *Transport
}

func (this *AttendanceEndpoint) Create(ctx context.Context, dto *common.AttendanceDTO) (*common.AttendanceDTO, error) {
	return decode[*common.AttendanceDTO](this.transport.Post(ctx, "/attendances", dto, nil))
}

func (this *AttendanceEndpoint) Update(ctx context.Context, id int64, patch any) (*common.AttendanceDTO, error) {
	return decode[*common.AttendanceDTO](this.transport.Patch(ctx, fmt.Sprintf("/attendances/%d", id), patch))
}

func (this *AttendanceEndpoint) Delete(ctx context.Context, id int64) error {
	return this.transport.Delete(ctx, fmt.Sprintf("/attendances/%d", id))
}

func (this *AttendanceEndpoint) ByCourseGroup(ctx context.Context, courseGroupID int64) ([]common.AttendanceDTO, error) {
	res, err := decode[common.ListResponse[common.AttendanceDTO]](this.transport.Get(ctx, "/attendances", map[string]string{
		"courseGroupId": fmt.Sprint(courseGroupID),
	}))
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}
