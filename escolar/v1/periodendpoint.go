package v1

import (
	"context"
	"fmt"

	"uamvh.cloud/escolar/escolar/v1/common"
)

type PeriodEndpoint struct {
	transport *Transport
}

func (this *PeriodEndpoint) List(ctx context.Context, limit, offset int) (*common.ListResponse[common.PeriodDTO], error) {
	return decode[*common.ListResponse[common.PeriodDTO]](this.transport.Get(ctx, "/periods", page(limit, offset)))
}

func (this *PeriodEndpoint) Create(ctx context.Context, dto *common.PeriodDTO) (*common.PeriodDTO, error) {
	return decode[*common.PeriodDTO](this.transport.Post(ctx, "/periods", dto, nil))
}

func (this *PeriodEndpoint) Update(ctx context.Context, id int64, patch any) (*common.PeriodDTO, error) {
	return decode[*common.PeriodDTO](this.transport.Patch(ctx, fmt.Sprintf("/periods/%d", id), patch))
}

func (this *PeriodEndpoint) Delete(ctx context.Context, id int64) error {
	return this.transport.Delete(ctx, fmt.Sprintf("/periods/%d", id))
}
