package v1

import (
	"context"
	"fmt"

	"uamvh.cloud/escolar/escolar/v1/common"
)

type GradeEndpoint struct {
	transport *Transport
}

func (this *GradeEndpoint) CreatePartialEvaluationGrade(ctx context.Context, dto *common.PartialEvaluationGradeDTO) (*common.PartialEvaluationGradeDTO, error) {
	return decode[*common.PartialEvaluationGradeDTO](this.transport.Post(ctx, "/partial-evaluation-grades", dto, nil))
}

func (this *GradeEndpoint) UpdatePartialEvaluationGrade(ctx context.Context, id int64, patch any) (*common.PartialEvaluationGradeDTO, error) {
	return decode[*common.PartialEvaluationGradeDTO](this.transport.Patch(ctx, fmt.Sprintf("/partial-evaluation-grades/%d", id), patch))
}

func (this *GradeEndpoint) CreatePartialGrade(ctx context.Context, dto *common.PartialGradeDTO) (*common.PartialGradeDTO, error) {
	return decode[*common.PartialGradeDTO](this.transport.Post(ctx, "/partial-grades", dto, nil))
}

func (this *GradeEndpoint) UpdatePartialGrade(ctx context.Context, id int64, patch any) (*common.PartialGradeDTO, error) {
	return decode[*common.PartialGradeDTO](this.transport.Patch(ctx, fmt.Sprintf("/partial-grades/%d", id), patch))
}

func (this *GradeEndpoint) CreateFinalGrade(ctx context.Context, dto *common.FinalGradeDTO) (*common.FinalGradeDTO, error) {
	return decode[*common.FinalGradeDTO](this.transport.Post(ctx, "/final-grades", dto, nil))
}

func (this *GradeEndpoint) UpdateFinalGrade(ctx context.Context, id int64, patch any) (*common.FinalGradeDTO, error) {
	return decode[*common.FinalGradeDTO](this.transport.Patch(ctx, fmt.Sprintf("/final-grades/%d", id), patch))
}

// FinalData returns the attendance, partial and final grades of every
// student in a course group.
func (this *GradeEndpoint) FinalData(ctx context.Context, courseGroupID int64) (*common.FinalDataDTO, error) {
	return decode[*common.FinalDataDTO](this.transport.Get(ctx, fmt.Sprintf("/final-grades/final-data/%d", courseGroupID), nil))
}
