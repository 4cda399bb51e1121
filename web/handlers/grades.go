package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	escolar "uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/grading"
	"uamvh.cloud/escolar/web/common"
)

func (ep *Endpoint) SaveEvaluationGrade(c *gin.Context) {
	var dto escolar.PartialEvaluationGradeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	rec, outcome, err := ep.svc.Grades.SaveGrade(c.Request.Context(), dto)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOutcome(c, dto.ID == 0, outcome, rec)
}

func (ep *Endpoint) SavePartialGrade(c *gin.Context) {
	var dto escolar.PartialGradeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	rec, outcome, err := ep.svc.Grades.SavePartialGrade(c.Request.Context(), dto)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOutcome(c, dto.ID == 0, outcome, rec)
}

func (ep *Endpoint) SaveFinalGrade(c *gin.Context) {
	var dto escolar.FinalGradeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	rec, outcome, err := ep.svc.Grades.SaveFinalGrade(c.Request.Context(), dto)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOutcome(c, dto.ID == 0, outcome, rec)
}

// StudentGrades returns every cached grade of one course group student.
func (ep *Endpoint) StudentGrades(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid id"))
		return
	}
	ctx := c.Request.Context()
	grades, err := ep.svc.Grades.Grades(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	partial, err := ep.svc.Grades.PartialGrade(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	final, err := ep.svc.Grades.FinalGrade(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"evaluations":  grades,
		"partialGrade": partial,
		"finalGrade":   final,
	}))
}

type AveragesRequest struct {
	Weights     []grading.Weight     `json:"weights" binding:"required,min=1"`
	Evaluations []grading.Evaluation `json:"evaluations"`
	// Exemption is the final average that exempts the ordinary exam.
	Exemption float64 `json:"exemption"`
}

// Averages computes partial and final averages for one student.
func (ep *Endpoint) Averages(c *gin.Context) {
	var req AveragesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	if err := grading.ValidateWeights(req.Weights); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}
	if req.Exemption <= 0 {
		req.Exemption = grading.DefaultExemption
	}

	avg := grading.CalcAverages(req.Evaluations, req.Weights)
	situation := grading.DetermineSituation(avg.Final, req.Exemption)
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"averages":  avg,
		"situation": situation,
		"label":     situation.Label(),
	}))
}
