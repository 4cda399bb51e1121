package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	escolar "uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/offline"
	"uamvh.cloud/escolar/web/common"
)

// ListAttendances filters by date and partial, or by a comma separated
// list of course group students. Without filters it returns everything
// cached.
func (ep *Endpoint) ListAttendances(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		records []offline.AttendanceRecord
		err     error
	)

	switch {
	case c.Query("date") != "":
		date, perr := common.ParseDateOnly(c.Query("date"))
		if perr != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(perr.Error()))
			return
		}
		partial, perr := strconv.Atoi(c.DefaultQuery("partial", "1"))
		if perr != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid partial"))
			return
		}
		records, err = ep.svc.Attendances.Find(ctx, date.String(), partial)
	case c.Query("students") != "":
		ids, perr := parseIDs(c.Query("students"))
		if perr != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid students"))
			return
		}
		records, err = ep.svc.Attendances.ByStudents(ctx, ids)
	default:
		records, err = ep.svc.Attendances.List(ctx)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSearchResponse(records, int64(len(records))))
}

func (ep *Endpoint) PendingAttendances(c *gin.Context) {
	records, err := ep.svc.Attendances.Pending(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSearchResponse(records, int64(len(records))))
}

func (ep *Endpoint) SaveAttendance(c *gin.Context) {
	var dto escolar.AttendanceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	rec, outcome, err := ep.svc.Attendances.Save(c.Request.Context(), dto)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOutcome(c, true, outcome, rec)
}

func (ep *Endpoint) UpdateAttendance(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	outcome, err := ep.svc.Attendances.Update(c.Request.Context(), c.Param("key"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOutcome(c, false, outcome, nil)
}

func (ep *Endpoint) DeleteAttendance(c *gin.Context) {
	outcome, err := ep.svc.Attendances.Delete(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeOutcome(c, false, outcome, nil)
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
