package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"uamvh.cloud/escolar/offline"
	"uamvh.cloud/escolar/web/common"
)

// The routes below read server reports that are never cached, so they
// answer 503 while the API cannot be reached.

func (ep *Endpoint) online(c *gin.Context) bool {
	if ep.svc.Tracker.Reachable(c.Request.Context()) {
		return true
	}
	writeError(c, offline.ErrServerUnreachable)
	return false
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Invalid "+name))
		return 0, false
	}
	return id, true
}

func (ep *Endpoint) CourseGroupAttendances(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok || !ep.online(c) {
		return
	}
	items, err := ep.svc.Client.Attendances.ByCourseGroup(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSearchResponse(items, int64(len(items))))
}

func (ep *Endpoint) CourseGroupFinalData(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok || !ep.online(c) {
		return
	}
	data, err := ep.svc.Client.Grades.FinalData(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(data))
}

// AvailableStudents lists students not yet enrolled in the course group.
func (ep *Endpoint) AvailableStudents(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var page offline.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	if !ep.online(c) {
		return
	}
	students, err := ep.svc.Client.Students.NotInCourseGroup(c.Request.Context(), id, page.Limit, page.Offset, c.Query("search"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewPageResponse(students, int64(len(students)), page.Limit, page.Offset))
}

type AssignStudentsRequest struct {
	StudentIDs []int64 `json:"studentIds" binding:"required,min=1"`
}

// AssignStudents enrolls students in a synced group.
func (ep *Endpoint) AssignStudents(c *gin.Context) {
	var req AssignStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	ctx := c.Request.Context()
	key := c.Param("key")
	ref := offline.ParseRef(key)
	if rec, err := ep.svc.Groups.Get(ctx, key); err == nil {
		ref = rec.Ref
	}
	if ref.Pending() {
		c.JSON(http.StatusConflict, common.NewErrorResponse("El grupo aún no se ha sincronizado"))
		return
	}
	if !ep.online(c) {
		return
	}

	group, err := ep.svc.Client.Groups.AssignStudents(ctx, ref.ServerID, req.StudentIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(group))
}
