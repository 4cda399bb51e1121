package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"uamvh.cloud/escolar/web/common"
)

func (ep *Endpoint) Sync(c *gin.Context) {
	report, err := ep.svc.Sync(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(report))
}

func (ep *Endpoint) SyncStatus(c *gin.Context) {
	status, err := ep.svc.Status(c.Request.Context(), c.Query("actions") == "true")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(status))
}

func (ep *Endpoint) DeadLetters(c *gin.Context) {
	dead, err := ep.svc.Log.DeadLetters(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSearchResponse(dead, int64(len(dead))))
}

type RequeueRequest struct {
	// IDs of the dead letters to retry. Empty retries all of them.
	IDs []string `json:"ids"`
}

func (ep *Endpoint) Requeue(c *gin.Context) {
	var req RequeueRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}
	}
	n, err := ep.svc.Log.Requeue(c.Request.Context(), req.IDs...)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"requeued": n}))
}
