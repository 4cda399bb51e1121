package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"uamvh.cloud/escolar/offline"
	"uamvh.cloud/escolar/web/common"
)

type entityEndpoint[T any] struct {
	repo *offline.Repository[T]
}

func registerEntity[T any](r *gin.RouterGroup, path string, repo *offline.Repository[T]) {
	ep := &entityEndpoint[T]{repo: repo}
	r.GET(path, ep.List)
	r.POST(path, ep.Create)
	r.POST(path+"/refresh", ep.Refresh)
	r.GET(path+"/:key", ep.Get)
	r.PATCH(path+"/:key", ep.Update)
	r.DELETE(path+"/:key", ep.Delete)
}

func (ep *entityEndpoint[T]) List(c *gin.Context) {
	var page offline.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	var (
		records []offline.Record[T]
		total   int
		err     error
	)
	if c.Query("cached") == "true" {
		records, err = ep.repo.Cached(c.Request.Context())
		total = len(records)
		records = offline.Paginate(records, page)
	} else {
		records, total, err = ep.repo.List(c.Request.Context(), page)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewPageResponse(records, int64(total), page.Limit, page.Offset))
}

func (ep *entityEndpoint[T]) Get(c *gin.Context) {
	rec, err := ep.repo.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(rec))
}

func (ep *entityEndpoint[T]) Create(c *gin.Context) {
	var item T
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	rec, outcome, err := ep.repo.Create(c.Request.Context(), item)
	if err != nil {
		writeError(c, err)
		return
	}
	writeOutcome(c, true, outcome, rec)
}

func (ep *entityEndpoint[T]) Update(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	key := c.Param("key")
	outcome, err := ep.repo.Update(c.Request.Context(), key, patch)
	if err != nil {
		writeError(c, err)
		return
	}
	rec, err := ep.repo.Get(c.Request.Context(), key)
	if err != nil {
		writeOutcome(c, false, outcome, nil)
		return
	}
	writeOutcome(c, false, outcome, rec)
}

func (ep *entityEndpoint[T]) Delete(c *gin.Context) {
	outcome, err := ep.repo.Delete(c.Request.Context(), c.Param("key"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeOutcome(c, false, outcome, nil)
}

func (ep *entityEndpoint[T]) Refresh(c *gin.Context) {
	if err := ep.repo.Refresh(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	records, err := ep.repo.Cached(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSearchResponse(records, int64(len(records))))
}
