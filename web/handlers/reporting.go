package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"uamvh.cloud/escolar/offline"
	"uamvh.cloud/escolar/reporting"
	"uamvh.cloud/escolar/utils"
	"uamvh.cloud/escolar/web/common"
)

func uploadedFiles(c *gin.Context, field string) ([]*multipart.FileHeader, error) {
	if err := c.Request.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, err
	}
	files := c.Request.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, fmt.Errorf("no files in field %q", field)
	}
	return files, nil
}

func isSpreadsheet(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".xlsx" || ext == ".xlsm"
}

// Statistics computes semester statistics from uploaded concentrados.
// Files that cannot be parsed are reported and skipped.
func (ep *Endpoint) Statistics(c *gin.Context) {
	files, err := uploadedFiles(c, "files")
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}

	var concentrados []reporting.Concentrado
	processed := []string{}
	failures := []string{}
	for _, file := range files {
		if !isSpreadsheet(file.Filename) {
			failures = append(failures, fmt.Sprintf("%s: se esperaba un archivo .xlsx", file.Filename))
			continue
		}
		f, err := file.Open()
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", file.Filename, err))
			continue
		}
		parsed, err := reporting.ParseConcentrado(f, file.Filename)
		f.Close()
		if err != nil {
			ep.logger.Warn("concentrado rejected", zap.String("file", file.Filename), zap.Error(err))
			failures = append(failures, err.Error())
			continue
		}
		concentrados = append(concentrados, *parsed)
		processed = append(processed, file.Filename)
	}

	if len(concentrados) == 0 {
		c.JSON(http.StatusUnprocessableEntity, common.NewErrorResponseWithDetails("Ningún archivo pudo ser procesado", failures))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"statistics": reporting.ComputeStatistics(concentrados),
		"files":      processed,
		"errors":     failures,
	}))
}

// ImportRoster previews a roster file. With commit=true every entry is
// created through the offline student repository.
func (ep *Endpoint) ImportRoster(c *gin.Context) {
	files, err := uploadedFiles(c, "file")
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}
	file := files[0]
	f, err := file.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()

	roster, err := reporting.ParseRoster(f, file.Filename)
	var missing *reporting.MissingColumnsError
	if errors.As(err, &missing) {
		c.JSON(http.StatusUnprocessableEntity, common.NewErrorResponseWithDetails(missing.Error(), gin.H{"columns": missing.Columns}))
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}

	if c.Query("commit") != "true" {
		c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"roster": roster}))
		return
	}

	counts := map[offline.Outcome]int{}
	failures := []string{}
	for _, entry := range roster.Entries {
		_, outcome, err := ep.svc.Students.Create(c.Request.Context(), entry.Student())
		if err != nil {
			failures = append(failures, fmt.Sprintf("Fila %d (%s): %s", entry.Row, entry.RegistrationNumber, utils.Truncate(err.Error(), 120)))
			continue
		}
		counts[outcome]++
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"roster":  roster,
		"created": counts[offline.OutcomeOnline],
		"queued":  counts[offline.OutcomeQueued],
		"errors":  failures,
	}))
}

// ImportGrades merges per-course grade sheets into boletas. With
// format=xlsx the result is returned as a concentrado workbook.
func (ep *Endpoint) ImportGrades(c *gin.Context) {
	files, err := uploadedFiles(c, "files")
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}
	period := strings.TrimSpace(c.Request.FormValue("period"))
	semester, err := strconv.Atoi(c.Request.FormValue("semester"))
	if period == "" || err != nil || semester < 1 {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("Debes ingresar el período y el semestre"))
		return
	}

	named := make([]reporting.NamedFile, 0, len(files))
	for _, file := range files {
		f, err := file.Open()
		if err != nil {
			writeError(c, err)
			return
		}
		defer f.Close()
		named = append(named, reporting.NamedFile{Name: file.Filename, Reader: f})
	}

	result := reporting.ImportGradeFiles(named, period, semester)
	if c.Query("format") != "xlsx" {
		c.JSON(http.StatusOK, common.NewSuccessResponse(result))
		return
	}

	var buf bytes.Buffer
	if err := reporting.ExportConcentrado(&buf, result.Boletas); err != nil {
		if errors.Is(err, reporting.ErrNoBoletas) {
			c.JSON(http.StatusUnprocessableEntity, common.NewErrorResponseWithDetails(err.Error(), result))
			return
		}
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="Boletas_%s_%s.xlsx"`, period, utils.Today()))
	c.Data(http.StatusOK, xlsxMime, buf.Bytes())
}

// ExportConcentrado downloads the concentrado workbook of a group.
func (ep *Endpoint) ExportConcentrado(c *gin.Context) {
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

	boletas, err := ep.svc.Client.Groups.FindBoletas(ctx, ref.ServerID)
	if err != nil {
		writeError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := reporting.ExportConcentrado(&buf, boletas); err != nil {
		if errors.Is(err, reporting.ErrNoBoletas) {
			c.JSON(http.StatusNotFound, common.NewErrorResponse(err.Error()))
			return
		}
		writeError(c, err)
		return
	}
	name := fmt.Sprintf("Concentrado_%s_%s.xlsx", boletas[0].GroupName, utils.Today())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, xlsxMime, buf.Bytes())
}
