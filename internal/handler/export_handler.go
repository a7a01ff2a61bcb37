package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	"github.com/liyun-dev/campus-sis-api/internal/service"
	appErrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
	"github.com/liyun-dev/campus-sis-api/pkg/response"
)

// ExportHandler exposes roster and transcript export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// enabled writes a 404 when the export pipeline is not configured.
func (h *ExportHandler) enabled(c *gin.Context) bool {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return false
	}
	return true
}

// RequestRoster godoc
// @Summary Queue a roster CSV export
// @Tags Exports
// @Produce json
// @Param search query string false "Search filter"
// @Param departmentId query string false "Filter by department"
// @Param status query string false "Filter by enrollment status"
// @Success 202 {object} response.Envelope
// @Router /exports/roster [post]
func (h *ExportHandler) RequestRoster(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.StudentFilter{
		Search:       strings.TrimSpace(c.Query("search")),
		DepartmentID: c.Query("departmentId"),
		Status:       models.EnrollmentStatus(c.Query("status")),
	}

	job, err := h.exports.RequestRosterCSV(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// RequestTranscript godoc
// @Summary Queue a transcript PDF export for one student
// @Tags Exports
// @Produce json
// @Param id path string true "Profile ID"
// @Success 202 {object} response.Envelope
// @Router /exports/transcripts/{id} [post]
func (h *ExportHandler) RequestTranscript(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	job, err := h.exports.RequestTranscriptPDF(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Check an export job
// @Tags Exports
// @Produce json
// @Param id path string true "Export ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	job, err := h.exports.Status(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download a completed export
// @Description The signed token in the query string authenticates the download
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, name, err := h.exports.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	contentType := "application/octet-stream"
	switch filepath.Ext(name) {
	case ".csv":
		contentType = "text/csv"
	case ".pdf":
		contentType = "application/pdf"
	}

	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Header("Content-Type", contentType)
	c.File(file.Name())
}
