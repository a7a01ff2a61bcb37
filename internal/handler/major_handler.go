package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/liyun-dev/campus-sis-api/internal/models"
	"github.com/liyun-dev/campus-sis-api/internal/service"
	appErrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
	"github.com/liyun-dev/campus-sis-api/pkg/response"
)

// MajorHandler exposes major catalog endpoints.
type MajorHandler struct {
	majors *service.MajorService
}

// NewMajorHandler constructs MajorHandler.
func NewMajorHandler(majors *service.MajorService) *MajorHandler {
	return &MajorHandler{majors: majors}
}

// List godoc
// @Summary List majors
// @Tags Catalog
// @Produce json
// @Param departmentId query string false "Filter by department"
// @Param search query string false "Search by name or code"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /majors [get]
func (h *MajorHandler) List(c *gin.Context) {
	var filter models.MajorFilter
	filter.DepartmentID = c.Query("departmentId")
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = parsePaging(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	majors, total, err := h.majors.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, majors, paginationFor(filter.Page, filter.PageSize, total))
}

// Get godoc
// @Summary Get one major
// @Tags Catalog
// @Produce json
// @Param id path string true "Major ID"
// @Success 200 {object} response.Envelope
// @Router /majors/{id} [get]
func (h *MajorHandler) Get(c *gin.Context) {
	major, err := h.majors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, major, nil)
}

// Create godoc
// @Summary Create a major
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body service.MajorRequest true "Major payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /majors [post]
func (h *MajorHandler) Create(c *gin.Context) {
	var req service.MajorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid major payload"))
		return
	}

	major, err := h.majors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, major)
}

// Update godoc
// @Summary Update a major
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Major ID"
// @Param payload body service.MajorRequest true "Major payload"
// @Success 200 {object} response.Envelope
// @Router /majors/{id} [put]
func (h *MajorHandler) Update(c *gin.Context) {
	var req service.MajorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid major payload"))
		return
	}

	major, err := h.majors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, major, nil)
}

// Delete godoc
// @Summary Delete a major
// @Description Removes the major and its enrollments; student profiles keep their department
// @Tags Catalog
// @Produce json
// @Param id path string true "Major ID"
// @Success 204 {object} response.Envelope
// @Router /majors/{id} [delete]
func (h *MajorHandler) Delete(c *gin.Context) {
	if err := h.majors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
