package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liyun-dev/campus-sis-api/internal/service"
	appErrors "github.com/liyun-dev/campus-sis-api/pkg/errors"
	"github.com/liyun-dev/campus-sis-api/pkg/response"
)

// TranscriptHandler exposes GPA summaries and grade histories.
type TranscriptHandler struct {
	transcripts *service.TranscriptService
	students    *service.StudentService
}

// NewTranscriptHandler constructs TranscriptHandler.
func NewTranscriptHandler(transcripts *service.TranscriptService, students *service.StudentService) *TranscriptHandler {
	return &TranscriptHandler{transcripts: transcripts, students: students}
}

// Summary godoc
// @Summary Transcript summary for a student profile
// @Description GPA over graded courses, average over scored courses and the current-term load
// @Tags Transcripts
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/transcript [get]
func (h *TranscriptHandler) Summary(c *gin.Context) {
	summary, err := h.transcripts.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// History godoc
// @Summary Full grade history for a student profile
// @Tags Transcripts
// @Produce json
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/transcript/history [get]
func (h *TranscriptHandler) History(c *gin.Context) {
	history, err := h.transcripts.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// MySummary godoc
// @Summary Transcript summary for the authenticated student
// @Tags Transcripts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/me/transcript [get]
func (h *TranscriptHandler) MySummary(c *gin.Context) {
	profile, ok := h.ownProfile(c)
	if !ok {
		return
	}

	summary, err := h.transcripts.Summary(c.Request.Context(), profile)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// MyHistory godoc
// @Summary Grade history for the authenticated student
// @Tags Transcripts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/me/transcript/history [get]
func (h *TranscriptHandler) MyHistory(c *gin.Context) {
	profile, ok := h.ownProfile(c)
	if !ok {
		return
	}

	history, err := h.transcripts.History(c.Request.Context(), profile)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// ownProfile resolves the caller's profile ID, writing the error response on
// failure.
func (h *TranscriptHandler) ownProfile(c *gin.Context) (string, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return "", false
	}

	profile, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return profile.ID, true
}
