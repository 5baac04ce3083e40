package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/testforge/exam-service/internal/services"
	"github.com/testforge/exam-service/internal/utils"
)

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
	validator       *utils.Validator
}

func NewProgressHandler(progressService services.ProgressService, validator *utils.Validator, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
		validator:       validator,
	}
}

// SaveProgress stores the attempt snapshot. Clients call this on an autosave
// interval; each call fully replaces the previous snapshot.
func (h *ProgressHandler) SaveProgress(c *gin.Context) {
	var req services.SaveProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	progress, err := h.progressService.Save(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetProgress returns the resumable snapshot for (test, student)
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	email, ok := h.requireEmailQuery(c)
	if !ok {
		return
	}

	progress, err := h.progressService.Get(c.Request.Context(), testID, email)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// CompleteProgress closes the snapshot without submitting
func (h *ProgressHandler) CompleteProgress(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	email, ok := h.requireEmailQuery(c)
	if !ok {
		return
	}

	if err := h.progressService.Complete(c.Request.Context(), testID, email); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Progress completed"})
}

// ResetProgress wipes a student's saved attempt so they can restart
func (h *ProgressHandler) ResetProgress(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	email, ok := h.requireEmailQuery(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Resetting progress", "test_id", testID, "student_email", email)

	if err := h.progressService.Reset(c.Request.Context(), testID, email, identity.UserID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Progress reset"})
}

// RecordWarning registers a proctoring event against the active attempt
func (h *ProgressHandler) RecordWarning(c *gin.Context) {
	var req services.ProctoringEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	status, err := h.progressService.RecordWarning(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
