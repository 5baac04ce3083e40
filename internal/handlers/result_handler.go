package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/testforge/exam-service/internal/repositories"
	"github.com/testforge/exam-service/internal/services"
	"github.com/testforge/exam-service/internal/utils"
)

type ResultHandler struct {
	BaseHandler
	resultService services.ResultService
	validator     *utils.Validator
}

func NewResultHandler(resultService services.ResultService, validator *utils.Validator, logger utils.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler:   NewBaseHandler(logger),
		resultService: resultService,
		validator:     validator,
	}
}

// Submit records a final submission and runs the objective scoring pass
func (h *ResultHandler) Submit(c *gin.Context) {
	var req services.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting test", "test_id", req.TestID)

	receipt, err := h.resultService.Submit(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

// Status reports whether a student already submitted a test
func (h *ResultHandler) Status(c *gin.Context) {
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}
	email, ok := h.requireEmailQuery(c)
	if !ok {
		return
	}

	status, err := h.resultService.Status(c.Request.Context(), testID, email)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetResult returns one full result for grading
func (h *ResultHandler) GetResult(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	result, err := h.resultService.GetByID(c.Request.Context(), id, identity.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListResults returns all results for a test
func (h *ResultHandler) ListResults(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	filters := h.parseResultFilters(c)
	results, total, err := h.resultService.GetByTest(c.Request.Context(), testID, identity.UserID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PagedResponse{Data: results, Total: total})
}

// GetStats returns aggregate statistics for a test's results
func (h *ResultHandler) GetStats(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	stats, err := h.resultService.Stats(c.Request.Context(), testID, identity.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// EvaluateDescriptive records a manual grade for a descriptive answer
func (h *ResultHandler) EvaluateDescriptive(c *gin.Context) {
	h.evaluate(c, h.resultService.EvaluateDescriptive)
}

// EvaluateCoding records a manual grade for a coding answer
func (h *ResultHandler) EvaluateCoding(c *gin.Context) {
	h.evaluate(c, h.resultService.EvaluateCoding)
}

func (h *ResultHandler) evaluate(c *gin.Context, apply func(ctx context.Context, req *services.EvaluateRequest, adminID string) (*services.GradeReceipt, error)) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	resultID := h.parseIDParam(c, "id")
	if resultID == 0 {
		return
	}

	var req services.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	req.ResultID = resultID

	h.LogRequest(c, "Recording manual grade",
		"result_id", resultID,
		"section", req.SectionIndex,
		"question", req.QuestionIndex)

	receipt, err := apply(c.Request.Context(), &req, identity.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

// Export streams every result for a test as an XLSX workbook
func (h *ResultHandler) Export(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	testID := h.parseIDParam(c, "test_id")
	if testID == 0 {
		return
	}

	h.LogRequest(c, "Exporting results", "test_id", testID)

	data, err := h.resultService.ExportByTest(c.Request.Context(), testID, identity.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("results-test-%d.xlsx", testID)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *ResultHandler) parseResultFilters(c *gin.Context) repositories.ResultFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 50)

	filters := repositories.ResultFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if email := c.Query("email"); email != "" {
		filters.StudentEmail = &email
	}

	return filters
}
