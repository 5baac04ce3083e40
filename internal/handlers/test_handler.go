package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/testforge/exam-service/internal/repositories"
	"github.com/testforge/exam-service/internal/services"
	"github.com/testforge/exam-service/internal/utils"
)

type TestHandler struct {
	BaseHandler
	testService services.TestService
	validator   *utils.Validator
}

func NewTestHandler(testService services.TestService, validator *utils.Validator, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
		validator:   validator,
	}
}

// CreateTest creates a new test definition
func (h *TestHandler) CreateTest(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	var req services.CreateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating test", "title", req.Title)

	test, err := h.testService.Create(c.Request.Context(), &req, identity.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}

// GetTest returns a test with its answer keys. Creator only.
func (h *TestHandler) GetTest(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), id, identity.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// ListTests returns the caller's tests
func (h *TestHandler) ListTests(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	filters := h.parseTestFilters(c)
	tests, total, err := h.testService.List(c.Request.Context(), identity.UserID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PagedResponse{Data: tests, Total: total})
}

// UpdateTest applies a partial update to a test definition
func (h *TestHandler) UpdateTest(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UpdateTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Updating test", "test_id", id)

	test, err := h.testService.Update(c.Request.Context(), id, &req, identity.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// DeleteTest removes a test definition
func (h *TestHandler) DeleteTest(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting test", "test_id", id)

	if err := h.testService.Delete(c.Request.Context(), id, identity.UserID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test deleted"})
}

// ShareTest makes a test reachable through a share token
func (h *TestHandler) ShareTest(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	token, err := h.testService.Share(c.Request.Context(), id, identity.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"share_token": token})
}

// UnshareTest revokes the share token
func (h *TestHandler) UnshareTest(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.testService.Unshare(c.Request.Context(), id, identity.UserID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test unshared"})
}

// GetTestForStudent resolves a share token into the redacted student view.
// This is the only handler that exposes test content without authentication.
func (h *TestHandler) GetTestForStudent(c *gin.Context) {
	token := c.Param("token")

	view, err := h.testService.GetForStudent(c.Request.Context(), token)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *TestHandler) parseTestFilters(c *gin.Context) repositories.TestFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.TestFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if publicStr := c.Query("is_public"); publicStr != "" {
		isPublic := publicStr == "true"
		filters.IsPublic = &isPublic
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.DateFrom = &t
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.DateTo = &t
		}
	}

	return filters
}
