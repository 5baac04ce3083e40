package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/testforge/exam-service/internal/services"
	"github.com/testforge/exam-service/internal/utils"
)

type RunnerHandler struct {
	BaseHandler
	runnerService services.RunnerService
	validator     *utils.Validator
}

func NewRunnerHandler(runnerService services.RunnerService, validator *utils.Validator, logger utils.Logger) *RunnerHandler {
	return &RunnerHandler{
		BaseHandler:   NewBaseHandler(logger),
		runnerService: runnerService,
		validator:     validator,
	}
}

// RunCode executes student code for in-attempt feedback
func (h *RunnerHandler) RunCode(c *gin.Context) {
	var req services.RunCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.runnerService.Run(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
