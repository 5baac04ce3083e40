package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/testforge/exam-service/internal/auth"
	"github.com/testforge/exam-service/internal/services"
	"github.com/testforge/exam-service/internal/utils"
)

type HandlerManager struct {
	testHandler     *TestHandler
	progressHandler *ProgressHandler
	resultHandler   *ResultHandler
	runnerHandler   *RunnerHandler
	userService     services.UserService
	verifier        *auth.Verifier
	logger          utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *utils.Validator,
	logger utils.Logger,
	verifier *auth.Verifier,
) *HandlerManager {
	return &HandlerManager{
		testHandler:     NewTestHandler(serviceManager.Test(), validator, logger),
		progressHandler: NewProgressHandler(serviceManager.Progress(), validator, logger),
		resultHandler:   NewResultHandler(serviceManager.Result(), validator, logger),
		runnerHandler:   NewRunnerHandler(serviceManager.Runner(), validator, logger),
		userService:     serviceManager.User(),
		verifier:        verifier,
		logger:          logger,
	}
}

// syncIdentity mirrors the verified admin into local storage after the auth
// middleware has run. Best-effort: a storage hiccup must not fail the
// request the token already authorized.
func (hm *HandlerManager) syncIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if identity, ok := auth.IdentityFromContext(c); ok {
			if _, err := hm.userService.SyncIdentity(c.Request.Context(), identity.UserID, identity.Email, identity.FullName); err != nil {
				hm.logger.Warn("Failed to sync admin identity", "user_id", identity.UserID, "error", err)
			}
		}
		c.Next()
	}
}

// SetupRoutes sets up all API routes. Student-facing routes are public; a
// share token is the only credential an exam taker holds. Admin routes sit
// behind the bearer-token middleware.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "exam-service",
		})
	})

	v1 := router.Group("/api/v1")
	{
		// Student routes (no authentication)
		v1.GET("/take/:token", hm.testHandler.GetTestForStudent)

		progress := v1.Group("/progress")
		{
			progress.POST("", hm.progressHandler.SaveProgress)
			progress.GET("/:test_id", hm.progressHandler.GetProgress)
			progress.POST("/:test_id/complete", hm.progressHandler.CompleteProgress)
			progress.POST("/warnings", hm.progressHandler.RecordWarning)
		}

		submissions := v1.Group("/submissions")
		{
			submissions.POST("", hm.resultHandler.Submit)
			submissions.GET("/status/:test_id", hm.resultHandler.Status)
		}

		v1.POST("/run", hm.runnerHandler.RunCode)

		// Admin routes
		admin := v1.Group("", auth.Middleware(hm.verifier), hm.syncIdentity())
		{
			tests := admin.Group("/tests")
			{
				tests.POST("", hm.testHandler.CreateTest)
				tests.GET("", hm.testHandler.ListTests)
				tests.GET("/:id", hm.testHandler.GetTest)
				tests.PUT("/:id", hm.testHandler.UpdateTest)
				tests.DELETE("/:id", hm.testHandler.DeleteTest)

				tests.POST("/:id/share", hm.testHandler.ShareTest)
				tests.DELETE("/:id/share", hm.testHandler.UnshareTest)
			}

			admin.GET("/tests/:id/results", wrapTestID(hm.resultHandler.ListResults))
			admin.GET("/tests/:id/stats", wrapTestID(hm.resultHandler.GetStats))
			admin.GET("/tests/:id/export", wrapTestID(hm.resultHandler.Export))
			admin.DELETE("/tests/:id/progress", wrapTestID(hm.progressHandler.ResetProgress))

			results := admin.Group("/results")
			{
				results.GET("/:id", hm.resultHandler.GetResult)
				results.POST("/:id/grade/descriptive", hm.resultHandler.EvaluateDescriptive)
				results.POST("/:id/grade/coding", hm.resultHandler.EvaluateCoding)
			}
		}
	}
}

// wrapTestID aliases the :id route parameter as :test_id so handlers shared
// between test-scoped and result-scoped routes parse a consistent name.
func wrapTestID(handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Params = append(c.Params, gin.Param{Key: "test_id", Value: c.Param("id")})
		handler(c)
	}
}
