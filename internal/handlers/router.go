package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/assignment-engine/internal/config"
	"github.com/learnloop/assignment-engine/internal/services"
	"github.com/learnloop/assignment-engine/internal/utils"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	historyHandler *HistoryHandler
	serviceManager services.ServiceManager
	auth           gin.HandlerFunc
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig)

	return &HandlerManager{
		sessionHandler: NewSessionHandler(serviceManager.Session(), logger),
		historyHandler: NewHistoryHandler(serviceManager.Session(), logger),
		serviceManager: serviceManager,
		auth:           authMiddleware.AuthMiddleware(),
	}
}

// NewHandlerManagerWithAuth builds a manager with a custom auth
// middleware. Used by tests.
func NewHandlerManagerWithAuth(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	auth gin.HandlerFunc,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(serviceManager.Session(), logger),
		historyHandler: NewHistoryHandler(serviceManager.Session(), logger),
		serviceManager: serviceManager,
		auth:           auth,
	}
}

// SetupRoutes registers all routes. /health is unauthenticated;
// everything else requires a learner token.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(hm.auth)
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.MountSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:id", hm.sessionHandler.TeardownSession)

			sessions.POST("/:id/topic", hm.sessionHandler.SelectTopic)
			sessions.POST("/:id/topic/next", hm.sessionHandler.NextTopic)
			sessions.POST("/:id/topic/previous", hm.sessionHandler.PreviousTopic)

			sessions.POST("/:id/test/start", hm.sessionHandler.StartTest)
			sessions.POST("/:id/test/answer", hm.sessionHandler.SelectAnswer)
			sessions.POST("/:id/test/next", hm.sessionHandler.NextQuestion)
			sessions.POST("/:id/test/previous", hm.sessionHandler.PreviousQuestion)
			sessions.POST("/:id/test/submit", hm.sessionHandler.SubmitTest)

			sessions.POST("/:id/retake", hm.sessionHandler.Retake)

			sessions.GET("/:id/history", hm.historyHandler.GetHistory)
			sessions.GET("/:id/history/export", hm.historyHandler.ExportHistory)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
