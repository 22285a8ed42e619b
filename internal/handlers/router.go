package handlers

import (
	"time"

	"github.com/dadok-care/survey-engine/internal/identity"
	"github.com/dadok-care/survey-engine/internal/services"
	"github.com/dadok-care/survey-engine/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	promptHandler *PromptHandler
}

func NewHandlerManager(
	promptService services.PromptService,
	exportService services.ExportService,
	identities *identity.Chain,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		promptHandler: NewPromptHandler(promptService, exportService, identities, logger),
	}
}

// SetupRoutes sets up all API routes. allowedOrigins lists the extension
// and viewer origins permitted to call the facade.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, allowedOrigins []string) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowWildcard: true,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "X-USER-ID", "Authorization"},
		MaxAge:        12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/questions/next", hm.promptHandler.GetNextQuestion)
		v1.POST("/answers", hm.promptHandler.SubmitAnswer)
		v1.GET("/progress", hm.promptHandler.GetProgress)
		v1.POST("/reset", hm.promptHandler.ResetSurvey)
		v1.GET("/export", hm.promptHandler.ExportHistory)
	}
}
