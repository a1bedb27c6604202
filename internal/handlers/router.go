package handlers

import (
	"github.com/gin-gonic/gin"
	"prompt-image-studio/internal/config"
	"prompt-image-studio/internal/imagestore"
	"prompt-image-studio/internal/logger"
	"prompt-image-studio/internal/middleware"
)

type Handlers struct {
	Process       *ProcessHandler
	Jobs          *JobHandler
	Conversations *ConversationHandler
	Uploads       *UploadHandler
	ModelConfig   *ModelConfigHandler
	Library       *LibraryHandler
	Health        *HealthHandler
}

func NewRouter(cfg *config.Config, log *logger.Logger, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log))
	if len(cfg.CORSOrigins) > 0 {
		router.Use(middleware.CORS(cfg.CORSOrigins))
	}
	router.MaxMultipartMemory = 12 << 20

	router.GET("/health", h.Health.Health)
	router.GET(imagestore.URLPrefix+":filename", h.Uploads.ServeImage)

	api := router.Group("/api")
	{
		api.POST("/upload", h.Uploads.Upload)
		api.POST("/process-image", h.Process.ProcessImage)

		api.GET("/processing-jobs/:messageId", h.Jobs.GetJob)
		api.GET("/processing-jobs/:messageId/events", h.Jobs.Events)

		api.GET("/model-config", h.ModelConfig.GetModelConfig)
		api.POST("/model-config", h.ModelConfig.UpdateModelConfig)

		api.POST("/conversations", h.Conversations.CreateConversation)
		api.GET("/conversations", h.Conversations.ListConversations)
		api.GET("/conversations/:id", h.Conversations.GetConversation)
		api.GET("/conversations/:id/messages", h.Conversations.ListMessages)
	}

	library := api.Group("/library")
	library.Use(middleware.AuthMiddleware(cfg))
	{
		library.GET("", h.Library.ListImages)
		library.POST("", h.Library.SaveImage)
		library.DELETE("/:id", h.Library.DeleteImage)
	}

	return router
}
