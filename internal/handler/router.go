package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nvalmar/luma/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Chat      *ChatHandler
	Documents *DocumentHandler
	Users     *UserHandler
	JWTSecret []byte
}

// RegisterRoutes mounts the API under the given group, typically /api/v1.
func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", middleware.RateLimit(time.Second), deps.Auth.Register)
	api.POST("/auth/login", middleware.RateLimit(time.Second), deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/chat/send", middleware.RateLimit(time.Second), deps.Chat.Send)
	authGroup.POST("/chat/send/stream", middleware.RateLimit(time.Second), deps.Chat.SendStream)
	authGroup.GET("/chat/conversations", deps.Chat.Conversations)
	authGroup.GET("/chat/conversations/:id/messages", deps.Chat.Messages)
	authGroup.DELETE("/chat/conversations/:id", deps.Chat.DeleteConversation)

	authGroup.GET("/profile", deps.Users.Profile)
	authGroup.PUT("/profile", deps.Users.UpdateProfile)

	adminGroup := authGroup.Group("")
	adminGroup.Use(middleware.RequireAdmin())
	adminGroup.POST("/documents", deps.Documents.Upload)
	adminGroup.GET("/documents", deps.Documents.List)
	adminGroup.GET("/documents/:id", deps.Documents.Get)
	adminGroup.GET("/documents/:id/logs", deps.Documents.ProcessingLogs)
	adminGroup.PUT("/documents/:id/status", deps.Documents.SetStatus)
	adminGroup.POST("/documents/:id/reprocess", deps.Documents.Reprocess)
	adminGroup.DELETE("/documents/:id", deps.Documents.Delete)
}
