package routes

import (
	"net/http"

	"telechat/internal/config"
	"telechat/internal/handlers"
	"telechat/internal/middleware"
	"telechat/internal/services"
	"telechat/internal/utils"
	"telechat/internal/websocket"
	"telechat/pkg/database"

	"github.com/gin-gonic/gin"
)

// SetupRoutes wires middleware, services and handlers onto the router
func SetupRoutes(router *gin.Engine, hub *websocket.Hub, cfg *config.Config) {
	authService := services.NewAuthService()
	userService := services.NewUserService()
	chatService := services.NewChatService()

	// Presence flips persist through the user service
	hub.OnPresenceChange = userService.SetPresence

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	chatHandler := handlers.NewChatHandler(chatService, hub, cfg)
	wsHandler := handlers.NewWebSocketHandler(hub, cfg)

	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg))

	router.GET("/health", func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context()); err != nil {
			utils.ErrorResponse(c, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		utils.SuccessResponse(c, gin.H{"status": "ok"})
	})

	router.Static("/uploads", cfg.Upload.Directory)

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.Auth(), authHandler.Me)
	}

	users := api.Group("/users", middleware.Auth())
	{
		users.GET("/search", userHandler.Search)
		users.GET("/online", userHandler.OnlineList)
		users.GET("/:userId", userHandler.GetByID)
		users.PUT("/profile", userHandler.UpdateProfile)
		users.PUT("/status", userHandler.UpdateStatus)
		users.PUT("/preferences", userHandler.UpdatePreferences)
	}

	chat := api.Group("/chat", middleware.Auth())
	{
		chat.GET("", chatHandler.List)
		chat.GET("/search", chatHandler.SearchMessages)
		chat.GET("/with/:userId", chatHandler.GetOrCreateDirect)
		chat.POST("/group", chatHandler.CreateGroup)

		chat.GET("/:chatId", chatHandler.Get)
		chat.POST("/:chatId/members", chatHandler.AddMember)
		chat.DELETE("/:chatId/members/:userId", chatHandler.RemoveMember)
		chat.PUT("/:chatId/group", chatHandler.UpdateGroup)
		chat.PUT("/:chatId/theme", chatHandler.UpdateTheme)
		chat.GET("/:chatId/messages", chatHandler.GetMessages)
		chat.POST("/:chatId/messages", chatHandler.SendMessage)
		chat.GET("/:chatId/pinned", chatHandler.GetPinned)
		chat.POST("/:chatId/upload", chatHandler.Upload)
		chat.POST("/:chatId/read", chatHandler.MarkRead)
		chat.POST("/:chatId/typing", chatHandler.SetTyping)

		chat.PUT("/messages/:messageId", chatHandler.EditMessage)
		chat.DELETE("/messages/:messageId", chatHandler.DeleteMessage)
		chat.POST("/messages/:messageId/reactions", chatHandler.ToggleReaction)
		chat.POST("/messages/:messageId/pin", chatHandler.TogglePin)
		chat.POST("/messages/:messageId/forward", chatHandler.Forward)
	}

	router.GET("/ws", middleware.Auth(), wsHandler.Handle)
}
