package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/thrivewell/wellness-backend/internal/handlers"
	"github.com/thrivewell/wellness-backend/internal/middleware"
)

type RouterConfig struct {
	AllowOrigins []string

	AuthMiddleware *middleware.AuthMiddleware
	SessionHandler *handlers.SessionHandler
	IntakeHandler  *handlers.IntakeHandler
	PacketHandler  *handlers.PacketHandler
	WebhookHandler *handlers.WebhookHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.Healthcheck)
	router.POST("/webhooks/packet-status", cfg.WebhookHandler.PacketStatus)
	router.POST("/api/session", cfg.SessionHandler.Start)

	// Session-scoped
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		api.POST("/intake/progress", cfg.IntakeHandler.SaveProgress)
		api.GET("/intake/progress", cfg.IntakeHandler.GetProgress)
		api.POST("/intake/abandon", cfg.IntakeHandler.Abandon)
		api.POST("/intake/submit", cfg.IntakeHandler.Submit)
		api.GET("/packets", cfg.PacketHandler.ListMine)
	}

	// Staff
	admin := router.Group("/api/admin")
	admin.Use(cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireStaff())
	{
		admin.GET("/packets", cfg.PacketHandler.ListForClient)
		admin.PATCH("/packets/:id", cfg.PacketHandler.Edit)
		admin.POST("/packets/:id/send", cfg.PacketHandler.Send)
		admin.DELETE("/packets/:id", cfg.PacketHandler.Delete)
	}

	return router
}
