package app

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/db"
	"github.com/thrivewell/wellness-backend/internal/middleware"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/server"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig()

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	clientset, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, clientset)
	if err != nil {
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, cfg, serviceset)
	authMiddleware := middleware.NewAuthMiddleware(log, serviceset.Auth)
	router := server.NewRouter(server.RouterConfig{
		AllowOrigins:   cfg.AllowOrigins,
		AuthMiddleware: authMiddleware,
		SessionHandler: handlerset.Session,
		IntakeHandler:  handlerset.Intake,
		PacketHandler:  handlerset.Packet,
		WebhookHandler: handlerset.Webhook,
	})

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Clients:  clientset,
		Services: serviceset,
	}, nil
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Clients.Cache != nil {
		if err := a.Clients.Cache.Close(); err != nil {
			a.Log.Warn("Failed to close progress cache", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
