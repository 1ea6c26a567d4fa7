package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/routing"
	"github.com/thrivewell/wellness-backend/internal/services"
)

type Services struct {
	Auth       services.AuthService
	Analytics  services.AnalyticsService
	Progress   services.ProgressService
	Routing    services.RoutingService
	Submission services.SubmissionService
	Lifecycle  services.LifecycleService
	PDF        services.PDFService
	Notifier   services.Notifier
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, c Clients) (Services, error) {
	log.Info("Wiring services...")

	table := routing.DefaultTable()
	if cfg.RoutingRulesPath != "" {
		loaded, err := routing.LoadFile(cfg.RoutingRulesPath)
		if err != nil {
			return Services{}, fmt.Errorf("load routing rules from %s: %w", cfg.RoutingRulesPath, err)
		}
		table = loaded
	}

	pdf := services.NewPDFService(log, c.Bucket)
	notifier := services.NewEmailNotifier(log, c.Mail, cfg.StaffNotifyEmail)
	analytics := services.NewAnalyticsService(db, log, r.IntakeAnalytics)
	routingSvc := services.NewRoutingService(log, table, r.Packet)

	return Services{
		Auth:       services.NewAuthService(log, r.Client, cfg.JWTSecretKey, cfg.SessionTTL),
		Analytics:  analytics,
		Progress:   services.NewProgressService(db, log, r.Client, r.IntakeProgress, analytics, c.Cache),
		Routing:    routingSvc,
		Submission: services.NewSubmissionService(db, log, r.Client, r.IntakeProgress, routingSvc, analytics, notifier),
		Lifecycle:  services.NewLifecycleService(db, log, r.Client, r.Packet, r.PacketTemplate, pdf, notifier),
		PDF:        pdf,
		Notifier:   notifier,
	}, nil
}
