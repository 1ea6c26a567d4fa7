package app

import (
	"github.com/thrivewell/wellness-backend/internal/handlers"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
)

type Handlers struct {
	Session *handlers.SessionHandler
	Intake  *handlers.IntakeHandler
	Packet  *handlers.PacketHandler
	Webhook *handlers.WebhookHandler
}

func wireHandlers(log *logger.Logger, cfg Config, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Session: handlers.NewSessionHandler(log, s.Auth),
		Intake:  handlers.NewIntakeHandler(log, s.Progress, s.Submission, s.Analytics),
		Packet:  handlers.NewPacketHandler(log, s.Lifecycle),
		Webhook: handlers.NewWebhookHandler(log, s.Lifecycle, cfg.WebhookSecret),
	}
}
