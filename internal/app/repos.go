package app

import (
	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/repos"
)

type Repos struct {
	Client          repos.ClientRepo
	Packet          repos.PacketRepo
	IntakeProgress  repos.IntakeProgressRepo
	IntakeAnalytics repos.IntakeAnalyticsRepo
	PacketTemplate  repos.PacketTemplateRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Client:          repos.NewClientRepo(db, log),
		Packet:          repos.NewPacketRepo(db, log),
		IntakeProgress:  repos.NewIntakeProgressRepo(db, log),
		IntakeAnalytics: repos.NewIntakeAnalyticsRepo(db, log),
		PacketTemplate:  repos.NewPacketTemplateRepo(db, log),
	}
}
