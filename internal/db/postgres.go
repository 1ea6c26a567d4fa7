package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/pkg/envutil"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "wellness")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := s.db.AutoMigrate(
		&types.Client{},
		&types.IntakeProgress{},
		&types.IntakeAnalyticsRecord{},
		&types.Packet{},
		&types.PacketTemplate{},
	); err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	if err := s.db.Exec(`
		ALTER TABLE "packet"
		ADD CONSTRAINT "fk_packet_client_id"
		FOREIGN KEY ("client_id")
		REFERENCES "client"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		s.log.Warn("Failed to add fk_packet_client_id (may already exist)", "error", err)
	}
	if err := s.db.Exec(`
		ALTER TABLE "intake_progress"
		ADD CONSTRAINT "fk_intake_progress_client_id"
		FOREIGN KEY ("client_id")
		REFERENCES "client"("id")
		ON DELETE CASCADE
	`).Error; err != nil {
		s.log.Warn("Failed to add fk_intake_progress_client_id (may already exist)", "error", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
