package repos

import (
	"errors"

	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/types"
)

type PacketTemplateRepo interface {
	// GetDefault returns the default template for the pair, or nil.
	GetDefault(dbc dbctx.Context, packetType types.PacketType, classification types.Classification) (*types.PacketTemplate, error)
	Create(dbc dbctx.Context, template *types.PacketTemplate) error
}

type packetTemplateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPacketTemplateRepo(db *gorm.DB, baseLog *logger.Logger) PacketTemplateRepo {
	return &packetTemplateRepo{db: db, log: baseLog.With("repo", "PacketTemplateRepo")}
}

func (tr *packetTemplateRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return tr.db.WithContext(dbc.Ctx)
}

func (tr *packetTemplateRepo) GetDefault(dbc dbctx.Context, packetType types.PacketType, classification types.Classification) (*types.PacketTemplate, error) {
	var out types.PacketTemplate
	if err := tr.conn(dbc).
		Where("type = ? AND classification = ? AND is_default = ?", packetType, classification, true).
		First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (tr *packetTemplateRepo) Create(dbc dbctx.Context, template *types.PacketTemplate) error {
	if template == nil {
		return errors.New("template required")
	}
	// Only one default per (type, classification). Demote any existing
	// default inside the same transaction.
	if template.IsDefault {
		if err := tr.conn(dbc).
			Model(&types.PacketTemplate{}).
			Where("type = ? AND classification = ? AND is_default = ?", template.Type, template.Classification, true).
			Update("is_default", false).Error; err != nil {
			return err
		}
	}
	return tr.conn(dbc).Create(template).Error
}
