package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/types"
)

// ErrRevisionConflict is returned by UpdateWithRevision when the row moved
// under the caller. The caller re-reads and retries.
var ErrRevisionConflict = errors.New("packet revision conflict")

type PacketRepo interface {
	Create(dbc dbctx.Context, packets []*types.Packet) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Packet, error)
	ListByClient(dbc dbctx.Context, clientID uuid.UUID) ([]*types.Packet, error)
	// ListByClientAndType returns packets newest-first.
	ListByClientAndType(dbc dbctx.Context, clientID uuid.UUID, packetType types.PacketType) ([]*types.Packet, error)
	// UpdateWithRevision persists the packet only if the stored revision still
	// matches packet.Revision, then bumps the revision. Returns
	// ErrRevisionConflict on a lost race.
	UpdateWithRevision(dbc dbctx.Context, packet *types.Packet) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type packetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPacketRepo(db *gorm.DB, baseLog *logger.Logger) PacketRepo {
	return &packetRepo{db: db, log: baseLog.With("repo", "PacketRepo")}
}

func (pr *packetRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return pr.db.WithContext(dbc.Ctx)
}

func (pr *packetRepo) Create(dbc dbctx.Context, packets []*types.Packet) error {
	if len(packets) == 0 {
		return nil
	}
	return pr.conn(dbc).Create(&packets).Error
}

func (pr *packetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Packet, error) {
	var out types.Packet
	if err := pr.conn(dbc).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (pr *packetRepo) ListByClient(dbc dbctx.Context, clientID uuid.UUID) ([]*types.Packet, error) {
	var out []*types.Packet
	if err := pr.conn(dbc).
		Where("client_id = ?", clientID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (pr *packetRepo) ListByClientAndType(dbc dbctx.Context, clientID uuid.UUID, packetType types.PacketType) ([]*types.Packet, error) {
	var out []*types.Packet
	if err := pr.conn(dbc).
		Where("client_id = ? AND type = ?", clientID, packetType).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (pr *packetRepo) UpdateWithRevision(dbc dbctx.Context, packet *types.Packet) error {
	if packet == nil || packet.ID == uuid.Nil {
		return errors.New("packet with id required")
	}

	readRevision := packet.Revision
	packet.Revision = readRevision + 1

	res := pr.conn(dbc).
		Model(&types.Packet{}).
		Where("id = ? AND revision = ?", packet.ID, readRevision).
		Select("*").
		Omit("id", "created_at").
		Updates(packet)
	if res.Error != nil {
		packet.Revision = readRevision
		return res.Error
	}
	if res.RowsAffected == 0 {
		packet.Revision = readRevision
		return ErrRevisionConflict
	}
	return nil
}

func (pr *packetRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return pr.conn(dbc).Where("id = ?", id).Delete(&types.Packet{}).Error
}
