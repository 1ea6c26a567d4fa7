package repos

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/types"
)

type ClientRepo interface {
	Create(dbc dbctx.Context, client *types.Client) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Client, error)
	GetByEmail(dbc dbctx.Context, email string) (*types.Client, error)
	Update(dbc dbctx.Context, client *types.Client) error
}

type clientRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClientRepo(db *gorm.DB, baseLog *logger.Logger) ClientRepo {
	return &clientRepo{db: db, log: baseLog.With("repo", "ClientRepo")}
}

// NormalizeEmail lower-cases and trims an email so lookups by email are
// stable regardless of how the caller typed it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (cr *clientRepo) conn(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return cr.db.WithContext(dbc.Ctx)
}

func (cr *clientRepo) Create(dbc dbctx.Context, client *types.Client) error {
	if client == nil {
		return errors.New("client required")
	}
	client.Email = NormalizeEmail(client.Email)
	return cr.conn(dbc).Create(client).Error
}

func (cr *clientRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Client, error) {
	var out types.Client
	if err := cr.conn(dbc).Where("id = ?", id).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (cr *clientRepo) GetByEmail(dbc dbctx.Context, email string) (*types.Client, error) {
	var out types.Client
	if err := cr.conn(dbc).Where("email = ?", NormalizeEmail(email)).First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (cr *clientRepo) Update(dbc dbctx.Context, client *types.Client) error {
	if client == nil || client.ID == uuid.Nil {
		return errors.New("client with id required")
	}
	client.Email = NormalizeEmail(client.Email)
	return cr.conn(dbc).Save(client).Error
}
