package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/repos"
	"github.com/thrivewell/wellness-backend/internal/requestdata"
	"github.com/thrivewell/wellness-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&types.Client{},
		&types.IntakeProgress{},
		&types.IntakeAnalyticsRecord{},
		&types.Packet{},
		&types.PacketTemplate{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func authedCtx(clientID uuid.UUID, email string) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{
		ClientID: clientID,
		Email:    email,
		Role:     requestdata.RoleClient,
	})
}

func seedClient(t *testing.T, db *gorm.DB, classification types.Classification) *types.Client {
	t.Helper()
	client := &types.Client{
		ID:             uuid.New(),
		Email:          fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		FirstName:      "Jamie",
		LastName:       "Rivera",
		Classification: classification,
	}
	if err := db.Create(client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

func seedPacket(t *testing.T, db *gorm.DB, clientID uuid.UUID, pt types.PacketType, status types.PacketStatus) *types.Packet {
	t.Helper()
	packet := &types.Packet{
		ID:       uuid.New(),
		ClientID: clientID,
		Type:     pt,
		Status:   status,
		Version:  1,
	}
	if err := db.Create(packet).Error; err != nil {
		t.Fatalf("seed packet: %v", err)
	}
	return packet
}

func reloadPacket(t *testing.T, db *gorm.DB, id uuid.UUID) *types.Packet {
	t.Helper()
	repo := repos.NewPacketRepo(db, logger.NewNop())
	packet, err := repo.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil {
		t.Fatalf("reload packet: %v", err)
	}
	if packet == nil {
		t.Fatalf("packet %s not found", id)
	}
	return packet
}

type fakeNotifier struct {
	mu        sync.Mutex
	ready     int
	updated   int
	completed int
	err       error
}

func (f *fakeNotifier) PacketReady(ctx context.Context, client *types.Client, packet *types.Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready++
	return f.err
}

func (f *fakeNotifier) PacketUpdated(ctx context.Context, client *types.Client, packet *types.Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated++
	return f.err
}

func (f *fakeNotifier) IntakeCompleted(ctx context.Context, client *types.Client) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed++
	return f.err
}

type fakePDF struct {
	mu        sync.Mutex
	generated []uuid.UUID
	deleted   []string
	genErr    error
	delErr    error
}

func (f *fakePDF) Generate(ctx context.Context, packet *types.Packet, client *types.Client, template *types.PacketTemplate) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.genErr != nil {
		return "", f.genErr
	}
	f.generated = append(f.generated, packet.ID)
	return fmt.Sprintf("https://cdn.test/packets/%s/%s-v%d.pdf", packet.ClientID, packet.ID, packet.Version), nil
}

func (f *fakePDF) Delete(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, url)
	return nil
}
