package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/repos"
	"github.com/thrivewell/wellness-backend/internal/routing"
	"github.com/thrivewell/wellness-backend/internal/types"
)

// RoutingService maps a client profile to the packets it requires and
// materializes one pending row per required type.
//
// Routing is idempotent per (client, type): re-submission re-pends the
// existing active packet of a type instead of inserting a duplicate, so the
// callback lookup never has to choose between rows. A FAILED packet is not
// active; a fresh row is created for the retried generation and linked to the
// failed attempt through the version chain fields on the new row.
type RoutingService interface {
	Route(dbc dbctx.Context, client *types.Client, answers map[string]any) ([]*types.Packet, error)
}

type routingService struct {
	log        *logger.Logger
	table      *routing.Table
	packetRepo repos.PacketRepo
}

func NewRoutingService(log *logger.Logger, table *routing.Table, packetRepo repos.PacketRepo) RoutingService {
	if table == nil {
		table = routing.DefaultTable()
	}
	return &routingService{
		log:        log.With("service", "RoutingService"),
		table:      table,
		packetRepo: packetRepo,
	}
}

func (rs *routingService) Route(dbc dbctx.Context, client *types.Client, answers map[string]any) ([]*types.Packet, error) {
	if client == nil || client.ID == uuid.Nil {
		return nil, fmt.Errorf("client required")
	}

	required, err := rs.table.TypesFor(client.Classification, answers)
	if err != nil {
		return nil, err
	}

	var (
		created []*types.Packet
		out     []*types.Packet
	)
	for _, packetType := range required {
		existing, err := rs.packetRepo.ListByClientAndType(dbc, client.ID, packetType)
		if err != nil {
			return nil, fmt.Errorf("look up existing %s packet: %w", packetType, err)
		}

		var active *types.Packet
		for _, p := range existing {
			if p.Status.Active() {
				active = p
				break
			}
		}

		if active != nil {
			// Re-pend the existing row for a fresh generation pass.
			active.Status = types.PacketStatusPending
			active.DocURL = nil
			active.LastError = nil
			if err := rs.packetRepo.UpdateWithRevision(dbc, active); err != nil {
				return nil, fmt.Errorf("re-pend %s packet: %w", packetType, err)
			}
			out = append(out, active)
			continue
		}

		packet := &types.Packet{
			ID:       uuid.New(),
			ClientID: client.ID,
			Type:     packetType,
			Status:   types.PacketStatusPending,
			Version:  1,
		}
		if prev := newestFailed(existing); prev != nil {
			packet.PreviousVersionID = &prev.ID
			packet.Version = prev.Version + 1
		}
		created = append(created, packet)
		out = append(out, packet)
	}

	if err := rs.packetRepo.Create(dbc, created); err != nil {
		return nil, fmt.Errorf("create packets: %w", err)
	}

	rs.log.Info("Routed client to packets",
		"client_id", client.ID,
		"classification", client.Classification,
		"packet_count", len(out),
	)
	return out, nil
}

func newestFailed(packets []*types.Packet) *types.Packet {
	// packets arrive newest-first
	for _, p := range packets {
		if p.Status == types.PacketStatusFailed {
			return p
		}
	}
	return nil
}
