package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/pkg/apierr"
	"github.com/thrivewell/wellness-backend/internal/pkg/backoff"
	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/repos"
	"github.com/thrivewell/wellness-backend/internal/sanitize"
	"github.com/thrivewell/wellness-backend/internal/types"
)

// CallbackInput is the authenticated report from the external generation
// worker. Exactly one of ClientID/ClientEmail is set (validated upstream).
type CallbackInput struct {
	ClientID    *uuid.UUID
	ClientEmail string
	PacketType  types.PacketType
	Status      types.PacketStatus
	DocURL      string
	Error       string
}

// CallbackResult reports the committed packet alongside the ready
// notification outcome. A non-nil NotifyErr never invalidates the transition.
type CallbackResult struct {
	Packet    *types.Packet
	NotifyErr error
}

type EditInput struct {
	Content      map[string]any
	TargetStatus *types.PacketStatus
}

// EditResult reports the committed packet alongside side-effect outcomes.
// The attempted flags distinguish "not triggered by this edit" from
// "triggered and failed"; a non-nil PDFErr or NotifyErr means that side
// effect failed while the content update itself still stands.
type EditResult struct {
	Packet *types.Packet

	PDFAttempted    bool
	PDFErr          error
	NotifyAttempted bool
	NotifyErr       error
}

type SendResult struct {
	Packet    *types.Packet
	NotifyErr error
}

type DeleteResult struct {
	// ArtifactErr records a failed artifact deletion. The row is removed
	// regardless, preferring an orphaned file over an undeletable row.
	ArtifactErr error
}

// LifecycleService owns every status transition of a packet after creation.
// All writes go through a compare-and-swap on the row's revision counter, so
// two racing transitions can never interleave field-level state.
type LifecycleService interface {
	HandleCallback(ctx context.Context, in CallbackInput) (*CallbackResult, error)
	Edit(ctx context.Context, packetID uuid.UUID, in EditInput) (*EditResult, error)
	Send(ctx context.Context, packetID uuid.UUID) (*SendResult, error)
	Delete(ctx context.Context, packetID uuid.UUID) (*DeleteResult, error)
	ListForClient(ctx context.Context, clientID uuid.UUID) ([]*types.Packet, error)
}

type lifecycleService struct {
	db           *gorm.DB
	log          *logger.Logger
	clientRepo   repos.ClientRepo
	packetRepo   repos.PacketRepo
	templateRepo repos.PacketTemplateRepo
	pdf          PDFService
	notifier     Notifier
	storeRetry   backoff.Policy
	// casAttempts bounds the revision-conflict retry loop.
	casAttempts int
	// callbackTimeout bounds the callback's own store interactions.
	callbackTimeout time.Duration
}

func NewLifecycleService(
	db *gorm.DB,
	log *logger.Logger,
	clientRepo repos.ClientRepo,
	packetRepo repos.PacketRepo,
	templateRepo repos.PacketTemplateRepo,
	pdf PDFService,
	notifier Notifier,
) LifecycleService {
	return &lifecycleService{
		db:              db,
		log:             log.With("service", "LifecycleService"),
		clientRepo:      clientRepo,
		packetRepo:      packetRepo,
		templateRepo:    templateRepo,
		pdf:             pdf,
		notifier:        notifier,
		storeRetry:      backoff.Default(),
		casAttempts:     5,
		callbackTimeout: 15 * time.Second,
	}
}

// retryableStoreErr treats anything that is not a structured API error or a
// CAS conflict as a transient store failure.
func retryableStoreErr(err error) bool {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return false
	}
	if errors.Is(err, repos.ErrRevisionConflict) {
		return false
	}
	return true
}

func (ls *lifecycleService) HandleCallback(ctx context.Context, in CallbackInput) (*CallbackResult, error) {
	if !in.PacketType.Valid() {
		return nil, apierr.Validation("unknown packet type %q", in.PacketType)
	}
	if in.Status != types.PacketStatusReady && in.Status != types.PacketStatusFailed {
		return nil, apierr.Validation("callback status must be READY or FAILED, got %q", in.Status)
	}

	ctx, cancel := context.WithTimeout(ctx, ls.callbackTimeout)
	defer cancel()

	client, err := ls.resolveClient(ctx, in)
	if err != nil {
		return nil, err
	}

	var packet *types.Packet
	err = backoff.Do(ctx, ls.storeRetry, retryableStoreErr, func(ctx context.Context) error {
		candidates, err := ls.packetRepo.ListByClientAndType(dbctx.Context{Ctx: ctx}, client.ID, in.PacketType)
		if err != nil {
			return fmt.Errorf("look up packet: %w", err)
		}
		packet = pickCallbackTarget(candidates)
		if packet == nil {
			return apierr.NotFound("no %s packet for client %s", in.PacketType, client.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := ls.transition(ctx, packet, func(p *types.Packet) error {
		switch in.Status {
		case types.PacketStatusReady:
			doc := in.DocURL
			p.Status = types.PacketStatusReady
			p.DocURL = &doc
			p.LastError = nil
		case types.PacketStatusFailed:
			msg := in.Error
			if msg == "" {
				msg = "generation failed"
			}
			p.Status = types.PacketStatusFailed
			p.LastError = &msg
			p.DocURL = nil
			p.RetryCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CallbackResult{Packet: updated}
	if updated.Status == types.PacketStatusReady {
		if nerr := ls.notifier.PacketReady(ctx, client, updated); nerr != nil {
			ls.log.Warn("Packet-ready notification failed", "packet_id", updated.ID, "error", nerr)
			result.NotifyErr = nerr
		}
	}

	ls.log.Info("Packet callback applied",
		"packet_id", updated.ID,
		"type", updated.Type,
		"status", updated.Status,
	)
	return result, nil
}

func (ls *lifecycleService) resolveClient(ctx context.Context, in CallbackInput) (*types.Client, error) {
	var client *types.Client
	err := backoff.Do(ctx, ls.storeRetry, retryableStoreErr, func(ctx context.Context) error {
		dbc := dbctx.Context{Ctx: ctx}
		if in.ClientID != nil && *in.ClientID != uuid.Nil {
			found, err := ls.clientRepo.GetByID(dbc, *in.ClientID)
			if err != nil {
				return fmt.Errorf("look up client by id: %w", err)
			}
			client = found
		}
		if client == nil && in.ClientEmail != "" {
			found, err := ls.clientRepo.GetByEmail(dbc, in.ClientEmail)
			if err != nil {
				return fmt.Errorf("look up client by email: %w", err)
			}
			client = found
		}
		if client == nil {
			return apierr.NotFound("client not found")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// pickCallbackTarget chooses the packet a worker callback addresses: the
// newest active row, falling back to the newest row of the type. Candidates
// arrive newest-first.
func pickCallbackTarget(candidates []*types.Packet) *types.Packet {
	for _, p := range candidates {
		if p.Status.Active() {
			return p
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return nil
}

// transition applies mutate to a fresh copy of the packet and persists it
// with a revision check, retrying on conflicts so the final row always
// reflects exactly one caller's full write.
func (ls *lifecycleService) transition(ctx context.Context, packet *types.Packet, mutate func(*types.Packet) error) (*types.Packet, error) {
	current := packet
	for attempt := 1; attempt <= ls.casAttempts; attempt++ {
		working := *current
		if err := mutate(&working); err != nil {
			return nil, err
		}

		err := backoff.Do(ctx, ls.storeRetry, retryableStoreErr, func(ctx context.Context) error {
			return ls.packetRepo.UpdateWithRevision(dbctx.Context{Ctx: ctx}, &working)
		})
		if err == nil {
			return &working, nil
		}
		if !errors.Is(err, repos.ErrRevisionConflict) {
			return nil, fmt.Errorf("persist packet transition: %w", err)
		}

		// Lost the race; reload and re-apply against the winner's state.
		var fresh *types.Packet
		rerr := backoff.Do(ctx, ls.storeRetry, retryableStoreErr, func(ctx context.Context) error {
			got, err := ls.packetRepo.GetByID(dbctx.Context{Ctx: ctx}, current.ID)
			if err != nil {
				return err
			}
			if got == nil {
				return apierr.NotFound("packet %s disappeared during transition", current.ID)
			}
			fresh = got
			return nil
		})
		if rerr != nil {
			return nil, rerr
		}
		current = fresh
	}
	return nil, apierr.New(500, apierr.CodeConflict, fmt.Errorf("packet %s: transition contention not resolved after %d attempts", packet.ID, ls.casAttempts))
}

func (ls *lifecycleService) Edit(ctx context.Context, packetID uuid.UUID, in EditInput) (*EditResult, error) {
	if in.TargetStatus != nil && !in.TargetStatus.Valid() {
		return nil, apierr.Validation("unknown packet status %q", *in.TargetStatus)
	}

	packet, err := ls.getPacket(ctx, packetID)
	if err != nil {
		return nil, err
	}

	contentJSON, err := marshalContent(sanitize.StringMap(in.Content))
	if err != nil {
		return nil, apierr.Validation("unreadable content payload: %v", err)
	}

	approvalClass := in.TargetStatus != nil &&
		(*in.TargetStatus == types.PacketStatusApproved || *in.TargetStatus == types.PacketStatusReady)
	regenerate := in.TargetStatus != nil &&
		(*in.TargetStatus == types.PacketStatusApproved || *in.TargetStatus == types.PacketStatusSent)

	updated, err := ls.transition(ctx, packet, func(p *types.Packet) error {
		p.Content = contentJSON
		if in.TargetStatus != nil {
			p.Status = *in.TargetStatus
		}
		if approvalClass {
			// The version chain is linear and in-place: the row supersedes
			// its own previous incarnation.
			prev := p.ID
			p.Version++
			p.PreviousVersionID = &prev
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &EditResult{Packet: updated}

	if regenerate {
		result.PDFAttempted = true
		if rerr := ls.regeneratePDF(ctx, updated); rerr != nil {
			ls.log.Warn("PDF regeneration after edit failed", "packet_id", updated.ID, "error", rerr)
			result.PDFErr = rerr
		}
	}
	if approvalClass {
		result.NotifyAttempted = true
		if nerr := ls.notifyUpdated(ctx, updated); nerr != nil {
			ls.log.Warn("Packet-updated notification failed", "packet_id", updated.ID, "error", nerr)
			result.NotifyErr = nerr
		}
	}
	return result, nil
}

func (ls *lifecycleService) regeneratePDF(ctx context.Context, packet *types.Packet) error {
	client, err := ls.clientRepo.GetByID(dbctx.Context{Ctx: ctx}, packet.ClientID)
	if err != nil {
		return fmt.Errorf("load client for rendering: %w", err)
	}
	if client == nil {
		return fmt.Errorf("client %s not found for rendering", packet.ClientID)
	}

	template, err := ls.templateRepo.GetDefault(dbctx.Context{Ctx: ctx}, packet.Type, client.Classification)
	if err != nil {
		ls.log.Warn("Template lookup failed, rendering without layout", "packet_id", packet.ID, "error", err)
	}

	url, err := ls.pdf.Generate(ctx, packet, client, template)
	if err != nil {
		return err
	}

	_, err = ls.transition(ctx, packet, func(p *types.Packet) error {
		p.PDFURL = &url
		return nil
	})
	if err != nil {
		return fmt.Errorf("persist rendered artifact url: %w", err)
	}
	packet.PDFURL = &url
	return nil
}

func (ls *lifecycleService) notifyUpdated(ctx context.Context, packet *types.Packet) error {
	client, err := ls.clientRepo.GetByID(dbctx.Context{Ctx: ctx}, packet.ClientID)
	if err != nil {
		return fmt.Errorf("load client for notification: %w", err)
	}
	if client == nil {
		return fmt.Errorf("client %s not found for notification", packet.ClientID)
	}
	return ls.notifier.PacketUpdated(ctx, client, packet)
}

func (ls *lifecycleService) Send(ctx context.Context, packetID uuid.UUID) (*SendResult, error) {
	packet, err := ls.getPacket(ctx, packetID)
	if err != nil {
		return nil, err
	}
	if !packet.Status.Sendable() {
		return nil, apierr.InvalidStatus("packet %s cannot be sent from status %s", packetID, packet.Status)
	}

	updated, err := ls.transition(ctx, packet, func(p *types.Packet) error {
		// Re-check inside the CAS loop: a racing transition may have moved
		// the packet out of a sendable state.
		if !p.Status.Sendable() {
			return apierr.InvalidStatus("packet %s cannot be sent from status %s", packetID, p.Status)
		}
		now := time.Now().UTC()
		p.Status = types.PacketStatusSent
		p.SentAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &SendResult{Packet: updated}
	client, cerr := ls.clientRepo.GetByID(dbctx.Context{Ctx: ctx}, updated.ClientID)
	if cerr != nil {
		result.NotifyErr = fmt.Errorf("load client for notification: %w", cerr)
	} else if client == nil {
		result.NotifyErr = fmt.Errorf("client %s not found for notification", updated.ClientID)
	} else if nerr := ls.notifier.PacketReady(ctx, client, updated); nerr != nil {
		ls.log.Warn("Packet-ready notification failed", "packet_id", updated.ID, "error", nerr)
		result.NotifyErr = nerr
	}
	return result, nil
}

func (ls *lifecycleService) Delete(ctx context.Context, packetID uuid.UUID) (*DeleteResult, error) {
	packet, err := ls.getPacket(ctx, packetID)
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{}
	if packet.PDFURL != nil && *packet.PDFURL != "" {
		if aerr := ls.pdf.Delete(ctx, *packet.PDFURL); aerr != nil {
			// The row still goes: an orphaned file is recoverable, a row that
			// can never be deleted is not.
			ls.log.Warn("Failed to delete packet artifact", "packet_id", packetID, "url", *packet.PDFURL, "error", aerr)
			result.ArtifactErr = aerr
		}
	}

	if err := ls.packetRepo.Delete(dbctx.Context{Ctx: ctx}, packetID); err != nil {
		return nil, fmt.Errorf("delete packet row: %w", err)
	}
	ls.log.Info("Packet deleted", "packet_id", packetID)
	return result, nil
}

func (ls *lifecycleService) ListForClient(ctx context.Context, clientID uuid.UUID) ([]*types.Packet, error) {
	if clientID == uuid.Nil {
		return nil, apierr.Validation("client id required")
	}
	return ls.packetRepo.ListByClient(dbctx.Context{Ctx: ctx}, clientID)
}

func (ls *lifecycleService) getPacket(ctx context.Context, packetID uuid.UUID) (*types.Packet, error) {
	packet, err := ls.packetRepo.GetByID(dbctx.Context{Ctx: ctx}, packetID)
	if err != nil {
		return nil, fmt.Errorf("load packet: %w", err)
	}
	if packet == nil {
		return nil, apierr.NotFound("packet %s not found", packetID)
	}
	return packet, nil
}

func marshalContent(content map[string]any) (datatypes.JSON, error) {
	if content == nil {
		return nil, nil
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
