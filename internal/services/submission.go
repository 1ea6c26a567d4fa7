package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/pkg/apierr"
	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/repos"
	"github.com/thrivewell/wellness-backend/internal/requestdata"
	"github.com/thrivewell/wellness-backend/internal/sanitize"
	"github.com/thrivewell/wellness-backend/internal/types"
)

type SubmitInput struct {
	Classification types.Classification
	Responses      map[string]any
}

// SubmitResult separates the primary outcome (client + packets, committed)
// from advisory side effects, which may fail without invalidating the
// submission.
type SubmitResult struct {
	Client  *types.Client
	Packets []*types.Packet

	AnalyticsErr error
	NotifyErr    error
}

// SubmissionService converts a completed, validated answer set into a
// persisted client profile and its required packet set.
type SubmissionService interface {
	Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error)
}

type submissionService struct {
	db           *gorm.DB
	log          *logger.Logger
	clientRepo   repos.ClientRepo
	progressRepo repos.IntakeProgressRepo
	routing      RoutingService
	analytics    AnalyticsService
	notifier     Notifier
}

func NewSubmissionService(
	db *gorm.DB,
	log *logger.Logger,
	clientRepo repos.ClientRepo,
	progressRepo repos.IntakeProgressRepo,
	routing RoutingService,
	analytics AnalyticsService,
	notifier Notifier,
) SubmissionService {
	return &submissionService{
		db:           db,
		log:          log.With("service", "SubmissionService"),
		clientRepo:   clientRepo,
		progressRepo: progressRepo,
		routing:      routing,
		analytics:    analytics,
		notifier:     notifier,
	}
}

func (ss *submissionService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.ClientID == uuid.Nil {
		return nil, apierr.Unauthorized("no authenticated client")
	}
	if !in.Classification.Valid() {
		return nil, apierr.Validation("unknown classification %q", in.Classification)
	}

	answers := sanitize.StringMap(in.Responses)
	answersJSON, err := marshalAnswers(answers)
	if err != nil {
		return nil, apierr.Validation("unreadable responses payload: %v", err)
	}

	result := &SubmitResult{}
	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}

		client, err := ss.clientRepo.GetByID(dbc, rd.ClientID)
		if err != nil {
			return fmt.Errorf("load client: %w", err)
		}
		if client == nil && rd.Email != "" {
			client, err = ss.clientRepo.GetByEmail(dbc, rd.Email)
			if err != nil {
				return fmt.Errorf("load client by email: %w", err)
			}
		}

		if client == nil {
			client = &types.Client{
				ID:              rd.ClientID,
				Email:           rd.Email,
				Classification:  in.Classification,
				Goals:           goalText(answers),
				IntakeResponses: answersJSON,
			}
			if name, ok := answers["first_name"].(string); ok {
				client.FirstName = name
			}
			if name, ok := answers["last_name"].(string); ok {
				client.LastName = name
			}
			if err := ss.clientRepo.Create(dbc, client); err != nil {
				return fmt.Errorf("create client: %w", err)
			}
		} else {
			client.Classification = in.Classification
			client.IntakeResponses = answersJSON
			if g := goalText(answers); g != "" {
				client.Goals = g
			}
			if err := ss.clientRepo.Update(dbc, client); err != nil {
				return fmt.Errorf("update client: %w", err)
			}
		}

		packets, err := ss.routing.Route(dbc, client, answers)
		if err != nil {
			return fmt.Errorf("route packets: %w", err)
		}

		// Mark the draft complete so a reload lands on the finished state.
		if progress, err := ss.progressRepo.GetByClientID(dbc, client.ID); err == nil && progress != nil && !progress.IsComplete {
			progress.IsComplete = true
			if err := ss.progressRepo.Upsert(dbc, progress); err != nil {
				return fmt.Errorf("finalize progress: %w", err)
			}
		}

		result.Client = client
		result.Packets = packets
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Advisory side effects. Neither may roll back the committed submission.
	if _, aerr := ss.analytics.Close(ctx, in.Classification, OutcomeCompleted, nil); aerr != nil {
		ss.log.Warn("Failed to close funnel record", "classification", in.Classification, "error", aerr)
		result.AnalyticsErr = aerr
	}
	if nerr := ss.notifier.IntakeCompleted(ctx, result.Client); nerr != nil {
		ss.log.Warn("Failed to notify staff of intake completion", "client_id", result.Client.ID, "error", nerr)
		result.NotifyErr = nerr
	}

	ss.log.Info("Intake submitted",
		"client_id", result.Client.ID,
		"classification", in.Classification,
		"packet_count", len(result.Packets),
	)
	return result, nil
}

func goalText(answers map[string]any) string {
	if answers == nil {
		return ""
	}
	if g, ok := answers["goals"].(string); ok {
		return g
	}
	return ""
}
