package services

import (
	"context"
	"fmt"

	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/platform/sendgrid"
	"github.com/thrivewell/wellness-backend/internal/types"
)

// Notifier informs the client and staff at lifecycle transitions. Errors are
// returned so callers can record them, but no caller lets them fail the
// transition that triggered the notification.
type Notifier interface {
	PacketReady(ctx context.Context, client *types.Client, packet *types.Packet) error
	PacketUpdated(ctx context.Context, client *types.Client, packet *types.Packet) error
	IntakeCompleted(ctx context.Context, client *types.Client) error
}

type emailNotifier struct {
	log        *logger.Logger
	mail       sendgrid.Client
	staffEmail string
}

// NewEmailNotifier builds the production notifier. A nil mail client
// disables dispatch (local development without SendGrid credentials).
func NewEmailNotifier(log *logger.Logger, mail sendgrid.Client, staffEmail string) Notifier {
	return &emailNotifier{
		log:        log.With("service", "EmailNotifier"),
		mail:       mail,
		staffEmail: staffEmail,
	}
}

func (n *emailNotifier) PacketReady(ctx context.Context, client *types.Client, packet *types.Packet) error {
	if n.mail == nil {
		n.log.Debug("Mail disabled, skipping packet-ready notification", "packet_id", packet.ID)
		return nil
	}
	subject := fmt.Sprintf("Your %s plan is ready", titleForType(packet.Type))
	body := fmt.Sprintf(
		"Hi %s,\n\nYour personalized %s plan is ready in your member area.\n\nThe Thrivewell Team",
		client.FirstName, titleForType(packet.Type),
	)
	_, err := n.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: client.Email, Name: client.FirstName}},
		Subject: subject,
		Text:    body,
	})
	return err
}

func (n *emailNotifier) PacketUpdated(ctx context.Context, client *types.Client, packet *types.Packet) error {
	if n.mail == nil {
		n.log.Debug("Mail disabled, skipping packet-updated notification", "packet_id", packet.ID)
		return nil
	}
	subject := fmt.Sprintf("Your %s plan was updated", titleForType(packet.Type))
	body := fmt.Sprintf(
		"Hi %s,\n\nYour %s plan has been revised by your coach. The latest version is in your member area.\n\nThe Thrivewell Team",
		client.FirstName, titleForType(packet.Type),
	)
	_, err := n.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: client.Email, Name: client.FirstName}},
		Subject: subject,
		Text:    body,
	})
	return err
}

func (n *emailNotifier) IntakeCompleted(ctx context.Context, client *types.Client) error {
	if n.mail == nil || n.staffEmail == "" {
		n.log.Debug("Mail or staff address disabled, skipping intake-completed notification")
		return nil
	}
	subject := fmt.Sprintf("New intake: %s %s (%s)", client.FirstName, client.LastName, client.Classification)
	body := fmt.Sprintf(
		"Client %s %s <%s> completed the %s intake. Packet generation has been queued.",
		client.FirstName, client.LastName, client.Email, client.Classification,
	)
	_, err := n.mail.Send(ctx, sendgrid.SendEmailRequest{
		To:      []sendgrid.EmailAddress{{Email: n.staffEmail}},
		Subject: subject,
		Text:    body,
	})
	return err
}
