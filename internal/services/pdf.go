package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/thrivewell/wellness-backend/internal/clients/gcp"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/types"
)

// PDFService renders the client-facing document for a packet version and
// manages the stored artifact. Generation failures during an edit-triggered
// regeneration are surfaced to the caller, which treats them as non-fatal.
type PDFService interface {
	Generate(ctx context.Context, packet *types.Packet, client *types.Client, template *types.PacketTemplate) (string, error)
	Delete(ctx context.Context, url string) error
}

type pdfService struct {
	log    *logger.Logger
	bucket gcp.BucketService
}

func NewPDFService(log *logger.Logger, bucket gcp.BucketService) PDFService {
	return &pdfService{
		log:    log.With("service", "PDFService"),
		bucket: bucket,
	}
}

// packetDocument is the shape of Packet.Content the renderer understands.
// Unknown fields are ignored; missing fields fall back to template sections.
type packetDocument struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Sections []struct {
		Heading string `json:"heading"`
		Body    string `json:"body"`
	} `json:"sections"`
}

type templateLayout struct {
	Sections []struct {
		Heading string `json:"heading"`
		Body    string `json:"body"`
	} `json:"sections"`
}

func (s *pdfService) Generate(ctx context.Context, packet *types.Packet, client *types.Client, template *types.PacketTemplate) (string, error) {
	if packet == nil || client == nil {
		return "", fmt.Errorf("packet and client required")
	}

	// Always replace: delete the prior artifact before writing the new one.
	if packet.PDFURL != nil && *packet.PDFURL != "" {
		if err := s.Delete(ctx, *packet.PDFURL); err != nil {
			s.log.Warn("Failed to delete prior artifact before regeneration", "packet_id", packet.ID, "error", err)
		}
	}

	rendered, err := renderPacketPDF(packet, client, template)
	if err != nil {
		return "", fmt.Errorf("render packet %s: %w", packet.ID, err)
	}

	key := fmt.Sprintf("packets/%s/%s-v%d.pdf", packet.ClientID, packet.ID, packet.Version)
	if err := s.bucket.UploadFile(ctx, key, bytes.NewReader(rendered)); err != nil {
		return "", fmt.Errorf("upload packet artifact: %w", err)
	}

	url := s.bucket.GetPublicURL(key)
	s.log.Info("Rendered packet artifact", "packet_id", packet.ID, "version", packet.Version, "key", key)
	return url, nil
}

func (s *pdfService) Delete(ctx context.Context, url string) error {
	key, err := s.bucket.KeyFromURL(url)
	if err != nil {
		return err
	}
	return s.bucket.DeleteFile(ctx, key)
}

func renderPacketPDF(packet *types.Packet, client *types.Client, template *types.PacketTemplate) ([]byte, error) {
	var doc packetDocument
	if len(packet.Content) > 0 {
		if err := json.Unmarshal(packet.Content, &doc); err != nil {
			return nil, fmt.Errorf("decode packet content: %w", err)
		}
	}
	if len(doc.Sections) == 0 && template != nil && len(template.Sections) > 0 {
		var layout templateLayout
		if err := json.Unmarshal(template.Sections, &layout); err == nil {
			doc.Sections = layout.Sections
		}
	}
	if doc.Title == "" {
		doc.Title = fmt.Sprintf("%s Plan", titleForType(packet.Type))
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(doc.Title, false)
	pdf.SetAuthor("Thrivewell", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.MultiCell(0, 10, doc.Title, "", "L", false)

	clientName := fmt.Sprintf("%s %s", client.FirstName, client.LastName)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(110, 110, 110)
	pdf.MultiCell(0, 6, fmt.Sprintf("Prepared for %s  ·  version %d", clientName, packet.Version), "", "L", false)
	pdf.Ln(4)
	pdf.SetTextColor(0, 0, 0)

	if doc.Summary != "" {
		pdf.SetFont("Helvetica", "I", 11)
		pdf.MultiCell(0, 6, doc.Summary, "", "L", false)
		pdf.Ln(4)
	}

	for _, section := range doc.Sections {
		if section.Heading != "" {
			pdf.SetFont("Helvetica", "B", 14)
			pdf.MultiCell(0, 8, section.Heading, "", "L", false)
		}
		if section.Body != "" {
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 6, section.Body, "", "L", false)
		}
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func titleForType(t types.PacketType) string {
	switch t {
	case types.PacketTypeIntro:
		return "Welcome"
	case types.PacketTypeNutrition:
		return "Nutrition"
	case types.PacketTypeWorkout:
		return "Workout"
	case types.PacketTypePerformance:
		return "Performance"
	case types.PacketTypeYouth:
		return "Youth Training"
	case types.PacketTypeRecovery:
		return "Recovery"
	case types.PacketTypeWellness:
		return "Wellness"
	default:
		return string(t)
	}
}
