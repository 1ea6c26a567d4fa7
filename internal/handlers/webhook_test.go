package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/services"
	"github.com/thrivewell/wellness-backend/internal/types"
)

type fakeLifecycle struct {
	callbacks  []services.CallbackInput
	packet     *types.Packet
	editResult *services.EditResult
	err        error
}

func (f *fakeLifecycle) HandleCallback(ctx context.Context, in services.CallbackInput) (*services.CallbackResult, error) {
	f.callbacks = append(f.callbacks, in)
	if f.err != nil {
		return nil, f.err
	}
	return &services.CallbackResult{Packet: f.packet}, nil
}

func (f *fakeLifecycle) Edit(ctx context.Context, packetID uuid.UUID, in services.EditInput) (*services.EditResult, error) {
	return f.editResult, f.err
}

func (f *fakeLifecycle) Send(ctx context.Context, packetID uuid.UUID) (*services.SendResult, error) {
	return nil, f.err
}

func (f *fakeLifecycle) Delete(ctx context.Context, packetID uuid.UUID) (*services.DeleteResult, error) {
	return nil, f.err
}

func (f *fakeLifecycle) ListForClient(ctx context.Context, clientID uuid.UUID) ([]*types.Packet, error) {
	return nil, f.err
}

func newWebhookRouter(lc services.LifecycleService, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewWebhookHandler(logger.NewNop(), lc, secret)
	router := gin.New()
	router.POST("/webhooks/packet-status", h.PacketStatus)
	return router
}

func postStatus(t *testing.T, router *gin.Engine, secret string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/packet-status", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func validBody(clientID uuid.UUID) map[string]any {
	return map[string]any{
		"clientId":   clientID.String(),
		"packetType": "NUTRITION",
		"status":     "READY",
		"docUrl":     "https://docs.test/n.pdf",
	}
}

func TestWebhook_ValidSecretAppliesCallback(t *testing.T) {
	clientID := uuid.New()
	lc := &fakeLifecycle{packet: &types.Packet{
		ID:       uuid.New(),
		ClientID: clientID,
		Type:     types.PacketTypeNutrition,
		Status:   types.PacketStatusReady,
	}}
	router := newWebhookRouter(lc, "s3cret")

	rec := postStatus(t, router, "s3cret", validBody(clientID))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(lc.callbacks) != 1 {
		t.Fatalf("expected one callback, got %d", len(lc.callbacks))
	}
	in := lc.callbacks[0]
	if in.ClientID == nil || *in.ClientID != clientID || in.PacketType != types.PacketTypeNutrition {
		t.Fatalf("callback input mismatch: %+v", in)
	}
}

func TestWebhook_BadSecretIsRejectedWithoutMutation(t *testing.T) {
	lc := &fakeLifecycle{}
	router := newWebhookRouter(lc, "s3cret")

	for _, secret := range []string{"", "wrong", "s3cret "} {
		rec := postStatus(t, router, secret, validBody(uuid.New()))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("secret %q: expected 401, got %d", secret, rec.Code)
		}
	}
	if len(lc.callbacks) != 0 {
		t.Fatalf("rejected requests must not reach the service, got %d", len(lc.callbacks))
	}
}

func TestWebhook_EmptyConfiguredSecretRejectsEverything(t *testing.T) {
	lc := &fakeLifecycle{}
	router := newWebhookRouter(lc, "")

	rec := postStatus(t, router, "", validBody(uuid.New()))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when no secret configured, got %d", rec.Code)
	}
}

func TestWebhook_RequiresClientReference(t *testing.T) {
	lc := &fakeLifecycle{}
	router := newWebhookRouter(lc, "s3cret")

	rec := postStatus(t, router, "s3cret", map[string]any{
		"packetType": "NUTRITION",
		"status":     "READY",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(lc.callbacks) != 0 {
		t.Fatalf("invalid requests must not reach the service")
	}
}

func TestWebhook_RejectsBothClientReferences(t *testing.T) {
	lc := &fakeLifecycle{}
	router := newWebhookRouter(lc, "s3cret")

	body := validBody(uuid.New())
	body["clientEmail"] = "ambiguous@test.dev"
	rec := postStatus(t, router, "s3cret", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for ambiguous client reference, got %d", rec.Code)
	}
	if len(lc.callbacks) != 0 {
		t.Fatalf("ambiguous requests must not reach the service")
	}
}
