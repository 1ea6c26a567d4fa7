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

func newPacketRouter(lc services.LifecycleService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPacketHandler(logger.NewNop(), lc)
	router := gin.New()
	router.PATCH("/api/admin/packets/:id", h.Edit)
	return router
}

func patchPacket(t *testing.T, router *gin.Engine, packetID uuid.UUID, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPatch, "/api/admin/packets/"+packetID.String(), bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEditResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var data map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return data
}

func TestEditHandler_ContentOnlyOmitsSideEffectFields(t *testing.T) {
	lc := &fakeLifecycle{editResult: &services.EditResult{
		Packet: &types.Packet{ID: uuid.New(), Status: types.PacketStatusReady},
	}}
	router := newPacketRouter(lc)

	rec := patchPacket(t, router, uuid.New(), map[string]any{
		"content": map[string]any{"title": "x"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeEditResponse(t, rec)
	if _, ok := data["pdf_regenerated"]; ok {
		t.Fatalf("content-only edit must not report pdf_regenerated")
	}
	if _, ok := data["client_notified"]; ok {
		t.Fatalf("content-only edit must not report client_notified")
	}
}

func TestEditHandler_ApprovalReportsSideEffectOutcomes(t *testing.T) {
	lc := &fakeLifecycle{editResult: &services.EditResult{
		Packet:          &types.Packet{ID: uuid.New(), Status: types.PacketStatusApproved},
		PDFAttempted:    true,
		NotifyAttempted: true,
		NotifyErr:       context.DeadlineExceeded,
	}}
	router := newPacketRouter(lc)

	target := string(types.PacketStatusApproved)
	rec := patchPacket(t, router, uuid.New(), map[string]any{
		"content":       map[string]any{"title": "x"},
		"target_status": target,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeEditResponse(t, rec)
	if got, ok := data["pdf_regenerated"].(bool); !ok || !got {
		t.Fatalf("expected pdf_regenerated=true, got %v", data["pdf_regenerated"])
	}
	if got, ok := data["client_notified"].(bool); !ok || got {
		t.Fatalf("expected client_notified=false, got %v", data["client_notified"])
	}
}
