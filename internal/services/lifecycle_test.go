package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/thrivewell/wellness-backend/internal/pkg/apierr"
	"github.com/thrivewell/wellness-backend/internal/pkg/dbctx"
	"github.com/thrivewell/wellness-backend/internal/pkg/logger"
	"github.com/thrivewell/wellness-backend/internal/repos"
	"github.com/thrivewell/wellness-backend/internal/types"
)

type lifecycleEnv struct {
	svc        LifecycleService
	db         *gorm.DB
	packetRepo repos.PacketRepo
	pdf        *fakePDF
	notifier   *fakeNotifier
}

func newLifecycleEnv(t *testing.T) *lifecycleEnv {
	t.Helper()
	db := newTestDB(t)
	log := logger.NewNop()
	clientRepo := repos.NewClientRepo(db, log)
	packetRepo := repos.NewPacketRepo(db, log)
	templateRepo := repos.NewPacketTemplateRepo(db, log)
	pdf := &fakePDF{}
	notifier := &fakeNotifier{}
	return &lifecycleEnv{
		svc:        NewLifecycleService(db, log, clientRepo, packetRepo, templateRepo, pdf, notifier),
		db:         db,
		packetRepo: packetRepo,
		pdf:        pdf,
		notifier:   notifier,
	}
}

func TestHandleCallback_ReadySetsDocURL(t *testing.T) {
	env := newLifecycleEnv(t)
	client := seedClient(t, env.db, types.ClassificationNutritionOnly)
	seedPacket(t, env.db, client.ID, types.PacketTypeNutrition, types.PacketStatusPending)

	result, err := env.svc.HandleCallback(context.Background(), CallbackInput{
		ClientID:   &client.ID,
		PacketType: types.PacketTypeNutrition,
		Status:     types.PacketStatusReady,
		DocURL:     "https://docs.test/nutrition.pdf",
	})
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	updated := result.Packet
	if updated.Status != types.PacketStatusReady {
		t.Fatalf("expected READY, got %s", updated.Status)
	}
	if updated.DocURL == nil || *updated.DocURL != "https://docs.test/nutrition.pdf" {
		t.Fatalf("doc url not set: %+v", updated.DocURL)
	}
	if updated.LastError != nil {
		t.Fatalf("ready packet must not carry an error")
	}
	if env.notifier.ready != 1 {
		t.Fatalf("expected one ready notification, got %d", env.notifier.ready)
	}
	if result.NotifyErr != nil {
		t.Fatalf("unexpected notify error: %v", result.NotifyErr)
	}
}

func TestHandleCallback_NotifyFailureDoesNotRevertReady(t *testing.T) {
	env := newLifecycleEnv(t)
	env.notifier.err = context.DeadlineExceeded
	client := seedClient(t, env.db, types.ClassificationNutritionOnly)
	packet := seedPacket(t, env.db, client.ID, types.PacketTypeNutrition, types.PacketStatusGenerating)

	result, err := env.svc.HandleCallback(context.Background(), CallbackInput{
		ClientID:   &client.ID,
		PacketType: types.PacketTypeNutrition,
		Status:     types.PacketStatusReady,
		DocURL:     "https://docs.test/n.pdf",
	})
	if err != nil {
		t.Fatalf("HandleCallback should commit despite notify failure: %v", err)
	}
	if result.NotifyErr == nil {
		t.Fatalf("notify failure must be surfaced in the result")
	}
	if got := reloadPacket(t, env.db, packet.ID); got.Status != types.PacketStatusReady {
		t.Fatalf("transition must stand despite notify failure, got %s", got.Status)
	}
}

func TestHandleCallback_FailedRecordsErrorAndRetryCount(t *testing.T) {
	env := newLifecycleEnv(t)
	client := seedClient(t, env.db, types.ClassificationWorkoutOnly)
	packet := seedPacket(t, env.db, client.ID, types.PacketTypeWorkout, types.PacketStatusGenerating)

	result, err := env.svc.HandleCallback(context.Background(), CallbackInput{
		ClientID:   &client.ID,
		PacketType: types.PacketTypeWorkout,
		Status:     types.PacketStatusFailed,
		Error:      "model timeout",
	})
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	updated := result.Packet
	if updated.Status != types.PacketStatusFailed {
		t.Fatalf("expected FAILED, got %s", updated.Status)
	}
	if updated.LastError == nil || *updated.LastError != "model timeout" {
		t.Fatalf("error not recorded: %+v", updated.LastError)
	}
	if updated.DocURL != nil {
		t.Fatalf("failed packet must not carry a doc url")
	}
	if updated.RetryCount != packet.RetryCount+1 {
		t.Fatalf("retry count not incremented: %d", updated.RetryCount)
	}
	if env.notifier.ready != 0 {
		t.Fatalf("failed callbacks must not notify the client")
	}
}

func TestHandleCallback_ResolvesClientByEmailFallback(t *testing.T) {
	env := newLifecycleEnv(t)
	client := seedClient(t, env.db, types.ClassificationWellness)
	seedPacket(t, env.db, client.ID, types.PacketTypeWellness, types.PacketStatusPending)

	result, err := env.svc.HandleCallback(context.Background(), CallbackInput{
		ClientEmail: client.Email,
		PacketType:  types.PacketTypeWellness,
		Status:      types.PacketStatusReady,
		DocURL:      "https://docs.test/wellness.pdf",
	})
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if result.Packet.ClientID != client.ID {
		t.Fatalf("resolved wrong client: %s", result.Packet.ClientID)
	}
}

func TestHandleCallback_ValidatesInput(t *testing.T) {
	env := newLifecycleEnv(t)
	id := uuid.New()

	if _, err := env.svc.HandleCallback(context.Background(), CallbackInput{
		ClientID:   &id,
		PacketType: "BROCHURE",
		Status:     types.PacketStatusReady,
	}); apierr.CodeOf(err) != apierr.CodeValidation {
		t.Fatalf("expected validation for bad type, got %v", err)
	}

	// A worker may only report READY or FAILED.
	if _, err := env.svc.HandleCallback(context.Background(), CallbackInput{
		ClientID:   &id,
		PacketType: types.PacketTypeIntro,
		Status:     types.PacketStatusSent,
	}); apierr.CodeOf(err) != apierr.CodeValidation {
		t.Fatalf("expected validation for bad status, got %v", err)
	}
}

func TestHandleCallback_UnknownClientIsNotFound(t *testing.T) {
	env := newLifecycleEnv(t)
	id := uuid.New()

	_, err := env.svc.HandleCallback(context.Background(), CallbackInput{
		ClientID:   &id,
		PacketType: types.PacketTypeIntro,
		Status:     types.PacketStatusReady,
	})
	if apierr.CodeOf(err) != apierr.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandleCallback_TargetsNewestActivePacket(t *testing.T) {
	env := newLifecycleEnv(t)
	client := seedClient(t, env.db, types.ClassificationFullProgram)
	failed := seedPacket(t, env.db, client.ID, types.PacketTypeWorkout, types.PacketStatusFailed)
	active := seedPacket(t, env.db, client.ID, types.PacketTypeWorkout, types.PacketStatusPending)

	result, err := env.svc.HandleCallback(context.Background(), CallbackInput{
		ClientID:   &client.ID,
		PacketType: types.PacketTypeWorkout,
		Status:     types.PacketStatusReady,
		DocURL:     "https://docs.test/workout.pdf",
	})
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}
	if result.Packet.ID != active.ID {
		t.Fatalf("callback should land on the active row, hit %s", result.Packet.ID)
	}
	if got := reloadPacket(t, env.db, failed.ID); got.Status != types.PacketStatusFailed {
		t.Fatalf("failed row must stay untouched, got %s", got.Status)
	}
}

func TestTransition_StaleWriterRetriesAgainstWinner(t *testing.T) {
	env := newLifecycleEnv(t)
	client := seedClient(t, env.db, types.ClassificationNutritionOnly)
	packet := seedPacket(t, env.db, client.ID, types.PacketTypeNutrition, types.PacketStatusPending)

	// A racing writer lands first and bumps the revision.
	racer := *packet
	racer.Status = types.PacketStatusGenerating
	dbc := dbctx.Context{Ctx: context.Background()}
	if err := env.packetRepo.UpdateWithRevision(dbc, &racer); err != nil {
		t.Fatalf("racing update: %v", err)
	}

	// A direct write from the stale snapshot must lose.
	stale := *packet
	stale.Status = types.PacketStatusFailed
	if err := env.packetRepo.UpdateWithRevision(dbc, &stale); err != repos.ErrRevisionConflict {
		t.Fatalf("expected revision conflict, got %v", err)
	}

	// The callback path reloads and wins against the new revision.
	result, err := env.svc.HandleCallback(context.Background(), CallbackInput{
		ClientID:   &client.ID,
		PacketType: types.PacketTypeNutrition,
		Status:     types.PacketStatusReady,
		DocURL:     "https://docs.test/n.pdf",
	})
	if err != nil {
		t.Fatalf("HandleCallback after race: %v", err)
	}
	if result.Packet.Status != types.PacketStatusReady || result.Packet.DocURL == nil {
		t.Fatalf("callback write lost: %+v", result.Packet)
	}

	final := reloadPacket(t, env.db, packet.ID)
	// Field-level interleaving is forbidden: a READY row carries a doc url and
	// no error, all from the same write.
	if final.Status != types.PacketStatusReady || final.DocURL == nil || final.LastError != nil {
		t.Fatalf("inconsistent final row: %+v", final)
	}
}

func TestEdit_ContentOnlyKeepsVersion(t *testing.T) {
	env := newLifecycleEnv(t)
	client := seedClient(t, env.db, types.ClassificationNutritionOnly)
	packet := seedPacket(t, env.db, client.ID, types.PacketTypeNutrition, types.PacketStatusReady)

	result, err := env.svc.Edit(context.Background(), packet.ID, EditInput{
		Content: map[string]any{"title": "Updated Plan"},
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if result.Packet.Version != packet.Version {
		t.Fatalf("content-only edit must not bump version: %d", result.Packet.Version)
	}
	if result.PDFAttempted || result.NotifyAttempted {
		t.Fatalf("content-only edit must not attempt side effects: %+v", result)
	}
	if len(env.pdf.generated) != 0 {
		t.Fatalf("content-only edit must not regenerate the artifact")
	}
	if env.notifier.updated != 0 {
		t.Fatalf("content-only edit must not notify the client")
	}
}

func TestEdit_ApproveBumpsVersionRegeneratesAndNotifies(t *testing.T) {
	env := newLifecycleEnv(t)
	client := seedClient(t, env.db, types.ClassificationNutritionOnly)
	packet := seedPacket(t, env.db, client.ID, types.PacketTypeNutrition, types.PacketStatusReady)

	target := types.PacketStatusApproved
	result, err := env.svc.Edit(context.Background(), packet.ID, EditInput{
		Content:      map[string]any{"title": "Approved Plan"},
		TargetStatus: &target,
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if result.Packet.Status != types.PacketStatusApproved {
		t.Fatalf("expected APPROVED, got %s", result.Packet.Status)
	}
	if result.Packet.Version != packet.Version+1 {
		t.Fatalf("approval edit must bump version: %d", result.Packet.Version)
	}
	if result.Packet.PreviousVersionID == nil || *result.Packet.PreviousVersionID != packet.ID {
		t.Fatalf("version chain not linked: %+v", result.Packet.PreviousVersionID)
	}
	if !result.PDFAttempted || !result.NotifyAttempted {
		t.Fatalf("approval edit must attempt regeneration and notification: %+v", result)
	}
	if result.PDFErr != nil {
		t.Fatalf("unexpected pdf error: %v", result.PDFErr)
	}
	if len(env.pdf.generated) != 1 {
		t.Fatalf("expected one regeneration, got %d", len(env.pdf.generated))
	}
	if env.notifier.updated != 1 {
		t.Fatalf("expected one client notification, got %d", env.notifier.updated)
	}

	final := reloadPacket(t, env.db, packet.ID)
	if final.PDFURL == nil {
		t.Fatalf("regenerated artifact url not persisted")
	}
}

func TestEdit_PDFFailureDoesNotFailEdit(t *testing.T) {
	env := newLifecycleEnv(t)
	env.pdf.genErr = context.DeadlineExceeded
	client := seedClient(t, env.db, types.ClassificationNutritionOnly)
	packet := seedPacket(t, env.db, client.ID, types.PacketTypeNutrition, types.PacketStatusReady)

	target := types.PacketStatusApproved
	result, err := env.svc.Edit(context.Background(), packet.ID, EditInput{
		Content:      map[string]any{"title": "x"},
		TargetStatus: &target,
	})
	if err != nil {
		t.Fatalf("Edit should commit despite pdf failure: %v", err)
	}
	if result.PDFErr == nil {
		t.Fatalf("pdf failure must be surfaced in the result")
	}
	if got := reloadPacket(t, env.db, packet.ID); got.Status != types.PacketStatusApproved {
		t.Fatalf("edit not committed: %s", got.Status)
	}
}

func TestEdit_UnknownPacketIsNotFound(t *testing.T) {
	env := newLifecycleEnv(t)
	_, err := env.svc.Edit(context.Background(), uuid.New(), EditInput{})
	if apierr.CodeOf(err) != apierr.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSend_FromReadyStampsSentAtAndNotifies(t *testing.T) {
	env := newLifecycleEnv(t)
	client := seedClient(t, env.db, types.ClassificationNutritionOnly)
	packet := seedPacket(t, env.db, client.ID, types.PacketTypeNutrition, types.PacketStatusReady)

	result, err := env.svc.Send(context.Background(), packet.ID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.Packet.Status != types.PacketStatusSent {
		t.Fatalf("expected SENT, got %s", result.Packet.Status)
	}
	if result.Packet.SentAt == nil {
		t.Fatalf("sent_at not stamped")
	}
	if env.notifier.ready != 1 {
		t.Fatalf("expected one notification, got %d", env.notifier.ready)
	}
}

func TestSend_RejectedFromNonSendableStatus(t *testing.T) {
	env := newLifecycleEnv(t)
	client := seedClient(t, env.db, types.ClassificationNutritionOnly)

	for _, status := range []types.PacketStatus{
		types.PacketStatusPending,
		types.PacketStatusGenerating,
		types.PacketStatusSent,
		types.PacketStatusFailed,
	} {
		packet := seedPacket(t, env.db, client.ID, types.PacketTypeNutrition, status)
		_, err := env.svc.Send(context.Background(), packet.ID)
		if apierr.CodeOf(err) != apierr.CodeInvalidStatus {
			t.Fatalf("status %s: expected invalid_status, got %v", status, err)
		}
	}
	if env.notifier.ready != 0 {
		t.Fatalf("rejected sends must not notify")
	}
}

func TestSend_NotifyFailureDoesNotRevertSend(t *testing.T) {
	env := newLifecycleEnv(t)
	env.notifier.err = context.DeadlineExceeded
	client := seedClient(t, env.db, types.ClassificationNutritionOnly)
	packet := seedPacket(t, env.db, client.ID, types.PacketTypeNutrition, types.PacketStatusApproved)

	result, err := env.svc.Send(context.Background(), packet.ID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if result.NotifyErr == nil {
		t.Fatalf("notify failure must be surfaced in the result")
	}
	if got := reloadPacket(t, env.db, packet.ID); got.Status != types.PacketStatusSent {
		t.Fatalf("send must stand despite notify failure, got %s", got.Status)
	}
}

func TestDelete_RemovesArtifactBeforeRow(t *testing.T) {
	env := newLifecycleEnv(t)
	client := seedClient(t, env.db, types.ClassificationNutritionOnly)
	packet := seedPacket(t, env.db, client.ID, types.PacketTypeNutrition, types.PacketStatusReady)
	url := "https://cdn.test/packets/x.pdf"
	if err := env.db.Model(packet).Update("pdf_url", url).Error; err != nil {
		t.Fatalf("set pdf url: %v", err)
	}

	result, err := env.svc.Delete(context.Background(), packet.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if result.ArtifactErr != nil {
		t.Fatalf("unexpected artifact error: %v", result.ArtifactErr)
	}
	if len(env.pdf.deleted) != 1 || env.pdf.deleted[0] != url {
		t.Fatalf("artifact not deleted: %v", env.pdf.deleted)
	}

	var count int64
	env.db.Model(&types.Packet{}).Where("id = ?", packet.ID).Count(&count)
	if count != 0 {
		t.Fatalf("packet row still present")
	}
}

func TestDelete_RowGoesEvenWhenArtifactDeleteFails(t *testing.T) {
	env := newLifecycleEnv(t)
	env.pdf.delErr = context.DeadlineExceeded
	client := seedClient(t, env.db, types.ClassificationNutritionOnly)
	packet := seedPacket(t, env.db, client.ID, types.PacketTypeNutrition, types.PacketStatusReady)
	if err := env.db.Model(packet).Update("pdf_url", "https://cdn.test/x.pdf").Error; err != nil {
		t.Fatalf("set pdf url: %v", err)
	}

	result, err := env.svc.Delete(context.Background(), packet.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if result.ArtifactErr == nil {
		t.Fatalf("artifact failure must be surfaced")
	}

	var count int64
	env.db.Model(&types.Packet{}).Where("id = ?", packet.ID).Count(&count)
	if count != 0 {
		t.Fatalf("packet row must be removed regardless of artifact failure")
	}
}

func TestListForClient_ReturnsPacketsInCreationOrder(t *testing.T) {
	env := newLifecycleEnv(t)
	client := seedClient(t, env.db, types.ClassificationFullProgram)
	first := seedPacket(t, env.db, client.ID, types.PacketTypeIntro, types.PacketStatusReady)
	second := seedPacket(t, env.db, client.ID, types.PacketTypeNutrition, types.PacketStatusPending)

	packets, err := env.svc.ListForClient(context.Background(), client.ID)
	if err != nil {
		t.Fatalf("ListForClient: %v", err)
	}
	if len(packets) != 2 {
		t.Fatalf("expected 2 packets, got %d", len(packets))
	}
	if packets[0].ID != first.ID || packets[1].ID != second.ID {
		t.Fatalf("unexpected order: %s, %s", packets[0].ID, packets[1].ID)
	}
}
