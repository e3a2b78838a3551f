package workflow

import (
	"context"
	"fmt"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/otelhelper"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// UndoResult summarizes a reversed operation.
type UndoResult struct {
	OperationID   string `json:"operation_id"`
	RestoredCount int    `json:"restored_count"`
	SkippedCount  int    `json:"skipped_count"`
}

// Undo reverses a completed batch action while its undo window is open.
// Each successful item's pre-action snapshot is restored; participants
// deleted since the batch are skipped, never fatal. The operation is
// marked UNDONE afterwards.
func (e *BatchExecutor) Undo(ctx context.Context, operationID, actorID string) (*UndoResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, tracer, "batch.undo",
		attribute.String(otelhelper.OperationIDKey, operationID),
	)
	defer span.End()

	operation, err := e.persistence.OperationRepository().GetByID(ctx, operationID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load operation %s: %w", operationID, err)
	}

	if operation.Status != models.OperationCompleted {
		return nil, ErrNotUndoable
	}

	if !operation.Undoable(e.now()) {
		return nil, ErrUndoExpired
	}

	entries, err := e.undoEntries(ctx, operationID)
	if err != nil {
		return nil, err
	}

	result := &UndoResult{OperationID: operationID}

	for _, entry := range entries {
		participant, err := e.persistence.ParticipantRepository().GetByID(ctx, entry.ParticipantID)
		if err != nil || participant == nil || participant.DeletedAt != nil {
			result.SkippedCount++

			continue
		}

		participant.Status = entry.State.Status
		participant.CurrentStepID = entry.State.CurrentStepID
		participant.Version++
		participant.UpdatedAt = e.now()

		err = e.persistence.ParticipantRepository().Save(ctx, participant)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to restore participant during undo",
				"operation_id", operationID,
				"participant_id", entry.ParticipantID,
				"error", err)

			result.SkippedCount++

			continue
		}

		result.RestoredCount++
	}

	operation.Status = models.OperationUndone

	err = e.persistence.OperationRepository().Save(ctx, operation)
	if err != nil {
		return nil, fmt.Errorf("failed to mark operation undone: %w", err)
	}

	e.recordUndoAudit(ctx, operation, actorID, result)

	return result, nil
}

// undoEntries prefers the side-channel snapshot store and falls back to
// the per-item previous states when the store is unavailable or expired.
func (e *BatchExecutor) undoEntries(ctx context.Context, operationID string) ([]SnapshotEntry, error) {
	if e.undo != nil {
		entries, err := e.undo.Fetch(ctx, operationID)
		if err == nil && len(entries) > 0 {
			return entries, nil
		}

		if err != nil {
			e.logger.WarnContext(ctx, "Undo snapshot store unavailable, falling back to item records",
				"operation_id", operationID, "error", err)
		}
	}

	items, err := e.persistence.OperationRepository().Items(ctx, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load operation items: %w", err)
	}

	entries := make([]SnapshotEntry, 0, len(items))

	for _, item := range items {
		if item.Status != models.ItemSuccess || item.PreviousState == nil {
			continue
		}

		entries = append(entries, SnapshotEntry{
			ParticipantID: item.ParticipantID,
			State:         *item.PreviousState,
		})
	}

	return entries, nil
}

func (e *BatchExecutor) recordUndoAudit(ctx context.Context, operation *models.Operation, actorID string, result *UndoResult) {
	err := e.persistence.AuditRepository().Record(ctx, &models.AuditEntry{
		ID:          uuid.New().String(),
		TenantID:    operation.TenantID,
		ActorID:     actorID,
		Action:      "batch_undo",
		EntityType:  "operation",
		EntityID:    operation.ID,
		Description: fmt.Sprintf("Undid batch %s: %d restored, %d skipped", operation.Action, result.RestoredCount, result.SkippedCount),
		Metadata: map[string]any{
			"restored_count": result.RestoredCount,
			"skipped_count":  result.SkippedCount,
		},
		CreatedAt: e.now(),
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to record undo audit entry",
			"operation_id", operation.ID, "error", err)
	}
}
