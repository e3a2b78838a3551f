package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventra-io/accredo/pkg/events"
	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/otelhelper"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// BatchSize is the fixed sub-batch size for bulk actions. Sub-batches
	// run sequentially to bound database contention.
	BatchSize = 20

	// UndoWindow is how long a completed operation stays reversible.
	UndoWindow = 24 * time.Hour
)

var tracer = otel.Tracer("github.com/eventra-io/accredo/pkg/workflow")

// Capabilities gates tenant-level features.
type Capabilities interface {
	BulkOperationsEnabled(ctx context.Context, tenantID string) bool
}

// IneligibleParticipant explains why a participant cannot receive a batch
// action.
type IneligibleParticipant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// EligibilityResult partitions participants for a dry run.
type EligibilityResult struct {
	Eligible   []string                `json:"eligible"`
	Ineligible []IneligibleParticipant `json:"ineligible"`
}

// EligibilityValidator checks which participants can receive an action.
// Only the dry-run path consults it.
type EligibilityValidator interface {
	ValidateEligibility(ctx context.Context, participantIDs []string, action models.ApprovalAction, tenantID string) (*EligibilityResult, error)
}

// SnapshotEntry is one participant's pre-action state in an undo snapshot.
type SnapshotEntry struct {
	ParticipantID string                  `json:"participant_id"`
	State         models.ParticipantState `json:"state"`
}

// UndoStore persists undo snapshots as an append-only side channel. The
// forward path never reads it.
type UndoStore interface {
	Capture(ctx context.Context, operationID string, entries []SnapshotEntry, ttl time.Duration) error
	Fetch(ctx context.Context, operationID string) ([]SnapshotEntry, error)
}

// Notifier delivers user notifications; every engine call site treats it
// as best effort.
type Notifier interface {
	Notify(ctx context.Context, userID, tenantID, ntype, title, message string, data map[string]any) error
}

// BatchRequest describes one bulk action over a list of participants.
type BatchRequest struct {
	EventID        string
	TenantID       string
	ActorID        string
	ParticipantIDs []string
	Action         models.ApprovalAction
	Remarks        string
}

// BatchResult summarizes a finished bulk action.
type BatchResult struct {
	OperationID  string                 `json:"operation_id"`
	TotalItems   int                    `json:"total_items"`
	SuccessCount int                    `json:"success_count"`
	FailureCount int                    `json:"failure_count"`
	Status       models.OperationStatus `json:"status"`
}

// DryRunResult previews a batch action without mutating anything.
type DryRunResult struct {
	Eligible        []string                `json:"eligible"`
	Ineligible      []IneligibleParticipant `json:"ineligible"`
	EligibleCount   int                     `json:"eligible_count"`
	IneligibleCount int                     `json:"ineligible_count"`
}

// BatchExecutor applies one approval-style action across many participants
// with per-item isolation, observable progress and a 24-hour undo window.
type BatchExecutor struct {
	persistence  persistence.Persistence
	navigator    Navigator
	undo         UndoStore
	eligibility  EligibilityValidator
	capabilities Capabilities
	publisher    EventPublisher
	notifier     Notifier
	logger       *slog.Logger
	now          func() time.Time
}

// NewBatchExecutor creates a batch executor. undo, eligibility, publisher
// and notifier may be nil; the corresponding behavior degrades to a no-op.
func NewBatchExecutor(
	p persistence.Persistence,
	navigator Navigator,
	undo UndoStore,
	eligibility EligibilityValidator,
	capabilities Capabilities,
	publisher EventPublisher,
	notifier Notifier,
	logger *slog.Logger,
) *BatchExecutor {
	return &BatchExecutor{
		persistence:  p,
		navigator:    navigator,
		undo:         undo,
		eligibility:  eligibility,
		capabilities: capabilities,
		publisher:    publisher,
		notifier:     notifier,
		logger:       logger.With("module", "batch_executor"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Execute runs the batch action. Participants are processed sequentially
// in sub-batches of BatchSize; one item's failure never aborts the rest.
// Counters on the operation are persisted after every sub-batch so a
// polling caller sees progress mid-run.
func (e *BatchExecutor) Execute(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, tracer, "batch.execute",
		attribute.String(otelhelper.ActionKey, string(req.Action)),
		attribute.String(otelhelper.TenantIDKey, req.TenantID),
		attribute.Int("accredo.batch.total_items", len(req.ParticipantIDs)),
	)
	defer span.End()

	if !models.ValidApprovalAction(req.Action) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}

	if e.capabilities != nil && !e.capabilities.BulkOperationsEnabled(ctx, req.TenantID) {
		return nil, ErrBulkDisabled
	}

	operation := &models.Operation{
		ID:        uuid.New().String(),
		TenantID:  req.TenantID,
		EventID:   req.EventID,
		Type:      models.OperationBatchAction,
		Action:    req.Action,
		Status:    models.OperationConfirmed,
		Remarks:   req.Remarks,
		ActorID:   req.ActorID,
		CreatedAt: e.now(),
	}

	span.SetAttributes(attribute.String(otelhelper.OperationIDKey, operation.ID))

	err := e.persistence.OperationRepository().Save(ctx, operation)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create operation: %w", err)
	}

	operation.Status = models.OperationProcessing
	operation.TotalItems = len(req.ParticipantIDs)

	err = e.persistence.OperationRepository().Save(ctx, operation)
	if err != nil {
		return nil, fmt.Errorf("failed to mark operation processing: %w", err)
	}

	snapshots := make([]SnapshotEntry, 0, len(req.ParticipantIDs))

	for start := 0; start < len(req.ParticipantIDs); start += BatchSize {
		end := min(start+BatchSize, len(req.ParticipantIDs))

		batchSnapshots, err := e.processSubBatch(ctx, operation, req, req.ParticipantIDs[start:end])
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}

		snapshots = append(snapshots, batchSnapshots...)

		err = e.persistence.OperationRepository().Save(ctx, operation)
		if err != nil {
			return nil, fmt.Errorf("failed to persist operation progress: %w", err)
		}
	}

	if operation.SuccessCount > 0 {
		e.captureUndoSnapshot(ctx, operation.ID, snapshots)
	}

	e.finalize(ctx, operation)

	err = e.persistence.OperationRepository().Save(ctx, operation)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize operation: %w", err)
	}

	e.publishCompletion(ctx, operation)
	e.notifyActor(ctx, req, operation)

	return &BatchResult{
		OperationID:  operation.ID,
		TotalItems:   operation.TotalItems,
		SuccessCount: operation.SuccessCount,
		FailureCount: operation.FailureCount,
		Status:       operation.Status,
	}, nil
}

// processSubBatch bulk-fetches current state for the sub-batch's IDs, then
// processes each ID independently, updating the operation's in-memory
// counters. Only infrastructure failures on the operation record itself
// propagate.
func (e *BatchExecutor) processSubBatch(
	ctx context.Context,
	operation *models.Operation,
	req BatchRequest,
	ids []string,
) ([]SnapshotEntry, error) {
	participants, err := e.persistence.ParticipantRepository().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sub-batch participants: %w", err)
	}

	byID := make(map[string]*models.Participant, len(participants))
	for _, participant := range participants {
		byID[participant.ID] = participant
	}

	snapshots := make([]SnapshotEntry, 0, len(ids))

	for _, id := range ids {
		participant, ok := byID[id]
		if !ok || participant.DeletedAt != nil {
			// Deleted concurrently: record the item and keep going.
			e.recordItemError(ctx, operation.ID, id, nil, "Participant not found")
			operation.ProcessedItems++
			operation.FailureCount++

			continue
		}

		previous := &models.ParticipantState{
			Status:        participant.Status,
			CurrentStepID: participant.CurrentStepID,
		}

		itemErr := e.processItem(ctx, operation, req, participant, previous)
		operation.ProcessedItems++

		if itemErr != nil {
			e.recordItemError(ctx, operation.ID, id, previous, itemErr.Error())
			operation.FailureCount++

			continue
		}

		operation.SuccessCount++

		snapshots = append(snapshots, SnapshotEntry{ParticipantID: id, State: *previous})
	}

	return snapshots, nil
}

// processItem transitions one participant, tracking the item row through
// processing -> success. Panics from the transition are converted to
// per-item errors so a single bad participant cannot abort the batch.
func (e *BatchExecutor) processItem(
	ctx context.Context,
	operation *models.Operation,
	req BatchRequest,
	participant *models.Participant,
	previous *models.ParticipantState,
) (itemErr error) {
	defer func() {
		if r := recover(); r != nil {
			itemErr = fmt.Errorf("transition panicked: %v", r)
		}
	}()

	item := &models.OperationItem{
		ID:            uuid.New().String(),
		OperationID:   operation.ID,
		ParticipantID: participant.ID,
		Status:        models.ItemProcessing,
		PreviousState: previous,
	}

	err := e.persistence.OperationRepository().SaveItem(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to create operation item: %w", err)
	}

	// No ExpectedVersion in batch mode: bulk actions intentionally
	// override concurrent manual changes.
	_, err = e.navigator.Transition(ctx, TransitionRequest{
		ParticipantID:      participant.ID,
		ActorID:            req.ActorID,
		Action:             req.Action,
		Remark:             req.Remarks,
		ConditionalRouting: true,
	})
	if err != nil {
		return err
	}

	now := e.now()
	item.Status = models.ItemSuccess
	item.ProcessedAt = &now

	err = e.persistence.OperationRepository().SaveItem(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to mark operation item success: %w", err)
	}

	// This audit write is part of the batch record-keeping contract.
	err = e.persistence.AuditRepository().Record(ctx, &models.AuditEntry{
		ID:          uuid.New().String(),
		TenantID:    req.TenantID,
		ActorID:     req.ActorID,
		Action:      "batch_" + string(req.Action),
		EntityType:  "participant",
		EntityID:    participant.ID,
		Description: fmt.Sprintf("Batch %s via operation %s", req.Action, operation.ID),
		Metadata: map[string]any{
			"operation_id":  operation.ID,
			"previous_step": previous.CurrentStepID,
		},
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to record batch audit entry: %w", err)
	}

	return nil
}

// recordItemError best-effort locates or creates the item row and marks it
// failed. Item-tracking failures are logged so they never mask the
// underlying error.
func (e *BatchExecutor) recordItemError(
	ctx context.Context,
	operationID, participantID string,
	previous *models.ParticipantState,
	message string,
) {
	now := e.now()

	item, err := e.persistence.OperationRepository().ItemFor(ctx, operationID, participantID)
	if err != nil || item == nil {
		item = &models.OperationItem{
			ID:            uuid.New().String(),
			OperationID:   operationID,
			ParticipantID: participantID,
			PreviousState: previous,
		}
	}

	item.Status = models.ItemError
	item.ErrorMessage = message
	item.ProcessedAt = &now

	err = e.persistence.OperationRepository().SaveItem(ctx, item)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to record operation item error",
			"operation_id", operationID,
			"participant_id", participantID,
			"item_error", message,
			"error", err)
	}
}

// captureUndoSnapshot writes the undo side channel. The batch has already
// committed at this point, so a snapshot failure is logged, not fatal.
func (e *BatchExecutor) captureUndoSnapshot(ctx context.Context, operationID string, entries []SnapshotEntry) {
	if e.undo == nil {
		return
	}

	err := e.undo.Capture(ctx, operationID, entries, UndoWindow)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to capture undo snapshot",
			"operation_id", operationID, "error", err)
	}
}

// finalize stamps completion: FAILED only when every item failed.
func (e *BatchExecutor) finalize(ctx context.Context, operation *models.Operation) {
	now := e.now()
	deadline := now.Add(UndoWindow)

	operation.CompletedAt = &now
	operation.UndoDeadline = &deadline

	if operation.FailureCount > 0 && operation.SuccessCount == 0 {
		operation.Status = models.OperationFailed
	} else {
		operation.Status = models.OperationCompleted
	}
}

// DryRun previews which participants would be affected, performing zero
// writes. Eligibility rules live in the injected validator.
func (e *BatchExecutor) DryRun(ctx context.Context, req BatchRequest) (*DryRunResult, error) {
	if !models.ValidApprovalAction(req.Action) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}

	if e.eligibility == nil {
		return nil, fmt.Errorf("eligibility validator not configured")
	}

	result, err := e.eligibility.ValidateEligibility(ctx, req.ParticipantIDs, req.Action, req.TenantID)
	if err != nil {
		return nil, fmt.Errorf("eligibility validation failed: %w", err)
	}

	return &DryRunResult{
		Eligible:        result.Eligible,
		Ineligible:      result.Ineligible,
		EligibleCount:   len(result.Eligible),
		IneligibleCount: len(result.Ineligible),
	}, nil
}

func (e *BatchExecutor) publishCompletion(ctx context.Context, operation *models.Operation) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, events.OperationCompleted{
		OperationID:  operation.ID,
		TenantID:     operation.TenantID,
		EventID:      operation.EventID,
		Action:       string(operation.Action),
		Status:       string(operation.Status),
		TotalItems:   operation.TotalItems,
		SuccessCount: operation.SuccessCount,
		FailureCount: operation.FailureCount,
		OccurredAt:   e.now(),
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish operation completion",
			"operation_id", operation.ID, "error", err)
	}
}

func (e *BatchExecutor) notifyActor(ctx context.Context, req BatchRequest, operation *models.Operation) {
	if e.notifier == nil {
		return
	}

	err := e.notifier.Notify(ctx, req.ActorID, req.TenantID,
		"batch_completed",
		"Batch action finished",
		fmt.Sprintf("%s applied to %d of %d participants", req.Action, operation.SuccessCount, operation.TotalItems),
		map[string]any{"operation_id": operation.ID},
	)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to send batch completion notification",
			"operation_id", operation.ID, "error", err)
	}
}
