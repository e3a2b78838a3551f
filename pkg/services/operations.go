package services

import (
	"context"
	"fmt"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/eventra-io/accredo/pkg/workflow"
)

// Operations orchestrates batch actions, dry runs and undo over the batch
// executor.
type Operations struct {
	persistence persistence.Persistence
	executor    *workflow.BatchExecutor
}

// NewOperations creates an operations service.
func NewOperations(p persistence.Persistence, executor *workflow.BatchExecutor) *Operations {
	return &Operations{
		persistence: p,
		executor:    executor,
	}
}

// ExecuteBatchRequest applies one action to many participants.
type ExecuteBatchRequest struct {
	EventID        string
	TenantID       string
	ActorID        string
	ParticipantIDs []string
	Action         models.ApprovalAction
	Remarks        string
}

// ExecuteBatch runs the batch action synchronously and returns its summary.
func (s *Operations) ExecuteBatch(ctx context.Context, req ExecuteBatchRequest) (*workflow.BatchResult, error) {
	err := s.validateBatchRequest(req)
	if err != nil {
		return nil, err
	}

	return s.executor.Execute(ctx, workflow.BatchRequest{
		EventID:        req.EventID,
		TenantID:       req.TenantID,
		ActorID:        req.ActorID,
		ParticipantIDs: req.ParticipantIDs,
		Action:         req.Action,
		Remarks:        req.Remarks,
	})
}

// DryRun previews the batch action without mutating anything.
func (s *Operations) DryRun(ctx context.Context, req ExecuteBatchRequest) (*workflow.DryRunResult, error) {
	err := s.validateBatchRequest(req)
	if err != nil {
		return nil, err
	}

	return s.executor.DryRun(ctx, workflow.BatchRequest{
		EventID:        req.EventID,
		TenantID:       req.TenantID,
		ActorID:        req.ActorID,
		ParticipantIDs: req.ParticipantIDs,
		Action:         req.Action,
	})
}

// Undo reverses a completed batch operation within its undo window.
func (s *Operations) Undo(ctx context.Context, operationID, actorID string) (*workflow.UndoResult, error) {
	return s.executor.Undo(ctx, operationID, actorID)
}

// OperationProgress is a pollable view of a running or finished operation.
type OperationProgress struct {
	Operation       *models.Operation `json:"operation"`
	ProgressPercent float64           `json:"progress_percent"`
	Undoable        bool              `json:"undoable"`
}

// GetOperation returns the operation with derived progress fields.
func (s *Operations) GetOperation(ctx context.Context, id string) (*OperationProgress, error) {
	operation, err := s.persistence.OperationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	progress := &OperationProgress{Operation: operation}

	if operation.TotalItems > 0 {
		progress.ProgressPercent = float64(operation.ProcessedItems) / float64(operation.TotalItems) * 100
	}

	progress.Undoable = operation.Undoable(time.Now().UTC())

	return progress, nil
}

// Items returns the per-participant outcomes of an operation.
func (s *Operations) Items(ctx context.Context, operationID string) ([]*models.OperationItem, error) {
	return s.persistence.OperationRepository().Items(ctx, operationID)
}

func (s *Operations) validateBatchRequest(req ExecuteBatchRequest) error {
	if len(req.ParticipantIDs) == 0 {
		return NewValidationError("validateBatchRequest", "NO_PARTICIPANTS",
			"participant_ids cannot be empty", ErrNoParticipants)
	}

	if !models.ValidApprovalAction(req.Action) {
		return NewValidationError("validateBatchRequest", "INVALID_ACTION",
			fmt.Sprintf("unknown action %q", req.Action), ErrInvalidAction)
	}

	return nil
}
