package models

import "time"

// OperationType categorizes a tracked bulk operation.
type OperationType string

const (
	OperationBatchAction OperationType = "BATCH_ACTION"
)

// OperationStatus is the lifecycle state of a bulk operation.
type OperationStatus string

const (
	// OperationConfirmed is the initial state for batch actions, which skip
	// the validate/preview states used by file-based imports.
	OperationConfirmed  OperationStatus = "CONFIRMED"
	OperationProcessing OperationStatus = "PROCESSING"
	OperationCompleted  OperationStatus = "COMPLETED"
	OperationFailed     OperationStatus = "FAILED"
	OperationUndone     OperationStatus = "UNDONE"
)

// Operation tracks one bulk action across many participants, with running
// counters that a polling caller can observe mid-run.
type Operation struct {
	ID             string          `json:"id"`
	TenantID       string          `json:"tenant_id"`
	EventID        string          `json:"event_id"`
	Type           OperationType   `json:"type"`
	Action         ApprovalAction  `json:"action"`
	Status         OperationStatus `json:"status"`
	TotalItems     int             `json:"total_items"`
	ProcessedItems int             `json:"processed_items"`
	SuccessCount   int             `json:"success_count"`
	FailureCount   int             `json:"failure_count"`
	Remarks        string          `json:"remarks,omitempty"`
	ActorID        string          `json:"actor_id"`
	UndoDeadline   *time.Time      `json:"undo_deadline,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// Undoable reports whether the operation can still be reversed at the
// given instant.
func (o *Operation) Undoable(now time.Time) bool {
	return o.Status == OperationCompleted &&
		o.UndoDeadline != nil &&
		now.Before(*o.UndoDeadline)
}

// OperationItemStatus is the outcome state of one item within an operation.
type OperationItemStatus string

const (
	ItemProcessing OperationItemStatus = "processing"
	ItemSuccess    OperationItemStatus = "success"
	ItemError      OperationItemStatus = "error"
)

// OperationItem records the per-participant outcome of a bulk operation.
type OperationItem struct {
	ID            string              `json:"id"`
	OperationID   string              `json:"operation_id"`
	ParticipantID string              `json:"participant_id"`
	Status        OperationItemStatus `json:"status"`
	PreviousState *ParticipantState   `json:"previous_state,omitempty"`
	ErrorMessage  string              `json:"error_message,omitempty"`
	ProcessedAt   *time.Time          `json:"processed_at,omitempty"`
}
