// Package persistence provides standardized error types for persistence
// operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrVersionNotFound indicates a workflow version snapshot was not found.
	ErrVersionNotFound = errors.New("workflow version not found")

	// ErrParticipantNotFound indicates a participant was not found by the given identifier.
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrOperationNotFound indicates a bulk operation was not found.
	ErrOperationNotFound = errors.New("operation not found")

	// ErrOperationItemNotFound indicates an operation item was not found.
	ErrOperationItemNotFound = errors.New("operation item not found")

	// ErrRuleNotFound indicates an auto-action rule was not found.
	ErrRuleNotFound = errors.New("auto-action rule not found")
)

// WorkflowError wraps workflow-related errors with additional context.
type WorkflowError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save")
	WorkflowID string
	VersionID  string
	Err        error
}

func (e *WorkflowError) Error() string {
	target := e.WorkflowID
	if e.VersionID != "" {
		target = fmt.Sprintf("version %s", e.VersionID)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, target, e.Err)
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

func (e *WorkflowError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *WorkflowError {
	return &WorkflowError{Op: op, WorkflowID: workflowID, Err: err}
}

// ParticipantError wraps participant-related errors with additional context.
type ParticipantError struct {
	Op            string
	ParticipantID string
	Err           error
}

func (e *ParticipantError) Error() string {
	return fmt.Sprintf("%s operation failed for participant %s: %v", e.Op, e.ParticipantID, e.Err)
}

func (e *ParticipantError) Unwrap() error {
	return e.Err
}

func (e *ParticipantError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// OperationError wraps bulk-operation-related errors with additional context.
type OperationError struct {
	Op          string
	OperationID string
	Err         error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s operation failed for bulk operation %s: %v", e.Op, e.OperationID, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func (e *OperationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsVersionNotFound checks if an error indicates a version snapshot was not found.
func IsVersionNotFound(err error) bool {
	return errors.Is(err, ErrVersionNotFound)
}

// IsParticipantNotFound checks if an error indicates a participant was not found.
func IsParticipantNotFound(err error) bool {
	return errors.Is(err, ErrParticipantNotFound)
}

// IsOperationNotFound checks if an error indicates a bulk operation was not found.
func IsOperationNotFound(err error) bool {
	return errors.Is(err, ErrOperationNotFound)
}

// IsRuleNotFound checks if an error indicates an auto-action rule was not found.
func IsRuleNotFound(err error) bool {
	return errors.Is(err, ErrRuleNotFound)
}
