// Package services provides the application service layer between the HTTP
// handlers and the workflow engine.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	// Validation errors (400 Bad Request).
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidSortOrder = errors.New("invalid sort order")
	ErrInvalidStatus    = errors.New("invalid status filter")
	ErrInvalidAction    = errors.New("invalid approval action")
	ErrInvalidCondition = errors.New("invalid condition document")

	// Publishing validation errors (400 Bad Request).
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrStepsRequired        = errors.New("workflow must have at least one step")
	ErrEntryStepRequired    = errors.New("workflow must have an entry step")
	ErrUnknownRouteTarget   = errors.New("conditional route targets an unknown step")
	ErrNoParticipants       = errors.New("at least one participant is required")

	// Business logic conflicts (409 Conflict).
	ErrWorkflowArchived     = errors.New("cannot modify an archived workflow")
	ErrWorkflowNotPublished = errors.New("workflow has no published version")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidSortField) ||
		errors.Is(err, ErrInvalidSortOrder) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidAction) ||
		errors.Is(err, ErrInvalidCondition) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrStepsRequired) ||
		errors.Is(err, ErrEntryStepRequired) ||
		errors.Is(err, ErrUnknownRouteTarget) ||
		errors.Is(err, ErrNoParticipants)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrWorkflowArchived) ||
		errors.Is(err, ErrWorkflowNotPublished)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
