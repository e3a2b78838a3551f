package workflow

import (
	"errors"
	"fmt"

	"github.com/eventra-io/accredo/pkg/models"
)

// Engine error taxonomy. Configuration errors fail fast; per-item batch
// errors never surface through these.
var (
	// ErrUnknownAction indicates an action outside APPROVE/REJECT/BYPASS/ESCALATE.
	ErrUnknownAction = errors.New("unknown approval action")

	// ErrBulkDisabled indicates the bulk-operations capability is off for the tenant.
	ErrBulkDisabled = errors.New("bulk operations are not enabled for this tenant")

	// ErrParticipantFinalized indicates a transition on an already-terminal participant.
	ErrParticipantFinalized = errors.New("participant already reached a terminal state")

	// ErrStepNotFound indicates the participant's current step is missing
	// from its workflow version snapshot.
	ErrStepNotFound = errors.New("step not found in workflow version snapshot")

	// ErrVersionConflict indicates a stale optimistic-lock version on an
	// interactive transition.
	ErrVersionConflict = errors.New("participant was modified concurrently")

	// ErrNotUndoable indicates an operation that is not in an undoable state.
	ErrNotUndoable = errors.New("operation cannot be undone")

	// ErrUndoExpired indicates the undo window has closed.
	ErrUndoExpired = errors.New("undo window has expired")
)

// ConflictError reports an optimistic-lock failure and carries the current
// participant state so the caller can re-render with fresh data.
type ConflictError struct {
	Current *models.Participant
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("participant %s was modified concurrently (version %d)", e.Current.ID, e.Current.Version)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// IsConflict checks whether an error is an optimistic-lock conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
