package services

import (
	"testing"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence/file"
	"github.com/eventra-io/accredo/pkg/workflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperations_ExecuteBatch_MixedResults(t *testing.T) {
	h := newHarness(t)
	wf := publishReviewWorkflow(t, h)

	ids := make([]string, 0, 5)
	for _, name := range []string{"Alice", "Bob", "Charlie", "Dora"} {
		ids = append(ids, enroll(t, h, wf.ID, name).ID)
	}

	ids = append(ids, uuid.NewString()) // never enrolled

	result, err := h.operations.ExecuteBatch(t.Context(), ExecuteBatchRequest{
		EventID:        "event-1",
		TenantID:       "tenant-1",
		ActorID:        "admin-1",
		ParticipantIDs: ids,
		Action:         models.ActionApprove,
		Remarks:        "pre-event sweep",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, result.TotalItems)
	assert.Equal(t, 4, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, models.OperationCompleted, result.Status)

	progress, err := h.operations.GetOperation(t.Context(), result.OperationID)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, progress.ProgressPercent, 0.01)
	assert.True(t, progress.Undoable)
	require.NotNil(t, progress.Operation.UndoDeadline)
	require.NotNil(t, progress.Operation.CompletedAt)
	assert.Equal(t, 24*60*60.0, progress.Operation.UndoDeadline.Sub(*progress.Operation.CompletedAt).Seconds())

	// Counter invariant: every item is accounted for exactly once.
	op := progress.Operation
	assert.Equal(t, op.ProcessedItems, op.SuccessCount+op.FailureCount)

	items, err := h.operations.Items(t.Context(), result.OperationID)
	require.NoError(t, err)
	assert.Len(t, items, 5)

	moved, err := h.participants.FetchByID(t.Context(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "review", moved.CurrentStepID)
	assert.Equal(t, models.ParticipantInProgress, moved.Status)
}

func TestOperations_ExecuteBatch_AllFailuresMarksFailed(t *testing.T) {
	h := newHarness(t)

	result, err := h.operations.ExecuteBatch(t.Context(), ExecuteBatchRequest{
		EventID:        "event-1",
		TenantID:       "tenant-1",
		ActorID:        "admin-1",
		ParticipantIDs: []string{uuid.NewString(), uuid.NewString()},
		Action:         models.ActionApprove,
	})
	require.NoError(t, err)

	assert.Equal(t, models.OperationFailed, result.Status)
	assert.Equal(t, 2, result.FailureCount)
	assert.Equal(t, 0, result.SuccessCount)
}

func TestOperations_ExecuteBatch_Validation(t *testing.T) {
	h := newHarness(t)

	_, err := h.operations.ExecuteBatch(t.Context(), ExecuteBatchRequest{
		Action: models.ActionApprove,
	})
	assert.ErrorIs(t, err, ErrNoParticipants)

	_, err = h.operations.ExecuteBatch(t.Context(), ExecuteBatchRequest{
		ParticipantIDs: []string{"p1"},
		Action:         "SHRED",
	})
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestOperations_ExecuteBatch_BulkDisabled(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	logger := testLogger()
	navigator := workflow.NewStepNavigator(p, nil, logger)
	executor := workflow.NewBatchExecutor(
		p, navigator, nil, nil, StaticCapabilities{BulkEnabled: false}, nil, nil, logger,
	)
	operations := NewOperations(p, executor)

	_, err := operations.ExecuteBatch(t.Context(), ExecuteBatchRequest{
		TenantID:       "tenant-1",
		ParticipantIDs: []string{"p1"},
		Action:         models.ActionApprove,
	})
	assert.ErrorIs(t, err, workflow.ErrBulkDisabled)
}

func TestOperations_DryRun_PartitionsWithoutWrites(t *testing.T) {
	h := newHarness(t)
	wf := publishReviewWorkflow(t, h)

	eligible := enroll(t, h, wf.ID, "Eligible Person")
	finalized := enroll(t, h, wf.ID, "Finalized Person")

	_, err := h.participants.Transition(t.Context(), TransitionCommand{
		ParticipantID: finalized.ID,
		ActorID:       "admin-1",
		Action:        models.ActionReject,
	})
	require.NoError(t, err)

	result, err := h.operations.DryRun(t.Context(), ExecuteBatchRequest{
		TenantID:       "tenant-1",
		ParticipantIDs: []string{eligible.ID, finalized.ID, uuid.NewString()},
		Action:         models.ActionApprove,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.EligibleCount)
	assert.Equal(t, 2, result.IneligibleCount)
	assert.Equal(t, []string{eligible.ID}, result.Eligible)

	// Dry run mutates nothing.
	unchanged, err := h.participants.FetchByID(t.Context(), eligible.ID)
	require.NoError(t, err)
	assert.Equal(t, eligible.Version, unchanged.Version)
	assert.Equal(t, "registration", unchanged.CurrentStepID)
}

func TestOperations_Undo_RestoresPreviousState(t *testing.T) {
	h := newHarness(t)
	wf := publishReviewWorkflow(t, h)

	first := enroll(t, h, wf.ID, "Alice")
	second := enroll(t, h, wf.ID, "Bob")

	result, err := h.operations.ExecuteBatch(t.Context(), ExecuteBatchRequest{
		EventID:        "event-1",
		TenantID:       "tenant-1",
		ActorID:        "admin-1",
		ParticipantIDs: []string{first.ID, second.ID},
		Action:         models.ActionApprove,
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.SuccessCount)

	undone, err := h.operations.Undo(t.Context(), result.OperationID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 2, undone.RestoredCount)
	assert.Equal(t, 0, undone.SkippedCount)

	restored, err := h.participants.FetchByID(t.Context(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "registration", restored.CurrentStepID)
	assert.Equal(t, models.ParticipantPending, restored.Status)

	progress, err := h.operations.GetOperation(t.Context(), result.OperationID)
	require.NoError(t, err)
	assert.Equal(t, models.OperationUndone, progress.Operation.Status)
	assert.False(t, progress.Undoable)

	// A second undo is rejected.
	_, err = h.operations.Undo(t.Context(), result.OperationID, "admin-1")
	assert.ErrorIs(t, err, workflow.ErrNotUndoable)
}
