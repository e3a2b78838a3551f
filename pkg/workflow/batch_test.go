package workflow_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence/file"
	"github.com/eventra-io/accredo/pkg/undo"
	"github.com/eventra-io/accredo/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoStepFlow() []*models.Step {
	return []*models.Step{
		{ID: "registration", Name: "Registration", IsEntryPoint: true, NextStepID: stepPtr("review")},
		{ID: "review", Name: "Review", IsFinalStep: true},
	}
}

func newExecutor(t *testing.T, p *file.Persistence, navigator workflow.Navigator) *workflow.BatchExecutor {
	t.Helper()

	if navigator == nil {
		navigator = workflow.NewStepNavigator(p, nil, testLogger())
	}

	return workflow.NewBatchExecutor(
		p, navigator, undo.NewMemoryStore(), nil, nil, nil, nil, testLogger(),
	)
}

func TestBatchExecutor_ProcessesMultipleSubBatches(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	versionID := seedVersion(t, p, twoStepFlow())

	// More participants than one sub-batch holds.
	total := workflow.BatchSize + 5
	ids := make([]string, 0, total)

	for i := range total {
		id := fmt.Sprintf("p%02d", i)
		seedParticipant(t, p, id, "registration", versionID, nil)
		ids = append(ids, id)
	}

	executor := newExecutor(t, p, nil)

	result, err := executor.Execute(t.Context(), workflow.BatchRequest{
		EventID:        "event-1",
		TenantID:       "tenant-1",
		ActorID:        "admin-1",
		ParticipantIDs: ids,
		Action:         models.ActionApprove,
	})
	require.NoError(t, err)

	assert.Equal(t, total, result.TotalItems)
	assert.Equal(t, total, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)
	assert.Equal(t, models.OperationCompleted, result.Status)

	items, err := p.OperationRepository().Items(t.Context(), result.OperationID)
	require.NoError(t, err)
	assert.Len(t, items, total)

	last, err := p.ParticipantRepository().GetByID(t.Context(), ids[total-1])
	require.NoError(t, err)
	assert.Equal(t, "review", last.CurrentStepID)
}

// panickyNavigator panics for one participant and delegates the rest.
type panickyNavigator struct {
	inner    workflow.Navigator
	panicsOn string
}

func (n *panickyNavigator) Transition(ctx context.Context, req workflow.TransitionRequest) (*workflow.TransitionResult, error) {
	if req.ParticipantID == n.panicsOn {
		panic("corrupted participant data")
	}

	return n.inner.Transition(ctx, req)
}

func TestBatchExecutor_PanicIsIsolatedToItsItem(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	versionID := seedVersion(t, p, twoStepFlow())

	seedParticipant(t, p, "good-1", "registration", versionID, nil)
	seedParticipant(t, p, "bad", "registration", versionID, nil)
	seedParticipant(t, p, "good-2", "registration", versionID, nil)

	navigator := &panickyNavigator{
		inner:    workflow.NewStepNavigator(p, nil, testLogger()),
		panicsOn: "bad",
	}
	executor := newExecutor(t, p, navigator)

	result, err := executor.Execute(t.Context(), workflow.BatchRequest{
		TenantID:       "tenant-1",
		ActorID:        "admin-1",
		ParticipantIDs: []string{"good-1", "bad", "good-2"},
		Action:         models.ActionApprove,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	assert.Equal(t, models.OperationCompleted, result.Status)

	item, err := p.OperationRepository().ItemFor(t.Context(), result.OperationID, "bad")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, models.ItemError, item.Status)
	assert.Contains(t, item.ErrorMessage, "panicked")
}

func TestBatchExecutor_UnknownAction(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	executor := newExecutor(t, p, nil)

	_, err := executor.Execute(t.Context(), workflow.BatchRequest{
		TenantID:       "tenant-1",
		ParticipantIDs: []string{"p1"},
		Action:         "SHRED",
	})
	assert.ErrorIs(t, err, workflow.ErrUnknownAction)
}

func TestBatchExecutor_Undo_ExpiredWindow(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	versionID := seedVersion(t, p, twoStepFlow())
	seedParticipant(t, p, "p1", "registration", versionID, nil)

	executor := newExecutor(t, p, nil)

	result, err := executor.Execute(t.Context(), workflow.BatchRequest{
		TenantID:       "tenant-1",
		ActorID:        "admin-1",
		ParticipantIDs: []string{"p1"},
		Action:         models.ActionApprove,
	})
	require.NoError(t, err)

	// Age the operation past its undo deadline.
	operation, err := p.OperationRepository().GetByID(t.Context(), result.OperationID)
	require.NoError(t, err)

	expired := time.Now().UTC().Add(-time.Minute)
	operation.UndoDeadline = &expired
	require.NoError(t, p.OperationRepository().Save(t.Context(), operation))

	_, err = executor.Undo(t.Context(), result.OperationID, "admin-1")
	assert.ErrorIs(t, err, workflow.ErrUndoExpired)
}

func TestBatchExecutor_Undo_FallsBackToItemSnapshots(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	versionID := seedVersion(t, p, twoStepFlow())
	seedParticipant(t, p, "p1", "registration", versionID, nil)

	// No undo store at all: restore must come from the item records.
	navigator := workflow.NewStepNavigator(p, nil, testLogger())
	executor := workflow.NewBatchExecutor(p, navigator, nil, nil, nil, nil, nil, testLogger())

	result, err := executor.Execute(t.Context(), workflow.BatchRequest{
		TenantID:       "tenant-1",
		ActorID:        "admin-1",
		ParticipantIDs: []string{"p1"},
		Action:         models.ActionApprove,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.SuccessCount)

	undone, err := executor.Undo(t.Context(), result.OperationID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 1, undone.RestoredCount)

	restored, err := p.ParticipantRepository().GetByID(t.Context(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "registration", restored.CurrentStepID)
	assert.Equal(t, models.ParticipantPending, restored.Status)
}

func TestBatchExecutor_Undo_SkipsDeletedParticipants(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	versionID := seedVersion(t, p, twoStepFlow())
	seedParticipant(t, p, "keep", "registration", versionID, nil)
	seedParticipant(t, p, "gone", "registration", versionID, nil)

	executor := newExecutor(t, p, nil)

	result, err := executor.Execute(t.Context(), workflow.BatchRequest{
		TenantID:       "tenant-1",
		ActorID:        "admin-1",
		ParticipantIDs: []string{"keep", "gone"},
		Action:         models.ActionApprove,
	})
	require.NoError(t, err)

	require.NoError(t, p.ParticipantRepository().Delete(t.Context(), "gone"))

	undone, err := executor.Undo(t.Context(), result.OperationID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, 1, undone.RestoredCount)
	assert.Equal(t, 1, undone.SkippedCount)
}
