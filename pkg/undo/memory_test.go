package undo_test

import (
	"testing"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/undo"
	"github.com/eventra-io/accredo/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries() []workflow.SnapshotEntry {
	return []workflow.SnapshotEntry{
		{
			ParticipantID: "p1",
			State:         models.ParticipantState{Status: models.ParticipantPending, CurrentStepID: "review"},
		},
		{
			ParticipantID: "p2",
			State:         models.ParticipantState{Status: models.ParticipantEscalated, CurrentStepID: "escalation"},
		},
	}
}

func TestMemoryStore_CaptureAndFetch(t *testing.T) {
	store := undo.NewMemoryStore()

	err := store.Capture(t.Context(), "op-1", entries(), time.Hour)
	require.NoError(t, err)

	fetched, err := store.Fetch(t.Context(), "op-1")
	require.NoError(t, err)
	require.Len(t, fetched, 2)
	assert.Equal(t, "p1", fetched[0].ParticipantID)
	assert.Equal(t, "review", fetched[0].State.CurrentStepID)
	assert.Equal(t, models.ParticipantEscalated, fetched[1].State.Status)
}

func TestMemoryStore_UnknownOperation(t *testing.T) {
	store := undo.NewMemoryStore()

	fetched, err := store.Fetch(t.Context(), "never-captured")
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestMemoryStore_ExpiredSnapshot(t *testing.T) {
	store := undo.NewMemoryStore()

	err := store.Capture(t.Context(), "op-1", entries(), -time.Second)
	require.NoError(t, err)

	fetched, err := store.Fetch(t.Context(), "op-1")
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestMemoryStore_FetchReturnsACopy(t *testing.T) {
	store := undo.NewMemoryStore()

	require.NoError(t, store.Capture(t.Context(), "op-1", entries(), time.Hour))

	first, err := store.Fetch(t.Context(), "op-1")
	require.NoError(t, err)

	first[0].State.CurrentStepID = "tampered"

	second, err := store.Fetch(t.Context(), "op-1")
	require.NoError(t, err)
	assert.Equal(t, "review", second[0].State.CurrentStepID)
}
