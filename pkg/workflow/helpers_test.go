package workflow_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence/file"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedVersion stores a published workflow and one version snapshot holding
// the given steps, returning the version ID participants pin to.
func seedVersion(t *testing.T, p *file.Persistence, steps []*models.Step) string {
	t.Helper()

	err := p.WorkflowRepository().Save(t.Context(), &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		EventID:  "event-1",
		Name:     "Accreditation Flow",
		Status:   models.WorkflowStatusPublished,
		Steps:    steps,
	})
	require.NoError(t, err)

	version := &models.WorkflowVersion{
		ID:         "v-1",
		WorkflowID: "wf-1",
		Version:    1,
		Steps:      steps,
		CreatedAt:  time.Now().UTC(),
	}

	err = p.WorkflowRepository().SaveVersion(t.Context(), version)
	require.NoError(t, err)

	return version.ID
}

func seedParticipant(
	t *testing.T,
	p *file.Persistence,
	id, stepID, versionID string,
	data map[string]any,
) *models.Participant {
	t.Helper()

	participant := &models.Participant{
		ID:                id,
		TenantID:          "tenant-1",
		EventID:           "event-1",
		FullName:          "Participant " + id,
		Data:              data,
		CurrentStepID:     stepID,
		WorkflowVersionID: versionID,
		Status:            models.ParticipantPending,
	}

	err := p.ParticipantRepository().Save(t.Context(), participant)
	require.NoError(t, err)

	return participant
}

func stepPtr(id string) *string {
	return &id
}
