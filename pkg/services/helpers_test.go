package services

import (
	"io"
	"log/slog"
	"testing"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence/file"
	"github.com/eventra-io/accredo/pkg/undo"
	"github.com/eventra-io/accredo/pkg/workflow"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	persistence  *file.Persistence
	undoStore    *undo.MemoryStore
	workflows    *Workflow
	participants *Participant
	operations   *Operations
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	logger := testLogger()
	undoStore := undo.NewMemoryStore()

	navigator := workflow.NewStepNavigator(p, nil, logger)
	engine := workflow.NewAutoActionEngine(p.RuleRepository(), p.AuditRepository(), navigator, "system", logger)
	executor := workflow.NewBatchExecutor(
		p,
		navigator,
		undoStore,
		NewStatusEligibility(p),
		StaticCapabilities{BulkEnabled: true},
		nil,
		nil,
		logger,
	)

	return &harness{
		persistence:  p,
		undoStore:    undoStore,
		workflows:    NewWorkflow(p),
		participants: NewParticipant(p, navigator, engine, logger),
		operations:   NewOperations(p, executor),
	}
}

// publishReviewWorkflow creates and publishes a two-step flow: registration
// (entry) approves into review, review approves to completion.
func publishReviewWorkflow(t *testing.T, h *harness) *models.Workflow {
	t.Helper()

	reviewID := "review"

	created, err := h.workflows.Create(t.Context(), &models.Workflow{
		TenantID: "tenant-1",
		EventID:  "event-1",
		Name:     "Press Accreditation",
		Status:   models.WorkflowStatusDraft,
		Steps: []*models.Step{
			{
				ID:           "registration",
				Name:         "Registration",
				StepType:     models.StepTypeEntry,
				IsEntryPoint: true,
				NextStepID:   &reviewID,
			},
			{
				ID:          "review",
				Name:        "Review",
				StepType:    models.StepTypeReview,
				IsFinalStep: true,
			},
		},
	})
	require.NoError(t, err)

	_, err = h.workflows.Publish(t.Context(), created.ID)
	require.NoError(t, err)

	return created
}

func enroll(t *testing.T, h *harness, workflowID, name string) *models.Participant {
	t.Helper()

	resp, err := h.participants.Enroll(t.Context(), EnrollRequest{
		WorkflowID: workflowID,
		FullName:   name,
		Data:       map[string]any{"company": "Example Corp"},
	})
	require.NoError(t, err)

	return resp.Participant
}
