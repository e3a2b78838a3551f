package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/eventra-io/accredo/pkg/events"
	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	published []any
}

func (c *capturePublisher) Publish(_ context.Context, event any) error {
	c.published = append(c.published, event)

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedWorkflowWithSLA(t *testing.T, p *file.Persistence) {
	t.Helper()

	duration := 60
	steps := []*models.Step{
		{
			ID:                 "gate",
			Name:               "Security Gate",
			IsEntryPoint:       true,
			IsFinalStep:        true,
			SLADurationMinutes: &duration,
			SLAWarningMinutes:  15,
		},
	}

	err := p.WorkflowRepository().Save(t.Context(), &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		EventID:  "event-1",
		Name:     "Gate Review",
		Status:   models.WorkflowStatusPublished,
		Steps:    steps,
	})
	require.NoError(t, err)

	err = p.WorkflowRepository().SaveVersion(t.Context(), &models.WorkflowVersion{
		ID:         "v-1",
		WorkflowID: "wf-1",
		Version:    1,
		Steps:      steps,
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
}

func seedParticipant(t *testing.T, p *file.Persistence, id string, age time.Duration) {
	t.Helper()

	err := p.ParticipantRepository().Save(t.Context(), &models.Participant{
		ID:                id,
		TenantID:          "tenant-1",
		EventID:           "event-1",
		FullName:          "Participant " + id,
		CurrentStepID:     "gate",
		WorkflowVersionID: "v-1",
		Status:            models.ParticipantPending,
		CreatedAt:         time.Now().UTC().Add(-age),
	})
	require.NoError(t, err)
}

func TestSweeper_PublishesBreaches(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	seedWorkflowWithSLA(t, p)
	seedParticipant(t, p, "late", 2*time.Hour)
	seedParticipant(t, p, "on-time", 10*time.Minute)

	publisher := &capturePublisher{}
	sweeper := NewSweeper(testLogger(), p, publisher)

	err := sweeper.Sweep(t.Context())
	require.NoError(t, err)

	require.Len(t, publisher.published, 1)

	breach, ok := publisher.published[0].(events.SLABreached)
	require.True(t, ok)
	assert.Equal(t, "late", breach.ParticipantID)
	assert.Equal(t, "wf-1", breach.WorkflowID)
	assert.Equal(t, "gate", breach.StepID)
	assert.Equal(t, string(models.SLABreached), breach.Status)
	assert.InDelta(t, 60.0, breach.MinutesOverdue, 1.0)
}

func TestSweeper_DoesNotRepeatUnchangedBreaches(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	seedWorkflowWithSLA(t, p)
	seedParticipant(t, p, "late", 2*time.Hour)

	publisher := &capturePublisher{}
	sweeper := NewSweeper(testLogger(), p, publisher)

	require.NoError(t, sweeper.Sweep(t.Context()))
	require.NoError(t, sweeper.Sweep(t.Context()))

	assert.Len(t, publisher.published, 1)
}

func TestSweeper_ReportsWarningThenBreach(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	seedWorkflowWithSLA(t, p)

	// 50 minutes into a 60-minute SLA with a 15-minute warning window.
	seedParticipant(t, p, "warned", 50*time.Minute)

	publisher := &capturePublisher{}
	sweeper := NewSweeper(testLogger(), p, publisher)

	require.NoError(t, sweeper.Sweep(t.Context()))
	require.Len(t, publisher.published, 1)

	warning, ok := publisher.published[0].(events.SLABreached)
	require.True(t, ok)
	assert.Equal(t, string(models.SLAWarning), warning.Status)

	// Push the participant past the deadline: the zone change publishes again.
	seedParticipant(t, p, "warned", 2*time.Hour)

	require.NoError(t, sweeper.Sweep(t.Context()))
	require.Len(t, publisher.published, 2)

	breach, ok := publisher.published[1].(events.SLABreached)
	require.True(t, ok)
	assert.Equal(t, string(models.SLABreached), breach.Status)
}

func TestSweeper_SkipsUnpublishedWorkflows(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	seedWorkflowWithSLA(t, p)
	seedParticipant(t, p, "late", 2*time.Hour)

	wf, err := p.WorkflowRepository().GetByID(t.Context(), "wf-1")
	require.NoError(t, err)

	wf.Status = models.WorkflowStatusArchived
	require.NoError(t, p.WorkflowRepository().Save(t.Context(), wf))

	publisher := &capturePublisher{}
	sweeper := NewSweeper(testLogger(), p, publisher)

	require.NoError(t, sweeper.Sweep(t.Context()))
	assert.Empty(t, publisher.published)
}
