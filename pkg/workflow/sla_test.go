package workflow_test

import (
	"testing"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence/file"
	"github.com/eventra-io/accredo/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slaSteps has a 60-minute SLA with a 15-minute warning window on review,
// and no SLA at all on the waiting area.
func slaSteps() []*models.Step {
	duration := 60

	return []*models.Step{
		{
			ID:                 "review",
			Name:               "Review",
			IsEntryPoint:       true,
			SLADurationMinutes: &duration,
			SLAWarningMinutes:  15,
		},
		{ID: "waiting", Name: "Waiting Area", IsFinalStep: true},
	}
}

func seedAgedParticipant(t *testing.T, p *file.Persistence, id, stepID string, age time.Duration) {
	t.Helper()

	err := p.ParticipantRepository().Save(t.Context(), &models.Participant{
		ID:                id,
		TenantID:          "tenant-1",
		EventID:           "event-1",
		FullName:          "Participant " + id,
		CurrentStepID:     stepID,
		WorkflowVersionID: "v-1",
		Status:            models.ParticipantPending,
		CreatedAt:         time.Now().UTC().Add(-age),
	})
	require.NoError(t, err)
}

func TestSLAMonitor_Stats(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	seedVersion(t, p, slaSteps())

	seedAgedParticipant(t, p, "fresh", "review", 30*time.Minute)
	seedAgedParticipant(t, p, "warned", "review", 50*time.Minute)
	seedAgedParticipant(t, p, "late", "review", 2*time.Hour)
	seedAgedParticipant(t, p, "untracked", "waiting", 3*time.Hour)

	monitor := workflow.NewSLAMonitor(p, testLogger())

	stats, err := monitor.Stats(t.Context(), "wf-1")
	require.NoError(t, err)

	// The waiting-area participant has no SLA, so it never enters the
	// zone counts.
	assert.Equal(t, 3, stats.TotalWithSLA)
	assert.Equal(t, 1, stats.WithinSLA)
	assert.Equal(t, 1, stats.WarningZone)
	assert.Equal(t, 1, stats.Breached)

	// It still contributes to the dwell-time averages.
	assert.InDelta(t, 180, stats.AverageTimeAtStep["waiting"], 1)
	assert.InDelta(t, (30+50+120)/3.0, stats.AverageTimeAtStep["review"], 1)
}

func TestSLAMonitor_Overdue_OrdersMostUrgentFirst(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	seedVersion(t, p, slaSteps())

	seedAgedParticipant(t, p, "warned", "review", 50*time.Minute)
	seedAgedParticipant(t, p, "late", "review", 90*time.Minute)
	seedAgedParticipant(t, p, "later", "review", 3*time.Hour)
	seedAgedParticipant(t, p, "fresh", "review", 10*time.Minute)

	monitor := workflow.NewSLAMonitor(p, testLogger())

	overdue, err := monitor.Overdue(t.Context(), "wf-1", workflow.OverdueFilter{})
	require.NoError(t, err)

	require.Len(t, overdue, 3)
	assert.Equal(t, "later", overdue[0].Participant.ID)
	assert.Equal(t, "late", overdue[1].Participant.ID)
	assert.Equal(t, "warned", overdue[2].Participant.ID)

	assert.Equal(t, models.SLABreached, overdue[0].Status)
	assert.Equal(t, models.SLAWarning, overdue[2].Status)

	// A 90-minute dwell on a 60-minute SLA is 30 minutes overdue.
	assert.InDelta(t, 30, overdue[1].MinutesOverdue, 1)

	// The warning-zone entry measures distance past the warning threshold.
	assert.InDelta(t, 5, overdue[2].MinutesOverdue, 1)
}

func TestSLAMonitor_Overdue_Filters(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	seedVersion(t, p, slaSteps())

	seedAgedParticipant(t, p, "warned", "review", 50*time.Minute)
	seedAgedParticipant(t, p, "late", "review", 2*time.Hour)

	monitor := workflow.NewSLAMonitor(p, testLogger())

	onlyBreached, err := monitor.Overdue(t.Context(), "wf-1", workflow.OverdueFilter{OnlyBreached: true})
	require.NoError(t, err)
	require.Len(t, onlyBreached, 1)
	assert.Equal(t, "late", onlyBreached[0].Participant.ID)

	otherStep, err := monitor.Overdue(t.Context(), "wf-1", workflow.OverdueFilter{StepID: "waiting"})
	require.NoError(t, err)
	assert.Empty(t, otherStep)
}

func TestSLAMonitor_TimeEnteredStepResetsOnApproval(t *testing.T) {
	p := file.NewPersistence(t.TempDir())
	seedVersion(t, p, slaSteps())
	seedAgedParticipant(t, p, "p1", "review", 3*time.Hour)

	// A recent approval marks re-entry, so dwell time restarts from it.
	err := p.ParticipantRepository().AppendApproval(t.Context(), &models.Approval{
		ParticipantID: "p1",
		StepID:        "review",
		ActorID:       "admin-1",
		Action:        models.ActionApprove,
		CreatedAt:     time.Now().UTC().Add(-10 * time.Minute),
	})
	require.NoError(t, err)

	monitor := workflow.NewSLAMonitor(p, testLogger())

	overdue, err := monitor.Overdue(t.Context(), "wf-1", workflow.OverdueFilter{})
	require.NoError(t, err)
	assert.Empty(t, overdue)
}
