package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
)

// SLAMonitor computes dwell-time statistics for a workflow's participants
// against the SLA thresholds captured in their version snapshots.
type SLAMonitor struct {
	persistence persistence.Persistence
	logger      *slog.Logger
	now         func() time.Time
}

// NewSLAMonitor creates an SLA monitor.
func NewSLAMonitor(p persistence.Persistence, logger *slog.Logger) *SLAMonitor {
	return &SLAMonitor{
		persistence: p,
		logger:      logger.With("module", "sla_monitor"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Stats aggregates SLA zones over every active participant on the
// workflow. Participants at steps without an SLA are excluded from the
// zone counts but still contribute to the per-step dwell-time averages.
func (m *SLAMonitor) Stats(ctx context.Context, workflowID string) (*models.SLAStats, error) {
	participants, versions, err := m.loadWorkflowState(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	stats := &models.SLAStats{AverageTimeAtStep: make(map[string]float64)}
	totals := make(map[string]float64)
	counts := make(map[string]int)
	now := m.now()

	for _, participant := range participants {
		step := m.currentStep(participant, versions)
		if step == nil {
			continue
		}

		elapsed := now.Sub(participant.TimeEnteredStep()).Minutes()
		totals[step.ID] += elapsed
		counts[step.ID]++

		if !step.HasSLA() {
			continue
		}

		stats.TotalWithSLA++

		switch models.ClassifySLA(step, elapsed) {
		case models.SLABreached:
			stats.Breached++
		case models.SLAWarning:
			stats.WarningZone++
		default:
			stats.WithinSLA++
		}
	}

	for stepID, total := range totals {
		stats.AverageTimeAtStep[stepID] = total / float64(counts[stepID])
	}

	return stats, nil
}

// OverdueFilter narrows an Overdue query.
type OverdueFilter struct {
	StepID       string
	OnlyBreached bool
}

// Overdue lists participants past (or approaching) their step's SLA
// deadline, most urgent first: breached entries before warnings, then by
// how far past the relevant threshold they are.
func (m *SLAMonitor) Overdue(ctx context.Context, workflowID string, filter OverdueFilter) ([]models.OverdueParticipant, error) {
	participants, versions, err := m.loadWorkflowState(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	overdue := make([]models.OverdueParticipant, 0)

	for _, participant := range participants {
		if filter.StepID != "" && participant.CurrentStepID != filter.StepID {
			continue
		}

		step := m.currentStep(participant, versions)
		if step == nil || !step.HasSLA() {
			continue
		}

		elapsed := now.Sub(participant.TimeEnteredStep()).Minutes()
		duration := float64(*step.SLADurationMinutes)

		switch models.ClassifySLA(step, elapsed) {
		case models.SLABreached:
			overdue = append(overdue, models.OverdueParticipant{
				Participant:    participant,
				Status:         models.SLABreached,
				MinutesOverdue: elapsed - duration,
			})
		case models.SLAWarning:
			if filter.OnlyBreached {
				continue
			}

			overdue = append(overdue, models.OverdueParticipant{
				Participant:    participant,
				Status:         models.SLAWarning,
				MinutesOverdue: elapsed - (duration - float64(step.SLAWarningMinutes)),
			})
		}
	}

	sort.SliceStable(overdue, func(i, j int) bool {
		if overdue[i].Status != overdue[j].Status {
			return overdue[i].Status == models.SLABreached
		}

		return overdue[i].MinutesOverdue > overdue[j].MinutesOverdue
	})

	return overdue, nil
}

// loadWorkflowState fetches the workflow's active participants and the
// version snapshots they are pinned to, keyed by version ID.
func (m *SLAMonitor) loadWorkflowState(
	ctx context.Context,
	workflowID string,
) ([]*models.Participant, map[string]*models.WorkflowVersion, error) {
	participants, err := m.persistence.ParticipantRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list participants for workflow %s: %w", workflowID, err)
	}

	versions := make(map[string]*models.WorkflowVersion)

	for _, participant := range participants {
		if participant.WorkflowVersionID == "" {
			continue
		}

		if _, ok := versions[participant.WorkflowVersionID]; ok {
			continue
		}

		version, err := m.persistence.WorkflowRepository().GetVersion(ctx, participant.WorkflowVersionID)
		if err != nil {
			if persistence.IsVersionNotFound(err) {
				m.logger.WarnContext(ctx, "Participant pinned to missing version snapshot",
					"participant_id", participant.ID, "version_id", participant.WorkflowVersionID)

				continue
			}

			return nil, nil, fmt.Errorf("failed to load version %s: %w", participant.WorkflowVersionID, err)
		}

		versions[participant.WorkflowVersionID] = version
	}

	return participants, versions, nil
}

func (m *SLAMonitor) currentStep(
	participant *models.Participant,
	versions map[string]*models.WorkflowVersion,
) *models.Step {
	if participant.CurrentStepID == "" {
		return nil
	}

	version, ok := versions[participant.WorkflowVersionID]
	if !ok {
		return nil
	}

	return version.StepByID(participant.CurrentStepID)
}
