// Package main provides the SLA sweeper, a scheduled scanner that flags
// participants stuck past their step deadlines.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eventra-io/accredo/pkg/events"
	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/eventra-io/accredo/pkg/workflow"
	"github.com/robfig/cron/v3"
)

// Publisher is the slice of the event bus the sweeper needs.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// Sweeper periodically scans published workflows for SLA breaches and
// warning-zone entries, publishing one event per newly observed change.
type Sweeper struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	monitor     *workflow.SLAMonitor
	publisher   Publisher
	now         func() time.Time

	mu   sync.Mutex
	seen map[string]models.SLAZone
}

func NewSweeper(logger *slog.Logger, p persistence.Persistence, publisher Publisher) *Sweeper {
	return &Sweeper{
		logger:      logger.With("module", "sla_sweeper"),
		persistence: p,
		monitor:     workflow.NewSLAMonitor(p, logger),
		publisher:   publisher,
		now:         func() time.Time { return time.Now().UTC() },
		seen:        make(map[string]models.SLAZone),
	}
}

// Sweep runs one full scan over every published workflow. A workflow that
// fails to scan is logged and skipped so one broken definition cannot stall
// the rest.
func (s *Sweeper) Sweep(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	workflows, err := s.persistence.WorkflowRepository().List(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list workflows: %w", err)
	}

	current := make(map[string]models.SLAZone)

	for _, wf := range workflows {
		if wf.Status != models.WorkflowStatusPublished {
			continue
		}

		overdue, err := s.monitor.Overdue(ctx, wf.ID, workflow.OverdueFilter{})
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to scan workflow for SLA breaches",
				"workflow_id", wf.ID, "error", err)

			continue
		}

		for _, entry := range overdue {
			current[entry.Participant.ID] = entry.Status

			if s.seen[entry.Participant.ID] == entry.Status {
				continue
			}

			s.publishBreach(ctx, wf.ID, entry)
		}
	}

	s.seen = current

	return nil
}

func (s *Sweeper) publishBreach(ctx context.Context, workflowID string, entry models.OverdueParticipant) {
	err := s.publisher.Publish(ctx, events.SLABreached{
		ParticipantID:  entry.Participant.ID,
		TenantID:       entry.Participant.TenantID,
		WorkflowID:     workflowID,
		StepID:         entry.Participant.CurrentStepID,
		Status:         string(entry.Status),
		MinutesOverdue: entry.MinutesOverdue,
		OccurredAt:     s.now(),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish SLA event",
			"participant_id", entry.Participant.ID, "error", err)

		return
	}

	s.logger.InfoContext(ctx, "SLA threshold crossed",
		"participant_id", entry.Participant.ID,
		"workflow_id", workflowID,
		"step_id", entry.Participant.CurrentStepID,
		"zone", entry.Status,
		"minutes_overdue", entry.MinutesOverdue)
}

// Start runs an immediate sweep, then follows the cron schedule until the
// context is cancelled.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	err := s.Sweep(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Initial sweep failed", "error", err)
	}

	c := cron.New()

	_, err = c.AddFunc(schedule, func() {
		err := s.Sweep(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "Scheduled sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()

	return nil
}
