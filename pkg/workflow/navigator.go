package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventra-io/accredo/pkg/events"
	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/google/uuid"
)

// TransitionRequest asks the Navigator to apply one approval-style action
// to one participant.
type TransitionRequest struct {
	ParticipantID string
	ActorID       string
	Action        models.ApprovalAction
	Remark        string
	// ExpectedVersion enables the optimistic-concurrency check used by
	// interactive callers. Batch mode leaves it nil: bulk actions override
	// concurrent manual changes.
	ExpectedVersion *int
	// ConditionalRouting consults the step's conditional routes on APPROVE
	// instead of the plain next target.
	ConditionalRouting bool
}

// TransitionResult reports where a transition left the participant.
type TransitionResult struct {
	PreviousStepID string
	NextStepID     string // empty when the workflow completed
	IsComplete     bool
	Participant    *models.Participant
}

// Navigator is the single-participant step-transition primitive. Every
// step change in the system, interactive or batch or automatic, goes
// through it.
type Navigator interface {
	Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error)
}

// EventPublisher publishes engine events; implementations are best-effort
// from the engine's point of view.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// StepNavigator is the default Navigator backed by the persistence layer.
type StepNavigator struct {
	persistence persistence.Persistence
	publisher   EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewStepNavigator creates a navigator. The publisher may be nil.
func NewStepNavigator(p persistence.Persistence, publisher EventPublisher, logger *slog.Logger) *StepNavigator {
	return &StepNavigator{
		persistence: p,
		publisher:   publisher,
		logger:      logger.With("module", "navigator"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Transition applies the action: it resolves the target step (consulting
// conditional routes when enabled), appends the approval record, moves the
// participant and bumps its version. Audit and event publication are best
// effort here; the caller's own record-keeping is not.
func (n *StepNavigator) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if !models.ValidApprovalAction(req.Action) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}

	participant, err := n.persistence.ParticipantRepository().GetByID(ctx, req.ParticipantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participant %s: %w", req.ParticipantID, err)
	}

	if participant == nil || participant.DeletedAt != nil {
		return nil, persistence.ErrParticipantNotFound
	}

	if models.TerminalStatus(participant.Status) {
		return nil, ErrParticipantFinalized
	}

	if req.ExpectedVersion != nil && *req.ExpectedVersion != participant.Version {
		return nil, &ConflictError{Current: participant}
	}

	version, err := n.persistence.WorkflowRepository().GetVersion(ctx, participant.WorkflowVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow version %s: %w", participant.WorkflowVersionID, err)
	}

	step := version.StepByID(participant.CurrentStepID)
	if step == nil {
		return nil, fmt.Errorf("%w: %s", ErrStepNotFound, participant.CurrentStepID)
	}

	target := n.resolveTarget(step, req, participant.Data)
	now := n.now()

	approval := &models.Approval{
		ID:            uuid.New().String(),
		ParticipantID: participant.ID,
		StepID:        step.ID,
		ActorID:       req.ActorID,
		Action:        req.Action,
		Remark:        req.Remark,
		CreatedAt:     now,
	}

	err = n.persistence.ParticipantRepository().AppendApproval(ctx, approval)
	if err != nil {
		return nil, fmt.Errorf("failed to record approval: %w", err)
	}

	result := &TransitionResult{PreviousStepID: step.ID}

	if target == nil || *target == "" {
		result.IsComplete = true
		participant.CurrentStepID = ""
		participant.Status = terminalStatusFor(req.Action)
	} else {
		nextStep := version.StepByID(*target)
		if nextStep == nil {
			return nil, fmt.Errorf("%w: target %s", ErrStepNotFound, *target)
		}

		result.NextStepID = nextStep.ID
		participant.CurrentStepID = nextStep.ID
		participant.Status = progressStatusFor(req.Action)
	}

	participant.Version++
	participant.UpdatedAt = now
	participant.Approvals = append(participant.Approvals, approval)

	err = n.persistence.ParticipantRepository().Save(ctx, participant)
	if err != nil {
		return nil, fmt.Errorf("failed to save participant: %w", err)
	}

	result.Participant = participant

	n.recordAudit(ctx, req, step.ID, result)
	n.publishTransition(ctx, participant, step.ID, result, req.Action)

	return result, nil
}

// resolveTarget picks the next step. Conditional routes only apply to
// APPROVE; every other action follows its static edge.
func (n *StepNavigator) resolveTarget(step *models.Step, req TransitionRequest, data map[string]any) *string {
	if req.Action == models.ActionApprove && req.ConditionalRouting && len(step.Routes) > 0 {
		if routed := ResolveRoute(step.Routes, data); routed != "" {
			return &routed
		}
	}

	return step.StaticTargetFor(req.Action)
}

func terminalStatusFor(action models.ApprovalAction) models.ParticipantStatus {
	switch action {
	case models.ActionReject:
		return models.ParticipantRejected
	case models.ActionEscalate:
		return models.ParticipantEscalated
	default:
		return models.ParticipantApproved
	}
}

func progressStatusFor(action models.ApprovalAction) models.ParticipantStatus {
	if action == models.ActionEscalate {
		return models.ParticipantEscalated
	}

	return models.ParticipantInProgress
}

func (n *StepNavigator) recordAudit(ctx context.Context, req TransitionRequest, fromStepID string, result *TransitionResult) {
	entry := &models.AuditEntry{
		ID:          uuid.New().String(),
		ActorID:     req.ActorID,
		Action:      string(req.Action),
		EntityType:  "participant",
		EntityID:    req.ParticipantID,
		Description: fmt.Sprintf("%s at step %s", req.Action, fromStepID),
		Metadata: map[string]any{
			"from_step_id": fromStepID,
			"to_step_id":   result.NextStepID,
			"is_complete":  result.IsComplete,
			"remark":       req.Remark,
		},
		CreatedAt: n.now(),
	}

	err := n.persistence.AuditRepository().Record(ctx, entry)
	if err != nil {
		n.logger.WarnContext(ctx, "Failed to record transition audit entry",
			"participant_id", req.ParticipantID, "error", err)
	}
}

func (n *StepNavigator) publishTransition(
	ctx context.Context,
	participant *models.Participant,
	fromStepID string,
	result *TransitionResult,
	action models.ApprovalAction,
) {
	if n.publisher == nil {
		return
	}

	event := events.ParticipantTransitioned{
		ParticipantID:  participant.ID,
		TenantID:       participant.TenantID,
		EventID:        participant.EventID,
		Action:         string(action),
		PreviousStepID: fromStepID,
		NextStepID:     result.NextStepID,
		IsComplete:     result.IsComplete,
		Status:         string(participant.Status),
		OccurredAt:     n.now(),
	}

	err := n.publisher.Publish(ctx, event)
	if err != nil {
		n.logger.WarnContext(ctx, "Failed to publish transition event",
			"participant_id", participant.ID, "error", err)
	}
}
