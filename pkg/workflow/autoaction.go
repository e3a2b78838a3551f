package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/google/uuid"
)

// MaxChainDepth bounds consecutive automatic transitions in one logical
// call. Exceeding it halts the chain with a warning, never an error: a
// depth counter is deliberately used instead of a visited-step set so
// workflows that legitimately revisit a step keep working.
const MaxChainDepth = 10

// ExecutedAction records one rule firing within a chain.
type ExecutedAction struct {
	RuleID   string                `json:"rule_id"`
	RuleName string                `json:"rule_name"`
	Action   models.AutoActionType `json:"action"`
	StepID   string                `json:"step_id"`
}

// ChainResult reports where an auto-action chain left the participant.
type ChainResult struct {
	PreviousStepID  string           `json:"previous_step_id"`
	NextStepID      string           `json:"next_step_id,omitempty"`
	IsComplete      bool             `json:"is_complete"`
	ActionsExecuted []ExecutedAction `json:"actions_executed"`
	ChainDepth      int              `json:"chain_depth"`
}

// AutoActionEngine evaluates per-step rule sets and drives automatic
// transitions through the Navigator.
type AutoActionEngine struct {
	rules       persistence.RuleRepository
	audit       persistence.AuditRepository
	navigator   Navigator
	systemActor string
	logger      *slog.Logger
	now         func() time.Time
}

// NewAutoActionEngine creates an auto-action engine. systemActor is the
// reserved actor identifier automatic transitions are attributed to.
func NewAutoActionEngine(
	rules persistence.RuleRepository,
	audit persistence.AuditRepository,
	navigator Navigator,
	systemActor string,
	logger *slog.Logger,
) *AutoActionEngine {
	return &AutoActionEngine{
		rules:       rules,
		audit:       audit,
		navigator:   navigator,
		systemActor: systemActor,
		logger:      logger.With("module", "auto_action_engine"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// EvaluateAutoActions returns the first active rule at the step whose
// condition matches the participant data, or nil when none match. Rules
// arrive from the repository already ordered by ascending priority.
func (e *AutoActionEngine) EvaluateAutoActions(
	ctx context.Context,
	stepID string,
	data map[string]any,
) (*models.AutoActionRule, error) {
	rules, err := e.rules.ActiveByStep(ctx, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to load auto-action rules for step %s: %w", stepID, err)
	}

	for _, rule := range rules {
		if rule.Condition.Evaluate(data) {
			return rule, nil
		}
	}

	return nil, nil
}

// ExecuteChain runs the auto-action chain starting at currentStepID. Each
// matching rule triggers a Navigator transition attributed to the system
// actor, then the new step's rules are evaluated recursively. The result
// accumulates by return value so each depth level stays independently
// testable. A nil result means no auto-action fired at this level.
func (e *AutoActionEngine) ExecuteChain(
	ctx context.Context,
	participantID string,
	currentStepID string,
	data map[string]any,
	conditionalRouting bool,
	depth int,
) (*ChainResult, error) {
	if depth >= MaxChainDepth {
		e.logger.WarnContext(ctx, "Auto-action chain depth limit reached, halting chain",
			"participant_id", participantID,
			"step_id", currentStepID,
			"max_depth", MaxChainDepth)

		return nil, nil
	}

	rule, err := e.EvaluateAutoActions(ctx, currentStepID, data)
	if err != nil {
		return nil, err
	}

	if rule == nil {
		return nil, nil
	}

	transition, err := e.navigator.Transition(ctx, TransitionRequest{
		ParticipantID:      participantID,
		ActorID:            e.systemActor,
		Action:             rule.ApprovalAction(),
		Remark:             "Auto-action: " + rule.Name,
		ConditionalRouting: conditionalRouting,
	})
	if err != nil {
		return nil, fmt.Errorf("auto-action %q failed at step %s: %w", rule.Name, currentStepID, err)
	}

	// This audit write is part of the transition's record-keeping contract,
	// so its failure propagates unlike the best-effort paths.
	err = e.audit.Record(ctx, &models.AuditEntry{
		ID:          uuid.New().String(),
		ActorID:     e.systemActor,
		Action:      "auto_action",
		EntityType:  "participant",
		EntityID:    participantID,
		Description: fmt.Sprintf("Auto-action %q applied %s", rule.Name, rule.Action),
		Metadata: map[string]any{
			"rule_id":     rule.ID,
			"rule_name":   rule.Name,
			"action_type": string(rule.Action),
			"automatic":   true,
			"step_id":     currentStepID,
		},
		CreatedAt: e.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record auto-action audit entry: %w", err)
	}

	result := &ChainResult{
		PreviousStepID: transition.PreviousStepID,
		NextStepID:     transition.NextStepID,
		IsComplete:     transition.IsComplete,
		ActionsExecuted: []ExecutedAction{{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Action:   rule.Action,
			StepID:   currentStepID,
		}},
		ChainDepth: depth,
	}

	if !transition.IsComplete && transition.NextStepID != "" {
		child, err := e.ExecuteChain(ctx, participantID, transition.NextStepID, data, conditionalRouting, depth+1)
		if err != nil {
			return nil, err
		}

		if child != nil {
			result.NextStepID = child.NextStepID
			result.IsComplete = child.IsComplete
			result.ActionsExecuted = append(result.ActionsExecuted, child.ActionsExecuted...)
			result.ChainDepth = child.ChainDepth
		}
	}

	return result, nil
}
