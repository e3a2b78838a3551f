package services

import (
	"context"
	"fmt"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

	// ErrRuleNotFound is returned when an auto-action rule is not found.
	ErrRuleNotFound = persistence.ErrRuleNotFound
)

// Workflow manages workflow definitions, publishing and auto-action rules.
type Workflow struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence) *Workflow {
	return &Workflow{
		persistence: persistence,
		validate:    validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create adds a new workflow in draft status.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	now := time.Now().UTC()
	workflow.ID = uuid.New().String()
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusDraft
	}

	err := w.validateWorkflow(workflow)
	if err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	return workflow, nil
}

// Update modifies a workflow definition. Participants already pinned to a
// published version snapshot are unaffected; changes only reach new
// enrollments after the next publish.
func (w *Workflow) Update(ctx context.Context, workflowID string, workflow *models.Workflow) (*models.Workflow, error) {
	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		return nil, ErrWorkflowNotFound
	}

	if existing.Status == models.WorkflowStatusArchived {
		return nil, ErrWorkflowArchived
	}

	workflow.ID = workflowID
	workflow.CreatedAt = existing.CreatedAt
	workflow.PublishedAt = existing.PublishedAt
	workflow.Status = existing.Status
	workflow.UpdatedAt = time.Now().UTC()

	err = w.validateWorkflow(workflow)
	if err != nil {
		return nil, err
	}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	return workflow, nil
}

// List retrieves the tenant's workflows, newest first.
func (w *Workflow) List(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// Delete soft-deletes a workflow definition.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if existing == nil {
		return ErrWorkflowNotFound
	}

	err = w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// Publish validates the step graph, captures an immutable version snapshot
// and marks the workflow published. Existing participants stay pinned to
// their earlier snapshots.
func (w *Workflow) Publish(ctx context.Context, workflowID string) (*models.WorkflowVersion, error) {
	workflow, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if workflow == nil {
		return nil, ErrWorkflowNotFound
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return nil, ErrWorkflowArchived
	}

	err = w.validateForPublishing(workflow)
	if err != nil {
		return nil, err
	}

	nextVersion := 1

	latest, err := w.persistence.WorkflowRepository().LatestVersion(ctx, workflowID)
	if err != nil && !persistence.IsVersionNotFound(err) {
		return nil, fmt.Errorf("failed to determine latest version: %w", err)
	}

	if latest != nil {
		nextVersion = latest.Version + 1
	}

	version := &models.WorkflowVersion{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Version:    nextVersion,
		Steps:      workflow.Steps,
		CreatedAt:  time.Now().UTC(),
	}

	err = w.persistence.WorkflowRepository().SaveVersion(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("failed to save version snapshot: %w", err)
	}

	now := time.Now().UTC()
	workflow.Status = models.WorkflowStatusPublished
	workflow.PublishedAt = &now

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to mark workflow published: %w", err)
	}

	return version, nil
}

// Versions returns a workflow's published snapshots, oldest first.
func (w *Workflow) Versions(ctx context.Context, workflowID string) ([]*models.WorkflowVersion, error) {
	return w.persistence.WorkflowRepository().Versions(ctx, workflowID)
}

// OperatorsForType returns the operators offered for a field type in the
// condition builder.
func (w *Workflow) OperatorsForType(fieldType models.FieldType) []models.OperatorInfo {
	return models.OperatorsForType(fieldType)
}

// SaveRule creates or updates an auto-action rule after validating its
// condition document.
func (w *Workflow) SaveRule(ctx context.Context, rule *models.AutoActionRule) (*models.AutoActionRule, error) {
	err := w.validate.Struct(rule)
	if err != nil {
		return nil, NewValidationError("SaveRule", "INVALID_RULE", err.Error(), ErrInvalidRequest)
	}

	err = validateCondition(rule.Condition)
	if err != nil {
		return nil, err
	}

	err = w.persistence.RuleRepository().Save(ctx, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to save rule: %w", err)
	}

	return rule, nil
}

// RuleByID retrieves an auto-action rule.
func (w *Workflow) RuleByID(ctx context.Context, id string) (*models.AutoActionRule, error) {
	return w.persistence.RuleRepository().GetByID(ctx, id)
}

// RulesForStep returns the step's active rules in evaluation order.
func (w *Workflow) RulesForStep(ctx context.Context, stepID string) ([]*models.AutoActionRule, error) {
	return w.persistence.RuleRepository().ActiveByStep(ctx, stepID)
}

// DeleteRule removes an auto-action rule.
func (w *Workflow) DeleteRule(ctx context.Context, id string) error {
	return w.persistence.RuleRepository().Delete(ctx, id)
}

// validateWorkflow checks the definition's struct tags, route targets and
// condition documents.
func (w *Workflow) validateWorkflow(workflow *models.Workflow) error {
	err := w.validate.Struct(workflow)
	if err != nil {
		return NewValidationError("validateWorkflow", "INVALID_WORKFLOW", err.Error(), ErrInvalidRequest)
	}

	stepIDs := make(map[string]bool, len(workflow.Steps))
	for _, step := range workflow.Steps {
		stepIDs[step.ID] = true
	}

	for _, step := range workflow.Steps {
		for _, route := range step.Routes {
			if !stepIDs[route.TargetStepID] {
				return NewValidationError(
					"validateWorkflow",
					"UNKNOWN_ROUTE_TARGET",
					fmt.Sprintf("route %q on step %q targets unknown step %q", route.Label, step.ID, route.TargetStepID),
					ErrUnknownRouteTarget,
				)
			}

			err := validateCondition(route.Condition)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// validateForPublishing ensures a workflow is ready to be published.
func (w *Workflow) validateForPublishing(workflow *models.Workflow) error {
	if workflow.Name == "" {
		return ErrWorkflowNameRequired
	}

	if len(workflow.Steps) == 0 {
		return ErrStepsRequired
	}

	hasEntry := false

	for _, step := range workflow.Steps {
		if step.IsEntryPoint {
			hasEntry = true

			break
		}
	}

	if !hasEntry {
		return ErrEntryStepRequired
	}

	return w.validateWorkflow(workflow)
}
