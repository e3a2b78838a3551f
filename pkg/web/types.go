// Package web provides HTTP request and response types for the accreditation API.
package web

import "github.com/eventra-io/accredo/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new workflow.
type CreateWorkflowRequest struct {
	TenantID    string         `json:"tenant_id"`
	EventID     string         `json:"event_id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Steps       []*models.Step `json:"steps"`
}

// UpdateWorkflowRequest represents the request body for updating an existing workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name        *string        `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string        `json:"description,omitempty"`
	Steps       []*models.Step `json:"steps,omitempty"`
}

// SaveRuleRequest represents the request body for creating or updating an
// auto-action rule on a step.
type SaveRuleRequest struct {
	ID        string                `json:"id,omitempty"`
	StepID    string                `json:"step_id"     validate:"required"`
	Name      string                `json:"name"        validate:"required"`
	Action    models.AutoActionType `json:"action_type" validate:"required,oneof=AUTO_APPROVE AUTO_REJECT AUTO_BYPASS AUTO_ESCALATE"`
	Condition *models.Condition     `json:"condition,omitempty"`
	Priority  int                   `json:"priority"`
	IsActive  bool                  `json:"is_active"`
}

// EnrollParticipantRequest represents the request body for enrolling a
// participant into a workflow.
type EnrollParticipantRequest struct {
	WorkflowID string         `json:"workflow_id" validate:"required"`
	FullName   string         `json:"full_name"   validate:"required"`
	Email      string         `json:"email"       validate:"omitempty,email"`
	Data       map[string]any `json:"data,omitempty"`
}

// TransitionParticipantRequest represents the request body for applying one
// approval-style action to a participant.
type TransitionParticipantRequest struct {
	ActorID string                `json:"actor_id" validate:"required"`
	Action  models.ApprovalAction `json:"action"   validate:"required,oneof=APPROVE REJECT BYPASS ESCALATE"`
	Remark  string                `json:"remark,omitempty"`
	// ExpectedVersion is the participant version the client last saw. When
	// set, a stale value fails with 409 carrying the current record.
	ExpectedVersion *int `json:"expected_version,omitempty"`
}

// BatchActionRequest represents the request body for a bulk action or its
// dry-run preview.
type BatchActionRequest struct {
	EventID        string                `json:"event_id"`
	TenantID       string                `json:"tenant_id"`
	ActorID        string                `json:"actor_id"        validate:"required"`
	ParticipantIDs []string              `json:"participant_ids" validate:"required,min=1"`
	Action         models.ApprovalAction `json:"action"          validate:"required,oneof=APPROVE REJECT BYPASS ESCALATE"`
	Remarks        string                `json:"remarks,omitempty"`
}

// UndoOperationRequest represents the request body for reversing a batch
// operation.
type UndoOperationRequest struct {
	ActorID string `json:"actor_id" validate:"required"`
}
