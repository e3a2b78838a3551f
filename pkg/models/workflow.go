package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow definition.
type WorkflowStatus string

const (
	WorkflowStatusDraft     WorkflowStatus = "draft"     // Editable, not enrollable
	WorkflowStatusPublished WorkflowStatus = "published" // Current active, enrollable
	WorkflowStatusArchived  WorkflowStatus = "archived"  // Historical, not enrollable
)

// Workflow is the mutable definition of an accreditation approval flow.
// Participants never evaluate against it directly; enrollment pins them to
// an immutable WorkflowVersion snapshot.
type Workflow struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	EventID     string         `json:"event_id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"      validate:"required"`
	Steps       []*Step        `json:"steps"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty"`
}

// WorkflowVersion is an immutable snapshot of a workflow's step graph,
// captured at publish time. Editing the workflow never changes the routing
// or SLA deadlines of participants already pinned to a version.
type WorkflowVersion struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	Version    int       `json:"version"`
	Steps      []*Step   `json:"steps"`
	CreatedAt  time.Time `json:"created_at"`
}

// StepByID returns the step with the given ID, or nil.
func (v *WorkflowVersion) StepByID(id string) *Step {
	for _, step := range v.Steps {
		if step.ID == id {
			return step
		}
	}

	return nil
}

// EntryStep returns the snapshot's entry point: the step flagged as entry,
// falling back to the first step in order.
func (v *WorkflowVersion) EntryStep() *Step {
	for _, step := range v.Steps {
		if step.IsEntryPoint {
			return step
		}
	}

	if len(v.Steps) > 0 {
		return v.Steps[0]
	}

	return nil
}
