package models

import "time"

// ParticipantStatus is the accreditation state of a participant.
type ParticipantStatus string

const (
	ParticipantPending    ParticipantStatus = "PENDING"
	ParticipantInProgress ParticipantStatus = "IN_PROGRESS"
	ParticipantApproved   ParticipantStatus = "APPROVED"
	ParticipantRejected   ParticipantStatus = "REJECTED"
	ParticipantEscalated  ParticipantStatus = "ESCALATED"
)

// TerminalStatus reports whether the status ends the workflow.
func TerminalStatus(status ParticipantStatus) bool {
	return status == ParticipantApproved || status == ParticipantRejected
}

// Approval records one approval-style action applied to a participant.
type Approval struct {
	ID            string         `json:"id"`
	ParticipantID string         `json:"participant_id"`
	StepID        string         `json:"step_id"`
	ActorID       string         `json:"actor_id"`
	Action        ApprovalAction `json:"action"`
	Remark        string         `json:"remark,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Participant is a person moving through an event's accreditation workflow.
// The participant occupies exactly one step of the WorkflowVersion snapshot
// pinned at enrollment.
type Participant struct {
	ID                string            `json:"id"`
	TenantID          string            `json:"tenant_id"`
	EventID           string            `json:"event_id"`
	FullName          string            `json:"full_name" validate:"required"`
	Email             string            `json:"email"     validate:"omitempty,email"`
	Data              map[string]any    `json:"data,omitempty"`
	CurrentStepID     string            `json:"current_step_id"`
	WorkflowVersionID string            `json:"workflow_version_id"`
	Status            ParticipantStatus `json:"status"`
	Version           int               `json:"version"` // optimistic concurrency token
	Approvals         []*Approval       `json:"approvals,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         *time.Time        `json:"deleted_at,omitempty"`
}

// TimeEnteredStep returns when the participant arrived at its current step:
// the most recent approval's timestamp, or the enrollment time when no
// approval has happened yet.
func (p *Participant) TimeEnteredStep() time.Time {
	entered := p.CreatedAt

	for _, approval := range p.Approvals {
		if approval.CreatedAt.After(entered) {
			entered = approval.CreatedAt
		}
	}

	return entered
}

// ParticipantState is the minimal snapshot captured before a batch action
// so the action can be reversed within the undo window.
type ParticipantState struct {
	Status        ParticipantStatus `json:"status"`
	CurrentStepID string            `json:"current_step_id"`
}
