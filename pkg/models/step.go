package models

// StepType categorizes a node in the approval step graph.
type StepType string

const (
	StepTypeEntry    StepType = "entry"
	StepTypeReview   StepType = "review"
	StepTypeTerminal StepType = "terminal"
)

// ApprovalAction is an action applied to a participant at a step.
type ApprovalAction string

const (
	ActionApprove  ApprovalAction = "APPROVE"
	ActionReject   ApprovalAction = "REJECT"
	ActionBypass   ApprovalAction = "BYPASS"
	ActionEscalate ApprovalAction = "ESCALATE"
)

// ValidApprovalAction reports whether the action is one of the four
// approval-style actions.
func ValidApprovalAction(action ApprovalAction) bool {
	switch action {
	case ActionApprove, ActionReject, ActionBypass, ActionEscalate:
		return true
	default:
		return false
	}
}

// Step is a node in a workflow's step graph. Each outgoing edge is a single
// optional target; a nil target means the workflow completes on that edge.
type Step struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name" validate:"required"`
	StepType           StepType            `json:"step_type"`
	IsEntryPoint       bool                `json:"is_entry_point"`
	IsFinalStep        bool                `json:"is_final_step"`
	NextStepID         *string             `json:"next_step_id,omitempty"`
	RejectionTargetID  *string             `json:"rejection_target_id,omitempty"`
	BypassTargetID     *string             `json:"bypass_target_id,omitempty"`
	EscalationTargetID *string             `json:"escalation_target_id,omitempty"`
	SLADurationMinutes *int                `json:"sla_duration_minutes,omitempty"`
	SLAWarningMinutes  int                 `json:"sla_warning_minutes,omitempty"`
	Routes             []*ConditionalRoute `json:"routes,omitempty"`
	AssignedRoleID     string              `json:"assigned_role_id,omitempty"`
}

// StaticTargetFor returns the step's configured target for an action,
// ignoring conditional routes. nil means the workflow ends there.
func (s *Step) StaticTargetFor(action ApprovalAction) *string {
	switch action {
	case ActionApprove:
		return s.NextStepID
	case ActionReject:
		return s.RejectionTargetID
	case ActionBypass:
		return s.BypassTargetID
	case ActionEscalate:
		return s.EscalationTargetID
	default:
		return nil
	}
}

// HasSLA reports whether dwell time at this step is tracked against a
// service-level target.
func (s *Step) HasSLA() bool {
	return s.SLADurationMinutes != nil
}

// ConditionalRoute is a priority-ordered, condition-gated alternative
// target evaluated when a participant is approved out of a step.
type ConditionalRoute struct {
	ID           string     `json:"id"`
	Label        string     `json:"label"`
	Condition    *Condition `json:"condition,omitempty"`
	TargetStepID string     `json:"target_step_id" validate:"required"`
	Priority     int        `json:"priority"`
}
