package models

import "time"

// AutoActionType is the action an auto-action rule fires.
type AutoActionType string

const (
	AutoApprove  AutoActionType = "AUTO_APPROVE"
	AutoReject   AutoActionType = "AUTO_REJECT"
	AutoBypass   AutoActionType = "AUTO_BYPASS"
	AutoEscalate AutoActionType = "AUTO_ESCALATE"
)

// AutoActionRule performs an approval action automatically when its
// condition matches the participant's data at a step. Rules for a step are
// evaluated in ascending priority order; the first active match fires.
type AutoActionRule struct {
	ID        string         `json:"id"`
	StepID    string         `json:"step_id"   validate:"required"`
	Name      string         `json:"name"      validate:"required"`
	Condition *Condition     `json:"condition,omitempty"`
	Action    AutoActionType `json:"action_type" validate:"required"`
	Priority  int            `json:"priority"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ApprovalAction maps the rule's auto-action type to its manual equivalent.
func (r *AutoActionRule) ApprovalAction() ApprovalAction {
	switch r.Action {
	case AutoApprove:
		return ActionApprove
	case AutoReject:
		return ActionReject
	case AutoBypass:
		return ActionBypass
	case AutoEscalate:
		return ActionEscalate
	default:
		return ""
	}
}
