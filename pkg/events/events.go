// Package events defines the engine's published event payloads and topics.
package events

import "time"

// Topic names events are routed under on the event bus.
const (
	TopicParticipantTransitioned = "accredo.participant.transitioned"
	TopicOperationCompleted      = "accredo.operation.completed"
	TopicSLABreached             = "accredo.sla.breached"
	TopicNotification            = "accredo.notification"
)

// ParticipantTransitioned is published after every successful step change.
type ParticipantTransitioned struct {
	ParticipantID  string    `json:"participant_id"`
	TenantID       string    `json:"tenant_id"`
	EventID        string    `json:"event_id"`
	Action         string    `json:"action"`
	PreviousStepID string    `json:"previous_step_id"`
	NextStepID     string    `json:"next_step_id,omitempty"`
	IsComplete     bool      `json:"is_complete"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// OperationCompleted is published when a bulk operation finishes.
type OperationCompleted struct {
	OperationID  string    `json:"operation_id"`
	TenantID     string    `json:"tenant_id"`
	EventID      string    `json:"event_id"`
	Action       string    `json:"action"`
	Status       string    `json:"status"`
	TotalItems   int       `json:"total_items"`
	SuccessCount int       `json:"success_count"`
	FailureCount int       `json:"failure_count"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// SLABreached is published by the sweeper for each newly observed breach.
type SLABreached struct {
	ParticipantID  string    `json:"participant_id"`
	TenantID       string    `json:"tenant_id"`
	WorkflowID     string    `json:"workflow_id"`
	StepID         string    `json:"step_id"`
	Status         string    `json:"status"` // "breached" or "warning"
	MinutesOverdue float64   `json:"minutes_overdue"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Notification is the payload the notifier publishes for delivery.
type Notification struct {
	UserID     string         `json:"user_id"`
	TenantID   string         `json:"tenant_id"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
