package models

import "time"

// AuditEntry is an append-only record of an action taken on an entity.
// Automatic actions carry metadata distinguishing them from human actions.
type AuditEntry struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id,omitempty"`
	ActorID     string         `json:"actor_id"`
	Action      string         `json:"action"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	Description string         `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
