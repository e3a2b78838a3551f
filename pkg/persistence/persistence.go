// Package persistence provides the data storage abstraction layer for
// workflows, participants, operations and audit entries.
package persistence

import (
	"context"

	"github.com/eventra-io/accredo/pkg/models"
)

// Persistence exposes the per-entity repositories backed by one store.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	RuleRepository() RuleRepository
	ParticipantRepository() ParticipantRepository
	OperationRepository() OperationRepository
	AuditRepository() AuditRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions and their immutable
// published version snapshots.
type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context, tenantID string) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error

	SaveVersion(ctx context.Context, version *models.WorkflowVersion) error
	GetVersion(ctx context.Context, id string) (*models.WorkflowVersion, error)
	LatestVersion(ctx context.Context, workflowID string) (*models.WorkflowVersion, error)
	Versions(ctx context.Context, workflowID string) ([]*models.WorkflowVersion, error)
}

// RuleRepository stores auto-action rules keyed by step.
type RuleRepository interface {
	Save(ctx context.Context, rule *models.AutoActionRule) error
	GetByID(ctx context.Context, id string) (*models.AutoActionRule, error)
	// ActiveByStep returns the active rules for a step ordered by ascending
	// priority, ties broken by insertion order.
	ActiveByStep(ctx context.Context, stepID string) ([]*models.AutoActionRule, error)
	Delete(ctx context.Context, id string) error
}

// ListParticipantsOptions filters and paginates participant listings.
type ListParticipantsOptions struct {
	TenantID  string
	EventID   string
	StepID    string
	Status    *models.ParticipantStatus
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// ListParticipantsResult is a page of participants plus paging metadata.
type ListParticipantsResult struct {
	Participants []*models.Participant
	TotalCount   int64
	HasNextPage  bool
}

// ParticipantRepository stores participants and their approval history.
type ParticipantRepository interface {
	Save(ctx context.Context, participant *models.Participant) error
	GetByID(ctx context.Context, id string) (*models.Participant, error)
	// GetByIDs bulk-fetches the participants that exist among ids; missing
	// ids are silently absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]*models.Participant, error)
	// ListByWorkflow returns all active (non-deleted) participants pinned
	// to any version of the workflow.
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Participant, error)
	List(ctx context.Context, opts ListParticipantsOptions) (*ListParticipantsResult, error)
	AppendApproval(ctx context.Context, approval *models.Approval) error
	Delete(ctx context.Context, id string) error
}

// OperationRepository stores bulk operations and their per-item outcomes.
type OperationRepository interface {
	Save(ctx context.Context, operation *models.Operation) error
	GetByID(ctx context.Context, id string) (*models.Operation, error)
	SaveItem(ctx context.Context, item *models.OperationItem) error
	// ItemFor returns the item row for a participant within an operation.
	ItemFor(ctx context.Context, operationID, participantID string) (*models.OperationItem, error)
	Items(ctx context.Context, operationID string) ([]*models.OperationItem, error)
}

// AuditRepository appends and queries audit log entries.
type AuditRepository interface {
	Record(ctx context.Context, entry *models.AuditEntry) error
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEntry, error)
}
