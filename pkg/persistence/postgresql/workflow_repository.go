package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow and version snapshot persistence.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	stepsJSON, err := json.Marshal(workflow.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		INSERT INTO workflows (id, tenant_id, event_id, name, description,
			status, steps, created_at, updated_at, published_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			event_id = EXCLUDED.event_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			steps = EXCLUDED.steps,
			updated_at = EXCLUDED.updated_at,
			published_at = EXCLUDED.published_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.TenantID,
		workflow.EventID,
		workflow.Name,
		workflow.Description,
		workflow.Status,
		stepsJSON,
		workflow.CreatedAt,
		workflow.UpdatedAt,
		workflow.PublishedAt,
		workflow.DeletedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , event_id
		  , name
		  , description
		  , status
		  , steps
		  , created_at
		  , updated_at
		  , published_at
		  , deleted_at
		FROM workflows
		WHERE id = $1 AND deleted_at IS NULL
	`

	workflow, err := r.scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) List(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	query := `
		SELECT
			id
		  , tenant_id
		  , event_id
		  , name
		  , description
		  , status
		  , steps
		  , created_at
		  , updated_at
		  , published_at
		  , deleted_at
		FROM workflows
		WHERE deleted_at IS NULL AND ($1 = '' OR tenant_id = $1)
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE workflows SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func (r *WorkflowRepository) SaveVersion(ctx context.Context, version *models.WorkflowVersion) error {
	if version.ID == "" {
		version.ID = uuid.New().String()
	}

	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}

	stepsJSON, err := json.Marshal(version.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal version steps: %w", err)
	}

	query := `
		INSERT INTO workflow_versions (id, workflow_id, version, steps, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = r.db.ExecContext(ctx, query,
		version.ID,
		version.WorkflowID,
		version.Version,
		stepsJSON,
		version.CreatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("SaveVersion", version.WorkflowID, err)
	}

	return nil
}

func (r *WorkflowRepository) GetVersion(ctx context.Context, id string) (*models.WorkflowVersion, error) {
	query := `
		SELECT id, workflow_id, version, steps, created_at
		FROM workflow_versions
		WHERE id = $1
	`

	version, err := r.scanVersion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.WorkflowError{Op: "GetVersion", VersionID: id, Err: persistence.ErrVersionNotFound}
		}

		return nil, fmt.Errorf("failed to scan workflow version: %w", err)
	}

	return version, nil
}

func (r *WorkflowRepository) LatestVersion(ctx context.Context, workflowID string) (*models.WorkflowVersion, error) {
	query := `
		SELECT id, workflow_id, version, steps, created_at
		FROM workflow_versions
		WHERE workflow_id = $1
		ORDER BY version DESC
		LIMIT 1
	`

	version, err := r.scanVersion(r.db.QueryRowContext(ctx, query, workflowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("LatestVersion", workflowID, persistence.ErrVersionNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow version: %w", err)
	}

	return version, nil
}

func (r *WorkflowRepository) Versions(ctx context.Context, workflowID string) ([]*models.WorkflowVersion, error) {
	query := `
		SELECT id, workflow_id, version, steps, created_at
		FROM workflow_versions
		WHERE workflow_id = $1
		ORDER BY version ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow versions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	versions := make([]*models.WorkflowVersion, 0)

	for rows.Next() {
		version, err := r.scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow version: %w", err)
		}

		versions = append(versions, version)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow versions: %w", err)
	}

	return versions, nil
}

func (r *WorkflowRepository) scanWorkflow(scanner interface {
	Scan(dest ...any) error
}) (*models.Workflow, error) {
	var (
		workflow  models.Workflow
		stepsJSON []byte
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.TenantID,
		&workflow.EventID,
		&workflow.Name,
		&workflow.Description,
		&workflow.Status,
		&stepsJSON,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
		&workflow.PublishedAt,
		&workflow.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if stepsJSON != nil {
		err := json.Unmarshal(stepsJSON, &workflow.Steps)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
	}

	return &workflow, nil
}

func (r *WorkflowRepository) scanVersion(scanner interface {
	Scan(dest ...any) error
}) (*models.WorkflowVersion, error) {
	var (
		version   models.WorkflowVersion
		stepsJSON []byte
	)

	err := scanner.Scan(
		&version.ID,
		&version.WorkflowID,
		&version.Version,
		&stepsJSON,
		&version.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if stepsJSON != nil {
		err := json.Unmarshal(stepsJSON, &version.Steps)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal version steps: %w", err)
		}
	}

	return &version, nil
}
