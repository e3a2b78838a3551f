package file

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/google/uuid"
)

const (
	kindWorkflows = "workflows"
	kindVersions  = "workflow_versions"
)

// WorkflowRepository stores workflows and version snapshots as JSON files.
type WorkflowRepository struct {
	root string
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return writeEntity(r.root, kindWorkflows, workflow.ID, workflow)
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	found, err := readEntity(r.root, kindWorkflows, id, &workflow)
	if err != nil {
		return nil, err
	}

	if !found || workflow.DeletedAt != nil {
		return nil, nil
	}

	return &workflow, nil
}

func (r *WorkflowRepository) List(_ context.Context, tenantID string) ([]*models.Workflow, error) {
	workflows := make([]*models.Workflow, 0)

	err := listEntities(r.root, kindWorkflows, func(payload []byte) error {
		var workflow models.Workflow

		err := json.Unmarshal(payload, &workflow)
		if err != nil {
			return err
		}

		if workflow.DeletedAt != nil {
			return nil
		}

		if tenantID != "" && workflow.TenantID != tenantID {
			return nil
		}

		workflows = append(workflows, &workflow)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	workflow, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if workflow == nil {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	now := time.Now().UTC()
	workflow.DeletedAt = &now

	return writeEntity(r.root, kindWorkflows, id, workflow)
}

func (r *WorkflowRepository) SaveVersion(_ context.Context, version *models.WorkflowVersion) error {
	if version.ID == "" {
		version.ID = uuid.New().String()
	}

	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}

	return writeEntity(r.root, kindVersions, version.ID, version)
}

func (r *WorkflowRepository) GetVersion(_ context.Context, id string) (*models.WorkflowVersion, error) {
	var version models.WorkflowVersion

	found, err := readEntity(r.root, kindVersions, id, &version)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, &persistence.WorkflowError{Op: "GetVersion", VersionID: id, Err: persistence.ErrVersionNotFound}
	}

	return &version, nil
}

func (r *WorkflowRepository) Versions(_ context.Context, workflowID string) ([]*models.WorkflowVersion, error) {
	versions := make([]*models.WorkflowVersion, 0)

	err := listEntities(r.root, kindVersions, func(payload []byte) error {
		var version models.WorkflowVersion

		err := json.Unmarshal(payload, &version)
		if err != nil {
			return err
		}

		if version.WorkflowID == workflowID {
			versions = append(versions, &version)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Version < versions[j].Version
	})

	return versions, nil
}

func (r *WorkflowRepository) LatestVersion(ctx context.Context, workflowID string) (*models.WorkflowVersion, error) {
	versions, err := r.Versions(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if len(versions) == 0 {
		return nil, persistence.NewWorkflowError("LatestVersion", workflowID, persistence.ErrVersionNotFound)
	}

	return versions[len(versions)-1], nil
}
