// Package file provides file-based persistence for development and tests.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eventra-io/accredo/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of JSON files.
type Persistence struct {
	root            string
	workflowRepo    *WorkflowRepository
	ruleRepo        *RuleRepository
	participantRepo *ParticipantRepository
	operationRepo   *OperationRepository
	auditRepo       *AuditRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:            cleanRoot,
		workflowRepo:    &WorkflowRepository{root: cleanRoot},
		ruleRepo:        &RuleRepository{root: cleanRoot},
		participantRepo: &ParticipantRepository{root: cleanRoot},
		operationRepo:   &OperationRepository{root: cleanRoot},
		auditRepo:       &AuditRepository{root: cleanRoot},
	}
}

// Close performs any necessary cleanup; nothing to do for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) RuleRepository() persistence.RuleRepository {
	return fp.ruleRepo
}

func (fp *Persistence) ParticipantRepository() persistence.ParticipantRepository {
	return fp.participantRepo
}

func (fp *Persistence) OperationRepository() persistence.OperationRepository {
	return fp.operationRepo
}

func (fp *Persistence) AuditRepository() persistence.AuditRepository {
	return fp.auditRepo
}

// writeEntity marshals an entity into <root>/<kind>/<id>.json.
func writeEntity(root, kind, id string, entity any) error {
	dir := filepath.Join(root, kind)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	payload, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", kind, id, err)
	}

	err = os.WriteFile(filepath.Join(dir, id+".json"), payload, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", kind, id, err)
	}

	return nil
}

// readEntity unmarshals <root>/<kind>/<id>.json into target. Missing files
// report found=false without an error.
func readEntity(root, kind, id string, target any) (bool, error) {
	payload, err := os.ReadFile(filepath.Join(root, kind, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s %s: %w", kind, id, err)
	}

	err = json.Unmarshal(payload, target)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal %s %s: %w", kind, id, err)
	}

	return true, nil
}

// removeEntity deletes <root>/<kind>/<id>.json.
func removeEntity(root, kind, id string) error {
	err := os.Remove(filepath.Join(root, kind, id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s %s: %w", kind, id, err)
	}

	return nil
}

// listEntities decodes every entity of a kind via the decode callback.
func listEntities(root, kind string, decode func(payload []byte) error) error {
	dir := filepath.Join(root, kind)

	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("failed to read %s directory: %w", kind, err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		payload, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read %s file %s: %w", kind, file.Name(), err)
		}

		err = decode(payload)
		if err != nil {
			return err
		}
	}

	return nil
}
