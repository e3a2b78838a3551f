package file

import (
	"context"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/google/uuid"
)

const (
	kindOperations     = "operations"
	kindOperationItems = "operation_items"
)

// OperationRepository stores bulk operations and, per operation, a single
// JSON file holding all item rows.
type OperationRepository struct {
	root string
}

func (r *OperationRepository) Save(_ context.Context, operation *models.Operation) error {
	if operation.ID == "" {
		operation.ID = uuid.New().String()
	}

	if operation.CreatedAt.IsZero() {
		operation.CreatedAt = time.Now().UTC()
	}

	return writeEntity(r.root, kindOperations, operation.ID, operation)
}

func (r *OperationRepository) GetByID(_ context.Context, id string) (*models.Operation, error) {
	var operation models.Operation

	found, err := readEntity(r.root, kindOperations, id, &operation)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, &persistence.OperationError{Op: "GetByID", OperationID: id, Err: persistence.ErrOperationNotFound}
	}

	return &operation, nil
}

func (r *OperationRepository) SaveItem(_ context.Context, item *models.OperationItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	items, err := r.readItems(item.OperationID)
	if err != nil {
		return err
	}

	replaced := false

	for i, existing := range items {
		if existing.ID == item.ID {
			items[i] = item
			replaced = true

			break
		}
	}

	if !replaced {
		items = append(items, item)
	}

	return writeEntity(r.root, kindOperationItems, item.OperationID, items)
}

func (r *OperationRepository) ItemFor(_ context.Context, operationID, participantID string) (*models.OperationItem, error) {
	items, err := r.readItems(operationID)
	if err != nil {
		return nil, err
	}

	for i := len(items) - 1; i >= 0; i-- {
		if items[i].ParticipantID == participantID {
			return items[i], nil
		}
	}

	return nil, nil
}

func (r *OperationRepository) Items(_ context.Context, operationID string) ([]*models.OperationItem, error) {
	return r.readItems(operationID)
}

func (r *OperationRepository) readItems(operationID string) ([]*models.OperationItem, error) {
	items := make([]*models.OperationItem, 0)

	found, err := readEntity(r.root, kindOperationItems, operationID, &items)
	if err != nil {
		return nil, err
	}

	if !found {
		return []*models.OperationItem{}, nil
	}

	return items, nil
}
