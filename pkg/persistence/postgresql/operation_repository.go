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

// OperationRepository handles bulk operation and item persistence.
type OperationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *OperationRepository) Save(ctx context.Context, operation *models.Operation) error {
	if operation.ID == "" {
		operation.ID = uuid.New().String()
	}

	if operation.CreatedAt.IsZero() {
		operation.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO operations (id, tenant_id, event_id, type, action, status,
			total_items, processed_items, success_count, failure_count,
			remarks, actor_id, undo_deadline, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			total_items = EXCLUDED.total_items,
			processed_items = EXCLUDED.processed_items,
			success_count = EXCLUDED.success_count,
			failure_count = EXCLUDED.failure_count,
			undo_deadline = EXCLUDED.undo_deadline,
			completed_at = EXCLUDED.completed_at
	`

	_, err := r.db.ExecContext(ctx, query,
		operation.ID,
		operation.TenantID,
		operation.EventID,
		operation.Type,
		operation.Action,
		operation.Status,
		operation.TotalItems,
		operation.ProcessedItems,
		operation.SuccessCount,
		operation.FailureCount,
		operation.Remarks,
		operation.ActorID,
		operation.UndoDeadline,
		operation.CreatedAt,
		operation.CompletedAt,
	)
	if err != nil {
		return &persistence.OperationError{Op: "Save", OperationID: operation.ID, Err: err}
	}

	return nil
}

func (r *OperationRepository) GetByID(ctx context.Context, id string) (*models.Operation, error) {
	query := operationSelect + ` WHERE id = $1`

	operation, err := scanOperation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.OperationError{Op: "GetByID", OperationID: id, Err: persistence.ErrOperationNotFound}
		}

		return nil, fmt.Errorf("failed to scan operation: %w", err)
	}

	return operation, nil
}

func (r *OperationRepository) SaveItem(ctx context.Context, item *models.OperationItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}

	stateJSON, err := json.Marshal(item.PreviousState)
	if err != nil {
		return fmt.Errorf("failed to marshal previous state: %w", err)
	}

	query := `
		INSERT INTO operation_items (id, operation_id, participant_id, status,
			previous_state, error_message, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			previous_state = EXCLUDED.previous_state,
			error_message = EXCLUDED.error_message,
			processed_at = EXCLUDED.processed_at
	`

	_, err = r.db.ExecContext(ctx, query,
		item.ID,
		item.OperationID,
		item.ParticipantID,
		item.Status,
		stateJSON,
		item.ErrorMessage,
		item.ProcessedAt,
	)
	if err != nil {
		return &persistence.OperationError{Op: "SaveItem", OperationID: item.OperationID, Err: err}
	}

	return nil
}

func (r *OperationRepository) ItemFor(ctx context.Context, operationID, participantID string) (*models.OperationItem, error) {
	query := itemSelect + ` WHERE operation_id = $1 AND participant_id = $2`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, operationID, participantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan operation item: %w", err)
	}

	return item, nil
}

func (r *OperationRepository) Items(ctx context.Context, operationID string) ([]*models.OperationItem, error) {
	query := itemSelect + ` WHERE operation_id = $1`

	rows, err := r.db.QueryContext(ctx, query, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation items: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	items := make([]*models.OperationItem, 0)

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation item: %w", err)
		}

		items = append(items, item)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating operation items: %w", err)
	}

	return items, nil
}

const operationSelect = `
	SELECT
		id
	  , tenant_id
	  , event_id
	  , type
	  , action
	  , status
	  , total_items
	  , processed_items
	  , success_count
	  , failure_count
	  , remarks
	  , actor_id
	  , undo_deadline
	  , created_at
	  , completed_at
	FROM operations
`

const itemSelect = `
	SELECT id, operation_id, participant_id, status, previous_state, error_message, processed_at
	FROM operation_items
`

func scanOperation(scanner interface {
	Scan(dest ...any) error
}) (*models.Operation, error) {
	var operation models.Operation

	err := scanner.Scan(
		&operation.ID,
		&operation.TenantID,
		&operation.EventID,
		&operation.Type,
		&operation.Action,
		&operation.Status,
		&operation.TotalItems,
		&operation.ProcessedItems,
		&operation.SuccessCount,
		&operation.FailureCount,
		&operation.Remarks,
		&operation.ActorID,
		&operation.UndoDeadline,
		&operation.CreatedAt,
		&operation.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	return &operation, nil
}

func scanItem(scanner interface {
	Scan(dest ...any) error
}) (*models.OperationItem, error) {
	var (
		item      models.OperationItem
		stateJSON []byte
	)

	err := scanner.Scan(
		&item.ID,
		&item.OperationID,
		&item.ParticipantID,
		&item.Status,
		&stateJSON,
		&item.ErrorMessage,
		&item.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}

	if stateJSON != nil && string(stateJSON) != "null" {
		err := json.Unmarshal(stateJSON, &item.PreviousState)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal previous state: %w", err)
		}
	}

	return &item, nil
}
