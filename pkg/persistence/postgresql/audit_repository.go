package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/google/uuid"
)

// AuditRepository handles append-only audit log persistence.
type AuditRepository struct {
	db *sql.DB
}

func (r *AuditRepository) Record(ctx context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_log (id, tenant_id, actor_id, action, entity_type,
			entity_id, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.TenantID,
		entry.ActorID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.Description,
		metadataJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}

	return nil
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEntry, error) {
	query := `
		SELECT id, tenant_id, actor_id, action, entity_type, entity_id, description, metadata, created_at
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}

	defer func() { _ = rows.Close() }()

	entries := make([]*models.AuditEntry, 0)

	for rows.Next() {
		var (
			entry        models.AuditEntry
			metadataJSON []byte
		)

		err := rows.Scan(
			&entry.ID,
			&entry.TenantID,
			&entry.ActorID,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&entry.Description,
			&metadataJSON,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if metadataJSON != nil && string(metadataJSON) != "null" {
			err := json.Unmarshal(metadataJSON, &entry.Metadata)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
