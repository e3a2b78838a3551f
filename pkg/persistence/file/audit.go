package file

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/google/uuid"
)

const kindAudit = "audit_log"

// AuditRepository stores audit entries as JSON files.
type AuditRepository struct {
	root string
}

func (r *AuditRepository) Record(_ context.Context, entry *models.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	return writeEntity(r.root, kindAudit, entry.ID, entry)
}

func (r *AuditRepository) ListByEntity(_ context.Context, entityType, entityID string) ([]*models.AuditEntry, error) {
	entries := make([]*models.AuditEntry, 0)

	err := listEntities(r.root, kindAudit, func(payload []byte) error {
		var entry models.AuditEntry

		err := json.Unmarshal(payload, &entry)
		if err != nil {
			return err
		}

		if entry.EntityType == entityType && entry.EntityID == entityID {
			entries = append(entries, &entry)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return entries, nil
}
