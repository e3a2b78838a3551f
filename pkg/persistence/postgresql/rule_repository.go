package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/google/uuid"
)

// RuleRepository handles auto-action rule persistence.
type RuleRepository struct {
	db *sql.DB
}

func (r *RuleRepository) Save(ctx context.Context, rule *models.AutoActionRule) error {
	now := time.Now().UTC()

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	conditionJSON, err := json.Marshal(rule.Condition)
	if err != nil {
		return fmt.Errorf("failed to marshal rule condition: %w", err)
	}

	query := `
		INSERT INTO auto_action_rules (id, step_id, name, condition,
			action_type, priority, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			step_id = EXCLUDED.step_id,
			name = EXCLUDED.name,
			condition = EXCLUDED.condition,
			action_type = EXCLUDED.action_type,
			priority = EXCLUDED.priority,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID,
		rule.StepID,
		rule.Name,
		conditionJSON,
		rule.Action,
		rule.Priority,
		rule.IsActive,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save auto-action rule: %w", err)
	}

	return nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*models.AutoActionRule, error) {
	query := `
		SELECT id, step_id, name, condition, action_type, priority, is_active, created_at, updated_at
		FROM auto_action_rules
		WHERE id = $1
	`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRuleNotFound
		}

		return nil, fmt.Errorf("failed to scan auto-action rule: %w", err)
	}

	return rule, nil
}

func (r *RuleRepository) ActiveByStep(ctx context.Context, stepID string) ([]*models.AutoActionRule, error) {
	query := `
		SELECT id, step_id, name, condition, action_type, priority, is_active, created_at, updated_at
		FROM auto_action_rules
		WHERE step_id = $1 AND is_active = TRUE
		ORDER BY priority ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, stepID)
	if err != nil {
		return nil, fmt.Errorf("failed to query auto-action rules: %w", err)
	}

	defer func() { _ = rows.Close() }()

	rules := make([]*models.AutoActionRule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auto-action rule: %w", err)
		}

		rules = append(rules, rule)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating auto-action rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM auto_action_rules WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete auto-action rule: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return persistence.ErrRuleNotFound
	}

	return nil
}

func scanRule(scanner interface {
	Scan(dest ...any) error
}) (*models.AutoActionRule, error) {
	var (
		rule          models.AutoActionRule
		conditionJSON []byte
	)

	err := scanner.Scan(
		&rule.ID,
		&rule.StepID,
		&rule.Name,
		&conditionJSON,
		&rule.Action,
		&rule.Priority,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if conditionJSON != nil && string(conditionJSON) != "null" {
		err := json.Unmarshal(conditionJSON, &rule.Condition)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule condition: %w", err)
		}
	}

	return &rule, nil
}
