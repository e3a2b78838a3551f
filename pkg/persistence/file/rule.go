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

const kindRules = "auto_action_rules"

// RuleRepository stores auto-action rules as JSON files.
type RuleRepository struct {
	root string
}

func (r *RuleRepository) Save(_ context.Context, rule *models.AutoActionRule) error {
	now := time.Now().UTC()

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	return writeEntity(r.root, kindRules, rule.ID, rule)
}

func (r *RuleRepository) GetByID(_ context.Context, id string) (*models.AutoActionRule, error) {
	var rule models.AutoActionRule

	found, err := readEntity(r.root, kindRules, id, &rule)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrRuleNotFound
	}

	return &rule, nil
}

func (r *RuleRepository) ActiveByStep(_ context.Context, stepID string) ([]*models.AutoActionRule, error) {
	rules := make([]*models.AutoActionRule, 0)

	err := listEntities(r.root, kindRules, func(payload []byte) error {
		var rule models.AutoActionRule

		err := json.Unmarshal(payload, &rule)
		if err != nil {
			return err
		}

		if rule.StepID == stepID && rule.IsActive {
			rules = append(rules, &rule)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Ascending priority; creation order breaks ties.
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}

		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})

	return rules, nil
}

func (r *RuleRepository) Delete(_ context.Context, id string) error {
	var rule models.AutoActionRule

	found, err := readEntity(r.root, kindRules, id, &rule)
	if err != nil {
		return err
	}

	if !found {
		return persistence.ErrRuleNotFound
	}

	return removeEntity(r.root, kindRules, id)
}
