package workflow_test

import (
	"testing"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/workflow"
	"github.com/stretchr/testify/assert"
)

func route(id, target string, priority int, condition *models.Condition) *models.ConditionalRoute {
	return &models.ConditionalRoute{
		ID:           id,
		Label:        id,
		Condition:    condition,
		TargetStepID: target,
		Priority:     priority,
	}
}

func fieldEquals(field string, value any) *models.Condition {
	return &models.Condition{
		Type:     models.ConditionTypeSimple,
		Field:    field,
		Operator: models.OperatorEq,
		Value:    value,
	}
}

func TestResolveRoute_PriorityOrder(t *testing.T) {
	// Declared out of order: priority decides evaluation order.
	routes := []*models.ConditionalRoute{
		route("third", "step-c", 3, nil),
		route("first", "step-a", 1, fieldEquals("role", "vip")),
		route("second", "step-b", 2, nil),
	}

	assert.Equal(t, "step-a", workflow.ResolveRoute(routes, map[string]any{"role": "vip"}))
	assert.Equal(t, "step-b", workflow.ResolveRoute(routes, map[string]any{"role": "press"}))
}

func TestResolveRoute_FirstMatchWins(t *testing.T) {
	// Both conditions hold; the lower priority route is chosen.
	routes := []*models.ConditionalRoute{
		route("specific", "fast-lane", 1, fieldEquals("role", "vip")),
		route("general", "slow-lane", 2, fieldEquals("role", "vip")),
	}

	assert.Equal(t, "fast-lane", workflow.ResolveRoute(routes, map[string]any{"role": "vip"}))
}

func TestResolveRoute_EqualPrioritiesKeepDeclarationOrder(t *testing.T) {
	routes := []*models.ConditionalRoute{
		route("declared-first", "step-a", 1, nil),
		route("declared-second", "step-b", 1, nil),
	}

	assert.Equal(t, "step-a", workflow.ResolveRoute(routes, nil))
}

func TestResolveRoute_NoMatchFallsBack(t *testing.T) {
	routes := []*models.ConditionalRoute{
		route("vip-only", "fast-lane", 1, fieldEquals("role", "vip")),
	}

	assert.Empty(t, workflow.ResolveRoute(routes, map[string]any{"role": "press"}))
	assert.Empty(t, workflow.ResolveRoute(nil, map[string]any{"role": "vip"}))
}

func TestResolveRoute_DoesNotReorderInput(t *testing.T) {
	routes := []*models.ConditionalRoute{
		route("b", "step-b", 2, nil),
		route("a", "step-a", 1, nil),
	}

	workflow.ResolveRoute(routes, nil)

	assert.Equal(t, "b", routes[0].ID)
	assert.Equal(t, "a", routes[1].ID)
}
