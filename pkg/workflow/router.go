// Package workflow implements the accreditation progression engine:
// conditional routing, SLA monitoring, auto-action chaining and batch
// action execution.
package workflow

import (
	"sort"

	"github.com/eventra-io/accredo/pkg/models"
)

// ResolveRoute resolves an ordered list of conditional routes against a
// participant's data record. Routes are evaluated in ascending priority
// order (stable, so equal priorities keep insertion order) and the first
// route whose condition holds wins. The empty string means no route
// matched and the caller falls back to the step's static next target.
func ResolveRoute(routes []*models.ConditionalRoute, data map[string]any) string {
	if len(routes) == 0 {
		return ""
	}

	ordered := make([]*models.ConditionalRoute, len(routes))
	copy(ordered, routes)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	for _, route := range ordered {
		if route.Condition.Evaluate(data) {
			return route.TargetStepID
		}
	}

	return ""
}
