package services

import (
	"testing"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflow_Create(t *testing.T) {
	h := newHarness(t)

	created, err := h.workflows.Create(t.Context(), &models.Workflow{
		Name: "Vendor Accreditation",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusDraft, created.Status)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestWorkflow_Create_NameTooShort(t *testing.T) {
	h := newHarness(t)

	_, err := h.workflows.Create(t.Context(), &models.Workflow{Name: "ab"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestWorkflow_Create_UnknownRouteTarget(t *testing.T) {
	h := newHarness(t)

	_, err := h.workflows.Create(t.Context(), &models.Workflow{
		Name: "Broken Routes",
		Steps: []*models.Step{
			{
				ID:           "entry",
				Name:         "Entry",
				IsEntryPoint: true,
				Routes: []*models.ConditionalRoute{
					{ID: "r1", Label: "VIP lane", TargetStepID: "nowhere", Priority: 1},
				},
			},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownRouteTarget)
}

func TestWorkflow_FetchByID_NotFound(t *testing.T) {
	h := newHarness(t)

	workflow, err := h.workflows.FetchByID(t.Context(), "non-existent")
	require.Error(t, err)
	assert.Nil(t, workflow)
	assert.ErrorIs(t, err, ErrWorkflowNotFound)
}

func TestWorkflow_Publish_CreatesVersionSnapshots(t *testing.T) {
	h := newHarness(t)
	created := publishReviewWorkflow(t, h)

	fetched, err := h.workflows.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPublished, fetched.Status)
	require.NotNil(t, fetched.PublishedAt)

	// Add a step and republish: a second immutable snapshot appears.
	securityID := "security"
	fetched.Steps[1].IsFinalStep = false
	fetched.Steps[1].NextStepID = &securityID
	fetched.Steps = append(fetched.Steps, &models.Step{
		ID: "security", Name: "Security Check", IsFinalStep: true,
	})

	_, err = h.workflows.Update(t.Context(), fetched.ID, fetched)
	require.NoError(t, err)

	version2, err := h.workflows.Publish(t.Context(), fetched.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, version2.Version)
	assert.Len(t, version2.Steps, 3)

	versions, err := h.workflows.Versions(t.Context(), fetched.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Len(t, versions[0].Steps, 2, "earlier snapshot must be untouched by the edit")
}

func TestWorkflow_Publish_RequiresEntryStep(t *testing.T) {
	h := newHarness(t)

	created, err := h.workflows.Create(t.Context(), &models.Workflow{
		Name:  "No Entry",
		Steps: []*models.Step{{ID: "a", Name: "A"}},
	})
	require.NoError(t, err)

	_, err = h.workflows.Publish(t.Context(), created.ID)
	assert.ErrorIs(t, err, ErrEntryStepRequired)
}

func TestWorkflow_Publish_RequiresSteps(t *testing.T) {
	h := newHarness(t)

	created, err := h.workflows.Create(t.Context(), &models.Workflow{Name: "Empty Flow"})
	require.NoError(t, err)

	_, err = h.workflows.Publish(t.Context(), created.ID)
	assert.ErrorIs(t, err, ErrStepsRequired)
}

func TestWorkflow_SaveRule_RejectsInvalidCondition(t *testing.T) {
	h := newHarness(t)

	_, err := h.workflows.SaveRule(t.Context(), &models.AutoActionRule{
		StepID: "review",
		Name:   "bad condition",
		Action: models.AutoApprove,
		Condition: &models.Condition{
			Type:     models.ConditionTypeSimple,
			Field:    "age",
			Operator: "matches", // not a supported operator
		},
		IsActive: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCondition)
}

func TestWorkflow_SaveRule_AndFetch(t *testing.T) {
	h := newHarness(t)

	saved, err := h.workflows.SaveRule(t.Context(), &models.AutoActionRule{
		StepID: "review",
		Name:   "auto approve staff",
		Action: models.AutoApprove,
		Condition: &models.Condition{
			Type:     models.ConditionTypeSimple,
			Field:    "role",
			Operator: models.OperatorEq,
			Value:    "staff",
		},
		IsActive: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	rules, err := h.workflows.RulesForStep(t.Context(), "review")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "auto approve staff", rules[0].Name)
}

func TestWorkflow_OperatorsForType(t *testing.T) {
	h := newHarness(t)

	numberOps := h.workflows.OperatorsForType(models.FieldTypeNumber)

	values := make([]models.Operator, 0, len(numberOps))
	for _, info := range numberOps {
		values = append(values, info.Operator)
	}

	assert.Contains(t, values, models.OperatorGt)
	assert.Contains(t, values, models.OperatorIsNull)
	assert.NotContains(t, values, models.OperatorStartsWith)
}
