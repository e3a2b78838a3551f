package web

import (
	"errors"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/eventra-io/accredo/pkg/services"
	"github.com/eventra-io/accredo/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// conflictResponse extends the problem document with the current record so
// clients can re-render with fresh data after an optimistic-lock failure.
type conflictResponse struct {
	*problems.Problem
	CurrentParticipant *models.Participant `json:"current_participant"`
}

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	var conflict *workflow.ConflictError

	switch {
	case errors.As(err, &conflict):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("version_conflict").
			WithDetail(conflict.Error())

		return c.Status(fiber.StatusConflict).JSON(conflictResponse{
			Problem:            problem,
			CurrentParticipant: conflict.Current,
		})

	case services.IsValidationError(err):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("validation_error").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case errors.Is(err, workflow.ErrBulkDisabled):
		problem := problems.NewStatusProblem(403).
			WithInstance(c.Path()).
			WithType("bulk_disabled").
			WithDetail(err.Error())

		return c.Status(fiber.StatusForbidden).JSON(problem)

	case errors.Is(err, workflow.ErrParticipantFinalized),
		errors.Is(err, workflow.ErrNotUndoable),
		errors.Is(err, workflow.ErrUndoExpired),
		services.IsConflictError(err):
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("conflict").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)

	case persistence.IsWorkflowNotFound(err), persistence.IsVersionNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("workflow_not_found").
			WithDetail("workflow not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsParticipantNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("participant_not_found").
			WithDetail("participant not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsOperationNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("operation_not_found").
			WithDetail("operation not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	case persistence.IsRuleNotFound(err):
		problem := problems.NewStatusProblem(404).
			WithInstance(c.Path()).
			WithType("rule_not_found").
			WithDetail("rule not found")

		return c.Status(fiber.StatusNotFound).JSON(problem)

	default:
		// Log unexpected errors but don't expose details
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithError(err)

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}
