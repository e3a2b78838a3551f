// Package web provides HTTP handlers and REST API endpoints for accreditation
// workflow management.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/eventra-io/accredo/pkg/services"
	"github.com/eventra-io/accredo/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService    *services.Workflow
	participantService *services.Participant
	operationsService  *services.Operations
	slaMonitor         *workflow.SLAMonitor
	validator          *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	participantService *services.Participant,
	operationsService *services.Operations,
	slaMonitor *workflow.SLAMonitor,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService:    workflowService,
		participantService: participantService,
		operationsService:  operationsService,
		slaMonitor:         slaMonitor,
		validator:          validator,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Accredo API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Accredo API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context(), c.Query("tenant_id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	wf, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf := &models.Workflow{
		TenantID:    req.TenantID,
		EventID:     req.EventID,
		Name:        req.Name,
		Description: req.Description,
		Steps:       req.Steps,
	}

	created, err := h.workflowService.Create(c.Context(), wf)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	// Apply partial updates. Step edits only reach new enrollments after
	// the next publish.
	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Steps != nil {
		existing.Steps = req.Steps
	}

	updated, err := h.workflowService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	err := h.workflowService.Delete(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	version, err := h.workflowService.Publish(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(version)
}

func (h *APIHandlers) GetWorkflowVersions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	versions, err := h.workflowService.Versions(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"versions": versions})
}

func (h *APIHandlers) GetSLAStats(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	stats, err := h.slaMonitor.Stats(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(stats)
}

func (h *APIHandlers) GetOverdueParticipants(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	filter := workflow.OverdueFilter{StepID: c.Query("step_id")}

	if onlyBreachedStr := c.Query("only_breached"); onlyBreachedStr != "" {
		onlyBreached, err := strconv.ParseBool(onlyBreachedStr)
		if err != nil {
			return badRequest(c, "Invalid only_breached value: "+err.Error())
		}

		filter.OnlyBreached = onlyBreached
	}

	overdue, err := h.slaMonitor.Overdue(c.Context(), id, filter)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"overdue": overdue})
}

func (h *APIHandlers) SaveRule(c fiber.Ctx) error {
	var req SaveRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	rule := &models.AutoActionRule{
		ID:        req.ID,
		StepID:    req.StepID,
		Name:      req.Name,
		Action:    req.Action,
		Condition: req.Condition,
		Priority:  req.Priority,
		IsActive:  req.IsActive,
	}

	saved, err := h.workflowService.SaveRule(c.Context(), rule)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	rule, err := h.workflowService.RuleByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) GetStepRules(c fiber.Ctx) error {
	stepID := c.Params("stepId")
	if stepID == "" {
		return badRequest(c, "Step ID is required")
	}

	rules, err := h.workflowService.RulesForStep(c.Context(), stepID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"rules": rules})
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	err := h.workflowService.DeleteRule(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetOperatorsForFieldType(c fiber.Ctx) error {
	fieldType := models.FieldType(c.Params("type"))

	return c.JSON(fiber.Map{
		"field_type": fieldType,
		"operators":  h.workflowService.OperatorsForType(fieldType),
	})
}

func (h *APIHandlers) EnrollParticipant(c fiber.Ctx) error {
	var req EnrollParticipantRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.participantService.Enroll(c.Context(), services.EnrollRequest{
		WorkflowID: req.WorkflowID,
		FullName:   req.FullName,
		Email:      req.Email,
		Data:       req.Data,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *APIHandlers) GetParticipants(c fiber.Ctx) error {
	req, err := h.parseListParticipantsRequest(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.participantService.List(c.Context(), *req)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"participants":  result.Participants,
		"total_count":   result.TotalCount,
		"has_next_page": result.HasNextPage,
		"pagination": fiber.Map{
			"limit":  req.Limit,
			"offset": req.Offset,
		},
		"sorting": fiber.Map{
			"sort_by":    req.SortBy,
			"sort_order": req.SortOrder,
		},
	})
}

// parseListParticipantsRequest parses and validates query parameters for
// listing participants.
func (h *APIHandlers) parseListParticipantsRequest(c fiber.Ctx) (*services.ListParticipantsRequest, error) {
	req := &services.ListParticipantsRequest{}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return nil, err
		}

		req.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil {
			return nil, err
		}

		req.Offset = offset
	}

	req.TenantID = c.Query("tenant_id")
	req.EventID = c.Query("event_id")
	req.StepID = c.Query("step_id")

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.ParticipantStatus(statusStr)
		req.Status = &status
	}

	req.SortBy = c.Query("sort_by")
	req.SortOrder = c.Query("sort_order")

	return req, nil
}

func (h *APIHandlers) GetParticipant(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Participant ID is required")
	}

	participant, err := h.participantService.FetchByID(c.Context(), id)
	if err != nil {
		if persistence.IsParticipantNotFound(err) {
			return notFound(c, "Participant not found")
		}

		return internalError(c, err)
	}

	return c.JSON(participant)
}

func (h *APIHandlers) DeleteParticipant(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Participant ID is required")
	}

	err := h.participantService.Delete(c.Context(), id)
	if err != nil {
		if persistence.IsParticipantNotFound(err) {
			return notFound(c, "Participant not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) TransitionParticipant(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Participant ID is required")
	}

	var req TransitionParticipantRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	resp, err := h.participantService.Transition(c.Context(), services.TransitionCommand{
		ParticipantID:   id,
		ActorID:         req.ActorID,
		Action:          req.Action,
		Remark:          req.Remark,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(resp)
}

func (h *APIHandlers) ExecuteBatch(c fiber.Ctx) error {
	var req BatchActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.operationsService.ExecuteBatch(c.Context(), batchServiceRequest(req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) DryRunBatch(c fiber.Ctx) error {
	var req BatchActionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.operationsService.DryRun(c.Context(), batchServiceRequest(req))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func batchServiceRequest(req BatchActionRequest) services.ExecuteBatchRequest {
	return services.ExecuteBatchRequest{
		EventID:        req.EventID,
		TenantID:       req.TenantID,
		ActorID:        req.ActorID,
		ParticipantIDs: req.ParticipantIDs,
		Action:         req.Action,
		Remarks:        req.Remarks,
	}
}

func (h *APIHandlers) GetOperation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Operation ID is required")
	}

	progress, err := h.operationsService.GetOperation(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(progress)
}

func (h *APIHandlers) GetOperationItems(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Operation ID is required")
	}

	items, err := h.operationsService.Items(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"items": items})
}

func (h *APIHandlers) UndoOperation(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Operation ID is required")
	}

	var req UndoOperationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.operationsService.Undo(c.Context(), id, req.ActorID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}
