package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/eventra-io/accredo/pkg/workflow"
	"github.com/go-playground/validator/v10"
)

// ErrParticipantNotFound is returned when a participant is not found.
var ErrParticipantNotFound = persistence.ErrParticipantNotFound

// Participant manages enrollment and interactive step transitions.
type Participant struct {
	persistence persistence.Persistence
	navigator   workflow.Navigator
	engine      *workflow.AutoActionEngine
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewParticipant creates a participant service. engine may be nil to
// disable automatic transitions.
func NewParticipant(
	p persistence.Persistence,
	navigator workflow.Navigator,
	engine *workflow.AutoActionEngine,
	logger *slog.Logger,
) *Participant {
	return &Participant{
		persistence: p,
		navigator:   navigator,
		engine:      engine,
		validate:    validator.New(),
		logger:      logger.With("module", "participant_service"),
	}
}

// EnrollRequest registers one person into a workflow's accreditation flow.
type EnrollRequest struct {
	WorkflowID string `validate:"required"`
	FullName   string `validate:"required"`
	Email      string `validate:"omitempty,email"`
	Data       map[string]any
}

// EnrollResponse is the enrolled participant plus any auto-actions that
// fired on arrival at the entry step.
type EnrollResponse struct {
	Participant *models.Participant   `json:"participant"`
	AutoActions *workflow.ChainResult `json:"auto_actions,omitempty"`
}

// Enroll pins a new participant to the workflow's latest published version
// snapshot and places them at its entry step. Later edits to the workflow
// never move them.
func (s *Participant) Enroll(ctx context.Context, req EnrollRequest) (*EnrollResponse, error) {
	err := s.validate.Struct(req)
	if err != nil {
		return nil, NewValidationError("Enroll", "INVALID_ENROLLMENT", err.Error(), ErrInvalidRequest)
	}

	wf, err := s.persistence.WorkflowRepository().GetByID(ctx, req.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if wf == nil {
		return nil, ErrWorkflowNotFound
	}

	if wf.Status != models.WorkflowStatusPublished {
		return nil, ErrWorkflowNotPublished
	}

	version, err := s.persistence.WorkflowRepository().LatestVersion(ctx, req.WorkflowID)
	if err != nil {
		if persistence.IsVersionNotFound(err) {
			return nil, ErrWorkflowNotPublished
		}

		return nil, fmt.Errorf("failed to load latest version: %w", err)
	}

	entry := version.EntryStep()
	if entry == nil {
		return nil, ErrEntryStepRequired
	}

	participant := &models.Participant{
		TenantID:          wf.TenantID,
		EventID:           wf.EventID,
		FullName:          req.FullName,
		Email:             req.Email,
		Data:              req.Data,
		CurrentStepID:     entry.ID,
		WorkflowVersionID: version.ID,
		Status:            models.ParticipantPending,
	}

	err = s.persistence.ParticipantRepository().Save(ctx, participant)
	if err != nil {
		return nil, fmt.Errorf("failed to save participant: %w", err)
	}

	response := &EnrollResponse{Participant: participant}

	// Arrival at the entry step counts as arrival for auto-action purposes.
	chain, err := s.runAutoActions(ctx, participant.ID, entry.ID, participant.Data)
	if err != nil {
		return nil, err
	}

	if chain != nil {
		response.AutoActions = chain

		response.Participant, err = s.reload(ctx, participant.ID)
		if err != nil {
			return nil, err
		}
	}

	return response, nil
}

// TransitionCommand applies one manual approval-style action.
type TransitionCommand struct {
	ParticipantID string
	ActorID       string
	Action        models.ApprovalAction
	Remark        string
	// ExpectedVersion is the optimistic-concurrency token the caller last
	// saw. A stale token fails with a conflict carrying the fresh record.
	ExpectedVersion *int
}

// TransitionResponse pairs the manual transition with the auto-action chain
// it triggered, if any.
type TransitionResponse struct {
	Transition  *workflow.TransitionResult `json:"transition"`
	AutoActions *workflow.ChainResult      `json:"auto_actions,omitempty"`
}

// Transition applies the action interactively, enforcing the version check,
// then runs the destination step's auto-action chain.
func (s *Participant) Transition(ctx context.Context, cmd TransitionCommand) (*TransitionResponse, error) {
	if !models.ValidApprovalAction(cmd.Action) {
		return nil, NewValidationError("Transition", "INVALID_ACTION",
			fmt.Sprintf("unknown action %q", cmd.Action), ErrInvalidAction)
	}

	result, err := s.navigator.Transition(ctx, workflow.TransitionRequest{
		ParticipantID:      cmd.ParticipantID,
		ActorID:            cmd.ActorID,
		Action:             cmd.Action,
		Remark:             cmd.Remark,
		ExpectedVersion:    cmd.ExpectedVersion,
		ConditionalRouting: true,
	})
	if err != nil {
		return nil, err
	}

	response := &TransitionResponse{Transition: result}

	if !result.IsComplete && result.NextStepID != "" {
		chain, err := s.runAutoActions(ctx, cmd.ParticipantID, result.NextStepID, result.Participant.Data)
		if err != nil {
			return nil, err
		}

		if chain != nil {
			response.AutoActions = chain

			response.Transition.Participant, err = s.reload(ctx, cmd.ParticipantID)
			if err != nil {
				return nil, err
			}
		}
	}

	return response, nil
}

// FetchByID retrieves a participant by its ID.
func (s *Participant) FetchByID(ctx context.Context, id string) (*models.Participant, error) {
	participant, err := s.persistence.ParticipantRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if participant == nil || participant.DeletedAt != nil {
		return nil, ErrParticipantNotFound
	}

	return participant, nil
}

// ListParticipantsRequest contains options for listing participants.
type ListParticipantsRequest struct {
	TenantID string
	EventID  string
	StepID   string
	Status   *models.ParticipantStatus

	Limit  int
	Offset int

	SortBy    string
	SortOrder string
}

// ListParticipantsResponse contains the result of listing participants.
type ListParticipantsResponse struct {
	Participants []*models.Participant `json:"participants"`
	TotalCount   int64                 `json:"total_count"`
	HasNextPage  bool                  `json:"has_next_page"`
}

// List retrieves participants with filtering, sorting and pagination.
func (s *Participant) List(ctx context.Context, req ListParticipantsRequest) (*ListParticipantsResponse, error) {
	err := s.validateListRequest(&req)
	if err != nil {
		return nil, err
	}

	result, err := s.persistence.ParticipantRepository().List(ctx, persistence.ListParticipantsOptions{
		TenantID:  req.TenantID,
		EventID:   req.EventID,
		StepID:    req.StepID,
		Status:    req.Status,
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	return &ListParticipantsResponse{
		Participants: result.Participants,
		TotalCount:   result.TotalCount,
		HasNextPage:  result.HasNextPage,
	}, nil
}

// Delete soft-deletes a participant.
func (s *Participant) Delete(ctx context.Context, id string) error {
	participant, err := s.persistence.ParticipantRepository().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if participant == nil || participant.DeletedAt != nil {
		return ErrParticipantNotFound
	}

	return s.persistence.ParticipantRepository().Delete(ctx, id)
}

func (s *Participant) runAutoActions(
	ctx context.Context,
	participantID, stepID string,
	data map[string]any,
) (*workflow.ChainResult, error) {
	if s.engine == nil {
		return nil, nil
	}

	chain, err := s.engine.ExecuteChain(ctx, participantID, stepID, data, true, 0)
	if err != nil {
		return nil, fmt.Errorf("auto-action chain failed: %w", err)
	}

	return chain, nil
}

func (s *Participant) reload(ctx context.Context, id string) (*models.Participant, error) {
	participant, err := s.persistence.ParticipantRepository().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload participant: %w", err)
	}

	if participant == nil {
		return nil, ErrParticipantNotFound
	}

	return participant, nil
}

// validateListRequest validates and sets defaults for the request.
func (s *Participant) validateListRequest(req *ListParticipantsRequest) error {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	if req.Limit > 100 {
		req.Limit = 100
	}

	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.SortBy == "" {
		req.SortBy = "created_at"
	}

	if req.SortOrder == "" {
		req.SortOrder = "asc"
	}

	allowedSorts := []string{"created_at", "updated_at", "full_name"}

	if !slices.Contains(allowedSorts, req.SortBy) {
		return NewValidationError(
			"validateListRequest",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", req.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return NewValidationError(
			"validateListRequest",
			"INVALID_SORT_ORDER",
			fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", req.SortOrder),
			ErrInvalidSortOrder,
		)
	}

	if req.Status != nil {
		allowedStatuses := []models.ParticipantStatus{
			models.ParticipantPending,
			models.ParticipantInProgress,
			models.ParticipantApproved,
			models.ParticipantRejected,
			models.ParticipantEscalated,
		}

		if !slices.Contains(allowedStatuses, *req.Status) {
			return NewValidationError(
				"validateListRequest",
				"INVALID_STATUS",
				fmt.Sprintf("invalid status '%s'", *req.Status),
				ErrInvalidStatus,
			)
		}
	}

	return nil
}
