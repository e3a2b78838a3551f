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

const kindParticipants = "participants"

// ParticipantRepository stores participants (with embedded approval
// history) as JSON files.
type ParticipantRepository struct {
	root string
}

// Save persists the participant's core fields. Approval history already on
// disk is preserved; use AppendApproval to extend it.
func (r *ParticipantRepository) Save(ctx context.Context, participant *models.Participant) error {
	now := time.Now().UTC()

	if participant.ID == "" {
		participant.ID = uuid.New().String()
	}

	if participant.CreatedAt.IsZero() {
		participant.CreatedAt = now
	}

	participant.UpdatedAt = now

	var existing models.Participant

	found, err := readEntity(r.root, kindParticipants, participant.ID, &existing)
	if err != nil {
		return err
	}

	stored := *participant
	if found {
		stored.Approvals = existing.Approvals
	} else {
		stored.Approvals = nil
	}

	return writeEntity(r.root, kindParticipants, stored.ID, &stored)
}

func (r *ParticipantRepository) GetByID(_ context.Context, id string) (*models.Participant, error) {
	var participant models.Participant

	found, err := readEntity(r.root, kindParticipants, id, &participant)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, nil
	}

	return &participant, nil
}

func (r *ParticipantRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Participant, error) {
	participants := make([]*models.Participant, 0, len(ids))

	for _, id := range ids {
		participant, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if participant != nil {
			participants = append(participants, participant)
		}
	}

	return participants, nil
}

func (r *ParticipantRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Participant, error) {
	versionIDs := make(map[string]bool)

	err := listEntities(r.root, kindVersions, func(payload []byte) error {
		var version models.WorkflowVersion

		err := json.Unmarshal(payload, &version)
		if err != nil {
			return err
		}

		if version.WorkflowID == workflowID {
			versionIDs[version.ID] = true
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	participants := make([]*models.Participant, 0)

	err = listEntities(r.root, kindParticipants, func(payload []byte) error {
		var participant models.Participant

		err := json.Unmarshal(payload, &participant)
		if err != nil {
			return err
		}

		if participant.DeletedAt == nil && versionIDs[participant.WorkflowVersionID] {
			participants = append(participants, &participant)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return participants, nil
}

func (r *ParticipantRepository) List(
	_ context.Context,
	opts persistence.ListParticipantsOptions,
) (*persistence.ListParticipantsResult, error) {
	matched := make([]*models.Participant, 0)

	err := listEntities(r.root, kindParticipants, func(payload []byte) error {
		var participant models.Participant

		err := json.Unmarshal(payload, &participant)
		if err != nil {
			return err
		}

		if participant.DeletedAt != nil {
			return nil
		}

		if opts.TenantID != "" && participant.TenantID != opts.TenantID {
			return nil
		}

		if opts.EventID != "" && participant.EventID != opts.EventID {
			return nil
		}

		if opts.StepID != "" && participant.CurrentStepID != opts.StepID {
			return nil
		}

		if opts.Status != nil && participant.Status != *opts.Status {
			return nil
		}

		matched = append(matched, &participant)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sortParticipants(matched, opts.SortBy, opts.SortOrder)

	total := int64(len(matched))

	start := opts.Offset
	if start > len(matched) {
		start = len(matched)
	}

	end := len(matched)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	return &persistence.ListParticipantsResult{
		Participants: matched[start:end],
		TotalCount:   total,
		HasNextPage:  end < len(matched),
	}, nil
}

func sortParticipants(participants []*models.Participant, sortBy, sortOrder string) {
	less := func(i, j int) bool {
		switch sortBy {
		case "full_name":
			return participants[i].FullName < participants[j].FullName
		case "updated_at":
			return participants[i].UpdatedAt.Before(participants[j].UpdatedAt)
		default:
			return participants[i].CreatedAt.Before(participants[j].CreatedAt)
		}
	}

	if sortOrder == "desc" {
		original := less
		less = func(i, j int) bool { return original(j, i) }
	}

	sort.SliceStable(participants, less)
}

func (r *ParticipantRepository) AppendApproval(_ context.Context, approval *models.Approval) error {
	var participant models.Participant

	found, err := readEntity(r.root, kindParticipants, approval.ParticipantID, &participant)
	if err != nil {
		return err
	}

	if !found {
		return &persistence.ParticipantError{
			Op:            "AppendApproval",
			ParticipantID: approval.ParticipantID,
			Err:           persistence.ErrParticipantNotFound,
		}
	}

	if approval.ID == "" {
		approval.ID = uuid.New().String()
	}

	participant.Approvals = append(participant.Approvals, approval)

	return writeEntity(r.root, kindParticipants, participant.ID, &participant)
}

func (r *ParticipantRepository) Delete(ctx context.Context, id string) error {
	participant, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if participant == nil {
		return &persistence.ParticipantError{
			Op:            "Delete",
			ParticipantID: id,
			Err:           persistence.ErrParticipantNotFound,
		}
	}

	now := time.Now().UTC()
	participant.DeletedAt = &now

	return writeEntity(r.root, kindParticipants, id, participant)
}
