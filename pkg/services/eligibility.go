package services

import (
	"context"
	"fmt"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/eventra-io/accredo/pkg/workflow"
)

// StatusEligibility is the default EligibilityValidator: a participant is
// eligible for a batch action when it exists, is not deleted and has not
// reached a terminal status.
type StatusEligibility struct {
	persistence persistence.Persistence
}

// NewStatusEligibility creates the default eligibility validator.
func NewStatusEligibility(p persistence.Persistence) *StatusEligibility {
	return &StatusEligibility{persistence: p}
}

func (v *StatusEligibility) ValidateEligibility(
	ctx context.Context,
	participantIDs []string,
	action models.ApprovalAction,
	tenantID string,
) (*workflow.EligibilityResult, error) {
	participants, err := v.persistence.ParticipantRepository().GetByIDs(ctx, participantIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch participants: %w", err)
	}

	byID := make(map[string]*models.Participant, len(participants))
	for _, participant := range participants {
		byID[participant.ID] = participant
	}

	result := &workflow.EligibilityResult{
		Eligible:   make([]string, 0, len(participantIDs)),
		Ineligible: make([]workflow.IneligibleParticipant, 0),
	}

	for _, id := range participantIDs {
		participant, ok := byID[id]

		switch {
		case !ok || participant.DeletedAt != nil:
			result.Ineligible = append(result.Ineligible, workflow.IneligibleParticipant{
				ID:     id,
				Reason: "Participant not found",
			})
		case tenantID != "" && participant.TenantID != tenantID:
			result.Ineligible = append(result.Ineligible, workflow.IneligibleParticipant{
				ID:     id,
				Name:   participant.FullName,
				Reason: "Participant belongs to another tenant",
			})
		case models.TerminalStatus(participant.Status):
			result.Ineligible = append(result.Ineligible, workflow.IneligibleParticipant{
				ID:     id,
				Name:   participant.FullName,
				Reason: fmt.Sprintf("Already finalized with status %s", participant.Status),
			})
		default:
			result.Eligible = append(result.Eligible, id)
		}
	}

	return result, nil
}

// StaticCapabilities gates bulk operations globally; per-tenant plans are
// not modeled yet.
type StaticCapabilities struct {
	BulkEnabled bool
}

func (c StaticCapabilities) BulkOperationsEnabled(_ context.Context, _ string) bool {
	return c.BulkEnabled
}
