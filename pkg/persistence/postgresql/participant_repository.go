package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ParticipantRepository handles participant and approval persistence.
type ParticipantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Save upserts the participant's core fields. Approval history lives in its
// own table and is only written through AppendApproval.
func (r *ParticipantRepository) Save(ctx context.Context, participant *models.Participant) error {
	now := time.Now().UTC()

	if participant.ID == "" {
		participant.ID = uuid.New().String()
	}

	if participant.CreatedAt.IsZero() {
		participant.CreatedAt = now
	}

	participant.UpdatedAt = now

	dataJSON, err := json.Marshal(participant.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal participant data: %w", err)
	}

	query := `
		INSERT INTO participants (id, tenant_id, event_id, full_name, email,
			data, current_step_id, workflow_version_id, status, version,
			created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			event_id = EXCLUDED.event_id,
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			data = EXCLUDED.data,
			current_step_id = EXCLUDED.current_step_id,
			workflow_version_id = EXCLUDED.workflow_version_id,
			status = EXCLUDED.status,
			version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err = r.db.ExecContext(ctx, query,
		participant.ID,
		participant.TenantID,
		participant.EventID,
		participant.FullName,
		participant.Email,
		dataJSON,
		participant.CurrentStepID,
		participant.WorkflowVersionID,
		participant.Status,
		participant.Version,
		participant.CreatedAt,
		participant.UpdatedAt,
		participant.DeletedAt,
	)
	if err != nil {
		return &persistence.ParticipantError{Op: "Save", ParticipantID: participant.ID, Err: err}
	}

	return nil
}

func (r *ParticipantRepository) GetByID(ctx context.Context, id string) (*models.Participant, error) {
	query := participantSelect + ` WHERE id = $1`

	participant, err := scanParticipant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan participant: %w", err)
	}

	err = r.loadApprovals(ctx, []*models.Participant{participant})
	if err != nil {
		return nil, err
	}

	return participant, nil
}

func (r *ParticipantRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Participant, error) {
	if len(ids) == 0 {
		return []*models.Participant{}, nil
	}

	query := participantSelect + ` WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	participants, err := collectParticipants(rows)
	if err != nil {
		return nil, err
	}

	err = r.loadApprovals(ctx, participants)
	if err != nil {
		return nil, err
	}

	// Preserve the caller's ordering; missing ids are silently absent.
	byID := make(map[string]*models.Participant, len(participants))
	for _, participant := range participants {
		byID[participant.ID] = participant
	}

	ordered := make([]*models.Participant, 0, len(participants))

	for _, id := range ids {
		if participant, ok := byID[id]; ok {
			ordered = append(ordered, participant)
		}
	}

	return ordered, nil
}

func (r *ParticipantRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.Participant, error) {
	query := participantSelect + `
		WHERE deleted_at IS NULL
		  AND workflow_version_id IN (
			SELECT id FROM workflow_versions WHERE workflow_id = $1
		  )
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow participants: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	participants, err := collectParticipants(rows)
	if err != nil {
		return nil, err
	}

	err = r.loadApprovals(ctx, participants)
	if err != nil {
		return nil, err
	}

	return participants, nil
}

func (r *ParticipantRepository) List(
	ctx context.Context,
	opts persistence.ListParticipantsOptions,
) (*persistence.ListParticipantsResult, error) {
	where := ` WHERE deleted_at IS NULL
		AND ($1 = '' OR tenant_id = $1)
		AND ($2 = '' OR event_id = $2)
		AND ($3 = '' OR current_step_id = $3)
		AND ($4 = '' OR status = $4)
	`

	status := ""
	if opts.Status != nil {
		status = string(*opts.Status)
	}

	var total int64

	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM participants"+where,
		opts.TenantID, opts.EventID, opts.StepID, status,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}

	query := participantSelect + where +
		" ORDER BY " + participantSortColumn(opts.SortBy) + " " + sortDirection(opts.SortOrder) +
		" OFFSET $5"

	args := []any{opts.TenantID, opts.EventID, opts.StepID, status, opts.Offset}

	if opts.Limit > 0 {
		query += " LIMIT $6"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	participants, err := collectParticipants(rows)
	if err != nil {
		return nil, err
	}

	err = r.loadApprovals(ctx, participants)
	if err != nil {
		return nil, err
	}

	return &persistence.ListParticipantsResult{
		Participants: participants,
		TotalCount:   total,
		HasNextPage:  int64(opts.Offset+len(participants)) < total,
	}, nil
}

func (r *ParticipantRepository) AppendApproval(ctx context.Context, approval *models.Approval) error {
	if approval.ID == "" {
		approval.ID = uuid.New().String()
	}

	query := `
		INSERT INTO approvals (id, participant_id, step_id, actor_id, action, remark, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		approval.ID,
		approval.ParticipantID,
		approval.StepID,
		approval.ActorID,
		approval.Action,
		approval.Remark,
		approval.CreatedAt,
	)
	if err != nil {
		return &persistence.ParticipantError{
			Op:            "AppendApproval",
			ParticipantID: approval.ParticipantID,
			Err:           err,
		}
	}

	return nil
}

func (r *ParticipantRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE participants SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return &persistence.ParticipantError{
			Op:            "Delete",
			ParticipantID: id,
			Err:           persistence.ErrParticipantNotFound,
		}
	}

	return nil
}

// loadApprovals attaches approval history to the given participants with a
// single query, ordered oldest first.
func (r *ParticipantRepository) loadApprovals(ctx context.Context, participants []*models.Participant) error {
	if len(participants) == 0 {
		return nil
	}

	ids := make([]string, 0, len(participants))
	byID := make(map[string]*models.Participant, len(participants))

	for _, participant := range participants {
		ids = append(ids, participant.ID)
		byID[participant.ID] = participant
	}

	query := `
		SELECT id, participant_id, step_id, actor_id, action, remark, created_at
		FROM approvals
		WHERE participant_id = ANY($1)
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query approvals: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	for rows.Next() {
		var approval models.Approval

		err := rows.Scan(
			&approval.ID,
			&approval.ParticipantID,
			&approval.StepID,
			&approval.ActorID,
			&approval.Action,
			&approval.Remark,
			&approval.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan approval: %w", err)
		}

		if participant, ok := byID[approval.ParticipantID]; ok {
			participant.Approvals = append(participant.Approvals, &approval)
		}
	}

	err = rows.Err()
	if err != nil {
		return fmt.Errorf("error iterating approvals: %w", err)
	}

	return nil
}

const participantSelect = `
	SELECT
		id
	  , tenant_id
	  , event_id
	  , full_name
	  , email
	  , data
	  , current_step_id
	  , workflow_version_id
	  , status
	  , version
	  , created_at
	  , updated_at
	  , deleted_at
	FROM participants
`

func participantSortColumn(sortBy string) string {
	switch sortBy {
	case "full_name":
		return "full_name"
	case "updated_at":
		return "updated_at"
	default:
		return "created_at"
	}
}

func sortDirection(sortOrder string) string {
	if sortOrder == "desc" {
		return "DESC"
	}

	return "ASC"
}

func collectParticipants(rows *sql.Rows) ([]*models.Participant, error) {
	participants := make([]*models.Participant, 0)

	for rows.Next() {
		participant, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}

		participants = append(participants, participant)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}

	return participants, nil
}

func scanParticipant(scanner interface {
	Scan(dest ...any) error
}) (*models.Participant, error) {
	var (
		participant models.Participant
		dataJSON    []byte
	)

	err := scanner.Scan(
		&participant.ID,
		&participant.TenantID,
		&participant.EventID,
		&participant.FullName,
		&participant.Email,
		&dataJSON,
		&participant.CurrentStepID,
		&participant.WorkflowVersionID,
		&participant.Status,
		&participant.Version,
		&participant.CreatedAt,
		&participant.UpdatedAt,
		&participant.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if dataJSON != nil && string(dataJSON) != "null" {
		err := json.Unmarshal(dataJSON, &participant.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal participant data: %w", err)
		}
	}

	return &participant, nil
}
