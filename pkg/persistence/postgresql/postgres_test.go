package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/eventra-io/accredo/pkg/models"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/eventra-io/accredo/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{
		"audit_log", "operation_items", "operations", "approvals",
		"participants", "auto_action_rules", "workflow_versions",
		"workflows", "schema_migrations",
	} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("accredo_test"),
			postgres.WithUsername("accredo"),
			postgres.WithPassword("accredo"),
			postgres.BasicWaitStrategies(),
			testcontainers.WithEnv(map[string]string{"TZ": "UTC"}),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	var exists bool

	for _, table := range []string{"workflows", "participants", "operations", "audit_log"} {
		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, table+" table should exist")
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestWorkflowRepository_SaveAndRetrieve(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	duration := 120

	workflow := &models.Workflow{
		TenantID: "tenant-1",
		EventID:  "event-1",
		Name:     "Press Accreditation",
		Status:   models.WorkflowStatusDraft,
		Steps: []*models.Step{
			{
				ID:                 "registration",
				Name:               "Registration",
				StepType:           models.StepTypeEntry,
				IsEntryPoint:       true,
				NextStepID:         &[]string{"security-review"}[0],
				SLADurationMinutes: &duration,
				SLAWarningMinutes:  30,
			},
			{
				ID:          "security-review",
				Name:        "Security Review",
				StepType:    models.StepTypeReview,
				IsFinalStep: true,
			},
		},
	}

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)
	assert.NotEmpty(t, workflow.ID)
	assert.False(t, workflow.CreatedAt.IsZero())

	retrieved, err := p.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, workflow.Name, retrieved.Name)
	assert.Len(t, retrieved.Steps, 2)
	assert.True(t, retrieved.Steps[0].IsEntryPoint)
	require.NotNil(t, retrieved.Steps[0].SLADurationMinutes)
	assert.Equal(t, 120, *retrieved.Steps[0].SLADurationMinutes)

	notFound, err := p.WorkflowRepository().GetByID(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, notFound)
}

func TestWorkflowRepository_VersionSnapshots(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := &models.Workflow{Name: "Vendor Flow", Status: models.WorkflowStatusPublished}

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		version := &models.WorkflowVersion{
			WorkflowID: workflow.ID,
			Version:    i,
			Steps:      []*models.Step{{ID: "review", Name: "Review", StepType: models.StepTypeReview}},
		}
		err = p.WorkflowRepository().SaveVersion(ctx, version)
		require.NoError(t, err)
	}

	latest, err := p.WorkflowRepository().LatestVersion(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Version)

	versions, err := p.WorkflowRepository().Versions(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Version)

	_, err = p.WorkflowRepository().GetVersion(ctx, uuid.NewString())
	require.Error(t, err)
	assert.True(t, persistence.IsVersionNotFound(err))
}

func TestRuleRepository_ActiveByStepOrdering(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	for _, rule := range []*models.AutoActionRule{
		{StepID: "review", Name: "low priority", Action: models.AutoApprove, Priority: 5, IsActive: true},
		{StepID: "review", Name: "high priority", Action: models.AutoReject, Priority: 1, IsActive: true},
		{StepID: "review", Name: "inactive", Action: models.AutoApprove, Priority: 0, IsActive: false},
		{StepID: "other", Name: "other step", Action: models.AutoApprove, Priority: 0, IsActive: true},
	} {
		err := p.RuleRepository().Save(ctx, rule)
		require.NoError(t, err)
	}

	rules, err := p.RuleRepository().ActiveByStep(ctx, "review")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "high priority", rules[0].Name)
	assert.Equal(t, "low priority", rules[1].Name)
}

func TestParticipantRepository_SaveAndApprovals(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	participant := &models.Participant{
		TenantID:          "tenant-1",
		EventID:           "event-1",
		FullName:          "Ada Lovelace",
		Email:             "ada@example.com",
		Data:              map[string]any{"company": "Analytical Engines", "age": float64(36)},
		CurrentStepID:     "registration",
		WorkflowVersionID: "version-1",
		Status:            models.ParticipantPending,
	}

	err := p.ParticipantRepository().Save(ctx, participant)
	require.NoError(t, err)

	err = p.ParticipantRepository().AppendApproval(ctx, &models.Approval{
		ParticipantID: participant.ID,
		StepID:        "registration",
		ActorID:       "admin-1",
		Action:        models.ActionApprove,
		CreatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)

	// A subsequent core-field save must not lose approval history.
	participant.CurrentStepID = "security-review"
	err = p.ParticipantRepository().Save(ctx, participant)
	require.NoError(t, err)

	retrieved, err := p.ParticipantRepository().GetByID(ctx, participant.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, "security-review", retrieved.CurrentStepID)
	assert.Equal(t, "Analytical Engines", retrieved.Data["company"])
	require.Len(t, retrieved.Approvals, 1)
	assert.Equal(t, models.ActionApprove, retrieved.Approvals[0].Action)
}

func TestParticipantRepository_GetByIDsSkipsMissing(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	first := &models.Participant{FullName: "First", Status: models.ParticipantPending}
	second := &models.Participant{FullName: "Second", Status: models.ParticipantPending}

	require.NoError(t, p.ParticipantRepository().Save(ctx, first))
	require.NoError(t, p.ParticipantRepository().Save(ctx, second))

	participants, err := p.ParticipantRepository().GetByIDs(ctx, []string{first.ID, uuid.NewString(), second.ID})
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.Equal(t, first.ID, participants[0].ID)
	assert.Equal(t, second.ID, participants[1].ID)
}

func TestParticipantRepository_ListFiltersAndPages(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	for i := range 5 {
		participant := &models.Participant{
			EventID:       "event-1",
			FullName:      string(rune('A'+i)) + " Person",
			CurrentStepID: "registration",
			Status:        models.ParticipantPending,
		}
		require.NoError(t, p.ParticipantRepository().Save(ctx, participant))
	}

	other := &models.Participant{EventID: "event-2", FullName: "Elsewhere", Status: models.ParticipantApproved}
	require.NoError(t, p.ParticipantRepository().Save(ctx, other))

	result, err := p.ParticipantRepository().List(ctx, persistence.ListParticipantsOptions{
		EventID: "event-1",
		Limit:   3,
		SortBy:  "full_name",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.TotalCount)
	assert.Len(t, result.Participants, 3)
	assert.True(t, result.HasNextPage)
	assert.Equal(t, "A Person", result.Participants[0].FullName)
}

func TestOperationRepository_ItemUpsert(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	operation := &models.Operation{
		EventID: "event-1",
		Type:    models.OperationBatchAction,
		Action:  models.ActionApprove,
		Status:  models.OperationProcessing,
		ActorID: "admin-1",
	}
	require.NoError(t, p.OperationRepository().Save(ctx, operation))

	item := &models.OperationItem{
		OperationID:   operation.ID,
		ParticipantID: "participant-1",
		Status:        models.ItemProcessing,
	}
	require.NoError(t, p.OperationRepository().SaveItem(ctx, item))

	processedAt := time.Now().UTC()
	item.Status = models.ItemSuccess
	item.ProcessedAt = &processedAt
	require.NoError(t, p.OperationRepository().SaveItem(ctx, item))

	items, err := p.OperationRepository().Items(ctx, operation.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.ItemSuccess, items[0].Status)

	found, err := p.OperationRepository().ItemFor(ctx, operation.ID, "participant-1")
	require.NoError(t, err)
	require.NotNil(t, found)

	missing, err := p.OperationRepository().ItemFor(ctx, operation.ID, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = p.OperationRepository().GetByID(ctx, uuid.NewString())
	require.Error(t, err)
	assert.True(t, persistence.IsOperationNotFound(err))
}

func TestAuditRepository_RecordAndList(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	entry := &models.AuditEntry{
		ActorID:    "admin-1",
		Action:     "approve",
		EntityType: "participant",
		EntityID:   "participant-1",
		Metadata:   map[string]any{"automatic": false},
	}
	require.NoError(t, p.AuditRepository().Record(ctx, entry))

	entries, err := p.AuditRepository().ListByEntity(ctx, "participant", "participant-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "approve", entries[0].Action)
	assert.Equal(t, false, entries[0].Metadata["automatic"])
}
