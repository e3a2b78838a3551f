// Package postgresql provides the PostgreSQL persistence implementation.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/eventra-io/accredo/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db              *sql.DB
	logger          *slog.Logger
	workflowRepo    *WorkflowRepository
	ruleRepo        *RuleRepository
	participantRepo *ParticipantRepository
	operationRepo   *OperationRepository
	auditRepo       *AuditRepository
}

// NewPersistence connects to PostgreSQL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:              database,
		logger:          logger,
		workflowRepo:    &WorkflowRepository{db: database, logger: logger},
		ruleRepo:        &RuleRepository{db: database},
		participantRepo: &ParticipantRepository{db: database, logger: logger},
		operationRepo:   &OperationRepository{db: database, logger: logger},
		auditRepo:       &AuditRepository{db: database},
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) RuleRepository() persistence.RuleRepository {
	return p.ruleRepo
}

func (p *Persistence) ParticipantRepository() persistence.ParticipantRepository {
	return p.participantRepo
}

func (p *Persistence) OperationRepository() persistence.OperationRepository {
	return p.operationRepo
}

func (p *Persistence) AuditRepository() persistence.AuditRepository {
	return p.auditRepo
}

// closeRows logs instead of failing; a close error after a successful read
// does not invalidate the result.
func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil && logger != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
