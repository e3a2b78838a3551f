// Package main provides the Accredo API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/eventra-io/accredo/pkg/eventbus"
	"github.com/eventra-io/accredo/pkg/notify"
	"github.com/eventra-io/accredo/pkg/persistence"
	"github.com/eventra-io/accredo/pkg/services"
	"github.com/eventra-io/accredo/pkg/web"
	"github.com/eventra-io/accredo/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	undoStore   workflow.UndoStore
	systemActor string
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	undoStore workflow.UndoStore,
	systemActor string,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		eventBus:    eventBus,
		undoStore:   undoStore,
		systemActor: systemActor,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	navigator := workflow.NewStepNavigator(a.persistence, a.eventBus, a.logger)
	engine := workflow.NewAutoActionEngine(
		a.persistence.RuleRepository(),
		a.persistence.AuditRepository(),
		navigator,
		a.systemActor,
		a.logger,
	)
	executor := workflow.NewBatchExecutor(
		a.persistence,
		navigator,
		a.undoStore,
		services.NewStatusEligibility(a.persistence),
		services.StaticCapabilities{BulkEnabled: true},
		a.eventBus,
		notify.NewBusNotifier(a.eventBus),
		a.logger,
	)

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(a.persistence),
		services.NewParticipant(a.persistence, navigator, engine, a.logger),
		services.NewOperations(a.persistence, executor),
		workflow.NewSLAMonitor(a.persistence, a.logger),
		a.validate,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Accredo API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/publish", handlers.PublishWorkflow)
	w.Get("/:id/versions", handlers.GetWorkflowVersions)
	w.Get("/:id/sla/stats", handlers.GetSLAStats)
	w.Get("/:id/sla/overdue", handlers.GetOverdueParticipants)

	r := app.Group("/rules")
	r.Post("/", handlers.SaveRule)
	r.Get("/:id", handlers.GetRule)
	r.Delete("/:id", handlers.DeleteRule)

	app.Get("/steps/:stepId/rules", handlers.GetStepRules)
	app.Get("/field-types/:type/operators", handlers.GetOperatorsForFieldType)

	p := app.Group("/participants")
	p.Post("/", handlers.EnrollParticipant)
	p.Get("/", handlers.GetParticipants)
	p.Get("/:id", handlers.GetParticipant)
	p.Delete("/:id", handlers.DeleteParticipant)
	p.Post("/:id/transition", handlers.TransitionParticipant)

	o := app.Group("/operations")
	o.Post("/", handlers.ExecuteBatch)
	o.Post("/dry-run", handlers.DryRunBatch)
	o.Get("/:id", handlers.GetOperation)
	o.Get("/:id/items", handlers.GetOperationItems)
	o.Post("/:id/undo", handlers.UndoOperation)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	err := app.Listen(":" + strconv.Itoa(port))

	return err
}
