package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/supportdesk/ticketflow/internal/api/http"
	"github.com/supportdesk/ticketflow/internal/api/http/handlers"
	"github.com/supportdesk/ticketflow/internal/auth"
	"github.com/supportdesk/ticketflow/internal/automation"
	"github.com/supportdesk/ticketflow/internal/config"
	"github.com/supportdesk/ticketflow/internal/domain"
	"github.com/supportdesk/ticketflow/internal/events"
	"github.com/supportdesk/ticketflow/internal/observability"
	"github.com/supportdesk/ticketflow/internal/persistence"
	"github.com/supportdesk/ticketflow/internal/repository"
	"github.com/supportdesk/ticketflow/internal/service"
	"github.com/supportdesk/ticketflow/internal/worker"
)

// executionAudit adapts the execution repository to the engine's audit contract.
type executionAudit struct {
	repo repository.ExecutionRepository
}

func (a executionAudit) AppendExecution(ctx context.Context, execution *domain.AutomationExecution) error {
	return a.repo.Create(ctx, execution)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)
	executionRepo := repository.NewExecutionRepository(pool)

	authService := service.NewAuthService(*cfg, userRepo, staffRepo)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, staffRepo)

	notificationService := service.NewNotificationService(redis, logger, cfg.Notification)
	directoryService := service.NewDirectoryService(staffRepo)

	executor := automation.NewActionExecutor(ticketRepo, directoryService, notificationService, logger)
	evaluator := automation.Evaluator{Strict: cfg.Automation.StrictConditions}
	engine := automation.NewEngine(ruleRepo, executionAudit{repo: executionRepo}, executor, evaluator, logger, metrics)

	binder := service.NewAutomationBinder(engine, ticketRepo, logger)
	binder.Bind(dispatcher)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    ticketRepo,
		HistoryRepo:   historyRepo,
		StaffRepo:     staffRepo,
		ExecutionRepo: executionRepo,
		Dispatcher:    dispatcher,
		Notifier:      notificationService,
		SLATargets:    cfg.SLA.Targets(),
	})
	ruleService := service.NewRuleService(ruleRepo, executionRepo)

	slaWorker := worker.NewSLAWorker(ticketRepo, dispatcher, logger, cfg.SLA)
	go slaWorker.Run(ctx)

	notificationWorker := worker.NewNotificationWorker(redis, logger, cfg.Notification)
	go notificationWorker.Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService),
		Rules:          handlers.NewRulesHandler(ruleService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
