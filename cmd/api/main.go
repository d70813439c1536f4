package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/bugtrack/internal/api/http"
	"github.com/spec-kit/bugtrack/internal/api/http/handlers"
	"github.com/spec-kit/bugtrack/internal/auth"
	"github.com/spec-kit/bugtrack/internal/config"
	"github.com/spec-kit/bugtrack/internal/events"
	"github.com/spec-kit/bugtrack/internal/observability"
	"github.com/spec-kit/bugtrack/internal/persistence"
	"github.com/spec-kit/bugtrack/internal/repository"
	"github.com/spec-kit/bugtrack/internal/service"
	"github.com/spec-kit/bugtrack/internal/worker"
)

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

	db := persistence.NewTransactionManager(pg.PoolHandle())
	viewCache := persistence.NewTicketViewCache(redis, cfg.Cache.TicketViewTTL(), logger)

	userRepo := repository.NewUserRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	devReportRepo := repository.NewDevReportRepository(db)
	qaReviewRepo := repository.NewQAReviewRepository(db)
	regressionRepo := repository.NewRegressionTestRepository(db)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: userRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		UserRepo:       userRepo,
		DevReportRepo:  devReportRepo,
		QAReviewRepo:   qaReviewRepo,
		RegressionRepo: regressionRepo,
		Transactor:     db,
		Dispatcher:     dispatcher,
	})
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo:     ticketRepo,
		UserRepo:       userRepo,
		DevReportRepo:  devReportRepo,
		QAReviewRepo:   qaReviewRepo,
		RegressionRepo: regressionRepo,
		Transactor:     db,
		Dispatcher:     dispatcher,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	usersHandler := handlers.NewUsersHandler(authService)
	ticketsHandler := handlers.NewTicketsHandler(ticketService, workflowService, viewCache)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Users:          usersHandler,
		Tickets:        ticketsHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
