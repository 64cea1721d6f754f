package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/helpdesk-line/repair-service/internal/api/http"
	"github.com/helpdesk-line/repair-service/internal/api/http/handlers"
	"github.com/helpdesk-line/repair-service/internal/auth"
	"github.com/helpdesk-line/repair-service/internal/config"
	"github.com/helpdesk-line/repair-service/internal/events"
	"github.com/helpdesk-line/repair-service/internal/notify"
	"github.com/helpdesk-line/repair-service/internal/observability"
	"github.com/helpdesk-line/repair-service/internal/persistence"
	"github.com/helpdesk-line/repair-service/internal/repository"
	"github.com/helpdesk-line/repair-service/internal/service"
	"github.com/helpdesk-line/repair-service/internal/storage"
	"github.com/helpdesk-line/repair-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Name)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	files, err := storage.New(ctx, cfg.App, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to init attachment storage", zap.Error(err))
	}

	lineClient, err := notify.NewClient(cfg.Line, cfg.Notification, logger)
	if err != nil {
		logger.Fatal("failed to init LINE client", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	linkRepo := repository.NewLineLinkRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	statusLogRepo := repository.NewStatusLogRepository(pool)
	notificationLogRepo := repository.NewNotificationLogRepository(pool)
	codeSequence := repository.NewRedisCodeSequence(redis.Client)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: userRepo})
	identityService := service.NewIdentityService(service.IdentityDependencies{
		UserRepo:        userRepo,
		LinkRepo:        linkRepo,
		Logger:          logger,
		BcryptCost:      cfg.Auth.BcryptCost,
		AutoVerifyLinks: cfg.Line.AutoVerifyLinks,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		AttachmentRepo: attachmentRepo,
		StatusLogRepo:  statusLogRepo,
		UserRepo:       userRepo,
		CodeSequence:   codeSequence,
		Storage:        files,
		Dispatcher:     dispatcher,
		Logger:         logger,
		MaxFiles:       cfg.Storage.MaxFiles,
		MaxFileBytes:   cfg.Storage.MaxFileBytes,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketService: ticketService,
		UserRepo:      userRepo,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		UserRepo:     userRepo,
		LinkRepo:     linkRepo,
		LogRepo:      notificationLogRepo,
		Client:       lineClient,
		Dispatcher:   dispatcher,
		Logger:       logger,
		Metrics:      metrics,
		Notification: cfg.Notification,
	})
	worker.StartNotificationWorker(notificationService)
	retryDone := worker.StartRetryLoop(ctx, notificationService, cfg.Notification.RetryInterval(), logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitBytes,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	routes := httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Users:          handlers.NewUsersHandler(authService, identityService),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService),
		Liff:           handlers.NewLiffHandler(ticketService, identityService),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	}
	if local, ok := files.(*storage.LocalStorage); ok {
		routes.UploadsDir = local.Dir()
		routes.UploadsPrefix = cfg.Storage.PublicBaseURL
	}
	httptransport.RegisterRoutes(app, routes)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	<-retryDone
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
