package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/praveen2025work/ticketapp-sub000/internal/api/http"
	"github.com/praveen2025work/ticketapp-sub000/internal/api/http/handlers"
	"github.com/praveen2025work/ticketapp-sub000/internal/auth"
	"github.com/praveen2025work/ticketapp-sub000/internal/config"
	"github.com/praveen2025work/ticketapp-sub000/internal/events"
	"github.com/praveen2025work/ticketapp-sub000/internal/notify"
	"github.com/praveen2025work/ticketapp-sub000/internal/observability"
	"github.com/praveen2025work/ticketapp-sub000/internal/persistence"
	"github.com/praveen2025work/ticketapp-sub000/internal/repository"
	"github.com/praveen2025work/ticketapp-sub000/internal/repository/memory"
	"github.com/praveen2025work/ticketapp-sub000/internal/scheduler"
	"github.com/praveen2025work/ticketapp-sub000/internal/service"
	"github.com/praveen2025work/ticketapp-sub000/internal/worker"
)

const shutdownTimeout = 15 * time.Second

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

	shutdownTracing := observability.SetupTracing(ctx, cfg.Telemetry, logger)
	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	dependencies := map[string]handlers.Pinger{}
	var store repository.Store
	if pool := pg.PoolHandle(); pool != nil {
		store = repository.NewPostgresStore(pool)
		dependencies["postgres"] = pg
	} else {
		store = memory.NewStore()
	}

	var (
		summaryCache service.SummaryCache
		jobLocker    scheduler.Locker
	)
	if cfg.Redis.Enabled {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		summaryCache = redis
		jobLocker = redis
		dependencies["redis"] = redis
	}

	mailSink := notify.MultiSink{notify.NewLogSink(logger)}
	if smtpSink, ok := notify.NewSMTPSink(cfg.Notification); ok {
		mailSink = append(mailSink, smtpSink)
	} else {
		logger.Info("SMTP_HOST not set; email notifications are logged only")
	}
	mailWorker := worker.NewNotificationWorker(mailSink, cfg.Notification.QueueSize, logger.Named("mail"))
	mailWorker.Start()

	var alerts notify.Sink
	var alertWorker *worker.NotificationWorker
	if slackSink, ok := notify.NewSlackSink(cfg.Notification.SlackWebhookURL); ok {
		alertWorker = worker.NewNotificationWorker(slackSink, cfg.Notification.QueueSize, logger.Named("slack"))
		alertWorker.Start()
		alerts = alertWorker
	}

	dispatcher := events.NewInMemoryDispatcher()
	locks := service.NewKeyedMutex()
	repos := store.Repos()

	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Locks:      locks,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	approvalService := service.NewApprovalService(service.ApprovalDependencies{
		Store:      store,
		Reviewers:  repos.Users,
		Locks:      locks,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	classificationService := service.NewClassificationService(service.ClassificationDependencies{
		Store:      store,
		Locks:      locks,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		Store:    store,
		Cache:    summaryCache,
		CacheTTL: cfg.Dashboard.CacheTTL(),
		Logger:   logger,
	})
	notificationService := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:           dispatcher,
		Mail:                 mailWorker,
		Alerts:               alerts,
		Users:                repos.Users,
		EscalationRecipients: cfg.Notification.EscalationRecipients,
		Logger:               logger,
	})
	notificationService.RegisterHandlers()

	location, err := cfg.Scheduler.Location()
	if err != nil {
		logger.Fatal("invalid scheduler timezone", zap.Error(err))
	}
	triggers, err := scheduler.TriggersFromConfig(cfg.Scheduler)
	if err != nil {
		logger.Fatal("invalid scheduler triggers", zap.Error(err))
	}
	jobScheduler := scheduler.New(classificationService, scheduler.Options{
		Location: location,
		Triggers: triggers,
		Locker:   jobLocker,
		LockTTL:  cfg.Scheduler.LockTTL(),
		Logger:   logger.Named("scheduler"),
	})
	if cfg.Scheduler.Enabled {
		jobScheduler.Start(ctx)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	app := httptransport.NewApp(cfg.App.Name)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Tickets:    handlers.NewTicketsHandler(ticketService),
		Approvals:  handlers.NewApprovalsHandler(approvalService),
		Dashboard:  handlers.NewDashboardHandler(dashboardService),
		Jobs:       handlers.NewJobsHandler(jobScheduler),
		Authorizer: auth.NewAuthMiddleware(tokens).Handle,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if cfg.Scheduler.Enabled {
		jobScheduler.Stop()
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer drainCancel()
	mailWorker.Stop(drainCtx)
	if alertWorker != nil {
		alertWorker.Stop(drainCtx)
	}
	if err := shutdownTracing(drainCtx); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
