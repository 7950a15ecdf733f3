package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/order-desk/internal/access"
	httptransport "github.com/spec-kit/order-desk/internal/api/http"
	"github.com/spec-kit/order-desk/internal/api/http/handlers"
	"github.com/spec-kit/order-desk/internal/auth"
	"github.com/spec-kit/order-desk/internal/config"
	"github.com/spec-kit/order-desk/internal/events"
	"github.com/spec-kit/order-desk/internal/lifecycle"
	"github.com/spec-kit/order-desk/internal/observability"
	"github.com/spec-kit/order-desk/internal/ordernumber"
	"github.com/spec-kit/order-desk/internal/persistence"
	"github.com/spec-kit/order-desk/internal/platform/discord"
	"github.com/spec-kit/order-desk/internal/repository"
	"github.com/spec-kit/order-desk/internal/service"
	"github.com/spec-kit/order-desk/internal/worker"
	"github.com/spec-kit/order-desk/migrations"
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

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	dependencies := map[string]handlers.Pinger{}
	if pg.PoolHandle() != nil {
		dependencies["postgres"] = pg
	}

	var redis *persistence.Redis
	if cfg.Counter.Backend == config.CounterBackendRedis {
		redis, err = persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redis.Close()
		dependencies["redis"] = redis
	}

	store, err := newCounterStore(cfg, pg, redis, logger)
	if err != nil {
		logger.Fatal("failed to init order counter", zap.Error(err))
	}
	allocator := ordernumber.NewAllocator(store, cfg.Workflow.OrderPrefix, logger)

	var (
		orderRepo   repository.OrderRepository
		historyRepo repository.OrderHistoryRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		orderRepo = repository.NewOrderRepository(pool)
		historyRepo = repository.NewOrderHistoryRepository(pool)
	} else {
		logger.Warn("no database configured; order registry kept in memory")
		orderRepo = repository.NewMemoryOrderRepository()
		historyRepo = repository.NewMemoryOrderHistoryRepository()
	}

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, historyRepo, logger))

	metrics := observability.NewMetrics()
	scheduler := worker.NewScheduler(worker.RealClock(), logger)

	policy := access.NewPolicy(cfg.Workflow.AdminIDs)
	machine := lifecycle.NewMachine(policy, lifecycle.Settings{
		ContactEmail:     cfg.Workflow.ContactEmail,
		ArchiveCategory:  cfg.Workflow.ArchiveCategory,
		GraceDelay:       cfg.Workflow.GraceDelay(),
		AnnounceFeedback: cfg.Workflow.FeedbackChannelID != "",
	})

	gateway, err := discord.New(cfg.Discord, logger)
	if err != nil {
		logger.Fatal("failed to init discord gateway", zap.Error(err))
	}

	orderService := service.NewOrderService(service.OrderDependencies{
		Machine:     machine,
		Allocator:   allocator,
		Gateway:     gateway,
		OrderRepo:   orderRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
		Scheduler:   scheduler,
		Metrics:     metrics,
		Logger:      logger,
		Workflow:    cfg.Workflow,
	})

	if err := gateway.Open(ctx, orderService, policy.Admins()); err != nil {
		logger.Fatal("failed to connect to discord", zap.Error(err))
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Orders:         handlers.NewOrdersHandler(orderService),
		Metrics:        handlers.NewMetricsHandler(metrics, scheduler.Pending),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Ops.JWTSecret, cfg.Ops.TokenTTLMinutes)),
	})
	if cfg.Ops.JWTSecret == "" {
		logger.Warn("OPS_JWT_SECRET not set; order API will reject every request")
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	logger.Info("order desk running",
		zap.String("intake_channel_id", cfg.Workflow.IntakeChannelID),
		zap.String("counter_backend", cfg.Counter.Backend),
		zap.Int("admins", len(cfg.Workflow.AdminIDs)))

	waitForShutdown(logger)

	// Pending grace deletions run now, while the session can still reach Discord.
	scheduler.Stop()
	if err := gateway.Close(); err != nil {
		logger.Warn("discord close", zap.Error(err))
	}
	_ = app.ShutdownWithTimeout(5 * time.Second)
}

func newCounterStore(cfg *config.Config, pg *persistence.Postgres, redis *persistence.Redis, logger *zap.Logger) (ordernumber.CounterStore, error) {
	switch cfg.Counter.Backend {
	case config.CounterBackendFile:
		return ordernumber.NewFileStore(cfg.Counter.FilePath, logger), nil
	case config.CounterBackendRedis:
		return ordernumber.NewRedisStore(redis.Client, cfg.Counter.RedisKey), nil
	case config.CounterBackendPostgres:
		if pg.PoolHandle() == nil {
			return nil, fmt.Errorf("counter backend %q needs POSTGRES_DSN", cfg.Counter.Backend)
		}
		return ordernumber.NewPostgresStore(pg.PoolHandle()), nil
	case config.CounterBackendMemory:
		logger.Warn("in-memory order counter; numbering restarts with the process")
		return ordernumber.NewMemoryStore(0), nil
	}
	return nil, fmt.Errorf("unknown counter backend %q", cfg.Counter.Backend)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
