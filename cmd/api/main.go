package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/blogkit/auth-gateway/internal/api/http"
	"github.com/blogkit/auth-gateway/internal/api/http/handlers"
	"github.com/blogkit/auth-gateway/internal/auth"
	"github.com/blogkit/auth-gateway/internal/config"
	"github.com/blogkit/auth-gateway/internal/events"
	"github.com/blogkit/auth-gateway/internal/observability"
	"github.com/blogkit/auth-gateway/internal/persistence"
	"github.com/blogkit/auth-gateway/internal/ratelimit"
	"github.com/blogkit/auth-gateway/internal/repository"
	"github.com/blogkit/auth-gateway/internal/service"
	"github.com/blogkit/auth-gateway/internal/worker"
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	limiter := ratelimit.NewLoginLimiter(redis.Client, logger,
		cfg.RateLimit.LoginMaxAttempts, cfg.RateLimit.LoginWindow())

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Dispatcher:        dispatcher,
		LoginLimiter:      limiter,
	})
	adminService := service.NewAdminService(userRepo, dispatcher)
	auditService := service.NewAuditService(dispatcher, logger)
	worker.StartAuditWorker(auditService)

	authenticator := auth.NewAuthenticator(authService.TokenManager(), userRepo,
		logger, metrics, cfg.Auth.StoreFailOpen)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:          handlers.NewAuthHandler(authService),
		Users:         handlers.NewUsersHandler(userRepo),
		Admin:         handlers.NewAdminHandler(adminService),
		Authenticator: authenticator,
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
