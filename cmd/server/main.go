package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/vibesocial/backend/api/handler"
	"github.com/vibesocial/backend/internal/config"
	"github.com/vibesocial/backend/internal/infrastructure/monitor"
	pgInfra "github.com/vibesocial/backend/internal/infrastructure/postgres"
	redisInfra "github.com/vibesocial/backend/internal/infrastructure/redis"
	"github.com/vibesocial/backend/internal/middleware"
	"github.com/vibesocial/backend/internal/router"
	"github.com/vibesocial/backend/internal/services"
	"github.com/vibesocial/backend/internal/services/hub"
	"github.com/vibesocial/backend/internal/services/lifecycle"
	"github.com/vibesocial/backend/pkg/httpcontext"
	"github.com/vibesocial/backend/pkg/logger"
	"github.com/vibesocial/backend/repository/postgres"
	redisRepo "github.com/vibesocial/backend/repository/redis"
	authUC "github.com/vibesocial/backend/usecase/auth"
	notificationUC "github.com/vibesocial/backend/usecase/notification"
	profileUC "github.com/vibesocial/backend/usecase/profile"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	pushHub := hub.New(zapLogger)

	mon := monitor.New(pool, redisClient, pushHub, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.JWT.TTL)

	if cfg.Sweeper.Enabled {
		sweeper := services.NewSweeper(notificationRepo, zapLogger, services.SweeperConfig{
			Interval:         cfg.Sweeper.Interval,
			NotificationKeep: cfg.Sweeper.NotificationKeep,
		})
		sweeper.Start()
		manager.Register("sweeper", func(ctx context.Context) error {
			sweeper.Stop(ctx)
			return nil
		})
	}

	authUseCase := authUC.New(userRepo, sessionRepo, authUC.Config{
		JWTSecret: cfg.JWT.Secret,
		JWTIssuer: cfg.JWT.Issuer,
		TokenTTL:  cfg.JWT.TTL,
	}, zapLogger)
	profileUseCase := profileUC.New(userRepo, zapLogger)
	notificationUseCase := notificationUC.New(notificationRepo, pushHub, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:         apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Profile:      apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Notification: apiHandler.NewNotificationHandler(notificationUseCase, ctxAdapter, zapLogger),
		WS:           apiHandler.NewWSHandler(pushHub, cfg.JWT.Secret, zapLogger),
		Health:       apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, sessionRepo, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
