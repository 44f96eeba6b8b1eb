package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/viprasethu/backend/internal/config"
	"github.com/viprasethu/backend/internal/handlers"
	"github.com/viprasethu/backend/internal/middleware"
	"github.com/viprasethu/backend/internal/models"
	"github.com/viprasethu/backend/internal/services"
	"github.com/viprasethu/backend/internal/storage"
	"github.com/viprasethu/backend/internal/utils"
	"github.com/viprasethu/backend/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg     *config.Config
	db      *gorm.DB
	redis   *redis.Client
	metrics *services.Metrics

	taskQueue services.TaskQueue
	worker    *services.Worker
	scheduler *services.Scheduler
	limiter   *middleware.RateLimiter

	admins      *services.AdminDirectory
	authService *services.AuthService
	systemLogs  *services.SystemLogService

	authHandler          *handlers.AuthHandler
	profileHandler       *handlers.ProfileHandler
	onboardingHandler    *handlers.OnboardingHandler
	providerHandler      *handlers.ProviderHandler
	adminProviderHandler *handlers.AdminProviderHandler
	masterDataHandler    *handlers.MasterDataHandler
	postHandler          *handlers.CommunityPostHandler
	systemLogHandler     *handlers.SystemLogHandler
	systemConfigHandler  *handlers.SystemConfigHandler
	healthHandler        *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, object
// store, queue, cache, services and schedulers.
func bootstrap(cfg *config.Config) (*appServices, error) {
	utils.SetJWTSecret(cfg.JWT.Secret)
	ctx := context.Background()

	db, err := models.Open(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := models.SeedDefaultData(db); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}

	metrics := services.NewMetrics()
	metrics.RegisterDB(db)

	photos := services.NewPhotoService(store, cfg.Upload, cfg.Storage.SignedURLTTLSeconds, metrics)
	taskQueue := services.NewTaskQueue(&cfg.Redis, photos.DeleteObjects)
	photos.SetQueue(taskQueue)

	worker := services.NewWorker(&cfg.Redis, photos.DeleteObjects)
	if worker != nil {
		if err := worker.Start(); err != nil {
			logger.Warn().Err(err).Msg("Async worker not started; cleanup tasks will wait in Redis")
		}
	}

	var cache services.Cache = services.NoopCache{}
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		if rdb, err = services.NewRedisClient(&cfg.Redis); err != nil {
			logger.Warn().Err(err).Msg("Master data cache disabled")
		} else {
			cache = services.NewRedisCache(rdb, "viprasethu:")
		}
	}

	systemLogs := services.NewSystemLogService(db)
	moderation := services.NewModerationService(db, systemLogs, metrics)
	admins := services.NewAdminDirectory(db)

	authService := services.NewAuthService(db, &cfg.JWT, services.NewLDAPService(&cfg.LDAP))
	if err := authService.CreateAdminIfNotExists(&cfg.Admin); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	resolver := services.NewDetailResolver(
		services.NewRPCDetailStrategy(db),
		services.NewJoinDetailStrategy(db),
		metrics,
	)

	scheduler := services.NewScheduler(db, systemLogs, authService)
	if err := scheduler.Start(); err != nil {
		return nil, err
	}

	onboarding := services.NewOnboardingService(db, photos, metrics)
	search := services.NewProviderSearchService(db, photos)
	details := services.NewProviderDetailService(resolver, photos)
	masterData := services.NewMasterDataManagers(db, cache)
	mappings := services.NewSampradayaCategoryService(db)
	posts := services.NewCommunityPostService(db, moderation, systemLogs, metrics)
	mfa := services.NewMFAService(db, authService)

	return &appServices{
		cfg:         cfg,
		db:          db,
		redis:       rdb,
		metrics:     metrics,
		taskQueue:   taskQueue,
		worker:      worker,
		scheduler:   scheduler,
		limiter:     middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst),
		admins:      admins,
		authService: authService,
		systemLogs:  systemLogs,

		authHandler:          handlers.NewAuthHandler(authService, mfa, cfg.Server.SecureCookies),
		profileHandler:       handlers.NewProfileHandler(services.NewProfileService(db), admins),
		onboardingHandler:    handlers.NewOnboardingHandler(onboarding, cfg.Upload.MaxBytes),
		providerHandler:      handlers.NewProviderHandler(search, details),
		adminProviderHandler: handlers.NewAdminProviderHandler(services.NewAdminProviderService(db, photos), moderation),
		masterDataHandler:    handlers.NewMasterDataHandler(masterData, mappings),
		postHandler:          handlers.NewCommunityPostHandler(posts),
		systemLogHandler:     handlers.NewSystemLogHandler(systemLogs),
		systemConfigHandler:  handlers.NewSystemConfigHandler(services.NewSystemConfigService(db)),
		healthHandler:        handlers.NewHealthHandler(db, taskQueue, cfg.Storage.Driver),
	}, nil
}

// shutdown stops background work and releases connections.
func (s *appServices) shutdown(ctx context.Context) {
	s.scheduler.Stop(ctx)
	s.limiter.Stop()
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}
	logger.Info().Msg("All services stopped")
}
