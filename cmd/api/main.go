package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/cache"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/config"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/database"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/handler"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/middleware"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/observability"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/repository"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/router"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/internal/service"
	"github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/pkg/ai"
	cloud "github.com/lizy3yo/GC-Quest-IT-Elective-2--sub009/pkg/cloudinary"
)

const relayChannelBase = "gcquest"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "development" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	observability.RegisterMetrics()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else if cfg.CacheDriver == "redis" {
		log.Fatalf("cache driver redis requires GCQ_REDIS_URL")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	var storage service.FileStorage
	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("file uploads disabled")
	} else {
		storage = uploader
	}

	var generator ai.Generator
	if cfg.OpenAIAPIKey != "" {
		openAI, err := ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AIModel,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create ai generator: %v", err)
		}
		generator = openAI
	} else {
		logger.Warn().Msg("ai generation disabled: no api key configured")
	}

	var store cache.Store
	switch cfg.CacheDriver {
	case "redis":
		store = cache.NewRedisStore(redisClient, "gcquest:cache")
	default:
		store = cache.NewMemoryStore()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	deckRepo := repository.NewDeckRepository(db)
	practiceRepo := repository.NewPracticeTestRepository(db)
	resourceRepo := repository.NewResourceRepository(db)

	relayService := service.NewRelayService(redisClient, relayChannelBase, natsConn, validate, logger)
	dashboardService := service.NewDashboardService(service.DashboardRepositories{
		Users:       userRepo,
		Classes:     classRepo,
		Assessments: assessmentRepo,
		Submissions: submissionRepo,
		Decks:       deckRepo,
	}, store, cfg.CacheTTL, logger)

	authService := service.NewAuthService(userRepo, validate, service.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, logger)
	userService := service.NewUserService(userRepo, validate, logger)
	leaderboardService := service.NewLeaderboardService(submissionRepo, classRepo, userRepo, redisClient, logger)
	classService := service.NewClassService(classRepo, userRepo, validate, relayService, dashboardService, leaderboardService, logger)
	assessmentService := service.NewAssessmentService(assessmentRepo, classRepo, userRepo, validate, service.AssessmentServiceConfig{
		Storage:        storage,
		MaxUploadBytes: cfg.UploadMaxBytes,
		Publisher:      relayService,
		Dashboards:     dashboardService,
		Leaderboards:   leaderboardService,
	}, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assessmentRepo, classRepo, userRepo, leaderboardService, validate, relayService, dashboardService, logger)
	liveService := service.NewLiveSessionService(assessmentRepo, classRepo, userRepo, validate, relayService, cfg.LiveAwayAfter, logger)
	flashcardService := service.NewFlashcardService(deckRepo, classRepo, userRepo, validate, dashboardService, logger)
	practiceService := service.NewPracticeTestService(practiceRepo, flashcardService, validate, logger)
	generationService := service.NewGenerationService(generator, flashcardService, validate, logger)
	resourceService := service.NewResourceService(resourceRepo, classRepo, userRepo, storage, cfg.UploadMaxBytes, validate, relayService, logger)

	if cfg.BootstrapCoordinator != "" {
		if err := authService.EnsureCoordinator(context.Background(), cfg.BootstrapCoordinator, cfg.BootstrapCoordinatorPwd); err != nil {
			log.Fatalf("failed to bootstrap coordinator: %v", err)
		}
	}

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()
	relayService.Start(relayCtx)

	checks := map[string]handler.DependencyCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.UploadMaxBytes) + 1<<20,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:         handler.NewAuthHandler(authService, logger),
		UserHandler:         handler.NewUserHandler(userService, logger),
		ClassHandler:        handler.NewClassHandler(classService, leaderboardService, resourceService, logger),
		AssessmentHandler:   handler.NewAssessmentHandler(assessmentService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger),
		LiveSessionHandler:  handler.NewLiveSessionHandler(liveService, logger),
		FlashcardHandler:    handler.NewFlashcardHandler(flashcardService, practiceService, logger),
		PracticeTestHandler: handler.NewPracticeTestHandler(practiceService, logger),
		AIHandler:           handler.NewAIHandler(generationService, logger),
		DashboardHandler:    handler.NewDashboardHandler(dashboardService, logger),
		RelayHandler:        handler.NewRelayHandler(relayService, logger),
		HealthChecks:        checks,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("addr", cfg.HTTPAddress()).Msg("api listening")
	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
