package main

import (
	"context"
	"errors"
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
	"gorm.io/gorm"

	"github.com/RoundTable02/gdgoc-onewave-be/internal/config"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/database"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/handler"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/middleware"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/repository"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/router"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/service"
	"github.com/RoundTable02/gdgoc-onewave-be/internal/site"
	"github.com/RoundTable02/gdgoc-onewave-be/pkg/ai"
	cloud "github.com/RoundTable02/gdgoc-onewave-be/pkg/cloudinary"
	"github.com/RoundTable02/gdgoc-onewave-be/pkg/storage"
	"github.com/RoundTable02/gdgoc-onewave-be/pkg/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	ctx := context.Background()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Close()
	}

	store, err := storage.New(ctx, storage.Config{
		Endpoint:  cfg.StorageEndpoint,
		Region:    cfg.StorageRegion,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
		BaseURL:   cfg.StorageBaseURL,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create object storage client")
	}

	grader, err := worker.NewClient(worker.Config{
		BaseURL: cfg.WorkerURL,
		Timeout: cfg.WorkerTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create grading worker client")
	}

	var generator ai.ScriptGenerator
	if cfg.OpenAIAPIKey != "" {
		openAIGenerator, err := ai.NewOpenAIScriptGenerator(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Logger:  logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create script generator")
		}
		generator = openAIGenerator
	} else {
		logger.Warn().Msg("openai api key missing; assignment creation will fail")
	}

	var backup service.ArchiveBackup
	if cfg.ArchiveBackupEnabled() {
		archiveBackup, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		backup = archiveBackup
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentService := service.NewAssignmentService(
		repository.NewAssignmentRepository(db),
		validate,
		generator,
		redisClient,
		cfg.AssignmentCacheTTL,
		logger,
	)
	submissionService := service.NewSubmissionService(service.SubmissionDependencies{
		Submissions: repository.NewSubmissionRepository(db),
		Results:     repository.NewGradingResultRepository(db),
		Assignments: assignmentService,
		Publisher:   site.NewPublisher(store, cfg.WorkDir, logger),
		Grader:      grader,
		Backup:      backup,
		Events:      service.NewEventPublisher(redisClient, natsConn, cfg.EventChannel, logger),
	}, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.MaxUploadBytes()) + 1024*1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.WorkerTimeout + 30*time.Second,
		ErrorHandler: handler.ErrorHandler(logger),
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler: handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, validate, cfg.MaxUploadBytes(), logger),
		HealthProbes:      healthProbes(db, redisClient, natsConn),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client, natsConn *nats.Conn) map[string]handler.HealthProbe {
	probes := map[string]handler.HealthProbe{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	if redisClient != nil {
		probes["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	if natsConn != nil {
		probes["nats"] = func(context.Context) error {
			if !natsConn.IsConnected() {
				return errors.New("nats disconnected")
			}
			return nil
		}
	}

	return probes
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
