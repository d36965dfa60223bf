package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/straye-as/pipeline-api/internal/ai"
	"github.com/straye-as/pipeline-api/internal/auth"
	"github.com/straye-as/pipeline-api/internal/cache"
	"github.com/straye-as/pipeline-api/internal/config"
	"github.com/straye-as/pipeline-api/internal/database"
	"github.com/straye-as/pipeline-api/internal/http/handler"
	"github.com/straye-as/pipeline-api/internal/http/middleware"
	"github.com/straye-as/pipeline-api/internal/http/router"
	"github.com/straye-as/pipeline-api/internal/jobs"
	"github.com/straye-as/pipeline-api/internal/logger"
	"github.com/straye-as/pipeline-api/internal/mail"
	"github.com/straye-as/pipeline-api/internal/repository"
	"github.com/straye-as/pipeline-api/internal/service"
	"github.com/straye-as/pipeline-api/internal/storage"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// In development secrets come from the environment, elsewhere from Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	reportStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	dashboardCache, err := cache.New(&cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	var cachePinger router.Pinger
	if redisCache, ok := dashboardCache.(*cache.RedisCache); ok {
		cachePinger = redisCache
		defer func() { _ = redisCache.Close() }()
	}

	// The drafting service treats a nil Completer as "use the template"
	var completer ai.Completer
	if client := ai.NewOpenAIClient(&cfg.OpenAI, log); client != nil {
		completer = client
	}
	sender := mail.NewSender(&cfg.Mail, log)

	// Repositories
	leadRepo := repository.NewLeadRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	leadService := service.NewLeadService(leadRepo, activityRepo, dashboardCache, log)
	activityService := service.NewActivityService(activityRepo, leadRepo, leadService, log)
	analyticsService := service.NewAnalyticsService(leadRepo, userRepo, dashboardCache, log)
	emailDraftService := service.NewEmailDraftService(leadRepo, activityRepo, completer, sender, log)
	spreadsheetService := service.NewSpreadsheetService(leadRepo, analyticsService, reportStorage, dashboardCache, log)
	userService := service.NewUserService(userRepo, dashboardCache, &cfg.Auth, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(cfg, userRepo, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		cachePinger,
		authMiddleware,
		rateLimiter,
		handler.NewLeadHandler(leadService, log),
		handler.NewActivityHandler(activityService, log),
		handler.NewDashboardHandler(analyticsService, log),
		handler.NewAuthHandler(userService, log),
		handler.NewSpreadsheetHandler(spreadsheetService, cfg.Storage.MaxUploadSizeMB, log),
		handler.NewFollowUpHandler(emailDraftService, log),
	)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.RescoreEnabled {
		scheduler = jobs.NewScheduler(log)
		rescoreJob := jobs.NewRescoreJob(leadService, log, cfg.Jobs.RescoreTimeoutDuration())
		if err := scheduler.AddJob(jobs.RescoreJobName, cfg.Jobs.RescoreCron, rescoreJob.Run); err != nil {
			log.Error("Failed to register rescore job", zap.Error(err))
			scheduler = nil
		} else {
			scheduler.Start()
		}
	} else {
		log.Info("Periodic rescoring disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
