package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/tournament-brackets/brackets"
	"github.com/Dosada05/tournament-brackets/config"
	"github.com/Dosada05/tournament-brackets/db"
	"github.com/Dosada05/tournament-brackets/handlers"
	"github.com/Dosada05/tournament-brackets/metrics"
	"github.com/Dosada05/tournament-brackets/repositories"
	api "github.com/Dosada05/tournament-brackets/routes"
	"github.com/Dosada05/tournament-brackets/services"
	"github.com/Dosada05/tournament-brackets/storage"
	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx, dbConn)
	cancelMigrate()
	if err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection established")

	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 is not configured, logo uploads are disabled")
	}

	metricsManager := metrics.NewManager()

	wsHub := brackets.NewHub(logger)
	go wsHub.Run()

	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	transactor := repositories.NewPostgresTransactor(dbConn, logger)

	emailService, err := services.NewEmailService(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}
	notifier := services.MultiNotifier{
		services.NewHubNotifier(wsHub),
		services.NewMailNotifier(emailService, tournamentRepo, participantRepo, matchRepo, userRepo, cfg.PublicURL, logger),
	}

	tokens := services.NewTokenManager(cfg.JWTSecretKey)
	authService := services.NewAuthService(userRepo, tokens, emailService, logger)
	bracketService := services.NewBracketService(transactor, tournamentRepo, participantRepo, matchRepo, notifier, metricsManager, logger)
	matchService := services.NewMatchService(transactor, matchRepo, participantRepo, bracketService, notifier, metricsManager, logger)
	participantService := services.NewParticipantService(transactor, tournamentRepo, participantRepo, matchRepo, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, participantRepo, matchRepo, bracketService, uploader, cfg.TournamentsPerPage, logger)
	userService := services.NewUserService(userRepo, tournamentRepo, matchService, uploader, logger)
	logger.Info("services initialized")

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	sweeper, err := services.NewBracketSweeper(cfg.BracketSweepInterval, tournamentRepo, bracketService, metricsManager, logger)
	if err != nil {
		logger.Error("failed to create bracket sweeper", slog.Any("error", err))
		os.Exit(1)
	}
	if err := sweeper.Start(appCtx); err != nil {
		logger.Error("failed to start bracket sweeper", slog.Any("error", err))
		os.Exit(1)
	}

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Tournament:  handlers.NewTournamentHandler(tournamentService),
		Participant: handlers.NewParticipantHandler(participantService),
		Bracket:     handlers.NewBracketHandler(bracketService),
		Match:       handlers.NewMatchHandler(matchService),
		User:        handlers.NewUserHandler(userService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
	}, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        metricsManager,
		RequestLogging: true,
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		stopApp()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}

	if err := sweeper.Shutdown(); err != nil {
		logger.Error("failed to stop bracket sweeper", slog.Any("error", err))
	}
	logger.Info("application exited")
}
