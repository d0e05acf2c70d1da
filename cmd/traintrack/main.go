package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sqliteadapter "github.com/ericfisherdev/traintrack/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/traintrack/internal/adapter/driven/strava"
	"github.com/ericfisherdev/traintrack/internal/adapter/driven/whoop"
	httphandler "github.com/ericfisherdev/traintrack/internal/adapter/driving/http"
	"github.com/ericfisherdev/traintrack/internal/application"
	"github.com/ericfisherdev/traintrack/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"backend_url", cfg.BackendURL,
		"strava_configured", cfg.HasStravaCredentials(),
		"whoop_configured", cfg.HasWhoopCredentials(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters.
	credentialStore := sqliteadapter.NewCredentialRepo(db)
	stateStore := sqliteadapter.NewStateRepo(db)
	planStore := sqliteadapter.NewPlanRepo(db)
	workoutStore := sqliteadapter.NewWorkoutLogRepo(db)

	logger := slog.Default()

	stravaSvc := strava.NewService(strava.Config{
		ClientID:     cfg.StravaClientID,
		ClientSecret: cfg.StravaClientSecret,
		RedirectURI:  cfg.StravaRedirectURI(),
		Timeout:      cfg.ProviderTimeout,
	}, credentialStore, logger)

	whoopSvc := whoop.NewService(whoop.Config{
		ClientID:     cfg.WhoopClientID,
		ClientSecret: cfg.WhoopClientSecret,
		RedirectURI:  cfg.WhoopRedirectURI(),
		StaticToken:  cfg.WhoopAccessToken,
		Timeout:      cfg.ProviderTimeout,
	}, credentialStore, stateStore, logger)

	// 6. Wire application services.
	tokenSvc := application.NewTokenService(credentialStore, cfg.WhoopAccessToken, logger)
	daySvc := application.NewDayService(planStore, whoopSvc, stravaSvc, logger)
	workoutSvc := application.NewWorkoutService(workoutStore, logger)

	// 7. Create HTTP handler and server.
	handler := httphandler.NewHandler(tokenSvc, daySvc, workoutSvc, stravaSvc, whoopSvc, logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("traintrack started", "listen_addr", cfg.ListenAddr)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 9. Graceful shutdown with 10s timeout to drain the HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
