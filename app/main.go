package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/cdn-comb/app/api"
	"github.com/lysyi3m/cdn-comb/app/catalog"
	"github.com/lysyi3m/cdn-comb/app/cfg"
	"github.com/lysyi3m/cdn-comb/app/database"
	"github.com/lysyi3m/cdn-comb/app/discovery"
	"github.com/lysyi3m/cdn-comb/app/fetch"
	"github.com/lysyi3m/cdn-comb/app/migration"
	"github.com/lysyi3m/cdn-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("Starting CDN Comb server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	schemaVersion, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run schema migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", schemaVersion, "dirty", dirty)

	configCache := catalog.NewConfigCache(appCfg.AssetsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load asset group configurations", "dir", appCfg.AssetsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Asset group configurations loaded", "count", configCache.GetGroupCount())

	assetRepo := database.NewAssetRepository(db)
	versionRepo := database.NewVersionRepository(db)
	candidateRepo := database.NewCandidateRepository(db)
	migrationRepo := database.NewMigrationRepository(db)
	alertRepo := database.NewAlertRepository(db)

	httpClient := &http.Client{
		Timeout: time.Duration(appCfg.FetchTimeout) * time.Second,
	}
	fetcher := fetch.NewHTTPFetcher(httpClient, appCfg.UserAgent,
		time.Duration(appCfg.FetchTimeout)*time.Second)

	monitor := catalog.NewFailureMonitor(assetRepo, alertRepo, appCfg.FailureThreshold)
	detector := catalog.NewDetector(!appCfg.PreferEarliestCandidate)
	policy := catalog.NewSchedulerPolicy()
	manager := migration.NewManager(assetRepo, versionRepo, migrationRepo,
		alertRepo, candidateRepo, fetcher, appCfg.SizeAnomalyFactor)
	scanner := discovery.NewScanner(httpClient, fetcher, assetRepo, candidateRepo, appCfg.UserAgent)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(configCache, assetRepo, candidateRepo, alertRepo,
		detector, policy, monitor, manager, scanner, fetcher)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(configCache, assetRepo, versionRepo, migrationRepo,
		alertRepo, candidateRepo, manager, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("CDN Comb server started")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("CDN Comb server shutdown complete")
}
