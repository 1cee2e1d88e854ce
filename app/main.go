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
	_ "time/tzdata"

	"github.com/ponnect/ponnect-alerts/app/alerts"
	"github.com/ponnect/ponnect-alerts/app/api"
	"github.com/ponnect/ponnect-alerts/app/cfg"
	"github.com/ponnect/ponnect-alerts/app/database"
	"github.com/ponnect/ponnect-alerts/app/feed"
	"github.com/ponnect/ponnect-alerts/app/llm"
	"github.com/ponnect/ponnect-alerts/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting Ponnect Alerts", "version", appCfg.Version, "port", appCfg.Port)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	configCache := feed.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount())

	fetcher := feed.NewFetcher(&http.Client{}, appCfg.UserAgent, appCfg.FetchTimeout)

	var guidance alerts.GuidanceGenerator = alerts.RuleGuidance{}
	if appCfg.LLMAPIKey != "" {
		guidance = alerts.LLMGuidance{
			Client:      llm.NewClient(appCfg.LLMAPIKey, llm.WithBaseURL(appCfg.LLMBaseURL)),
			Model:       appCfg.LLMModel,
			Temperature: 0.2,
			MaxTokens:   300,
			Fallback:    alerts.RuleGuidance{},
		}
		slog.Info("LLM guidance enabled", "model", appCfg.LLMModel)
	}

	var govSources []alerts.AlertSource
	for _, sourceConfig := range configCache.GetEnabledConfigs() {
		govSources = append(govSources, alerts.NewGovFeedSource(sourceConfig, fetcher, guidance, appCfg.GuidanceTimeout, alerts.SystemClock))
	}

	govAggregator := alerts.NewAggregator("government", govSources,
		alerts.NewCache(appCfg.GovCacheTTL, alerts.SystemClock), alerts.NewestFirst, alerts.SystemClock)

	forecaster := alerts.NewForecaster(fetcher, appCfg.WeatherBaseURL, appCfg.ForecastDays, appCfg.FetchTimeout)
	weatherAggregator := alerts.NewAggregator("weather", alerts.WeatherSources(forecaster),
		alerts.NewCache(appCfg.WeatherCacheTTL, alerts.SystemClock), alerts.OldestFirst, alerts.SystemClock)

	alertRepo := database.NewAlertRepository(db)

	scheduler := tasks.NewScheduler(
		[]tasks.AlertRefresher{govAggregator, weatherAggregator},
		alertRepo,
		time.Duration(appCfg.SchedulerInterval)*time.Second,
		appCfg.WorkerCount)
	scheduler.Start()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "interval", time.Duration(appCfg.SchedulerInterval)*time.Second)

	handler := api.NewHandler(alertRepo, govAggregator, weatherAggregator, scheduler, appCfg.BaseUrl, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey, appCfg.TrustGateway)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

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
	}

	scheduler.Stop()
	slog.Info("Ponnect Alerts shutdown complete")
}
