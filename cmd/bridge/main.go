package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/yandex-weather-bridge/internal/client"
	"github.com/kjstillabower/yandex-weather-bridge/internal/config"
	"github.com/kjstillabower/yandex-weather-bridge/internal/entity"
	httphandler "github.com/kjstillabower/yandex-weather-bridge/internal/http"
	"github.com/kjstillabower/yandex-weather-bridge/internal/lifecycle"
	"github.com/kjstillabower/yandex-weather-bridge/internal/observability"
	"github.com/kjstillabower/yandex-weather-bridge/internal/poller"
	"github.com/kjstillabower/yandex-weather-bridge/internal/service"
	"github.com/kjstillabower/yandex-weather-bridge/internal/snapshot"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	weatherClient, err := client.NewYandexClient(cfg.APIKey, cfg.APIURL, cfg.Latitude, cfg.Longitude, cfg.APITimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	var store snapshot.Store
	var memcacheCloser *snapshot.MemcachedStore
	weatherEntity := entity.New(cfg.EntityName, cfg.Latitude, cfg.Longitude)
	switch cfg.SnapshotBackend {
	case "memcached":
		mc, err := snapshot.NewMemcachedStore(cfg.MemcachedAddrs, weatherEntity.UniqueID(), cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached snapshot store", zap.Error(err))
		}
		memcacheCloser = mc
		store = mc
		logger.Info("snapshot backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		store = snapshot.NewMemoryStore()
		logger.Info("snapshot backend: in_memory")
	}

	updater := service.NewUpdater(weatherClient, weatherEntity, store, logger)
	observability.RegisterEntityAgeGauge(weatherEntity.AgeSeconds)

	// Best-effort credential probe; a broken upstream should not keep a
	// correctly configured bridge from starting.
	probeCtx, probeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := weatherClient.ValidateAPIKey(probeCtx); err != nil {
		logger.Warn("API key validation probe failed", zap.Error(err))
	}
	probeCancel()

	primeCtx, primeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	updater.Prime(primeCtx)
	primeCancel()

	pollCtx, pollCancel := context.WithCancel(context.Background())
	defer pollCancel()
	entityPoller, err := poller.New(updater, cfg.PollInterval, logger)
	if err != nil {
		logger.Fatal("poller", zap.Error(err))
	}
	if err := entityPoller.Start(pollCtx); err != nil {
		logger.Fatal("poller start", zap.Error(err))
	}

	healthConfig := &httphandler.HealthConfig{
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
		StaleAfter:       cfg.StaleAfter,
		StartTime:        time.Now(),
	}
	if memcacheCloser != nil {
		healthConfig.SnapshotPing = memcacheCloser.Ping
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(weatherEntity, entityPoller, healthConfig, logger)

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	entityRouter := router.NewRoute().Subrouter()
	entityRouter.Use(httphandler.RateLimitMiddleware(limiter))
	entityRouter.HandleFunc("/weather", handler.GetWeather).Methods("GET")
	entityRouter.HandleFunc("/forecast", handler.GetForecast).Methods("GET")
	entityRouter.HandleFunc("/refresh", handler.PostRefresh).Methods("POST")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	pollCancel()
	if err := entityPoller.Shutdown(); err != nil {
		logger.Error("poller shutdown", zap.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
