package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/avesk/pickboard/internal/adapters/http/api"
	"github.com/avesk/pickboard/internal/adapters/repository"
	"github.com/avesk/pickboard/internal/app"
	"github.com/avesk/pickboard/internal/config"
	"github.com/avesk/pickboard/pkg/logger"
	"github.com/avesk/pickboard/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Default Go collectors are unregistered; the service publishes its own
	// system metrics instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := repository.Open(ctx, repository.Backend(cfg.StoreBackend), cfg.StoreDSN)
	if err != nil {
		log.Error(ctx, "failed to open store",
			logger.String("backend", cfg.StoreBackend), logger.Error(err))
		return
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithLeaderboardSize(cfg.LeaderboardSize),
		app.WithDropDir(cfg.CSVDropDir),
		app.WithScanInterval(time.Duration(cfg.ScanIntervalSec)*time.Second),
		app.WithWorkerCount(cfg.IngestWorkerCount),
		app.WithQueueSize(cfg.IngestQueueSize),
		app.WithBatchSize(cfg.IngestBatchSize),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer func() {
		if err := svc.Stop(context.Background()); err != nil {
			log.Error(context.Background(), "service stop failed", logger.Error(err))
		}
	}()

	if cfg.CohortCSVPath != "" {
		importCohorts(ctx, svc, cfg.CohortCSVPath, log)
	}

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// importCohorts loads the cohort roster once at boot. A missing or broken
// roster degrades to cohort-less profiles rather than refusing to start.
func importCohorts(ctx context.Context, svc *app.Service, path string, log logger.Logger) {
	f, err := os.Open(path)
	if err != nil {
		log.Warn(ctx, "cohort roster not loaded", logger.String("path", path), logger.Error(err))
		return
	}
	defer f.Close()
	summary, err := svc.ImportCohorts(ctx, f)
	if err != nil {
		log.Warn(ctx, "cohort roster import failed", logger.String("path", path), logger.Error(err))
		return
	}
	log.Info(ctx, "cohort roster loaded",
		logger.String("path", path),
		logger.Int("pickers", summary.Pickers),
		logger.Int("cohorts", summary.Cohorts))
}

// startSystemMetricsUpdater periodically publishes runtime metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater periodically publishes service gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.UpdateServiceMetrics(ctx)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
