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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/kara-dl-go/api"
	"github.com/yourusername/kara-dl-go/api/handlers"
	"github.com/yourusername/kara-dl-go/internal/app"
	"github.com/yourusername/kara-dl-go/internal/domain"
	"github.com/yourusername/kara-dl-go/internal/infrastructure"
	"github.com/yourusername/kara-dl-go/internal/metrics"
	"github.com/yourusername/kara-dl-go/pkg/logger"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "kara-dl-server",
		Short:        "Karaoke media download queue server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default ./configs/config.yaml, $HOME/.kara-dl, /etc/kara-dl)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer() error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	if err := createDirectories(config); err != nil {
		return err
	}

	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize category logs: %w", err)
	}
	defer multiLog.Close()

	handlers.Version = version
	log.Info("Starting kara-dl server",
		zap.String("version", version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("base_dir", config.Download.BaseDir),
		zap.Strings("repositories", config.Download.Repositories))

	repo, err := infrastructure.NewSQLiteRepository(config.Queue.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	client := infrastructure.NewRepositoryClient(config.Repository, log)
	downloader := infrastructure.NewMediaDownloader(client, config.Download.MediasDir(), config.Download.TempDir(), multiLog)

	events := app.NewEventHub()
	downloadMgr := app.NewDownloadManager(downloader, &config.Download, log, m)
	queueMgr := app.NewQueueManager(repo, downloadMgr, &config.Queue, events, m, multiLog)
	blacklistSvc := app.NewBlacklistService(repo, multiLog)
	bulk := app.NewBulkDownloader(client, infrastructure.NewLocalMediaStore(config.Download.MediasDir()),
		queueMgr, blacklistSvc, config.Queue.BulkPageSize, m, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rows left DL_RUNNING by a previous process have no worker anymore
	if err := queueMgr.InitRecovery(ctx); err != nil {
		return fmt.Errorf("failed to recover queue: %w", err)
	}

	if config.Download.AutoStartWorkers {
		if err := queueMgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start queue manager: %w", err)
		}
	}

	scheduler := app.NewSyncScheduler(bulk, config.Download.Repositories, config.Queue.SyncSchedule, log)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	deps := api.RouterDeps{
		QueueMgr:    queueMgr,
		DownloadMgr: downloadMgr,
		Blacklist:   blacklistSvc,
		Bulk:        bulk,
		Events:      events,
		Logger:      log,
		MultiLogger: multiLog,
	}
	if config.Metrics.Enabled {
		deps.Gatherer = reg
		deps.MetricsPath = config.Metrics.Path
	}
	router := api.SetupRouter(deps)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	scheduler.Stop()

	// In-flight transfers are abandoned and picked up again by the next recovery
	if queueMgr.IsRunning() {
		if err := queueMgr.Stop(); err != nil {
			log.Error("Error stopping queue manager", zap.Error(err))
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Download.BaseDir,
		config.Download.MediasDir(),
		config.Download.TempDir(),
		config.Download.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
