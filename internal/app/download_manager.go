package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/yourusername/kara-dl-go/internal/domain"
	"github.com/yourusername/kara-dl-go/internal/metrics"
)

// statusWriter records the outcome of a transfer
type statusWriter interface {
	UpdateStatus(ctx context.Context, uuid string, status domain.DownloadStatus) error
}

// DownloadManager runs media transfers for claimed queue items
type DownloadManager struct {
	downloader domain.Downloader
	statuses   statusWriter
	config     *domain.DownloadConfig
	logger     *zap.Logger
	metrics    *metrics.Metrics
	semaphore  chan struct{}
	mu         sync.Mutex
	cancels    map[string]context.CancelFunc
}

// NewDownloadManager creates a new download manager
func NewDownloadManager(
	downloader domain.Downloader,
	config *domain.DownloadConfig,
	logger *zap.Logger,
	m *metrics.Metrics,
) *DownloadManager {
	limit := config.ConcurrentLimit
	if limit < 1 {
		limit = 1
	}

	return &DownloadManager{
		downloader: downloader,
		config:     config,
		logger:     logger,
		metrics:    m,
		semaphore:  make(chan struct{}, limit),
		cancels:    make(map[string]context.CancelFunc),
	}
}

// TryAcquire takes a worker slot without blocking
func (dm *DownloadManager) TryAcquire() bool {
	select {
	case dm.semaphore <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release gives back a slot taken by TryAcquire
func (dm *DownloadManager) Release() {
	<-dm.semaphore
}

// ProcessDownload transfers an item already claimed as DL_RUNNING and
// records DL_DONE or DL_FAILED. Nothing is recorded when the transfer was
// cancelled, since the canceller owns the row state.
func (dm *DownloadManager) ProcessDownload(ctx context.Context, item *domain.DownloadItem) error {
	ctx, cancel := context.WithCancel(ctx)
	if !dm.register(item.UUID, cancel) {
		cancel()
		return fmt.Errorf("download %s is already being processed", item.UUID)
	}
	defer cancel()

	dm.logger.Info("Processing download",
		zap.String("uuid", item.UUID),
		zap.String("name", item.Name),
		zap.String("repository", item.Repository))

	dm.metrics.TransferStarted()
	start := time.Now()
	err := dm.transfer(ctx, item)
	dm.metrics.TransferFinished()
	dm.unregister(item.UUID)

	if ctx.Err() != nil {
		dm.metrics.RecordTransfer("cancelled", time.Since(start))
		dm.logger.Info("Download cancelled", zap.String("uuid", item.UUID))
		return ctx.Err()
	}

	// Detached from ctx so the outcome is written even if the caller is going away
	writeCtx, writeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer writeCancel()

	if err != nil {
		dm.metrics.RecordTransfer("failed", time.Since(start))
		dm.logger.Error("Download failed",
			zap.String("uuid", item.UUID),
			zap.Error(err))
		if werr := dm.statuses.UpdateStatus(writeCtx, item.UUID, domain.StatusFailed); werr != nil {
			dm.logger.Error("Failed to record download failure", zap.String("uuid", item.UUID), zap.Error(werr))
		}
		return err
	}

	dm.metrics.RecordTransfer("done", time.Since(start))
	dm.logger.Info("Download completed",
		zap.String("uuid", item.UUID),
		zap.Duration("elapsed", time.Since(start)))
	if werr := dm.statuses.UpdateStatus(writeCtx, item.UUID, domain.StatusDone); werr != nil {
		return fmt.Errorf("failed to record download completion: %w", werr)
	}
	return nil
}

// transfer calls the downloader with exponential backoff between attempts
func (dm *DownloadManager) transfer(ctx context.Context, item *domain.DownloadItem) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = dm.config.RetryDelay
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = time.Second
	}
	policy.MaxElapsedTime = 0

	retries := dm.config.MaxRetries
	if retries < 0 {
		retries = 0
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := dm.downloader.Download(ctx, item)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		dm.logger.Warn("Download attempt failed",
			zap.String("uuid", item.UUID),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", retries),
			zap.Duration("retry_in", wait),
			zap.Error(err))
	})
}

func (dm *DownloadManager) register(uuid string, cancel context.CancelFunc) bool {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if _, exists := dm.cancels[uuid]; exists {
		return false
	}
	dm.cancels[uuid] = cancel
	return true
}

func (dm *DownloadManager) unregister(uuid string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.cancels, uuid)
}

// Cancel stops the in-flight transfer of uuid, reporting whether one existed
func (dm *DownloadManager) Cancel(uuid string) bool {
	dm.mu.Lock()
	cancel, ok := dm.cancels[uuid]
	delete(dm.cancels, uuid)
	dm.mu.Unlock()

	if ok {
		cancel()
		dm.logger.Info("Cancelled in-flight download", zap.String("uuid", uuid))
	}
	return ok
}

// CancelAll stops every in-flight transfer and returns how many were stopped
func (dm *DownloadManager) CancelAll() int {
	dm.mu.Lock()
	cancels := dm.cancels
	dm.cancels = make(map[string]context.CancelFunc)
	dm.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

// InFlight returns the number of running transfers
func (dm *DownloadManager) InFlight() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return len(dm.cancels)
}
