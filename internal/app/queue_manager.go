package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/kara-dl-go/internal/domain"
	"github.com/yourusername/kara-dl-go/internal/metrics"
	"github.com/yourusername/kara-dl-go/pkg/logger"
)

// QueueManager owns the persisted download queue and its state machine
type QueueManager struct {
	repo        domain.DownloadRepository
	downloadMgr *DownloadManager
	config      *domain.QueueConfig
	events      *EventHub
	metrics     *metrics.Metrics
	multiLogger *logger.MultiLogger
	mu          sync.RWMutex
	running     bool
	stopChan    chan struct{}
	workerWg    sync.WaitGroup
}

// NewQueueManager creates a new queue manager. downloadMgr may be nil when
// no worker loop is needed; its outcomes are written back through this manager.
func NewQueueManager(
	repo domain.DownloadRepository,
	downloadMgr *DownloadManager,
	config *domain.QueueConfig,
	events *EventHub,
	m *metrics.Metrics,
	multiLogger *logger.MultiLogger,
) *QueueManager {
	qm := &QueueManager{
		repo:        repo,
		downloadMgr: downloadMgr,
		config:      config,
		events:      events,
		metrics:     m,
		multiLogger: multiLogger,
	}
	if downloadMgr != nil {
		downloadMgr.statuses = qm
	}
	return qm
}

func (qm *QueueManager) logEvent(event string, fields ...zap.Field) {
	if qm.multiLogger != nil {
		qm.multiLogger.LogQueueEvent(event, fields...)
	}
}

func (qm *QueueManager) logError(msg string, fields ...zap.Field) {
	if qm.multiLogger != nil {
		qm.multiLogger.LogAppError(msg, fields...)
	}
}

// Enqueue inserts items as DL_PLANNED in one atomic batch
func (qm *QueueManager) Enqueue(ctx context.Context, items []*domain.DownloadItem) error {
	if len(items) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(items))
	now := time.Now()
	for i, item := range items {
		if item == nil || item.UUID == "" {
			return domain.NewValidationError("item %d has no uuid", i)
		}
		if _, dup := seen[item.UUID]; dup {
			return domain.NewValidationError("duplicate uuid %s in batch", item.UUID)
		}
		seen[item.UUID] = struct{}{}

		item.Status = domain.StatusPlanned
		if item.StartedAt.IsZero() {
			item.StartedAt = now
		}
	}

	if err := qm.repo.CreateBatch(ctx, items); err != nil {
		return fmt.Errorf("failed to enqueue downloads: %w", err)
	}

	qm.metrics.RecordEnqueued(len(items))
	qm.logEvent("downloads_enqueued", zap.Int("count", len(items)))
	for _, item := range items {
		qm.events.Publish(domain.NewQueueEvent(domain.EventEnqueued, item.UUID, domain.StatusPlanned))
	}
	return nil
}

// ListAll returns every queue item, most recent first
func (qm *QueueManager) ListAll(ctx context.Context) ([]*domain.DownloadItem, error) {
	items, err := qm.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list downloads: %w", err)
	}
	return items, nil
}

// ListPending returns DL_PLANNED items, most recent first
func (qm *QueueManager) ListPending(ctx context.Context) ([]*domain.DownloadItem, error) {
	items, err := qm.repo.FindByStatus(ctx, domain.StatusPlanned)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending downloads: %w", err)
	}
	return items, nil
}

// GetOne returns a single item or an ErrNotFound error
func (qm *QueueManager) GetOne(ctx context.Context, uuid string) (*domain.DownloadItem, error) {
	return qm.repo.FindByUUID(ctx, uuid)
}

// UpdateStatus moves uuid to status if the state machine allows it.
// An unknown uuid is a silent no-op.
func (qm *QueueManager) UpdateStatus(ctx context.Context, uuid string, status domain.DownloadStatus) error {
	if !status.Valid() {
		return domain.NewValidationError("unknown status %q", status)
	}

	n, err := qm.repo.UpdateStatus(ctx, uuid, status, domain.AllowedSources(status))
	if err != nil {
		return fmt.Errorf("failed to update download status: %w", err)
	}

	if n == 0 {
		current, err := qm.repo.FindByUUID(ctx, uuid)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to update download status: %w", err)
		}
		return domain.NewTransitionError(current.Status, status)
	}

	// A caller moving a running item elsewhere takes over from the worker
	if status != domain.StatusRunning && qm.downloadMgr != nil {
		qm.downloadMgr.Cancel(uuid)
	}

	qm.metrics.RecordTransition(status)
	qm.logEvent("status_changed", zap.String("uuid", uuid), zap.String("status", string(status)))
	qm.events.Publish(domain.NewQueueEvent(domain.EventStatusChanged, uuid, status))
	return nil
}

// Claim atomically moves uuid from DL_PLANNED to DL_RUNNING.
// It reports false when the item is gone or another worker won.
func (qm *QueueManager) Claim(ctx context.Context, uuid string) (bool, error) {
	n, err := qm.repo.UpdateStatus(ctx, uuid, domain.StatusRunning, []domain.DownloadStatus{domain.StatusPlanned})
	if err != nil {
		return false, fmt.Errorf("failed to claim download: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	qm.metrics.RecordTransition(domain.StatusRunning)
	qm.logEvent("download_claimed", zap.String("uuid", uuid))
	qm.events.Publish(domain.NewQueueEvent(domain.EventStatusChanged, uuid, domain.StatusRunning))
	return true, nil
}

// Requeue puts an existing item back to DL_PLANNED
func (qm *QueueManager) Requeue(ctx context.Context, uuid string) (*domain.DownloadItem, error) {
	if _, err := qm.repo.FindByUUID(ctx, uuid); err != nil {
		return nil, err
	}
	if err := qm.UpdateStatus(ctx, uuid, domain.StatusPlanned); err != nil {
		return nil, err
	}
	return qm.repo.FindByUUID(ctx, uuid)
}

// Delete removes uuid regardless of status and stops its transfer
func (qm *QueueManager) Delete(ctx context.Context, uuid string) error {
	n, err := qm.repo.Delete(ctx, uuid)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("download", uuid)
	}

	if qm.downloadMgr != nil {
		qm.downloadMgr.Cancel(uuid)
	}

	qm.logEvent("download_deleted", zap.String("uuid", uuid))
	qm.events.Publish(domain.NewQueueEvent(domain.EventDeleted, uuid, ""))
	return nil
}

// EmptyAll removes every item and stops every transfer
func (qm *QueueManager) EmptyAll(ctx context.Context) error {
	n, err := qm.repo.DeleteAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to empty queue: %w", err)
	}

	if qm.downloadMgr != nil {
		qm.downloadMgr.CancelAll()
	}

	qm.logEvent("queue_emptied", zap.Int64("count", n))
	event := domain.NewQueueEvent(domain.EventEmptied, "", "")
	event.Count = n
	qm.events.Publish(event)
	return nil
}

// InitRecovery resets interrupted downloads to DL_PLANNED, then purges
// finished and failed ones. Running it twice is the same as running it once.
func (qm *QueueManager) InitRecovery(ctx context.Context) error {
	reset, err := qm.repo.ResetRunning(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset running downloads: %w", err)
	}

	purged, err := qm.repo.DeleteTerminal(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge finished downloads: %w", err)
	}

	qm.logEvent("queue_recovered", zap.Int64("reset", reset), zap.Int64("purged", purged))
	event := domain.NewQueueEvent(domain.EventRecovered, "", "")
	event.Count = reset + purged
	qm.events.Publish(event)
	return nil
}

// Stats returns queue statistics
func (qm *QueueManager) Stats(ctx context.Context) (*domain.QueueStats, error) {
	stats, err := qm.repo.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}
	return stats, nil
}

// Start starts the worker loop
func (qm *QueueManager) Start(ctx context.Context) error {
	if qm.downloadMgr == nil {
		return fmt.Errorf("queue manager has no download manager")
	}

	qm.mu.Lock()
	if qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager already running")
	}
	qm.running = true
	qm.stopChan = make(chan struct{})
	qm.mu.Unlock()

	qm.logEvent("queue_started")

	qm.workerWg.Add(1)
	go qm.processQueue(ctx)
	return nil
}

// Stop stops the worker loop and waits for running transfers to return
func (qm *QueueManager) Stop() error {
	qm.mu.Lock()
	if !qm.running {
		qm.mu.Unlock()
		return fmt.Errorf("queue manager not running")
	}
	qm.running = false
	close(qm.stopChan)
	qm.mu.Unlock()

	qm.logEvent("queue_stopped")
	qm.workerWg.Wait()
	return nil
}

// IsRunning returns whether the worker loop is running
func (qm *QueueManager) IsRunning() bool {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.running
}

func (qm *QueueManager) processQueue(ctx context.Context) {
	defer qm.workerWg.Done()

	// Transfers outlive a tick but not Stop
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	qm.mu.RLock()
	stopChan := qm.stopChan
	qm.mu.RUnlock()

	interval := qm.config.CheckInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		qm.dispatchPending(workCtx)

		select {
		case <-ctx.Done():
			qm.logEvent("queue_processor_stopped", zap.String("reason", "context_cancelled"))
			return
		case <-stopChan:
			qm.logEvent("queue_processor_stopped", zap.String("reason", "stop_signal"))
			return
		case <-ticker.C:
		}
	}
}

// dispatchPending claims pending items, oldest first, while worker slots are free
func (qm *QueueManager) dispatchPending(ctx context.Context) {
	pending, err := qm.ListPending(ctx)
	if err != nil {
		if ctx.Err() == nil {
			qm.logError("Failed to fetch pending downloads", zap.Error(err))
		}
		return
	}

	for i := len(pending) - 1; i >= 0; i-- {
		item := pending[i]
		if !qm.downloadMgr.TryAcquire() {
			return
		}

		claimed, err := qm.Claim(ctx, item.UUID)
		if err != nil || !claimed {
			qm.downloadMgr.Release()
			if err != nil {
				qm.logError("Failed to claim download", zap.String("uuid", item.UUID), zap.Error(err))
			}
			continue
		}
		item.Status = domain.StatusRunning

		qm.workerWg.Add(1)
		go func(item *domain.DownloadItem) {
			defer qm.workerWg.Done()
			defer qm.downloadMgr.Release()

			if err := qm.downloadMgr.ProcessDownload(ctx, item); err != nil {
				qm.logEvent("download_unsuccessful", zap.String("uuid", item.UUID), zap.Error(err))
				return
			}
			qm.logEvent("download_completed", zap.String("uuid", item.UUID))
		}(item)
	}
}
