package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// bulkRunner is the part of BulkDownloader the scheduler needs
type bulkRunner interface {
	Run(ctx context.Context, req BulkRequest) (*BulkResult, error)
}

// SyncScheduler runs a "missing" bulk pass for every configured repository
// on a cron schedule
type SyncScheduler struct {
	cron         *cron.Cron
	bulk         bulkRunner
	repositories []string
	schedule     string
	timeout      time.Duration
	logger       *zap.Logger
	mu           sync.Mutex
	running      bool

	// Cancelled by Stop so an in-progress pass ends with the process
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSyncScheduler creates a scheduler; an empty schedule disables it
func NewSyncScheduler(bulk bulkRunner, repositories []string, schedule string, logger *zap.Logger) *SyncScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &SyncScheduler{
		ctx:          ctx,
		cancel:       cancel,
		cron:         cron.New(),
		bulk:         bulk,
		repositories: repositories,
		schedule:     schedule,
		timeout:      time.Hour,
		logger:       logger,
	}
}

// Enabled reports whether a schedule is configured
func (s *SyncScheduler) Enabled() bool {
	return s.schedule != ""
}

// Start registers the sync job and starts the cron runner
func (s *SyncScheduler) Start() error {
	if !s.Enabled() {
		s.logger.Info("Repository sync schedule not configured")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.RunOnce); err != nil {
		return fmt.Errorf("failed to add sync job %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		zap.String("schedule", s.schedule),
		zap.Strings("repositories", s.repositories))
	return nil
}

// Stop cancels a running sync and waits for it to return
func (s *SyncScheduler) Stop() {
	s.cancel()
	if !s.Enabled() {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// RunOnce syncs every repository; overlapping runs are skipped
func (s *SyncScheduler) RunOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Previous repository sync still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	for _, repo := range s.repositories {
		if ctx.Err() != nil {
			s.logger.Warn("Repository sync interrupted", zap.Error(ctx.Err()))
			return
		}
		result, err := s.bulk.Run(ctx, BulkRequest{Repository: repo, Mode: BulkMissing})
		if err != nil {
			s.logger.Error("Repository sync failed", zap.String("repository", repo), zap.Error(err))
			continue
		}
		s.logger.Info("Repository sync completed",
			zap.String("repository", repo),
			zap.Int("enqueued", result.Enqueued),
			zap.Int("blocked", result.Blocked))
	}
}
