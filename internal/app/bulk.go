package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/kara-dl-go/internal/domain"
	"github.com/yourusername/kara-dl-go/internal/metrics"
)

// BulkMode selects which catalog entries a bulk pass enqueues
type BulkMode string

const (
	// BulkMissing enqueues entries whose media is absent locally
	BulkMissing BulkMode = "missing"
	// BulkUpdate enqueues entries whose local media differs in size
	BulkUpdate BulkMode = "update"
)

// Valid reports whether m is a known mode
func (m BulkMode) Valid() bool {
	return m == BulkMissing || m == BulkUpdate
}

// BulkRequest describes one bulk pass
type BulkRequest struct {
	Repository string   `json:"repository"`
	Mode       BulkMode `json:"mode"`
}

// BulkResult summarizes one bulk pass
type BulkResult struct {
	Repository string   `json:"repository"`
	Mode       BulkMode `json:"mode"`
	Considered int      `json:"considered"`
	Blocked    int      `json:"blocked"`
	Skipped    int      `json:"skipped"`
	Enqueued   int      `json:"enqueued"`
}

// BulkDownloader walks a repository catalog and enqueues what is missing
// or outdated, minus blacklisted entries
type BulkDownloader struct {
	source    domain.CandidateSource
	media     domain.MediaStore
	queue     *QueueManager
	blacklist *BlacklistService
	pageSize  int
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewBulkDownloader creates a new bulk downloader
func NewBulkDownloader(
	source domain.CandidateSource,
	media domain.MediaStore,
	queue *QueueManager,
	blacklistSvc *BlacklistService,
	pageSize int,
	m *metrics.Metrics,
	logger *zap.Logger,
) *BulkDownloader {
	if pageSize <= 0 {
		pageSize = 400
	}
	return &BulkDownloader{
		source:    source,
		media:     media,
		queue:     queue,
		blacklist: blacklistSvc,
		pageSize:  pageSize,
		metrics:   m,
		logger:    logger,
	}
}

// Run executes one bulk pass. Criteria are read once at the start, so
// changes made during the pass apply to the next one.
func (b *BulkDownloader) Run(ctx context.Context, req BulkRequest) (*BulkResult, error) {
	if req.Repository == "" {
		return nil, domain.NewValidationError("repository is required")
	}
	if req.Mode == "" {
		req.Mode = BulkMissing
	}
	if !req.Mode.Valid() {
		return nil, domain.NewValidationError("unknown bulk mode %q", req.Mode)
	}

	pass, err := b.blacklist.NewPass(ctx)
	if err != nil {
		return nil, err
	}

	// Entries already waiting or transferring are not queued twice
	existing, err := b.queue.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	queued := make(map[string]struct{}, len(existing))
	for _, item := range existing {
		if !item.IsTerminal() && item.KID != "" {
			queued[item.KID] = struct{}{}
		}
	}

	result := &BulkResult{Repository: req.Repository, Mode: req.Mode}

	for from := 0; ; from += b.pageSize {
		page, err := b.source.SearchKaras(ctx, req.Repository, from, b.pageSize)
		if err != nil {
			return result, fmt.Errorf("failed to list %s from %d: %w", req.Repository, from, err)
		}

		batch := make([]*domain.DownloadItem, 0, len(page.Candidates))
		for i := range page.Candidates {
			c := &page.Candidates[i]
			result.Considered++

			if !b.wanted(req.Mode, c) {
				result.Skipped++
				continue
			}
			if !pass.Allowed(c) {
				result.Blocked++
				continue
			}
			if _, dup := queued[c.KID]; dup && c.KID != "" {
				result.Skipped++
				continue
			}

			item := c.ToDownloadItem(uuid.New().String())
			if item.Repository == "" {
				item.Repository = req.Repository
			}
			batch = append(batch, &item)
			if c.KID != "" {
				queued[c.KID] = struct{}{}
			}
		}

		if len(batch) > 0 {
			if err := b.queue.Enqueue(ctx, batch); err != nil {
				return result, err
			}
			result.Enqueued += len(batch)
		}

		if len(page.Candidates) == 0 || len(page.Candidates) < b.pageSize || from+len(page.Candidates) >= page.Total {
			break
		}
	}

	b.metrics.RecordBlocked(result.Blocked)
	b.logger.Info("Bulk pass finished",
		zap.String("repository", result.Repository),
		zap.String("mode", string(result.Mode)),
		zap.Int("considered", result.Considered),
		zap.Int("blocked", result.Blocked),
		zap.Int("skipped", result.Skipped),
		zap.Int("enqueued", result.Enqueued),
		zap.Int("verdict_cache_hits", pass.CacheHits()))
	return result, nil
}

func (b *BulkDownloader) wanted(mode BulkMode, c *domain.Candidate) bool {
	if c.MediaFile == "" {
		return false
	}
	size, exists := b.media.Stat(c.MediaFile)
	switch mode {
	case BulkUpdate:
		return exists && c.MediaSize > 0 && size != c.MediaSize
	default:
		return !exists
	}
}
