package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/kara-dl-go/internal/blacklist"
	"github.com/yourusername/kara-dl-go/internal/domain"
	"github.com/yourusername/kara-dl-go/pkg/logger"
)

// BlacklistService manages stored criteria and builds filters from them
type BlacklistService struct {
	repo        domain.BlacklistRepository
	multiLogger *logger.MultiLogger
}

// NewBlacklistService creates a new blacklist service
func NewBlacklistService(repo domain.BlacklistRepository, multiLogger *logger.MultiLogger) *BlacklistService {
	return &BlacklistService{repo: repo, multiLogger: multiLogger}
}

// AddCriterion validates and stores a new criterion
func (s *BlacklistService) AddCriterion(ctx context.Context, t domain.CriterionType, value string) (*domain.BlacklistCriterion, error) {
	criterion, err := domain.NewBlacklistCriterion(t, value)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateCriterion(ctx, criterion); err != nil {
		return nil, fmt.Errorf("failed to add blacklist criterion: %w", err)
	}

	if s.multiLogger != nil {
		s.multiLogger.LogQueueEvent("blacklist_criterion_added",
			zap.Int64("id", criterion.ID),
			zap.String("type", criterion.Type.String()),
			zap.String("value", criterion.Value))
	}
	return criterion, nil
}

// RemoveCriterion deletes a criterion, ErrNotFound if it does not exist
func (s *BlacklistService) RemoveCriterion(ctx context.Context, id int64) error {
	if err := s.repo.DeleteCriterion(ctx, id); err != nil {
		return err
	}

	if s.multiLogger != nil {
		s.multiLogger.LogQueueEvent("blacklist_criterion_removed", zap.Int64("id", id))
	}
	return nil
}

// ListCriteria returns every criterion ordered by id
func (s *BlacklistService) ListCriteria(ctx context.Context) ([]*domain.BlacklistCriterion, error) {
	criteria, err := s.repo.ListCriteria(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list blacklist criteria: %w", err)
	}
	return criteria, nil
}

// IsAllowed evaluates one candidate against the current criteria
func (s *BlacklistService) IsAllowed(ctx context.Context, c *domain.Candidate) (bool, error) {
	criteria, err := s.ListCriteria(ctx)
	if err != nil {
		return false, err
	}
	return blacklist.IsAllowed(c, criteria)
}

// NewPass snapshots the current criteria into a fresh memoizing pass
func (s *BlacklistService) NewPass(ctx context.Context) (*blacklist.Pass, error) {
	criteria, err := s.ListCriteria(ctx)
	if err != nil {
		return nil, err
	}

	filter, err := blacklist.NewFilterFromCriteria(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to compile blacklist criteria: %w", err)
	}
	return blacklist.NewPass(filter), nil
}
