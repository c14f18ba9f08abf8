package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yourusername/kara-dl-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteRepository implements DownloadRepository and BlacklistRepository using SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository opens (or creates) the queue database at dbPath
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := dbPath + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time keeps conditional updates serialized
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.DownloadItem{}, &domain.BlacklistCriterion{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// CreateBatch inserts all items in a single transaction
func (r *SQLiteRepository) CreateBatch(ctx context.Context, items []*domain.DownloadItem) error {
	if len(items) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if item.StartedAt.IsZero() {
				item.StartedAt = time.Now()
			}
			if err := tx.Create(item).Error; err != nil {
				return fmt.Errorf("failed to insert download %s: %w", item.UUID, err)
			}
		}
		return nil
	})
}

// FindByUUID finds a download by UUID
func (r *SQLiteRepository) FindByUUID(ctx context.Context, uuid string) (*domain.DownloadItem, error) {
	var item domain.DownloadItem
	err := r.db.WithContext(ctx).First(&item, "pk_uuid = ?", uuid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("download", uuid)
		}
		return nil, err
	}
	return &item, nil
}

// FindAll returns every download, most recent first
func (r *SQLiteRepository) FindAll(ctx context.Context) ([]*domain.DownloadItem, error) {
	var items []*domain.DownloadItem
	err := r.db.WithContext(ctx).
		Order("started_at DESC, rowid DESC").
		Find(&items).Error
	return items, err
}

// FindByStatus returns downloads in one status, most recent first
func (r *SQLiteRepository) FindByStatus(ctx context.Context, status domain.DownloadStatus) ([]*domain.DownloadItem, error) {
	var items []*domain.DownloadItem
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("started_at DESC, rowid DESC").
		Find(&items).Error
	return items, err
}

// UpdateStatus writes status only when the row is currently in one of from
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, uuid string, status domain.DownloadStatus, from []domain.DownloadStatus) (int64, error) {
	if len(from) == 0 {
		return 0, nil
	}

	result := r.db.WithContext(ctx).
		Model(&domain.DownloadItem{}).
		Where("pk_uuid = ? AND status IN ?", uuid, from).
		Update("status", status)
	return result.RowsAffected, result.Error
}

// Delete deletes a download by UUID
func (r *SQLiteRepository) Delete(ctx context.Context, uuid string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&domain.DownloadItem{}, "pk_uuid = ?", uuid)
	return result.RowsAffected, result.Error
}

// DeleteAll removes every download
func (r *SQLiteRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.DownloadItem{})
	return result.RowsAffected, result.Error
}

// ResetRunning moves interrupted downloads back to DL_PLANNED
func (r *SQLiteRepository) ResetRunning(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.DownloadItem{}).
		Where("status = ?", domain.StatusRunning).
		Update("status", domain.StatusPlanned)
	return result.RowsAffected, result.Error
}

// DeleteTerminal removes finished and failed downloads
func (r *SQLiteRepository) DeleteTerminal(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ?", []domain.DownloadStatus{domain.StatusDone, domain.StatusFailed}).
		Delete(&domain.DownloadItem{})
	return result.RowsAffected, result.Error
}

// GetStats returns queue statistics
func (r *SQLiteRepository) GetStats(ctx context.Context) (*domain.QueueStats, error) {
	stats := &domain.QueueStats{}
	db := r.db.WithContext(ctx)

	if err := db.Model(&domain.DownloadItem{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status string
		Count  int64
	}{}

	if err := db.Model(&domain.DownloadItem{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch domain.DownloadStatus(sc.Status) {
		case domain.StatusPlanned:
			stats.Planned = sc.Count
		case domain.StatusRunning:
			stats.Running = sc.Count
		case domain.StatusDone:
			stats.Done = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		}
	}

	return stats, nil
}

// CreateCriterion stores a criterion and fills in its ID
func (r *SQLiteRepository) CreateCriterion(ctx context.Context, criterion *domain.BlacklistCriterion) error {
	return r.db.WithContext(ctx).Create(criterion).Error
}

// FindCriterion finds a criterion by ID
func (r *SQLiteRepository) FindCriterion(ctx context.Context, id int64) (*domain.BlacklistCriterion, error) {
	var criterion domain.BlacklistCriterion
	err := r.db.WithContext(ctx).First(&criterion, "pk_id_dl_blcriteria = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("blacklist criterion", id)
		}
		return nil, err
	}
	return &criterion, nil
}

// DeleteCriterion removes a criterion by ID
func (r *SQLiteRepository) DeleteCriterion(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&domain.BlacklistCriterion{}, "pk_id_dl_blcriteria = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("blacklist criterion", id)
	}
	return nil
}

// ListCriteria returns every criterion in insertion order
func (r *SQLiteRepository) ListCriteria(ctx context.Context) ([]*domain.BlacklistCriterion, error) {
	var criteria []*domain.BlacklistCriterion
	err := r.db.WithContext(ctx).Order("pk_id_dl_blcriteria ASC").Find(&criteria).Error
	return criteria, err
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
