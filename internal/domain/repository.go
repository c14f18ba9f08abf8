package domain

import "context"

// DownloadRepository defines the interface for download queue persistence
type DownloadRepository interface {
	// CreateBatch inserts all items in one transaction, all or none
	CreateBatch(ctx context.Context, items []*DownloadItem) error

	// FindByUUID finds a download by UUID, ErrNotFound if absent
	FindByUUID(ctx context.Context, uuid string) (*DownloadItem, error)

	// FindAll returns every download, most recent first
	FindAll(ctx context.Context) ([]*DownloadItem, error)

	// FindByStatus returns downloads in one status, most recent first
	FindByStatus(ctx context.Context, status DownloadStatus) ([]*DownloadItem, error)

	// UpdateStatus writes status on the row only if its current status is one of from.
	// It returns the number of rows changed (0 or 1).
	UpdateStatus(ctx context.Context, uuid string, status DownloadStatus, from []DownloadStatus) (int64, error)

	// Delete deletes a download by UUID and returns the number of rows removed
	Delete(ctx context.Context, uuid string) (int64, error)

	// DeleteAll removes every download
	DeleteAll(ctx context.Context) (int64, error)

	// ResetRunning moves every DL_RUNNING row back to DL_PLANNED
	ResetRunning(ctx context.Context) (int64, error)

	// DeleteTerminal removes every DL_DONE and DL_FAILED row
	DeleteTerminal(ctx context.Context) (int64, error)

	// GetStats returns queue statistics
	GetStats(ctx context.Context) (*QueueStats, error)
}
