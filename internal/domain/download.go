package domain

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DownloadStatus represents the current status of a queued download
type DownloadStatus string

const (
	StatusPlanned DownloadStatus = "DL_PLANNED"
	StatusRunning DownloadStatus = "DL_RUNNING"
	StatusDone    DownloadStatus = "DL_DONE"
	StatusFailed  DownloadStatus = "DL_FAILED"
)

// AllStatuses lists every status that may be persisted
var AllStatuses = []DownloadStatus{StatusPlanned, StatusRunning, StatusDone, StatusFailed}

// ParseDownloadStatus converts a raw string into a DownloadStatus.
// Any value outside the enumeration is rejected.
func ParseDownloadStatus(s string) (DownloadStatus, error) {
	status := DownloadStatus(s)
	if !status.Valid() {
		return "", NewValidationError("unknown download status %q", s)
	}
	return status, nil
}

// Valid reports whether the status is one of the four known values
func (s DownloadStatus) Valid() bool {
	switch s {
	case StatusPlanned, StatusRunning, StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal checks if the status is DL_DONE or DL_FAILED
func (s DownloadStatus) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Scan implements sql.Scanner. Unknown values stored in the database
// fail the read instead of leaking into the application.
func (s *DownloadStatus) Scan(value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return fmt.Errorf("download status is NULL")
	default:
		return fmt.Errorf("unsupported download status type %T", value)
	}

	parsed, err := ParseDownloadStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value implements driver.Valuer
func (s DownloadStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, NewValidationError("unknown download status %q", string(s))
	}
	return string(s), nil
}

// AllowedSources returns the statuses a row may be in to move to target.
// Re-queue to DL_PLANNED is allowed from anywhere.
func AllowedSources(target DownloadStatus) []DownloadStatus {
	switch target {
	case StatusPlanned:
		return AllStatuses
	case StatusRunning:
		return []DownloadStatus{StatusPlanned}
	case StatusDone, StatusFailed:
		return []DownloadStatus{StatusRunning}
	default:
		return nil
	}
}

// CanTransition checks if a download may move from one status to another
func CanTransition(from, to DownloadStatus) bool {
	for _, s := range AllowedSources(to) {
		if s == from {
			return true
		}
	}
	return false
}

// DownloadItem represents one requested media download
type DownloadItem struct {
	UUID       string         `json:"uuid" gorm:"column:pk_uuid;primaryKey"`
	Name       string         `json:"name" gorm:"column:name;not null"`
	Size       int64          `json:"size" gorm:"column:size"`
	Status     DownloadStatus `json:"status" gorm:"column:status;type:text;not null;index"`
	Repository string         `json:"repository" gorm:"column:repository"`
	KID        string         `json:"kid" gorm:"column:kid;index"`
	StartedAt  time.Time      `json:"started_at" gorm:"column:started_at;default:CURRENT_TIMESTAMP;index"`
}

// TableName specifies the table name for GORM
func (DownloadItem) TableName() string {
	return "download"
}

// IsTerminal checks if the download is in a terminal state
func (d *DownloadItem) IsTerminal() bool {
	return d.Status.IsTerminal()
}

// IsPending checks if the download is waiting for a worker
func (d *DownloadItem) IsPending() bool {
	return d.Status == StatusPlanned
}

// IsRunning checks if the download is currently being transferred
func (d *DownloadItem) IsRunning() bool {
	return d.Status == StatusRunning
}

// QueueStats represents download queue statistics
type QueueStats struct {
	Total   int64 `json:"total"`
	Planned int64 `json:"planned"`
	Running int64 `json:"running"`
	Done    int64 `json:"done"`
	Failed  int64 `json:"failed"`
}
