package domain

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Download   DownloadConfig   `mapstructure:"download"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir          string        `mapstructure:"base_dir"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryDelay       time.Duration `mapstructure:"retry_delay"`
	ConcurrentLimit  int           `mapstructure:"concurrent_limit"`
	AutoStartWorkers bool          `mapstructure:"auto_start_workers"`
	Repositories     []string      `mapstructure:"repositories"`
}

// MediasDir returns the directory holding finished media files
func (d DownloadConfig) MediasDir() string {
	return filepath.Join(d.BaseDir, "medias")
}

// TempDir returns the directory holding partial transfers
func (d DownloadConfig) TempDir() string {
	return filepath.Join(d.BaseDir, "temp")
}

// LogsDir returns the directory holding categorized log files
func (d DownloadConfig) LogsDir() string {
	return filepath.Join(d.BaseDir, "logs")
}

// QueueConfig contains queue-related configuration
type QueueConfig struct {
	DatabasePath  string        `mapstructure:"database_path"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	SyncSchedule  string        `mapstructure:"sync_schedule"` // cron expression, empty disables
	BulkPageSize  int           `mapstructure:"bulk_page_size"`
}

// RepositoryConfig contains settings for talking to remote karaoke repositories
type RepositoryConfig struct {
	Scheme  string        `mapstructure:"scheme"` // http or https
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// MetricsConfig contains Prometheus exporter configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 1337,
		},
		Download: DownloadConfig{
			BaseDir:          "$HOME/.kara-dl",
			MaxRetries:       3,
			RetryDelay:       10 * time.Second,
			ConcurrentLimit:  1,
			AutoStartWorkers: true,
			Repositories:     []string{"kara.moe"},
		},
		Queue: QueueConfig{
			DatabasePath:  "$HOME/.kara-dl/queue.db",
			CheckInterval: 5 * time.Second,
			SyncSchedule:  "",
			BulkPageSize:  400,
		},
		Repository: RepositoryConfig{
			Scheme:  "https",
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
