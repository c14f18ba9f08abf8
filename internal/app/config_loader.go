package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/kara-dl-go/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. KARADL_SERVER_PORT
const EnvPrefix = "KARADL"

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.kara-dl")
		v.AddConfigPath("/etc/kara-dl")
	}

	// Registering every key lets AutomaticEnv reach fields absent from the file
	for key, value := range configValues(config) {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// configValues flattens config into viper keys
func configValues(config *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host":                 config.Server.Host,
		"server.port":                 config.Server.Port,
		"download.base_dir":           config.Download.BaseDir,
		"download.max_retries":        config.Download.MaxRetries,
		"download.retry_delay":        config.Download.RetryDelay.String(),
		"download.concurrent_limit":   config.Download.ConcurrentLimit,
		"download.auto_start_workers": config.Download.AutoStartWorkers,
		"download.repositories":       config.Download.Repositories,
		"queue.database_path":         config.Queue.DatabasePath,
		"queue.check_interval":        config.Queue.CheckInterval.String(),
		"queue.sync_schedule":         config.Queue.SyncSchedule,
		"queue.bulk_page_size":        config.Queue.BulkPageSize,
		"repository.scheme":           config.Repository.Scheme,
		"repository.timeout":          config.Repository.Timeout.String(),
		"logging.level":               config.Logging.Level,
		"logging.format":              config.Logging.Format,
		"logging.output_path":         config.Logging.OutputPath,
		"metrics.enabled":             config.Metrics.Enabled,
		"metrics.path":                config.Metrics.Path,
	}
}

func expandPaths(config *domain.Config) {
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Queue.DatabasePath = expandPath(config.Queue.DatabasePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}
}

// expandPath expands environment variables and a leading ~ in path
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if strings.Contains(path, "$HOME") && os.Getenv("HOME") == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}
	return os.ExpandEnv(path)
}

func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.BaseDir == "" {
		return fmt.Errorf("download base directory not configured")
	}

	if config.Download.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	if config.Download.ConcurrentLimit < 1 {
		return fmt.Errorf("concurrent limit must be at least 1")
	}

	if config.Queue.DatabasePath == "" {
		return fmt.Errorf("queue database path not configured")
	}

	if config.Queue.CheckInterval <= 0 {
		return fmt.Errorf("queue check interval must be positive")
	}

	if config.Queue.BulkPageSize < 1 {
		return fmt.Errorf("bulk page size must be at least 1")
	}

	if config.Repository.Scheme != "http" && config.Repository.Scheme != "https" {
		return fmt.Errorf("repository scheme must be http or https, got %q", config.Repository.Scheme)
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range configValues(config) {
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
