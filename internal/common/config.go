package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment   string              `toml:"environment"` // "development" or "production"
	Server        ServerConfig        `toml:"server"`
	Bulk          BulkConfig          `toml:"bulk"`
	Storage       StorageConfig       `toml:"storage"`
	Logging       LoggingConfig       `toml:"logging"`
	Notifications NotificationsConfig `toml:"notifications"`
	WebSocket     WebSocketConfig     `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

// BulkConfig controls the bulk action engine
type BulkConfig struct {
	MaxConcurrentJobs int    `toml:"max_concurrent_jobs" validate:"min=1"` // Jobs allowed in RUNNING at once
	QueueSize         int    `toml:"queue_size" validate:"min=1"`          // Background jobs waiting for a slot
	DefaultListLimit  int    `toml:"default_list_limit" validate:"min=1"`  // Page size for job listings
	CleanupSchedule   string `toml:"cleanup_schedule"`                     // Standard 5-field cron expression, empty disables the sweeper
	Retention         string `toml:"retention"`                            // e.g., "168h" - age after which terminal jobs are swept
	ShutdownTimeout   string `toml:"shutdown_timeout"`                     // e.g., "30s" - grace period for running jobs
}

type StorageConfig struct {
	Badger   BadgerConfig `toml:"badger"`
	SeedFile string       `toml:"seed_file"` // Optional TOML file of guests/payments/inventory loaded at startup
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	InMemory       bool   `toml:"in_memory"`        // Keep all data in memory (nothing written to disk)
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// NotificationsConfig controls in-app notification delivery
type NotificationsConfig struct {
	RatePerSecond float64 `toml:"rate_per_second" validate:"gt=0"` // Sustained deliveries per second
	Burst         int     `toml:"burst" validate:"min=1"`
}

type WebSocketConfig struct {
	// Minimum interval between progress events per job. Started and finished events are never throttled.
	ProgressThrottle string `toml:"progress_throttle"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8086,
			Host: "localhost",
		},
		Bulk: BulkConfig{
			MaxConcurrentJobs: 5,
			QueueSize:         100,
			DefaultListLimit:  50,
			CleanupSchedule:   "0 * * * *",
			Retention:         "168h",
			ShutdownTimeout:   "30s",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Notifications: NotificationsConfig{
			RatePerSecond: 20,
			Burst:         5,
		},
		WebSocket: WebSocketConfig{
			ProgressThrottle: "250ms",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied separately with ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies BULKOPS_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("BULKOPS_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("BULKOPS_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("BULKOPS_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Bulk engine configuration
	if v := os.Getenv("BULKOPS_MAX_CONCURRENT_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Bulk.MaxConcurrentJobs = n
		}
	}
	if v := os.Getenv("BULKOPS_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Bulk.QueueSize = n
		}
	}
	if v := os.Getenv("BULKOPS_CLEANUP_SCHEDULE"); v != "" {
		config.Bulk.CleanupSchedule = v
	}
	if v := os.Getenv("BULKOPS_RETENTION"); v != "" {
		config.Bulk.Retention = v
	}

	// Storage configuration
	if path := os.Getenv("BULKOPS_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if v := os.Getenv("BULKOPS_BADGER_IN_MEMORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.Storage.Badger.InMemory = b
		}
	}
	if v := os.Getenv("BULKOPS_SEED_FILE"); v != "" {
		config.Storage.SeedFile = v
	}

	// Logging configuration
	if level := os.Getenv("BULKOPS_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if output := os.Getenv("BULKOPS_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitList(output)
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Bulk.CleanupSchedule != "" {
		if err := ValidateCleanupSchedule(c.Bulk.CleanupSchedule); err != nil {
			return fmt.Errorf("invalid configuration: bulk.cleanup_schedule: %w", err)
		}
	}

	durations := map[string]string{
		"bulk.retention":              c.Bulk.Retention,
		"bulk.shutdown_timeout":       c.Bulk.ShutdownTimeout,
		"websocket.progress_throttle": c.WebSocket.ProgressThrottle,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return fmt.Errorf("invalid configuration: %s must be a non-negative duration, got %q", name, value)
		}
	}

	if !c.Storage.Badger.InMemory && strings.TrimSpace(c.Storage.Badger.Path) == "" {
		return fmt.Errorf("invalid configuration: storage.badger.path is required unless in_memory is set")
	}

	return nil
}

// ValidateCleanupSchedule validates a standard 5-field cron expression
func ValidateCleanupSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// RetentionDuration returns the job retention period
func (b BulkConfig) RetentionDuration() time.Duration {
	return parseDurationOr(b.Retention, 7*24*time.Hour)
}

// ShutdownTimeoutDuration returns the grace period given to running jobs on shutdown
func (b BulkConfig) ShutdownTimeoutDuration() time.Duration {
	return parseDurationOr(b.ShutdownTimeout, 30*time.Second)
}

// ProgressThrottleDuration returns the minimum interval between progress events per job
func (w WebSocketConfig) ProgressThrottleDuration() time.Duration {
	return parseDurationOr(w.ProgressThrottle, 250*time.Millisecond)
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

func parseDurationOr(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return def
	}
	return d
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
