package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment" yaml:"environment"` // "development" or "production"
	Engine      EngineConfig    `toml:"engine" yaml:"engine"`
	Scheduler   SchedulerConfig `toml:"scheduler" yaml:"scheduler"`
	Storage     StorageConfig   `toml:"storage" yaml:"storage"`
	History     HistoryConfig   `toml:"history" yaml:"history"`
	Catchup     CatchupConfig   `toml:"catchup" yaml:"catchup"`
	Logging     LoggingConfig   `toml:"logging" yaml:"logging"`
	Audit       AuditConfig     `toml:"audit" yaml:"audit"`
}

// EngineConfig controls tick execution behavior
type EngineConfig struct {
	ContinueOnError bool `toml:"continue_on_error" yaml:"continue_on_error"` // Keep running later processors after a failure
	TimeoutMs       int  `toml:"timeout_ms" yaml:"timeout_ms" validate:"gt=0"`
	Verbose         bool `toml:"verbose" yaml:"verbose"` // Per-processor progress logging
}

// SchedulerConfig controls the optional automatic tick schedule
type SchedulerConfig struct {
	Enabled             bool   `toml:"enabled" yaml:"enabled"`
	TickSchedule        string `toml:"tick_schedule" yaml:"tick_schedule"`               // Cron format with seconds
	MaintenanceSchedule string `toml:"maintenance_schedule" yaml:"maintenance_schedule"` // Cron format with seconds; empty disables maintenance
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger" yaml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" yaml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup" yaml:"reset_on_startup"`
}

// HistoryConfig controls tick history retention
type HistoryConfig struct {
	KeepLast int `toml:"keep_last" yaml:"keep_last" validate:"gte=0"` // 0 keeps everything
}

// CatchupConfig bounds multi-month catchup runs
type CatchupConfig struct {
	MaxMonths int    `toml:"max_months" yaml:"max_months" validate:"gt=0"` // Upper bound on months per catchup request
	PaceEvery string `toml:"pace_every" yaml:"pace_every"`                 // e.g. "250ms"; empty runs unpaced
}

type LoggingConfig struct {
	Level      string   `toml:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Output     []string `toml:"output" yaml:"output"` // "stdout", "file"
	TimeFormat string   `toml:"time_format" yaml:"time_format"`
}

// AuditConfig controls the per-tick JSONL audit trail
type AuditConfig struct {
	Enabled    bool   `toml:"enabled" yaml:"enabled"`
	Path       string `toml:"path" yaml:"path"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups" validate:"gte=0"`
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in simgov.toml; technical parameters
// are hardcoded for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Engine: EngineConfig{
			ContinueOnError: false,
			TimeoutMs:       30000,
			Verbose:         false,
		},
		Scheduler: SchedulerConfig{
			Enabled:             false,
			TickSchedule:        "0 0 * * * *",  // Hourly, on the hour
			MaintenanceSchedule: "0 30 3 * * *", // Daily at 03:30
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/simgov",
				ResetOnStartup: false,
			},
		},
		History: HistoryConfig{
			KeepLast: 0,
		},
		Catchup: CatchupConfig{
			MaxMonths: 120,
			PaceEvery: "",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		Audit: AuditConfig{
			Enabled:    true,
			Path:       "./logs/tick-audit.jsonl",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files override
// earlier files. Priority: environment variables > last file > ... > first
// file > defaults. Format is chosen by extension: .yaml/.yml parse as YAML,
// everything else as TOML.
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

		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(data, config)
		default:
			err = toml.Unmarshal(data, config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment (highest priority: SIMGOV_ENV, fallback: GO_ENV)
	if env := os.Getenv("SIMGOV_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Engine configuration
	if timeoutMs := os.Getenv("SIMGOV_ENGINE_TIMEOUT_MS"); timeoutMs != "" {
		if t, err := strconv.Atoi(timeoutMs); err == nil {
			config.Engine.TimeoutMs = t
		}
	}
	if continueOnError := os.Getenv("SIMGOV_ENGINE_CONTINUE_ON_ERROR"); continueOnError != "" {
		if c, err := strconv.ParseBool(continueOnError); err == nil {
			config.Engine.ContinueOnError = c
		}
	}
	if verbose := os.Getenv("SIMGOV_ENGINE_VERBOSE"); verbose != "" {
		if v, err := strconv.ParseBool(verbose); err == nil {
			config.Engine.Verbose = v
		}
	}

	// Scheduler configuration
	if enabled := os.Getenv("SIMGOV_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if schedule := os.Getenv("SIMGOV_TICK_SCHEDULE"); schedule != "" {
		config.Scheduler.TickSchedule = schedule
	}
	if schedule := os.Getenv("SIMGOV_MAINTENANCE_SCHEDULE"); schedule != "" {
		config.Scheduler.MaintenanceSchedule = schedule
	}

	// Storage configuration
	if badgerPath := os.Getenv("SIMGOV_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// History configuration
	if keepLast := os.Getenv("SIMGOV_HISTORY_KEEP_LAST"); keepLast != "" {
		if k, err := strconv.Atoi(keepLast); err == nil {
			config.History.KeepLast = k
		}
	}

	// Catchup configuration
	if maxMonths := os.Getenv("SIMGOV_CATCHUP_MAX_MONTHS"); maxMonths != "" {
		if m, err := strconv.Atoi(maxMonths); err == nil {
			config.Catchup.MaxMonths = m
		}
	}

	// Logging configuration
	if level := os.Getenv("SIMGOV_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SIMGOV_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Audit configuration
	if enabled := os.Getenv("SIMGOV_AUDIT_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Audit.Enabled = e
		}
	}
	if path := os.Getenv("SIMGOV_AUDIT_PATH"); path != "" {
		config.Audit.Path = path
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, dataDir, logLevel string, verbose bool) {
	if dataDir != "" {
		config.Storage.Badger.Path = dataDir
	}
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	if verbose {
		config.Engine.Verbose = true
	}
}

// cronParser accepts the six-field format used throughout: seconds included.
var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule validates a cron schedule expression
func ValidateSchedule(schedule string) error {
	if _, err := cronParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// Validate checks struct tags and the cron schedules. Call after all
// override layers are applied.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			messages := make([]string, 0, len(validationErrors))
			for _, fieldErr := range validationErrors {
				messages = append(messages, fmt.Sprintf("%s failed %s validation", fieldErr.Namespace(), fieldErr.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(messages, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.Scheduler.Enabled {
		if _, err := cronParser.Parse(c.Scheduler.TickSchedule); err != nil {
			return fmt.Errorf("invalid tick schedule %q: %w", c.Scheduler.TickSchedule, err)
		}
		if c.Scheduler.MaintenanceSchedule != "" {
			if _, err := cronParser.Parse(c.Scheduler.MaintenanceSchedule); err != nil {
				return fmt.Errorf("invalid maintenance schedule %q: %w", c.Scheduler.MaintenanceSchedule, err)
			}
		}
	}

	if c.Catchup.PaceEvery != "" {
		if _, err := time.ParseDuration(c.Catchup.PaceEvery); err != nil {
			return fmt.Errorf("invalid catchup pace %q: %w", c.Catchup.PaceEvery, err)
		}
	}

	return nil
}
