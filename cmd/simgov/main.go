// -----------------------------------------------------------------------
// SimGov - Tick engine daemon and one-shot tick tooling
// -----------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/fame0528/TheSimGov-sub001/internal/app"
	"github.com/fame0528/TheSimGov-sub001/internal/common"
	"github.com/fame0528/TheSimGov-sub001/internal/models"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
	runTick      = flag.Bool("tick", false, "Run one tick and exit")
	catchupN     = flag.Int("catchup", 0, "Run N catchup ticks and exit")
	historyN     = flag.Int("history", 0, "Print the last N tick records and exit")
	dryRun       = flag.Bool("dry-run", false, "Compute tick results without advancing the clock")
	requestedBy  = flag.String("requested-by", "", "Actor id recorded on manual ticks")
	dataDir      = flag.String("data", "", "Data directory (overrides config)")
	logLevel     = flag.String("log-level", "", "Log level (overrides config)")
	verbose      = flag.Bool("verbose", false, "Per-processor logging (overrides config)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	// Parse command-line flags
	flag.Parse()

	// Handle version flag
	if *showVersion || *showVersionV {
		fmt.Printf("SimGov version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Validate final configuration
	// 4. Initialize logger
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("simgov.toml"); err == nil {
			configFiles = append(configFiles, "simgov.toml")
		} else if _, err := os.Stat("deployments/local/simgov.toml"); err == nil {
			// Fallback: check deployments/local for users running from project root
			configFiles = append(configFiles, "deployments/local/simgov.toml")
		}
	}

	// 1. Load configuration (default -> file1 -> file2 -> ... -> env -> CLI)
	// Later config files override earlier ones
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		// Use temporary logger for startup errors
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	// 2. Apply command-line flag overrides (highest priority)
	common.ApplyFlagOverrides(config, *dataDir, *logLevel, *verbose)

	// 3. Validate the resolved configuration
	if err := config.Validate(); err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	// 4. Initialize logger with final configuration
	logger = common.InitLogger(config)

	oneShot := *runTick || *catchupN > 0 || *historyN > 0

	// One-shot invocations never fire the scheduler
	if oneShot {
		config.Scheduler.Enabled = false
	}

	logger.Debug().
		Strs("config_files", configFiles).
		Str("badger_path", config.Storage.Badger.Path).
		Str("log_level", config.Logging.Level).
		Bool("scheduler_enabled", config.Scheduler.Enabled).
		Msg("Resolved configuration")

	// Initialize application
	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	// os.Exit skips defers, so one-shot runs close explicitly
	if oneShot {
		code := runOneShot(application)
		if err := application.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close application")
		}
		os.Exit(code)
	}

	defer application.Close()
	runDaemon(application)
}

// runOneShot executes a single -tick, -catchup, or -history invocation and
// returns the process exit code.
func runOneShot(application *app.App) int {
	ctx := context.Background()

	switch {
	case *historyN > 0:
		return printHistory(ctx, application, *historyN)

	case *catchupN > 0:
		opts := models.TickOptions{RequestedBy: *requestedBy, DryRun: *dryRun}
		out, err := application.Engine.RunCatchupTicks(ctx, *catchupN, opts)
		if err != nil {
			logger.Error().Err(err).Msg("Catchup run failed")
			fmt.Fprintf(os.Stderr, "catchup failed: %v\n", err)
			return 1
		}
		for _, result := range out.Results {
			printTickResult(result)
		}
		fmt.Printf("catchup: %d of %d ticks completed\n", out.Completed, out.Requested)
		if out.Aborted != "" {
			fmt.Printf("catchup aborted: %s\n", out.Aborted)
			return 1
		}
		return 0

	default:
		opts := models.TickOptions{RequestedBy: *requestedBy, DryRun: *dryRun}
		result, err := application.Engine.RunTick(ctx, opts)
		if err != nil {
			logger.Error().Err(err).Msg("Tick failed")
			fmt.Fprintf(os.Stderr, "tick failed: %v\n", err)
			return 1
		}
		printTickResult(result)
		if !result.Success {
			return 1
		}
		return 0
	}
}

// printTickResult writes a one-line human summary of a tick to stdout
func printTickResult(result *models.TickResult) {
	fmt.Printf("%s  year %d month %d (total %d)  processors=%d items=%d errors=%d success=%t (%dms)\n",
		result.TickID,
		result.GameTime.Year,
		result.GameTime.Month,
		result.GameTime.TotalMonths,
		len(result.Processors),
		result.TotalItemsProcessed,
		result.TotalErrors,
		result.Success,
		result.DurationMs,
	)
}

// printHistory writes the most recent tick records to stdout, newest first
func printHistory(ctx context.Context, application *app.App, limit int) int {
	records, err := application.Engine.GetHistory(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load tick history")
		fmt.Fprintf(os.Stderr, "history failed: %v\n", err)
		return 1
	}

	if len(records) == 0 {
		fmt.Println("no ticks recorded")
		return 0
	}

	for _, record := range records {
		line := fmt.Sprintf("%s  year %d month %d  %s  %s  started %s",
			record.TickID,
			record.GameTime.Year,
			record.GameTime.Month,
			record.Status,
			record.Trigger,
			record.StartedAt.Format("2006-01-02 15:04:05"),
		)
		if record.Result != nil {
			line += fmt.Sprintf("  items=%d errors=%d success=%t",
				record.Result.TotalItemsProcessed,
				record.Result.TotalErrors,
				record.Result.Success,
			)
		}
		if record.Error != "" {
			line += "  error: " + record.Error
		}
		fmt.Println(line)
	}
	return 0
}

// runDaemon keeps the engine resident until an interrupt arrives
func runDaemon(application *app.App) {
	common.PrintBanner(common.GetVersion())

	// Crash files land beside the service log
	logsDir := "logs"
	if logPath := common.GetLogFilePath(logger); logPath != "" {
		logsDir = filepath.Dir(logPath)
	}
	common.InstallCrashHandler(logsDir)
	defer common.RecoverWithCrashFile()

	gameTime, err := application.Engine.GetCurrentGameTime(context.Background())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read current game time")
	} else {
		logger.Info().
			Int("year", gameTime.Year).
			Int("month", gameTime.Month).
			Int("total_months", gameTime.TotalMonths).
			Msg("Simulation clock loaded")
	}

	if !config.Scheduler.Enabled {
		logger.Warn().Msg("Scheduler disabled - engine will idle until triggered externally")
	}

	logger.Info().Msg("SimGov ready - Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received, shutting down")
}
