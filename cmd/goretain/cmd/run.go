package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goretain/internal/config"
	"github.com/dbsmedya/goretain/internal/database"
	"github.com/dbsmedya/goretain/internal/lock"
	"github.com/dbsmedya/goretain/internal/logger"
	"github.com/dbsmedya/goretain/internal/retention"
)

var runForce bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one retention cycle now",
	Long: `Run executes a full retention cycle: scan, legal-hold filtering,
anonymization, manifest creation, verified deletion, and compliance
reporting.

The cycle aborts before any deletion if legal holds cannot be verified or
the audit manifest cannot be persisted. Per-category failures are recorded
in that category's outcome and never stop sibling categories.

Example:
  goretain run --config retention.yaml`,
	RunE: runCycle,
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false,
		"Force execution even if the cycle lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(runCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Apply CLI overrides
	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.Workers)

	// Initialize logger
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infow("Starting retention cycle",
		"config", configFile,
		"policies", len(cfg.Policies),
	)

	// Create database manager
	dbManager := database.NewManager(cfg)

	// Setup context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to the compliance database
	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Ping(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	// Acquire the cycle lock: two concurrent cycles would race each
	// other's expected-vs-actual accounting.
	if !runForce {
		cycleLock := lock.NewCycleLock(dbManager.DB, cfg.Database.Database)
		if err := cycleLock.AcquireOrFail(ctx, cfg.Processing.LockTimeoutSeconds); err != nil {
			if errors.Is(err, lock.ErrLockTimeout) {
				return fmt.Errorf("a retention cycle is already running on another instance (use --force to override)")
			}
			return fmt.Errorf("failed to acquire cycle lock: %w", err)
		}
		defer cycleLock.ReleaseLock(context.Background())
		log.Info("Acquired advisory cycle lock")
	} else {
		log.Warn("Skipping advisory lock acquisition (--force flag used)")
	}

	// Create the pipeline runner
	runner, err := retention.NewRunner(dbManager.DB, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}
	if cfg.Notification.Enabled {
		runner.SetNotifier(&retention.LogNotifier{Logger: log})
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Received shutdown signal - completing current stage...")
		cancel()
	}()

	// One now snapshot for the whole cycle
	report, err := runner.Run(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("retention cycle failed: %w", err)
	}

	displayReport(report)
	return nil
}

func displayReport(report *retention.ComplianceReport) {
	fmt.Printf("\n=== Retention Cycle Complete ===\n")
	fmt.Printf("Status: %s\n", statusText(string(report.Status)))
	fmt.Printf("Manifest ID: %d\n", report.ManifestID)
	fmt.Printf("Tables Processed: %d\n", report.Summary.TablesProcessed)
	fmt.Printf("Records Deleted: %d\n", report.Summary.TotalRecordsDeleted)
	fmt.Printf("Successful: %d\n", report.Summary.SuccessfulDeletions)
	fmt.Printf("Failed: %d\n", report.Summary.FailedDeletions)
	fmt.Printf("Categories With Holds: %d (%d holds)\n",
		report.HoldSummary.CategoriesWithHolds, report.HoldSummary.TotalHolds)

	if len(report.DetailedResults) == 0 {
		return
	}

	categories := make([]string, 0, len(report.DetailedResults))
	for category := range report.DetailedResults {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	width := columnWidth("Category", categories)
	fmt.Printf("\n%s  %10s  %10s  %10s\n", pad("Category", width), "Expected", "Deleted", "Remaining")
	for _, category := range categories {
		outcome := report.DetailedResults[category]
		line := fmt.Sprintf("%s  %10d  %10d  %10d", pad(category, width),
			outcome.ExpectedDeletions, outcome.ActualDeletions, outcome.RemainingRecords)
		if outcome.Error != "" {
			line += "  " + outcome.Error
		}
		fmt.Println(line)
	}
}
