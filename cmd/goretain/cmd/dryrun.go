package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goretain/internal/config"
	"github.com/dbsmedya/goretain/internal/database"
	"github.com/dbsmedya/goretain/internal/logger"
	"github.com/dbsmedya/goretain/internal/retention"
)

var dryrunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "Preview a retention cycle without making changes",
	Long: `Dry-run executes the scan and legal-hold filter stages and reports
which categories would be deleted and which are excluded, without
anonymizing, creating a manifest, or deleting anything.

Example:
  goretain dry-run --config retention.yaml`,
	RunE: runDryrun,
}

func init() {
	rootCmd.AddCommand(dryrunCmd)
}

func runDryrun(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	overrides := GetCLIOverrides()
	cfg.ApplyOverrides(overrides.LogLevel, overrides.LogFormat, overrides.Workers)

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	dbManager := database.NewManager(cfg)
	ctx := context.Background()

	if err := dbManager.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbManager.Close()

	runner, err := retention.NewRunner(dbManager.DB, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	preview, err := runner.Preview(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("dry-run failed: %w", err)
	}

	displayPreview(preview, cfg)
	return nil
}

func displayPreview(preview *retention.Preview, cfg *config.Config) {
	fmt.Printf("\n=== Dry-Run Retention Plan ===\n\n")
	fmt.Printf("Scan time: %s\n", preview.ScanTime.Format(time.RFC3339))
	fmt.Printf("Policies: %d\n", len(cfg.Policies))
	fmt.Printf("Expired candidates: %d\n", preview.Candidates.Len())
	fmt.Printf("Categories under hold: %d\n\n", len(preview.Holds))

	if preview.Candidates.Len() == 0 {
		fmt.Println("No expired records found. Nothing would be deleted.")
		return
	}

	var names []string
	for el := preview.Candidates.Front(); el != nil; el = el.Next() {
		names = append(names, el.Key)
	}
	width := columnWidth("Category", names)

	fmt.Printf("%s  %10s  %14s  %s\n", pad("Category", width), "Expired", "Retention", "Action")
	for el := preview.Candidates.Front(); el != nil; el = el.Next() {
		record := el.Value

		var action string
		if _, held := preview.Holds[el.Key]; held {
			action = statusText("HELD")
		} else if _, hasProfile := cfg.Anonymization[el.Key]; hasProfile {
			action = "anonymize + delete"
		} else {
			action = "delete"
		}

		fmt.Printf("%s  %10d  %13dd  %s\n", pad(el.Key, width),
			record.ExpiredCount, record.RetentionDays, action)
	}

	fmt.Printf("\nEligible for deletion: %d categor(ies)\n", preview.Eligible.Len())
	fmt.Println("\n=== End of Dry-Run ===")
	fmt.Println("\nNo data was modified. Use 'run' to execute.")
}
