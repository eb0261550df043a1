package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/goretain/internal/config"
)

var listPoliciesCmd = &cobra.Command{
	Use:   "list-policies",
	Short: "List all retention policies defined in configuration",
	Long: `List-policies displays every retention policy along with its
anonymization profile, if one is defined.

Example:
  goretain list-policies --config retention.yaml`,
	RunE: runListPolicies,
}

func init() {
	rootCmd.AddCommand(listPoliciesCmd)
}

func runListPolicies(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	categories := cfg.PolicyCategories()
	if len(categories) == 0 {
		cmd.Printf("No retention policies defined in %s\n", configFile)
		return nil
	}

	// Sort for consistent output
	sort.Strings(categories)

	cmd.Printf("Retention policies defined in %s:\n\n", configFile)

	width := columnWidth("Category", categories)
	cmd.Printf("%s  %14s  %16s  %s\n", pad("Category", width), "Retention", "Timestamp Col", "Anonymization")

	for _, category := range categories {
		policy := cfg.Policies[category]

		anonymization := "(none)"
		if profile, ok := cfg.Anonymization[category]; ok {
			anonymization = fmt.Sprintf("%d field(s)", len(profile.Fields))
		}

		cmd.Printf("%s  %13dd  %16s  %s\n",
			pad(category, width),
			policy.RetentionDays,
			policy.TimestampColumnOrDefault(),
			anonymization,
		)
	}

	cmd.Printf("\nTotal: %d polic(ies)\n", len(categories))
	return nil
}
