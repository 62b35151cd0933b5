package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var opts globalOptions

	rootCmd := &cobra.Command{
		Use:     "advisory",
		Short:   "Multi-entity ledger and consolidation engine",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "advisory.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&opts.tenant, "tenant", "default", "tenant id")
	rootCmd.PersistentFlags().StringVar(&opts.user, "user", "cli", "acting user id")

	rootCmd.AddCommand(newInitCommand(&opts))
	rootCmd.AddCommand(newEntityCommand(&opts))
	rootCmd.AddCommand(newChartCommand(&opts))
	rootCmd.AddCommand(newJournalCommand(&opts))
	rootCmd.AddCommand(newReportCommand(&opts))
	rootCmd.AddCommand(newConsolidateCommand(&opts))
	rootCmd.AddCommand(newRateCommand(&opts))
	rootCmd.AddCommand(newAssetCommand(&opts))
	rootCmd.AddCommand(newDepreciateCommand(&opts))
	rootCmd.AddCommand(newAuditCommand(&opts))
	rootCmd.AddCommand(newDaemonCommand(&opts))

	return rootCmd
}
