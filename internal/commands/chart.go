package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/coa"
)

func newChartCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Manage charts of accounts",
	}
	cmd.AddCommand(newChartSeedCommand(opts))
	cmd.AddCommand(newChartExportCommand(opts))
	cmd.AddCommand(newChartImportCommand(opts))
	return cmd
}

// chart seed creates the standard chart for an entity and instantiates
// its live accounts in one step.
func newChartSeedCommand(opts *globalOptions) *cobra.Command {
	var entity, name string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the standard chart and its live accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			actor := opts.actor()
			e, err := a.entityByCode(actor, entity)
			if err != nil {
				return err
			}
			chart, err := a.charts.CreateDefaultChart(actor, e.ID, name)
			if err != nil {
				return err
			}
			n, err := a.charts.InstantiateAccounts(actor, chart.ID)
			if err != nil {
				return err
			}
			fmt.Printf("Created chart %q with %d accounts for %s\n", name, n, e.Code)
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity code (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVar(&name, "name", "Standard", "chart name")

	return cmd
}

func newChartExportCommand(opts *globalOptions) *cobra.Command {
	var entity, name string

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export a chart to CSV (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			actor := opts.actor()
			e, err := a.entityByCode(actor, entity)
			if err != nil {
				return err
			}
			chart, err := a.charts.GetChartByName(actor, e.ID, name)
			if err != nil {
				return err
			}

			out := os.Stdout
			if len(args) > 0 {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("creating file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return coa.WriteTemplates(out, chart.Templates)
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity code (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVar(&name, "name", "Standard", "chart name")

	return cmd
}

func newChartImportCommand(opts *globalOptions) *cobra.Command {
	var entity, name string
	var instantiate bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Create a chart from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()
			templates, err := coa.ReadTemplates(f)
			if err != nil {
				return err
			}

			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			actor := opts.actor()
			e, err := a.entityByCode(actor, entity)
			if err != nil {
				return err
			}
			chart, err := a.charts.CreateChartWithTemplates(actor, e.ID, name, templates)
			if err != nil {
				return err
			}
			if instantiate {
				n, err := a.charts.InstantiateAccounts(actor, chart.ID)
				if err != nil {
					return err
				}
				fmt.Printf("Imported chart %q (%d templates, %d accounts created)\n",
					name, len(templates), n)
				return nil
			}
			fmt.Printf("Imported chart %q (%d templates)\n", name, len(templates))
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity code (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVar(&name, "name", "Imported", "chart name")
	cmd.Flags().BoolVar(&instantiate, "instantiate", false, "also create live accounts")

	return cmd
}
