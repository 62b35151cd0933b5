package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/reporting"
)

func newReportCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run financial reports",
	}
	cmd.AddCommand(newTrialBalanceCommand(opts))
	cmd.AddCommand(newBalanceSheetCommand(opts))
	cmd.AddCommand(newIncomeStatementCommand(opts))
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTrialBalanceCommand(opts *globalOptions) *cobra.Command {
	var entity, fromStr, toStr, level string

	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Per-account debit/credit totals over a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse(cliDateLayout, fromStr)
			if err != nil {
				return fmt.Errorf("parsing --from: %w", err)
			}
			to, err := time.Parse(cliDateLayout, toStr)
			if err != nil {
				return fmt.Errorf("parsing --to: %w", err)
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
			tb, err := a.reports.TrialBalance(actor, e.ID, from, to, reporting.Level(level))
			if err != nil {
				return err
			}
			return printJSON(tb)
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity code (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVar(&fromStr, "from", "1970-01-01", "start date")
	cmd.Flags().StringVar(&toStr, "to", time.Now().UTC().Format(cliDateLayout), "end date")
	cmd.Flags().StringVar(&level, "level", string(reporting.LevelDetail), "detail or summary")

	return cmd
}

func newBalanceSheetCommand(opts *globalOptions) *cobra.Command {
	var entity, asOfStr string

	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Assets, liabilities and equity as of a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := time.Parse(cliDateLayout, asOfStr)
			if err != nil {
				return fmt.Errorf("parsing --as-of: %w", err)
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
			bs, err := a.reports.BalanceSheet(actor, e.ID, asOf)
			if err != nil {
				return err
			}
			return printJSON(bs)
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity code (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVar(&asOfStr, "as-of", time.Now().UTC().Format(cliDateLayout), "report date")

	return cmd
}

func newIncomeStatementCommand(opts *globalOptions) *cobra.Command {
	var entity, fromStr, toStr string

	cmd := &cobra.Command{
		Use:   "income-statement",
		Short: "Revenue minus expenses over a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse(cliDateLayout, fromStr)
			if err != nil {
				return fmt.Errorf("parsing --from: %w", err)
			}
			to, err := time.Parse(cliDateLayout, toStr)
			if err != nil {
				return fmt.Errorf("parsing --to: %w", err)
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
			is, err := a.reports.IncomeStatement(actor, e.ID, from, to)
			if err != nil {
				return err
			}
			return printJSON(is)
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity code (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVar(&fromStr, "from", "1970-01-01", "start date")
	cmd.Flags().StringVar(&toStr, "to", time.Now().UTC().Format(cliDateLayout), "end date")

	return cmd
}
