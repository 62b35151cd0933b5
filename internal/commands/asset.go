package commands

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/fixedassets"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

func newAssetCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Manage depreciable fixed assets",
	}
	cmd.AddCommand(newAssetCreateCommand(opts))
	cmd.AddCommand(newAssetListCommand(opts))
	cmd.AddCommand(newAssetScheduleCommand(opts))
	cmd.AddCommand(newAssetDisposeCommand(opts))
	return cmd
}

func newAssetCreateCommand(opts *globalOptions) *cobra.Command {
	var (
		entity     string
		cost       string
		acquired   string
		method     string
		lifeMonths int
		salvage    string
		expense    string
		accum      string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a depreciable asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			costDec, err := decimal.NewFromString(cost)
			if err != nil {
				return fmt.Errorf("parsing --cost: %w", err)
			}
			salvageDec := decimal.Zero
			if salvage != "" {
				if salvageDec, err = decimal.NewFromString(salvage); err != nil {
					return fmt.Errorf("parsing --salvage: %w", err)
				}
			}
			acquiredAt, err := parseCLIDate(acquired)
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
			asset, err := a.assets.CreateAsset(actor, fixedassets.AssetParams{
				EntityID:           e.ID,
				Name:               args[0],
				AcquisitionCost:    costDec,
				AcquiredAt:         acquiredAt,
				Method:             model.DepreciationMethod(method),
				UsefulLifeMonths:   lifeMonths,
				SalvageValue:       salvageDec,
				ExpenseAccount:     expense,
				AccumulatedAccount: accum,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created asset %s (%s)\n", asset.Name, asset.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity code (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVar(&cost, "cost", "", "acquisition cost (required)")
	_ = cmd.MarkFlagRequired("cost")
	cmd.Flags().StringVar(&acquired, "acquired", "", "acquisition date YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("acquired")
	cmd.Flags().IntVar(&lifeMonths, "life-months", 0, "useful life in months (required)")
	_ = cmd.MarkFlagRequired("life-months")
	cmd.Flags().StringVar(&method, "method", string(model.DepreciationStraightLine), "depreciation method")
	cmd.Flags().StringVar(&salvage, "salvage", "", "salvage value, default 0")
	cmd.Flags().StringVar(&expense, "expense-account", "", "expense account number")
	cmd.Flags().StringVar(&accum, "accumulated-account", "", "accumulated depreciation account number")

	return cmd
}

func newAssetListCommand(opts *globalOptions) *cobra.Command {
	var entity string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an entity's assets",
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
			assets, err := a.assets.ListAssets(actor, e.ID)
			if err != nil {
				return err
			}
			for _, asset := range assets {
				status := "active"
				if asset.Disposed {
					status = "disposed"
				}
				fmt.Printf("%-30s cost=%s book=%s %s %s\n",
					asset.Name, asset.AcquisitionCost, asset.BookValue, asset.Method, status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity code (required)")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}

func newAssetScheduleCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <asset-id>",
		Short: "Show an asset's depreciation schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			entries, err := a.assets.Schedule(opts.actor(), args[0])
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%d-%02d %10s  book after %10s  entry %s\n",
					e.Year, e.Month, e.Amount, e.BookValueAfter, e.JournalEntryID)
			}
			return nil
		},
	}
}

func newAssetDisposeCommand(opts *globalOptions) *cobra.Command {
	var dateStr string

	cmd := &cobra.Command{
		Use:   "dispose <asset-id>",
		Short: "Dispose an asset (terminal)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var disposedAt time.Time
			if dateStr != "" {
				var err error
				if disposedAt, err = parseCLIDate(dateStr); err != nil {
					return err
				}
			}

			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			asset, err := a.assets.DisposeAsset(opts.actor(), args[0], disposedAt)
			if err != nil {
				return err
			}
			fmt.Printf("Disposed asset %s\n", asset.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&dateStr, "date", "", "disposal date, default today")

	return cmd
}

func newDepreciateCommand(opts *globalOptions) *cobra.Command {
	var entity, asOfStr string

	cmd := &cobra.Command{
		Use:   "depreciate",
		Short: "Post monthly depreciation for an entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOf, err := parseCLIDate(asOfStr)
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
			n, err := a.assets.RunMonthlyDepreciation(actor, e.ID, asOf)
			if err != nil {
				return err
			}
			fmt.Printf("Posted depreciation for %d assets\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity code (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVar(&asOfStr, "as-of", time.Now().UTC().Format(cliDateLayout), "period to depreciate")

	return cmd
}
