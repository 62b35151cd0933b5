package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/consolidation"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

func newConsolidateCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Run and inspect consolidations",
	}
	cmd.AddCommand(newConsolidateRunCommand(opts))
	cmd.AddCommand(newConsolidateShowCommand(opts))
	return cmd
}

// parseMember parses a --member flag of the form
// code[:ownership[:method]], e.g. SUBA:80:proportional.
func parseMember(raw string) (code string, m model.ConsolidationMember, err error) {
	parts := strings.SplitN(raw, ":", 3)
	code = parts[0]
	if code == "" {
		return "", m, fmt.Errorf("member %q: entity code is required", raw)
	}
	if len(parts) > 1 && parts[1] != "" {
		if m.Ownership, err = decimal.NewFromString(parts[1]); err != nil {
			return "", m, fmt.Errorf("member %q: parsing ownership: %w", raw, err)
		}
	}
	if len(parts) > 2 {
		m.Method = model.ConsolidationMethod(parts[2])
	}
	return code, m, nil
}

func newConsolidateRunCommand(opts *globalOptions) *cobra.Command {
	var (
		entity     string
		year       int
		month      int
		currency   string
		rawMembers []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Consolidate member ledgers for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			actor := opts.actor()
			parent, err := a.entityByCode(actor, entity)
			if err != nil {
				return err
			}

			members := make([]model.ConsolidationMember, 0, len(rawMembers))
			for _, raw := range rawMembers {
				code, m, err := parseMember(raw)
				if err != nil {
					return err
				}
				me, err := a.entityByCode(actor, code)
				if err != nil {
					return err
				}
				m.EntityID = me.ID
				members = append(members, m)
			}

			c, err := a.consol.Run(actor, consolidation.RunParams{
				EntityID: parent.ID,
				Year:     year,
				Month:    month,
				Currency: currency,
				Members:  members,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Consolidation %s completed: %d eliminations\n", c.ID, len(c.Eliminations))
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "consolidated entity code (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().IntVar(&year, "year", 0, "period year (required)")
	_ = cmd.MarkFlagRequired("year")
	cmd.Flags().IntVar(&month, "month", 0, "period month (required)")
	_ = cmd.MarkFlagRequired("month")
	cmd.Flags().StringVar(&currency, "currency", "", "presentation currency, defaults to the entity's")
	cmd.Flags().StringArrayVar(&rawMembers, "member", nil, "member code[:ownership[:method]] (repeatable, required)")
	_ = cmd.MarkFlagRequired("member")

	return cmd
}

func newConsolidateShowCommand(opts *globalOptions) *cobra.Command {
	var entity string
	var year, month int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a period's consolidation snapshot",
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
			c, err := a.consol.Get(actor, e.ID, year, month)
			if err != nil {
				return err
			}

			fmt.Printf("Consolidation %s  %d-%02d  status=%s currency=%s\n",
				c.ID, c.Year, c.Month, c.Status, c.Currency)
			if c.Error != "" {
				fmt.Printf("error: %s\n", c.Error)
			}
			for _, el := range c.Eliminations {
				fmt.Printf("  eliminate %-18s %-6s %10s  %s\n",
					el.Category, el.AccountNumber, el.Amount, el.Description)
			}
			if c.Report != "" {
				var pretty json.RawMessage = []byte(c.Report)
				return printJSON(pretty)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "consolidated entity code (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().IntVar(&year, "year", 0, "period year (required)")
	_ = cmd.MarkFlagRequired("year")
	cmd.Flags().IntVar(&month, "month", 0, "period month (required)")
	_ = cmd.MarkFlagRequired("month")

	return cmd
}

func newRateCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Manage exchange rates",
	}
	cmd.AddCommand(newRateSetCommand(opts))
	return cmd
}

func newRateSetCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <from> <to> <date> <rate>",
		Short: "Store an exchange rate effective on a date",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseCLIDate(args[2])
			if err != nil {
				return err
			}
			rate, err := decimal.NewFromString(args[3])
			if err != nil {
				return fmt.Errorf("parsing rate: %w", err)
			}

			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.consol.SetExchangeRate(opts.actor(), args[0], args[1], date, rate); err != nil {
				return err
			}
			fmt.Printf("Stored %s/%s = %s on %s\n", args[0], args[1], rate, args[2])
			return nil
		},
	}
}
