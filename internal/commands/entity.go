package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/registry"
)

func newEntityCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage legal entities",
	}
	cmd.AddCommand(newEntityCreateCommand(opts))
	cmd.AddCommand(newEntityListCommand(opts))
	cmd.AddCommand(newEntityDeactivateCommand(opts))
	return cmd
}

func newEntityCreateCommand(opts *globalOptions) *cobra.Command {
	var (
		name      string
		currency  string
		parent    string
		ownership string
		method    string
	)

	cmd := &cobra.Command{
		Use:   "create <code>",
		Short: "Create a legal entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			actor := opts.actor()
			p := registry.EntityParams{
				Code:     args[0],
				Name:     name,
				Currency: currency,
				Method:   model.ConsolidationMethod(method),
			}
			if parent != "" {
				pe, err := a.entityByCode(actor, parent)
				if err != nil {
					return err
				}
				p.ParentID = pe.ID
			}
			if ownership != "" {
				if p.Ownership, err = decimal.NewFromString(ownership); err != nil {
					return fmt.Errorf("parsing ownership: %w", err)
				}
			}

			e, err := a.reg.CreateEntity(actor, p)
			if err != nil {
				return err
			}
			fmt.Printf("Created entity %s (%s)\n", e.Code, e.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "entity name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&currency, "currency", "USD", "functional currency")
	cmd.Flags().StringVar(&parent, "parent", "", "parent entity code")
	cmd.Flags().StringVar(&ownership, "ownership", "", "ownership percent, default 100")
	cmd.Flags().StringVar(&method, "method", "full", "consolidation method")

	return cmd
}

func newEntityListCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tenant's entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			entities, err := a.reg.ListEntities(opts.actor())
			if err != nil {
				return err
			}
			for _, e := range entities {
				status := "active"
				if !e.Active {
					status = "inactive"
				}
				fmt.Printf("%-8s %-30s %s %s%% %s %s\n",
					e.Code, e.Name, e.Currency, e.Ownership, e.Method, status)
			}
			return nil
		},
	}
}

func newEntityDeactivateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <code>",
		Short: "Deactivate an entity (entities are never hard-deleted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			actor := opts.actor()
			e, err := a.entityByCode(actor, args[0])
			if err != nil {
				return err
			}
			if err := a.reg.DeactivateEntity(actor, e.ID); err != nil {
				return err
			}
			fmt.Printf("Deactivated entity %s\n", e.Code)
			return nil
		},
	}
}
