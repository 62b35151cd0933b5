package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/journal"
	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/model"
)

const cliDateLayout = "2006-01-02"

func parseCLIDate(s string) (time.Time, error) {
	d, err := time.Parse(cliDateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return d, nil
}

func newJournalCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Post, reverse and inspect journal entries",
	}
	cmd.AddCommand(newJournalPostCommand(opts))
	cmd.AddCommand(newJournalReverseCommand(opts))
	cmd.AddCommand(newJournalListCommand(opts))
	return cmd
}

// parseLine parses a --line flag of the form
// account:side:amount[:description], e.g. 1000:debit:500.
func parseLine(raw string) (journal.LineInput, error) {
	parts := strings.SplitN(raw, ":", 4)
	if len(parts) < 3 {
		return journal.LineInput{}, fmt.Errorf("line %q: want account:side:amount[:description]", raw)
	}
	amount, err := decimal.NewFromString(parts[2])
	if err != nil {
		return journal.LineInput{}, fmt.Errorf("line %q: parsing amount: %w", raw, err)
	}
	line := journal.LineInput{
		AccountNumber: parts[0],
		Side:          model.Side(strings.ToLower(parts[1])),
		Amount:        amount,
	}
	if len(parts) == 4 {
		line.Description = parts[3]
	}
	return line, nil
}

func newJournalPostCommand(opts *globalOptions) *cobra.Command {
	var (
		entity      string
		dateStr     string
		description string
		rawLines    []string
	)

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post a balanced journal entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := time.Parse(cliDateLayout, dateStr)
			if err != nil {
				return fmt.Errorf("parsing date: %w", err)
			}
			lines := make([]journal.LineInput, 0, len(rawLines))
			for _, raw := range rawLines {
				line, err := parseLine(raw)
				if err != nil {
					return err
				}
				lines = append(lines, line)
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
			entry, err := a.journal.PostEntry(actor, journal.PostParams{
				EntityID:    e.ID,
				Date:        date,
				Description: description,
				Lines:       lines,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Posted %s (%s)\n", entry.EntryNumber, entry.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity code (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVar(&dateStr, "date", time.Now().UTC().Format(cliDateLayout), "entry date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&description, "desc", "", "entry description")
	cmd.Flags().StringArrayVar(&rawLines, "line", nil, "entry line account:side:amount[:description] (repeatable)")
	_ = cmd.MarkFlagRequired("line")

	return cmd
}

func newJournalReverseCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <entry-id>",
		Short: "Reverse a posted entry with a mirrored correction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			entry, err := a.journal.ReverseEntry(opts.actor(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Reversed with %s (%s)\n", entry.EntryNumber, entry.ID)
			return nil
		},
	}
}

func newJournalListCommand(opts *globalOptions) *cobra.Command {
	var entity, fromStr, toStr string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an entity's journal entries",
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
			entries, err := a.journal.ListEntries(actor, e.ID, from, to)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				fmt.Printf("%s %s %-8s %10s %s  %s\n",
					entry.EntryNumber, entry.Date.Format(cliDateLayout),
					entry.Status, entry.Total, entry.ID, entry.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "entity code (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVar(&fromStr, "from", "1970-01-01", "start date")
	cmd.Flags().StringVar(&toStr, "to", time.Now().UTC().Format(cliDateLayout), "end date")

	return cmd
}
