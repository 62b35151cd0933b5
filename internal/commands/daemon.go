package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wilcoxadvisors/wilcox-advisors-backend/internal/scheduler"
)

func newDaemonCommand(opts *globalOptions) *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			sched := scheduler.New(a.reg, a.assets, a.log)
			if err := sched.Start(spec); err != nil {
				return err
			}
			defer sched.Stop()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop
			fmt.Println("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "schedule", "", "cron spec, default "+scheduler.DefaultSpec)

	return cmd
}

func newAuditCommand(opts *globalOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the tenant's audit trail, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer a.close()

			entries, err := a.audit.List(opts.tenant, limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s %-22s %-12s %s by %s  %s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.Action,
					e.EntityType, e.TargetID, e.ActorID, e.Details)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to show")

	return cmd
}
