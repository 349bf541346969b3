package cmd

import (
	"errors"
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dhcgn/nwsl/progress"
	"github.com/dhcgn/nwsl/runner"
	"github.com/dhcgn/nwsl/stats"
	"github.com/dhcgn/nwsl/subscribe"
)

func subscribersCmd() *cobra.Command {
	var mboxPath string

	cmd := &cobra.Command{
		Use:   "subscribers",
		Short: "Scan the inbox and print the derived subscriber list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inbox, closeInbox, err := buildInbox(mboxPath)
			if err != nil {
				return err
			}
			defer closeInbox()

			collector := stats.NewCollector()
			printer := progress.New(true)
			observer := subscribe.MultiObserver(collector.Observe, printer.Observe)

			r, err := runner.New(inbox, nil, observer, nil, slog.Default())
			if err != nil {
				return err
			}

			subscribers, err := r.Subscribers(cmd.Context())
			if err != nil {
				var parseErr *subscribe.ParseError
				if !errors.As(err, &parseErr) {
					return err
				}
				// Partial set: the printer already reported where the scan
				// stopped.
			}

			for _, addr := range subscribers.Addresses() {
				pterm.Println(addr)
			}

			summary := collector.Snapshot()
			slog.Debug("scan summary", summary.LogAttrs()...)
			printer.Summary(summary, subscribers.Len())
			return nil
		},
	}

	cmd.Flags().StringVar(&mboxPath, "mbox", "", "Derive subscribers from an exported .mbox archive instead of IMAP")
	return cmd
}
