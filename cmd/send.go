package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dhcgn/nwsl/config"
	"github.com/dhcgn/nwsl/content"
	"github.com/dhcgn/nwsl/progress"
	"github.com/dhcgn/nwsl/runner"
	"github.com/dhcgn/nwsl/stats"
	"github.com/dhcgn/nwsl/subscribe"
)

const previewLength = 300

func sendCmd() *cobra.Command {
	var (
		subject  string
		dryRun   bool
		mboxPath string
	)

	cmd := &cobra.Command{
		Use:   "send FILE [ALTERNATIVE]",
		Short: "Send the content at the given path(s) to all subscribers",
		Long:  "Send reads one or two documents, classifies them as HTML or plain text, derives the current subscriber set from the inbox and sends the newsletter. With two documents exactly one must be HTML.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Classify before touching config or network so a content
			// conflict never costs a login.
			docs := make([]string, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read content file: %w", err)
				}
				docs = append(docs, string(data))
			}

			pair, err := content.Select(docs...)
			if err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			var inbox runner.Inbox
			var closeInbox func()
			if mboxPath != "" {
				inbox, closeInbox, err = buildInbox(mboxPath)
			} else {
				inbox, closeInbox, err = imapInbox(cfg)
			}
			if err != nil {
				return err
			}
			defer closeInbox()

			var outbox runner.Outbox
			if !dryRun {
				var closeOutbox func()
				outbox, closeOutbox, err = smtpOutbox(cfg)
				if err != nil {
					return err
				}
				defer closeOutbox()
			}

			collector := stats.NewCollector()
			printer := progress.New(true)
			observer := subscribe.MultiObserver(collector.Observe, printer.Observe)

			r, err := runner.New(inbox, outbox, observer, confirmSend(pair), slog.Default())
			if err != nil {
				return err
			}

			report, err := r.Send(cmd.Context(), pair, runner.Options{
				Sender:      cfg.Sender,
				Subject:     subject,
				DryRun:      dryRun,
				Interactive: term.IsTerminal(int(os.Stdin.Fd())),
			})
			if err != nil {
				return err
			}

			summary := collector.Snapshot()
			slog.Debug("scan summary", summary.LogAttrs()...)
			printer.Summary(summary, len(report.Subscribers))
			printReport(report, dryRun)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&subject, "subject", "", "Subject line (default: title derived from the content)")
	flags.BoolVar(&dryRun, "dry-run", false, "Scan and compose but do not send anything")
	flags.StringVar(&mboxPath, "mbox", "", "Derive subscribers from an exported .mbox archive instead of IMAP")
	return cmd
}

// confirmSend previews the outgoing content and asks for explicit approval.
// Only consulted on interactive runs; piped invocations send immediately.
func confirmSend(pair content.Pair) runner.ConfirmFunc {
	return func(subject string, recipients int) (bool, error) {
		body := pair.Plain
		if body == "" {
			body = pair.HTML
		}

		pterm.Println()
		pterm.Info.Printfln("Want to send out %q to %d subscriber(s):", subject, recipients)
		pterm.Println()
		pterm.Println(truncate(body, previewLength))
		if pair.Plain != "" && pair.HTML != "" {
			pterm.Println()
			pterm.Info.Println("HTML body:")
			pterm.Println(truncate(pair.HTML, previewLength))
		}
		pterm.Println()

		return pterm.DefaultInteractiveConfirm.Show("Do you want to proceed?")
	}
}

func printReport(report runner.Report, dryRun bool) {
	switch {
	case report.Sent:
		pterm.Success.Printfln("Sent %q to %d subscriber(s)", report.Subject, len(report.Subscribers))
	case len(report.Subscribers) == 0:
		pterm.Warning.Printfln("No subscribers; did not send %q", report.Subject)
	case dryRun:
		pterm.Info.Printfln("Would have sent %q to %d subscriber(s)", report.Subject, len(report.Subscribers))
	default:
		pterm.Info.Printfln("Did not send %q", report.Subject)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + " ..."
}
