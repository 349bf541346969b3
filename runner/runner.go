package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/dhcgn/nwsl/compose"
	"github.com/dhcgn/nwsl/content"
	"github.com/dhcgn/nwsl/model"
	"github.com/dhcgn/nwsl/subscribe"
)

// Inbox lists every subscription-request message, in inbox order.
type Inbox interface {
	ListAllMessages(ctx context.Context) ([]model.Message, error)
}

// Outbox submits a composed message to the given envelope recipients.
type Outbox interface {
	SendMessage(ctx context.Context, from string, to []string, raw []byte) error
}

// ConfirmFunc asks the user whether to proceed with a send. It is only
// consulted on interactive runs.
type ConfirmFunc func(subject string, recipients int) (bool, error)

type Options struct {
	// Sender is the configured sender identity for both the From header and
	// the SMTP envelope.
	Sender string
	// Subject overrides the title derived from the content when non-empty.
	Subject string
	// DryRun suppresses the send entirely; the scan and composition still
	// happen.
	DryRun bool
	// Interactive marks the run as attached to a confirmation channel. It is
	// an explicit capability flag so the gate stays testable without a
	// terminal: non-interactive runs send without prompting.
	Interactive bool
}

// Report is what a run would have done or did.
type Report struct {
	Subject     string
	Subscribers []string
	ScanHalted  bool
	Sent        bool
}

// Runner drives one newsletter run: scan, fold, compose, gate, send. All of
// it on a single goroutine; the only blocking operations are the two
// collaborator round-trips.
type Runner struct {
	inbox    Inbox
	outbox   Outbox
	observer subscribe.Observer
	confirm  ConfirmFunc
	logger   *slog.Logger
}

func New(inbox Inbox, outbox Outbox, observer subscribe.Observer, confirm ConfirmFunc, logger *slog.Logger) (*Runner, error) {
	if inbox == nil {
		return nil, fmt.Errorf("inbox must not be nil")
	}
	return &Runner{
		inbox:    inbox,
		outbox:   outbox,
		observer: observer,
		confirm:  confirm,
		logger:   logger,
	}, nil
}

// Subscribers runs the scan only. A truncated scan returns the partial set
// alongside the *subscribe.ParseError that stopped it.
func (r *Runner) Subscribers(ctx context.Context) (*subscribe.Set, error) {
	messages, err := r.inbox.ListAllMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inbox messages: %w", err)
	}
	return subscribe.Derive(messages, r.observer)
}

// Send performs a full run for the given content pair. The content conflict
// check has already happened by the time a Pair exists, so nothing here can
// fail before the inbox scan except a nil outbox.
func (r *Runner) Send(ctx context.Context, pair content.Pair, opts Options) (Report, error) {
	if r.outbox == nil && !opts.DryRun {
		return Report{}, fmt.Errorf("outbox must not be nil")
	}

	subject := opts.Subject
	if subject == "" {
		subject = compose.Title(pair)
	}
	report := Report{Subject: subject}

	subscribers, err := r.Subscribers(ctx)
	if err != nil {
		var parseErr *subscribe.ParseError
		if !errors.As(err, &parseErr) {
			return report, err
		}
		// The truncated scan still yields a usable (partial) set; the
		// observer has already surfaced where it stopped.
		report.ScanHalted = true
		if r.logger != nil {
			r.logger.Warn("inbox scan stopped early", "err", parseErr)
		}
	}
	report.Subscribers = subscribers.Addresses()

	if subscribers.Len() == 0 {
		if r.logger != nil {
			r.logger.Info("no subscribers, nothing to send", "subject", subject)
		}
		return report, nil
	}

	raw, err := compose.Build(pair, compose.Options{From: opts.Sender, Subject: subject})
	if err != nil {
		return report, fmt.Errorf("compose message: %w", err)
	}

	if opts.DryRun {
		if r.logger != nil {
			r.logger.Info("dry run, send suppressed", "subject", subject, "recipients", subscribers.Len())
		}
		return report, nil
	}

	if opts.Interactive && r.confirm != nil {
		ok, err := r.confirm(subject, subscribers.Len())
		if err != nil {
			return report, fmt.Errorf("confirm send: %w", err)
		}
		if !ok {
			if r.logger != nil {
				r.logger.Info("send declined", "subject", subject)
			}
			return report, nil
		}
	}

	if err := r.outbox.SendMessage(ctx, senderAddress(opts.Sender), report.Subscribers, raw); err != nil {
		return report, fmt.Errorf("send newsletter: %w", err)
	}

	report.Sent = true
	if r.logger != nil {
		r.logger.Info("newsletter sent", "subject", subject, "recipients", subscribers.Len())
	}
	return report, nil
}

// senderAddress strips an optional display name down to the bare address the
// SMTP envelope wants.
func senderAddress(sender string) string {
	if addr, err := mail.ParseAddress(sender); err == nil {
		return addr.Address
	}
	return sender
}
