package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dhcgn/nwsl/config"
	"github.com/dhcgn/nwsl/imap"
	"github.com/dhcgn/nwsl/mbox"
	"github.com/dhcgn/nwsl/runner"
	"github.com/dhcgn/nwsl/secret"
	"github.com/dhcgn/nwsl/smtp"
)

// buildInbox wires the scan source: an mbox archive when a path is given,
// otherwise the configured IMAP mailbox. The returned close func zeroes any
// prompted credential.
func buildInbox(mboxPath string) (runner.Inbox, func(), error) {
	if mboxPath != "" {
		inbox, err := mbox.NewInbox(mboxPath, slog.Default())
		if err != nil {
			return nil, nil, err
		}
		return inbox, func() {}, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return imapInbox(cfg)
}

func imapInbox(cfg config.Config) (runner.Inbox, func(), error) {
	pass, err := secret.Resolve("NWSL_IMAP_PASS", fmt.Sprintf("IMAP password for %s at %s", cfg.IMAPUser, cfg.IMAPHost))
	if err != nil {
		return nil, nil, err
	}

	inbox, err := imap.NewInbox(imap.Options{
		Host:     cfg.IMAPHost,
		Port:     cfg.IMAPPort,
		Username: cfg.IMAPUser,
	}, pass.Reveal, slog.Default())
	if err != nil {
		pass.Zero()
		return nil, nil, err
	}
	return inbox, pass.Zero, nil
}

func smtpOutbox(cfg config.Config) (runner.Outbox, func(), error) {
	pass, err := secret.Resolve("NWSL_SMTP_PASS", fmt.Sprintf("SMTP password for %s at %s", cfg.SMTPUser, cfg.SMTPHost))
	if err != nil {
		return nil, nil, err
	}

	outbox, err := smtp.NewOutbox(smtp.Options{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
	}, pass.Reveal, slog.Default())
	if err != nil {
		pass.Zero()
		return nil, nil, err
	}
	return outbox, pass.Zero, nil
}
