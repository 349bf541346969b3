package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/emersion/go-sasl"
	smtplib "github.com/emersion/go-smtp"
)

type Options struct {
	Host               string
	Port               int
	Username           string
	InsecureSkipVerify bool
}

// Outbox submits composed newsletters to an SMTP relay over implicit TLS.
// One connection per send; a failed submission is surfaced, not retried.
type Outbox struct {
	opts     Options
	password func() string
	logger   *slog.Logger
}

func NewOutbox(opts Options, password func() string, logger *slog.Logger) (*Outbox, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("smtp host is empty")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("smtp port must be positive")
	}
	if opts.Username == "" {
		return nil, fmt.Errorf("smtp user is empty")
	}
	if password == nil {
		return nil, fmt.Errorf("password source must not be nil")
	}
	return &Outbox{opts: opts, password: password, logger: logger}, nil
}

// SendMessage authenticates and submits raw to every recipient in one
// transaction. Recipients are envelope-only; the message headers are taken
// as-is from raw.
func (o *Outbox) SendMessage(ctx context.Context, from string, to []string, raw []byte) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}

	address := net.JoinHostPort(o.opts.Host, strconv.Itoa(o.opts.Port))
	client, err := smtplib.DialTLS(address, &tls.Config{
		ServerName:         o.opts.Host,
		InsecureSkipVerify: o.opts.InsecureSkipVerify,
	})
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", address, err)
	}
	defer client.Close()

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})
	defer stopClose()

	if err := client.Auth(sasl.NewPlainClient("", o.opts.Username, o.password())); err != nil {
		return fmt.Errorf("smtp login failed: %w", err)
	}

	if err := client.SendMail(from, to, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	if o.logger != nil {
		o.logger.Debug("message submitted", "address", address, "from", from, "recipients", len(to))
	}

	return client.Quit()
}
