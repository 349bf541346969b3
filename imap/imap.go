package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strconv"

	imapv2 "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/dhcgn/nwsl/model"
)

type Options struct {
	Host               string
	Port               int
	Username           string
	InsecureSkipVerify bool
	Mailbox            string
}

// Inbox lists subscription-request messages from an IMAP mailbox. Each call
// opens a fresh session; nothing is cached between runs.
type Inbox struct {
	opts     Options
	password func() string
	logger   *slog.Logger
}

// NewInbox validates the connection options. The password is supplied lazily
// so the prompted credential stays scoped to the network call.
func NewInbox(opts Options, password func() string, logger *slog.Logger) (*Inbox, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("imap host is empty")
	}
	if opts.Port <= 0 {
		return nil, fmt.Errorf("imap port must be positive")
	}
	if opts.Username == "" {
		return nil, fmt.Errorf("imap user is empty")
	}
	if password == nil {
		return nil, fmt.Errorf("password source must not be nil")
	}
	return &Inbox{opts: opts, password: password, logger: logger}, nil
}

// ListAllMessages logs in, selects the mailbox read-only and fetches the
// envelope of every message, in mailbox order. Any protocol failure is fatal
// to the run; there is no retry.
func (in *Inbox) ListAllMessages(ctx context.Context) ([]model.Message, error) {
	client, cleanup, err := in.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	selected, err := client.Select(in.mailbox(), &imapv2.SelectOptions{ReadOnly: true}).Wait()
	if err != nil {
		return nil, fmt.Errorf("select mailbox %s: %w", in.mailbox(), err)
	}

	if in.logger != nil {
		in.logger.Debug("mailbox selected", "mailbox", in.mailbox(), "messages", selected.NumMessages)
	}
	if selected.NumMessages == 0 {
		return nil, nil
	}

	var seqSet imapv2.SeqSet
	seqSet.AddRange(1, selected.NumMessages)

	fetchCmd := client.Fetch(seqSet, &imapv2.FetchOptions{Envelope: true})
	defer fetchCmd.Close()

	type numbered struct {
		seq uint32
		msg model.Message
	}
	var fetched []numbered

	for {
		data := fetchCmd.Next()
		if data == nil {
			break
		}
		buf, err := data.Collect()
		if err != nil {
			return nil, fmt.Errorf("collect message %d: %w", data.SeqNum, err)
		}
		fetched = append(fetched, numbered{seq: buf.SeqNum, msg: messageFromEnvelope(buf.Envelope)})
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetch envelopes: %w", err)
	}

	// The scan is order-sensitive, so pin the result to sequence-number
	// order even if responses arrived interleaved.
	sort.Slice(fetched, func(i, j int) bool { return fetched[i].seq < fetched[j].seq })

	messages := make([]model.Message, len(fetched))
	for i, f := range fetched {
		messages[i] = f.msg
	}
	return messages, nil
}

func (in *Inbox) dial(ctx context.Context) (*imapclient.Client, func(), error) {
	address := net.JoinHostPort(in.opts.Host, strconv.Itoa(in.opts.Port))
	options := &imapclient.Options{
		TLSConfig: &tls.Config{
			ServerName:         in.opts.Host,
			InsecureSkipVerify: in.opts.InsecureSkipVerify,
		},
	}

	client, err := imapclient.DialTLS(address, options)
	if err != nil {
		return nil, nil, fmt.Errorf("dial imap %s: %w", address, err)
	}

	if err := client.Login(in.opts.Username, in.password()).Wait(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("imap login failed: %w", err)
	}

	if in.logger != nil {
		in.logger.Debug("imap connection established", "address", address, "user", in.opts.Username)
	}

	stopClose := context.AfterFunc(ctx, func() {
		_ = client.Close()
	})

	cleanup := func() {
		stopClose()
		if ctx.Err() == nil {
			if err := client.Logout().Wait(); err != nil && in.logger != nil {
				in.logger.Warn("imap logout failed", "err", err)
			}
		}
		if err := client.Close(); err != nil && in.logger != nil {
			in.logger.Debug("imap connection closed", "err", err)
		}
	}

	return client, cleanup, nil
}

func (in *Inbox) mailbox() string {
	if in.opts.Mailbox == "" {
		return "INBOX"
	}
	return in.opts.Mailbox
}

// messageFromEnvelope reconstructs the raw-ish From header the address
// extraction expects. A missing or empty envelope yields an empty From,
// which the scan reports as unparseable.
func messageFromEnvelope(env *imapv2.Envelope) model.Message {
	var msg model.Message
	if env == nil {
		return msg
	}
	msg.Subject = env.Subject
	if len(env.From) > 0 {
		from := env.From[0]
		if from.Name != "" {
			msg.From = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
		} else {
			msg.From = from.Addr()
		}
	}
	return msg
}
