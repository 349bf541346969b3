package mbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/mail"
	"os"
	"strings"

	mboxlib "github.com/emersion/go-mbox"

	"github.com/dhcgn/nwsl/model"
)

// Inbox derives the scan input from an exported .mbox archive instead of a
// live IMAP session. Useful for offline dry-runs against a mailbox export;
// message order is the order of the archive.
type Inbox struct {
	path   string
	logger *slog.Logger
}

func NewInbox(path string, logger *slog.Logger) (*Inbox, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("mbox path is empty")
	}
	return &Inbox{path: path, logger: logger}, nil
}

func (in *Inbox) ListAllMessages(ctx context.Context) ([]model.Message, error) {
	file, err := os.Open(in.path)
	if err != nil {
		return nil, fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	messages, err := ReadMessages(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("read mbox %s: %w", in.path, err)
	}

	if in.logger != nil {
		in.logger.Debug("mbox archive read", "path", in.path, "messages", len(messages))
	}
	return messages, nil
}

// ReadMessages extracts the From and Subject headers of every message in the
// archive, preserving archive order. A message whose headers cannot be parsed
// at all contributes an empty From, which the scan reports as unparseable at
// exactly that position.
func ReadMessages(ctx context.Context, r io.Reader) ([]model.Message, error) {
	reader := mboxlib.NewReader(r)
	decoder := new(mime.WordDecoder)

	var messages []model.Message
	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return messages, nil
			}
			return nil, fmt.Errorf("message %d: %w", idx, err)
		}

		msg, err := mail.ReadMessage(msgReader)
		if err != nil {
			messages = append(messages, model.Message{})
			continue
		}

		messages = append(messages, model.Message{
			From:    decodeHeader(decoder, msg.Header.Get("From")),
			Subject: decodeHeader(decoder, msg.Header.Get("Subject")),
		})
	}
}

func decodeHeader(decoder *mime.WordDecoder, value string) string {
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
