package compose

import (
	"bytes"
	"fmt"
	"html"
	"io"
	netmail "net/mail"
	"regexp"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/dhcgn/nwsl/content"
)

// DefaultTitle is used when neither part yields a heading.
const DefaultTitle = "Untitled"

var (
	htmlTitlePattern     = regexp.MustCompile(`<h1>(.+)</h1>`)
	markdownTitlePattern = regexp.MustCompile(`# (.+)`)
)

// Title derives a subject line from the newsletter body: the first <h1>
// capture of the HTML part (entity-decoded), else the first Markdown-style
// "# ..." heading of the plain part, else DefaultTitle.
func Title(pair content.Pair) string {
	if pair.HTML != "" {
		if m := htmlTitlePattern.FindStringSubmatch(pair.HTML); m != nil {
			return html.UnescapeString(m[1])
		}
	}
	if pair.Plain != "" {
		if m := markdownTitlePattern.FindStringSubmatch(pair.Plain); m != nil {
			return m[1]
		}
	}
	return DefaultTitle
}

// Options carry the envelope-independent message headers.
type Options struct {
	// From is the sender identity, either a bare address or
	// "Display Name <addr>".
	From string
	// Subject is the subject line; derive it with Title when the caller has
	// no override.
	Subject string
}

// Build renders the pair into a multipart/alternative RFC 5322 message. The
// visible To header carries the sender identity; actual recipients travel in
// the SMTP envelope only, so subscribers never see each other's addresses.
func Build(pair content.Pair, opts Options) ([]byte, error) {
	if pair.HTML == "" && pair.Plain == "" {
		return nil, fmt.Errorf("empty content pair")
	}

	from := parseIdentity(opts.From)

	var header mail.Header
	header.SetDate(time.Now())
	header.SetSubject(opts.Subject)
	header.SetAddressList("From", []*mail.Address{from})
	header.SetAddressList("To", []*mail.Address{from})

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, header)
	if err != nil {
		return nil, fmt.Errorf("create message writer: %w", err)
	}

	iw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create alternative part: %w", err)
	}

	// Plain first, HTML last: clients prefer the final alternative.
	if pair.Plain != "" {
		if err := writePart(iw, "text/plain", pair.Plain); err != nil {
			return nil, err
		}
	}
	if pair.HTML != "" {
		if err := writePart(iw, "text/html", pair.HTML); err != nil {
			return nil, err
		}
	}

	if err := iw.Close(); err != nil {
		return nil, fmt.Errorf("close alternative part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close message writer: %w", err)
	}

	return buf.Bytes(), nil
}

func writePart(iw *mail.InlineWriter, contentType, body string) error {
	var h mail.InlineHeader
	h.SetContentType(contentType, map[string]string{"charset": "utf-8"})

	pw, err := iw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		_ = pw.Close()
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close %s part: %w", contentType, err)
	}
	return nil
}

func parseIdentity(sender string) *mail.Address {
	if addr, err := netmail.ParseAddress(sender); err == nil {
		return &mail.Address{Name: addr.Name, Address: addr.Address}
	}
	return &mail.Address{Address: sender}
}
