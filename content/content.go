package content

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBothHTML    = errors.New("both files are HTML; provide 1 HTML file and 1 plain text file")
	ErrNeitherHTML = errors.New("neither file is HTML; provide 1 HTML file and 1 plain text file")
)

// Pair is the resolved newsletter body combination. An empty string means the
// part is absent; at least one part is always present in a Pair produced by
// Select.
type Pair struct {
	HTML  string
	Plain string
}

// IsHTML classifies a document: it is HTML if it contains the literal
// substring "<html>", case-insensitively.
func IsHTML(doc string) bool {
	return strings.Contains(strings.ToLower(doc), "<html>")
}

// Select classifies one or two documents into a Pair. With a single document
// its classification alone decides the mapping and no conflict is possible.
// With two documents exactly one must classify as HTML; classification, not
// argument order, determines which slot each document lands in.
func Select(docs ...string) (Pair, error) {
	switch len(docs) {
	case 1:
		if IsHTML(docs[0]) {
			return Pair{HTML: docs[0]}, nil
		}
		return Pair{Plain: docs[0]}, nil
	case 2:
		primaryHTML, alternativeHTML := IsHTML(docs[0]), IsHTML(docs[1])
		if primaryHTML && alternativeHTML {
			return Pair{}, ErrBothHTML
		}
		if !primaryHTML && !alternativeHTML {
			return Pair{}, ErrNeitherHTML
		}
		if primaryHTML {
			return Pair{HTML: docs[0], Plain: docs[1]}, nil
		}
		return Pair{HTML: docs[1], Plain: docs[0]}, nil
	default:
		return Pair{}, fmt.Errorf("expected 1 or 2 documents, got %d", len(docs))
	}
}
