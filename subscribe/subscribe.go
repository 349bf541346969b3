package subscribe

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dhcgn/nwsl/model"
)

// addressPattern is deliberately permissive: it grabs the first thing that
// looks like an address out of the raw From header, display name and all.
var addressPattern = regexp.MustCompile(`[A-Za-z0-9_.+-]+@[A-Za-z0-9-]+\.[A-Za-z0-9-.]+`)

// ParseError reports a From header with no extractable address. It truncates
// the scan at the offending message; the set accumulated up to that point is
// still returned.
type ParseError struct {
	From  string
	Index int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no address in From header %q (message %d)", e.From, e.Index)
}

type EventType string

const (
	EventSubscribed   EventType = "subscribed"
	EventUnsubscribed EventType = "unsubscribed"
	EventIgnored      EventType = "ignored"
	EventHalted       EventType = "halted"
)

// Event describes the effect of one processed message.
type Event struct {
	Type    EventType
	Address string
	From    string
	Subject string
	Err     error
}

// Observer receives one Event per processed message. It may be nil.
type Observer func(Event)

// MultiObserver fans events out to every non-nil observer in order.
func MultiObserver(observers ...Observer) Observer {
	return func(evt Event) {
		for _, fn := range observers {
			if fn != nil {
				fn(evt)
			}
		}
	}
}

// Derive folds an ordered message sequence into the subscriber set. Order is
// significant: a later subscribe re-adds an address removed by an earlier
// unsubscribe, and vice versa.
//
// The unsubscribe check runs first because "unsubscribe" contains "subscribe"
// as a substring; a subject asking to unsubscribe is never treated as a
// subscribe request, regardless of membership.
//
// A From header with no parseable address stops the scan: Derive returns the
// set accumulated so far together with a *ParseError. Callers decide whether
// the partial result is usable.
func Derive(messages []model.Message, observe Observer) (*Set, error) {
	subscribers := NewSet()

	for i, msg := range messages {
		addr := addressPattern.FindString(msg.From)
		if addr == "" {
			err := &ParseError{From: msg.From, Index: i}
			emit(observe, Event{Type: EventHalted, From: msg.From, Subject: msg.Subject, Err: err})
			return subscribers, err
		}

		subject := strings.ToLower(msg.Subject)
		evt := Event{Type: EventIgnored, Address: addr, From: msg.From, Subject: msg.Subject}

		switch {
		case strings.Contains(subject, "unsubscribe"):
			if subscribers.Contains(addr) {
				subscribers.Remove(addr)
				evt.Type = EventUnsubscribed
			}
		case strings.Contains(subject, "subscribe"):
			if !subscribers.Contains(addr) {
				subscribers.Add(addr)
				evt.Type = EventSubscribed
			}
		}

		emit(observe, evt)
	}

	return subscribers, nil
}

func emit(observe Observer, evt Event) {
	if observe != nil {
		observe(evt)
	}
}
