package stats

import (
	"errors"
	"testing"

	"github.com/dhcgn/nwsl/subscribe"
)

func TestCollector(t *testing.T) {
	c := NewCollector()

	c.Observe(subscribe.Event{Type: subscribe.EventSubscribed, Address: "a@example.com"})
	c.Observe(subscribe.Event{Type: subscribe.EventSubscribed, Address: "b@example.com"})
	c.Observe(subscribe.Event{Type: subscribe.EventUnsubscribed, Address: "a@example.com"})
	c.Observe(subscribe.Event{Type: subscribe.EventIgnored})

	summary := c.Snapshot()
	if summary.Scanned != 4 {
		t.Errorf("Scanned = %d, want 4", summary.Scanned)
	}
	if summary.Subscribed != 2 || summary.Unsubscribed != 1 || summary.Ignored != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Halted {
		t.Errorf("Halted should be false")
	}
}

func TestCollector_Halt(t *testing.T) {
	c := NewCollector()
	haltErr := errors.New("no address")

	c.Observe(subscribe.Event{Type: subscribe.EventSubscribed})
	c.Observe(subscribe.Event{Type: subscribe.EventHalted, Err: haltErr})

	summary := c.Snapshot()
	if !summary.Halted || !errors.Is(summary.HaltErr, haltErr) {
		t.Errorf("summary = %+v, want halted with cause", summary)
	}
	// The halting message itself is not counted as scanned.
	if summary.Scanned != 1 {
		t.Errorf("Scanned = %d, want 1", summary.Scanned)
	}
}
