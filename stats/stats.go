package stats

import (
	"sync"

	"github.com/dhcgn/nwsl/subscribe"
)

// Summary counts the outcome of one inbox scan.
type Summary struct {
	Scanned      int
	Subscribed   int
	Unsubscribed int
	Ignored      int
	Halted       bool
	HaltErr      error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"scanned", s.Scanned,
		"subscribed", s.Subscribed,
		"unsubscribed", s.Unsubscribed,
		"ignored", s.Ignored,
		"halted", s.Halted,
	}
	if s.HaltErr != nil {
		attrs = append(attrs, "haltErr", s.HaltErr.Error())
	}
	return attrs
}

// Collector tallies scan events. Observe is safe for concurrent use, though
// a scan runs on a single goroutine.
type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

// Observe implements subscribe.Observer.
func (c *Collector) Observe(evt subscribe.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch evt.Type {
	case subscribe.EventHalted:
		c.summary.Halted = true
		c.summary.HaltErr = evt.Err
		return
	case subscribe.EventSubscribed:
		c.summary.Subscribed++
	case subscribe.EventUnsubscribed:
		c.summary.Unsubscribed++
	case subscribe.EventIgnored:
		c.summary.Ignored++
	}
	c.summary.Scanned++
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}
