package progress

import (
	"github.com/pterm/pterm"

	"github.com/dhcgn/nwsl/stats"
	"github.com/dhcgn/nwsl/subscribe"
)

// Printer echoes scan activity to the terminal, one line per membership
// change. It is the user-facing counterpart of the silent stats.Collector;
// the fold itself stays free of output.
type Printer struct {
	enabled bool
}

// New creates a Printer; pass enabled=false to keep the scan quiet (e.g. for
// machine-readable output).
func New(enabled bool) *Printer {
	return &Printer{enabled: enabled}
}

// Observe implements subscribe.Observer.
func (p *Printer) Observe(evt subscribe.Event) {
	if !p.enabled {
		return
	}

	switch evt.Type {
	case subscribe.EventSubscribed:
		pterm.Info.Printfln("subscribe %s", evt.From)
	case subscribe.EventUnsubscribed:
		pterm.Info.Printfln("unsubscribe %s", evt.From)
	case subscribe.EventHalted:
		pterm.Warning.Printfln("couldn't parse email in %q; stopping scan", evt.From)
	}
}

// Summary prints the scan outcome.
func (p *Printer) Summary(summary stats.Summary, subscribers int) {
	if !p.enabled {
		return
	}

	pterm.Info.Printfln("Got %d active subscriber(s)", subscribers)
	if summary.Halted {
		pterm.Warning.Printfln("scan stopped early after %d message(s); subscriber set may be incomplete", summary.Scanned)
	}
}
