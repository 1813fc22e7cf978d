package bulb

import (
	"context"
	"sync"
	"time"
)

// defaultMinCommandInterval is the minimum spacing between consecutive
// commands to the same bulb. Firmware on these bulbs runs a small
// embedded TCP stack that drops connections arriving back to back.
const defaultMinCommandInterval = 120 * time.Millisecond

// deviceGate holds the exclusion state for one bulb.
type deviceGate struct {
	mu sync.Mutex

	// lastCompleted is when the previous command finished, successful
	// or not. Spacing is measured from completion, not start, so a
	// slow exchange never lets the next command in early.
	lastCompleted time.Time
}

// Gate serialises commands per bulb and enforces minimum spacing
// between consecutive commands to the same bulb.
//
// Callers targeting different bulbs proceed independently; no lock is
// ever held across bulbs.
type Gate struct {
	gates    map[string]*deviceGate
	interval time.Duration
	logger   Logger
}

// NewGate creates a gate for the given bulb names.
// A non-positive interval falls back to the default 120ms spacing.
func NewGate(names []string, interval time.Duration) *Gate {
	if interval <= 0 {
		interval = defaultMinCommandInterval
	}

	gates := make(map[string]*deviceGate, len(names))
	for _, name := range names {
		gates[name] = &deviceGate{}
	}

	return &Gate{
		gates:    gates,
		interval: interval,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the gate.
func (g *Gate) SetLogger(logger Logger) {
	if logger != nil {
		g.logger = logger
	}
}

// Execute runs fn under the named bulb's exclusive gate.
//
// The call blocks until the gate is acquired, then waits out any
// remaining spacing interval since the previous command completed.
// fn's boolean result is returned unchanged; transport failures are
// not retried here.
//
// Returns false immediately for unknown bulbs and when the context is
// cancelled before fn runs.
func (g *Gate) Execute(ctx context.Context, name string, fn func(ctx context.Context) bool) bool {
	gate, ok := g.gates[name]
	if !ok {
		g.logger.Warn("command for unknown bulb rejected", "bulb", name)
		return false
	}

	gate.mu.Lock()
	defer gate.mu.Unlock()

	if !gate.lastCompleted.IsZero() {
		wait := g.interval - time.Since(gate.lastCompleted)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return false
			}
		}
	}

	if ctx.Err() != nil {
		return false
	}

	ok = fn(ctx)
	gate.lastCompleted = time.Now()
	return ok
}
