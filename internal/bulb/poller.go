package bulb

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Default poller timing values.
const (
	// defaultPollCadence is the fixed interval between scheduling rounds.
	defaultPollCadence = 10 * time.Second

	// defaultSkipAfterCommand is the coarse pre-filter: bulbs commanded
	// within this window are not even scheduled for a poll. Distinct
	// from the finer recent-command guard inside the refresh path.
	defaultSkipAfterCommand = 10 * time.Second

	// defaultRoundTimeout bounds one concurrent refresh round. A round
	// exceeding it is logged and abandoned, never fatal.
	defaultRoundTimeout = 30 * time.Second
)

// Backoff tiers applied after each poll attempt. Fixed constants, not
// configurable per bulb.
const (
	backoffTier1   = 120 * time.Second
	backoffTier2   = 300 * time.Second
	backoffCeiling = 600 * time.Second
)

// PollerOptions configures the background poller.
// Zero values fall back to the defaults above.
type PollerOptions struct {
	// Cadence is the interval between scheduling rounds.
	Cadence time.Duration

	// SkipAfterCommand is the recently-commanded pre-filter window.
	SkipAfterCommand time.Duration

	// RoundTimeout bounds one refresh round.
	RoundTimeout time.Duration

	// MaxConcurrent bounds concurrent refreshes within a round.
	MaxConcurrent int
}

// withDefaults fills zero option values.
func (o PollerOptions) withDefaults() PollerOptions {
	if o.Cadence <= 0 {
		o.Cadence = defaultPollCadence
	}
	if o.SkipAfterCommand <= 0 {
		o.SkipAfterCommand = defaultSkipAfterCommand
	}
	if o.RoundTimeout <= 0 {
		o.RoundTimeout = defaultRoundTimeout
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = defaultRefreshConcurrency
	}
	return o
}

// Poller keeps cached bulb state fresh in the background.
//
// Every cadence tick it computes which bulbs are due a poll based on
// their adaptive interval, skips recently commanded bulbs, and
// refreshes the due set concurrently. Failed polls escalate a bulb's
// interval through fixed backoff tiers; a success resets it.
//
// A single loop instance runs at a time. Stop cancels any in-progress
// wait and joins the loop before returning.
// HealthFunc receives a bulb's failure streak and current poll interval
// after every poll attempt. Used to feed poll health telemetry.
type HealthFunc func(name string, consecutiveFailures int, pollInterval time.Duration)

type Poller struct {
	engine *Engine
	opts   PollerOptions
	logger Logger

	mu      sync.Mutex
	health  HealthFunc
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPoller creates a poller over the engine.
func NewPoller(engine *Engine, opts PollerOptions) *Poller {
	return &Poller{
		engine: engine,
		opts:   opts.withDefaults(),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the poller.
func (p *Poller) SetLogger(logger Logger) {
	if logger != nil {
		p.logger = logger
	}
}

// SetHealthSink registers a callback invoked after every poll attempt
// with the bulb's updated failure streak and poll interval. Safe to
// call while the loop is running; a nil fn disables reporting.
func (p *Poller) SetHealthSink(fn HealthFunc) {
	p.mu.Lock()
	p.health = fn
	p.mu.Unlock()
}

// healthSink returns the registered health callback, if any.
func (p *Poller) healthSink() HealthFunc {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.health
}

// Start launches the background poll loop.
// Returns ErrPollerRunning if the loop is already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrPollerRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.running = true

	go p.loop(loopCtx, done)

	p.logger.Info("poller started",
		"cadence", p.opts.Cadence,
		"round_timeout", p.opts.RoundTimeout,
	)
	return nil
}

// Stop cancels the poll loop and waits for it to exit.
// Safe to call when the poller is not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	p.logger.Info("poller stopped")
}

// IsRunning reports whether the poll loop is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// loop runs scheduling rounds until the context is cancelled.
func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.opts.Cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollRound(ctx)
		}
	}
}

// pollRound refreshes every due bulb concurrently, bounded by the
// round timeout. Refreshes still in flight at the timeout keep
// running; the round just stops waiting for them.
func (p *Poller) pollRound(ctx context.Context) {
	due := p.dueBulbs()
	if len(due) == 0 {
		return
	}

	p.logger.Debug("poll round starting", "due", len(due))

	var g errgroup.Group
	g.SetLimit(p.opts.MaxConcurrent)

	for _, name := range due {
		name := name
		g.Go(func() error {
			p.pollOne(name)
			return nil
		})
	}

	roundDone := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(roundDone)
	}()

	select {
	case <-roundDone:
	case <-time.After(p.opts.RoundTimeout):
		p.logger.Warn("poll round timed out", "timeout", p.opts.RoundTimeout, "due", len(due))
	case <-ctx.Done():
	}
}

// dueBulbs returns the bulbs whose adaptive interval has elapsed,
// excluding recently commanded bulbs.
func (p *Poller) dueBulbs() []string {
	now := time.Now().UTC()

	var due []string
	for _, state := range p.engine.ListStates() {
		if !state.LastCommandAt.IsZero() && now.Sub(state.LastCommandAt) < p.opts.SkipAfterCommand {
			continue
		}

		// Never-updated bulbs are always due.
		if state.LastUpdatedAt.IsZero() || now.Sub(state.LastUpdatedAt) >= state.PollInterval {
			due = append(due, state.Name)
		}
	}
	return due
}

// pollOne refreshes a single bulb and applies the backoff policy.
// The refresh runs on its own context so an abandoned round never
// cancels in-flight device I/O.
func (p *Poller) pollOne(name string) {
	ok := p.engine.refresh(context.Background(), name, HistorySourcePoller)

	updated, err := p.engine.Store().Update(name, func(s *State) {
		if ok {
			s.ConsecutiveFailures = 0
			s.PollInterval = defaultPollInterval
			return
		}

		s.ConsecutiveFailures++
		switch s.ConsecutiveFailures {
		case 1:
			s.PollInterval = backoffTier1
		case 2:
			s.PollInterval = backoffTier2
		default:
			s.PollInterval = backoffCeiling
		}
	})
	if err != nil {
		p.logger.Warn("backoff update failed", "bulb", name, "error", err)
		return
	}

	if health := p.healthSink(); health != nil {
		health(name, updated.ConsecutiveFailures, updated.PollInterval)
	}
}
