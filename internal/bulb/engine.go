package bulb

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/wrenfold/bulbsync/internal/color"
	"github.com/wrenfold/bulbsync/internal/magichome"
)

// Default engine timing values.
const (
	// defaultGroupCommandSpacing is the fixed inter-bulb spacing when a
	// group command fans out. Bounds the burst of simultaneous TCP
	// connections a network segment sees for large groups.
	defaultGroupCommandSpacing = 20 * time.Millisecond

	// defaultRecentCommandGuard suppresses refresh network I/O shortly
	// after a command so a poll cannot race the command and report a
	// stale pre-command state as a failure.
	defaultRecentCommandGuard = 5 * time.Second

	// defaultRefreshAllTimeout bounds how long ForceRefreshAll awaits
	// its fan-out before returning with partial results.
	defaultRefreshAllTimeout = 30 * time.Second

	// defaultRefreshConcurrency bounds concurrent refreshes in bulk
	// operations.
	defaultRefreshConcurrency = 8
)

// Options configures engine timing behaviour.
// Zero values fall back to the defaults above.
type Options struct {
	// MinCommandInterval is the per-bulb spacing between consecutive
	// commands.
	MinCommandInterval time.Duration

	// GroupCommandSpacing is the inter-bulb spacing for group fan-out.
	GroupCommandSpacing time.Duration

	// RecentCommandGuard is how long after a command a refresh skips
	// network I/O and returns cached state.
	RecentCommandGuard time.Duration

	// RefreshAllTimeout bounds ForceRefreshAll.
	RefreshAllTimeout time.Duration

	// RefreshConcurrency bounds concurrent refreshes in bulk operations.
	RefreshConcurrency int
}

// withDefaults fills zero option values.
func (o Options) withDefaults() Options {
	if o.GroupCommandSpacing <= 0 {
		o.GroupCommandSpacing = defaultGroupCommandSpacing
	}
	if o.RecentCommandGuard <= 0 {
		o.RecentCommandGuard = defaultRecentCommandGuard
	}
	if o.RefreshAllTimeout <= 0 {
		o.RefreshAllTimeout = defaultRefreshAllTimeout
	}
	if o.RefreshConcurrency <= 0 {
		o.RefreshConcurrency = defaultRefreshConcurrency
	}
	return o
}

// Engine orchestrates bulb commands, state reconciliation and event
// publication. It is the only writer to the state store.
//
// All public methods are thread-safe. Commands to the same bulb are
// strictly serialised through the gate; commands to different bulbs
// interleave freely.
type Engine struct {
	store      *Store
	gate       *Gate
	bus        *Bus
	resolver   *Resolver
	transports map[string]Transport
	history    HistoryRepository
	opts       Options
	logger     Logger
}

// TransportFactory builds a wire protocol client for a bulb address.
type TransportFactory func(address string) Transport

// NewEngine creates an engine over the configured bulbs and groups.
//
// The bulbs map is name to address; the factory is called once per
// bulb at construction. The bulb and group sets are immutable for the
// lifetime of the engine.
func NewEngine(bulbs map[string]string, groups map[string][]string, factory TransportFactory, opts Options) *Engine {
	opts = opts.withDefaults()

	store := NewStore(bulbs)
	names := store.Names()

	transports := make(map[string]Transport, len(bulbs))
	for name, address := range bulbs {
		transports[name] = factory(address)
	}

	return &Engine{
		store:      store,
		gate:       NewGate(names, opts.MinCommandInterval),
		bus:        NewBus(),
		resolver:   NewResolver(names, groups),
		transports: transports,
		opts:       opts,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the engine and its collaborators.
func (e *Engine) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	e.logger = logger
	e.gate.SetLogger(logger)
	e.bus.SetLogger(logger)
}

// SetHistory sets an optional state history repository. Recording
// failures are logged, never surfaced to command callers.
func (e *Engine) SetHistory(history HistoryRepository) {
	e.history = history
}

// Store returns the engine's state store for read access.
func (e *Engine) Store() *Store {
	return e.store
}

// Resolver returns the engine's target resolver.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

// Subscribe registers a subscriber for state change events and
// returns its subscription ID.
func (e *Engine) Subscribe(fn Subscriber) string {
	return e.bus.Subscribe(fn)
}

// Unsubscribe removes a subscriber by subscription ID.
func (e *Engine) Unsubscribe(id string) {
	e.bus.Unsubscribe(id)
}

// GetState retrieves a bulb's cached state by name.
func (e *Engine) GetState(name string) (*State, error) {
	return e.store.Get(name)
}

// ListStates returns the cached state of every configured bulb.
func (e *Engine) ListStates() []State {
	return e.store.List()
}

// SetPower turns a bulb on or off.
// Returns the transport's success boolean; on failure the cached
// state is left unchanged.
func (e *Engine) SetPower(ctx context.Context, name string, on bool) bool {
	return e.command(ctx, name,
		func(ctx context.Context, t Transport) error {
			return t.SetPower(ctx, on)
		},
		func(s *State) {
			s.PowerOn = on
		},
	)
}

// SetColor sets a bulb to an RGB colour.
// A successful colour command implicitly powers the bulb on and
// leaves warm white mode, mirroring the device firmware.
func (e *Engine) SetColor(ctx context.Context, name string, r, g, b uint8) bool {
	return e.command(ctx, name,
		func(ctx context.Context, t Transport) error {
			return t.SetColor(ctx, r, g, b)
		},
		func(s *State) {
			s.Red, s.Green, s.Blue = r, g, b
			s.WarmWhite = 0
			s.PowerOn = true
			s.Hue, s.Saturation, s.Brightness = color.RGBToHSV(r, g, b)
		},
	)
}

// SetHSV sets a bulb colour from hue (degrees), saturation and value
// (percentages). Converts to RGB and delegates to SetColor.
func (e *Engine) SetHSV(ctx context.Context, name string, h, s, v float64) bool {
	r, g, b := color.HSVToRGB(h, s, v)
	return e.SetColor(ctx, name, r, g, b)
}

// SetWarmWhite sets a bulb's warm white level from a brightness
// percentage (0-100). A successful warm white command zeroes the RGB
// channels and implicitly powers the bulb on.
func (e *Engine) SetWarmWhite(ctx context.Context, name string, brightnessPercent float64) bool {
	if brightnessPercent < 0 {
		brightnessPercent = 0
	}
	if brightnessPercent > 100 {
		brightnessPercent = 100
	}
	level := uint8(math.Round(brightnessPercent / 100 * 255))

	return e.command(ctx, name,
		func(ctx context.Context, t Transport) error {
			return t.SetWarmWhite(ctx, level)
		},
		func(s *State) {
			s.Red, s.Green, s.Blue = 0, 0, 0
			s.WarmWhite = level
			s.PowerOn = true
			s.Hue = 0
			s.Saturation = 0
			s.Brightness = float64(level) / 255 * 100
		},
	)
}

// command runs a transport send through the gate and, on success,
// applies the state mutation, publishes and records history.
func (e *Engine) command(ctx context.Context, name string, send func(context.Context, Transport) error, apply func(*State)) bool {
	transport, ok := e.transports[name]
	if !ok {
		e.logger.Warn("command for unknown bulb", "bulb", name)
		return false
	}

	sent := e.gate.Execute(ctx, name, func(ctx context.Context) bool {
		if err := send(ctx, transport); err != nil {
			e.logger.Warn("command failed", "bulb", name, "error", err)
			return false
		}
		return true
	})
	if !sent {
		return false
	}

	now := time.Now().UTC()
	snapshot, err := e.store.Update(name, func(s *State) {
		apply(s)
		s.Online = true
		s.LastCommandAt = now
		s.LastUpdatedAt = now
	})
	if err != nil {
		return false
	}

	e.publish(EventStateChanged, snapshot)
	e.record(ctx, snapshot, HistorySourceCommand)
	return true
}

// Refresh reconciles a bulb's cached state against the device.
//
// If a command was issued within the recent-command guard window the
// network query is skipped and the cached online flag is returned.
// A transport failure or malformed response marks the bulb offline
// but leaves colour and power fields at their last known values.
// Returns the bulb's online state after reconciliation.
func (e *Engine) Refresh(ctx context.Context, name string) bool {
	return e.refresh(ctx, name, HistorySourceRefresh)
}

// refresh is the shared reconciliation path for direct refreshes and
// the poller.
func (e *Engine) refresh(ctx context.Context, name string, source string) bool {
	state, err := e.store.Get(name)
	if err != nil {
		return false
	}

	if !state.LastCommandAt.IsZero() && time.Since(state.LastCommandAt) < e.opts.RecentCommandGuard {
		e.logger.Debug("refresh skipped, recent command", "bulb", name)
		return state.Online
	}

	transport, ok := e.transports[name]
	if !ok {
		return false
	}

	status, err := transport.QueryStatus(ctx)
	if err != nil {
		wasOnline := state.Online
		snapshot, updateErr := e.store.Update(name, func(s *State) {
			s.Online = false
		})
		if updateErr != nil {
			return false
		}

		if wasOnline {
			e.logger.Info("bulb offline", "bulb", name, "error", err)
			e.publish(EventBulbOffline, snapshot)
			e.record(ctx, snapshot, source)
		} else {
			e.logger.Debug("bulb still offline", "bulb", name, "error", err)
		}
		return false
	}

	wasOnline := state.Online
	now := time.Now().UTC()
	snapshot, err := e.store.Update(name, func(s *State) {
		applyStatus(s, status)
		s.Online = true
		s.LastUpdatedAt = now
	})
	if err != nil {
		return false
	}

	if !wasOnline {
		e.publish(EventBulbOnline, snapshot)
	} else {
		e.publish(EventStateChanged, snapshot)
	}
	e.record(ctx, snapshot, source)
	return true
}

// applyStatus copies a status response into cached state and
// recomputes the derived HSV fields.
func applyStatus(s *State, status *magichome.Status) {
	s.PowerOn = status.PowerOn
	s.Red = status.Red
	s.Green = status.Green
	s.Blue = status.Blue
	s.WarmWhite = status.WarmWhite

	if s.WarmWhite > 0 {
		// Warm white mode: RGB is forced to zero on the device.
		s.Red, s.Green, s.Blue = 0, 0, 0
		s.Hue = 0
		s.Saturation = 0
		s.Brightness = float64(s.WarmWhite) / 255 * 100
	} else {
		s.Hue, s.Saturation, s.Brightness = color.RGBToHSV(s.Red, s.Green, s.Blue)
	}
}

// SetPowerGroup applies SetPower to every resolved target.
// Targets resolve through the group resolver; unknown names are
// dropped. Returns a per-bulb success map; one bulb's failure does
// not abort the others.
func (e *Engine) SetPowerGroup(ctx context.Context, targets []string, on bool) map[string]bool {
	return e.fanOut(ctx, targets, func(ctx context.Context, name string) bool {
		return e.SetPower(ctx, name, on)
	})
}

// SetColorGroup applies SetColor to every resolved target.
func (e *Engine) SetColorGroup(ctx context.Context, targets []string, r, g, b uint8) map[string]bool {
	return e.fanOut(ctx, targets, func(ctx context.Context, name string) bool {
		return e.SetColor(ctx, name, r, g, b)
	})
}

// SetHSVGroup applies SetHSV to every resolved target.
func (e *Engine) SetHSVGroup(ctx context.Context, targets []string, h, s, v float64) map[string]bool {
	r, g, b := color.HSVToRGB(h, s, v)
	return e.SetColorGroup(ctx, targets, r, g, b)
}

// SetWarmWhiteGroup applies SetWarmWhite to every resolved target.
func (e *Engine) SetWarmWhiteGroup(ctx context.Context, targets []string, brightnessPercent float64) map[string]bool {
	return e.fanOut(ctx, targets, func(ctx context.Context, name string) bool {
		return e.SetWarmWhite(ctx, name, brightnessPercent)
	})
}

// fanOut resolves targets and applies op to each sequentially with a
// fixed inter-bulb spacing. Sequential fan-out bounds the burst of
// connections a group command produces; for realistic group sizes the
// whole fan-out still completes well within interactive latency.
func (e *Engine) fanOut(ctx context.Context, targets []string, op func(context.Context, string) bool) map[string]bool {
	names := e.resolver.Resolve(targets)
	results := make(map[string]bool, len(names))
	if len(names) == 0 {
		return results
	}

	limiter := rate.NewLimiter(rate.Every(e.opts.GroupCommandSpacing), 1)
	for _, name := range names {
		if err := limiter.Wait(ctx); err != nil {
			results[name] = false
			continue
		}
		results[name] = op(ctx, name)
	}
	return results
}

// ForceRefreshAll refreshes every configured bulb concurrently,
// bounded by the refresh-all timeout. Refreshes still in flight when
// the timeout elapses keep running and update the store when they
// finish; they are simply no longer awaited, and their bulbs are
// absent from the returned map.
func (e *Engine) ForceRefreshAll(ctx context.Context) map[string]bool {
	names := e.store.Names()

	var mu sync.Mutex
	results := make(map[string]bool, len(names))

	var g errgroup.Group
	g.SetLimit(e.opts.RefreshConcurrency)

	for _, name := range names {
		name := name
		g.Go(func() error {
			// Detached from the round context: an abandoned refresh
			// still completes and updates the store.
			ok := e.refresh(context.Background(), name, HistorySourceRefresh)
			mu.Lock()
			results[name] = ok
			mu.Unlock()
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(e.opts.RefreshAllTimeout):
		e.logger.Warn("refresh all timed out, returning partial results",
			"timeout", e.opts.RefreshAllTimeout,
			"bulbs", len(names),
		)
	case <-ctx.Done():
		e.logger.Debug("refresh all cancelled", "error", ctx.Err())
	}

	mu.Lock()
	defer mu.Unlock()
	snapshot := make(map[string]bool, len(results))
	for name, ok := range results {
		snapshot[name] = ok
	}
	return snapshot
}

// publish emits an event on the bus with a snapshot of the new state.
func (e *Engine) publish(eventType EventType, snapshot *State) {
	e.bus.Publish(Event{
		Type:  eventType,
		Bulb:  snapshot.Name,
		State: snapshot,
	})
}

// record persists a state history entry if a repository is configured.
func (e *Engine) record(ctx context.Context, snapshot *State, source string) {
	if e.history == nil {
		return
	}
	if err := e.history.RecordStateChange(ctx, snapshot.Name, *snapshot, source); err != nil {
		e.logger.Warn("state history record failed", "bulb", snapshot.Name, "error", err)
	}
}
