package bulb

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestGateUnknownBulb(t *testing.T) {
	g := NewGate([]string{"lamp"}, 0)

	if g.Execute(context.Background(), "missing", func(context.Context) bool { return true }) {
		t.Error("expected false for unknown bulb")
	}
}

func TestGateSerialisesSameBulb(t *testing.T) {
	g := NewGate([]string{"lamp"}, 120*time.Millisecond)

	var mu sync.Mutex
	var starts []time.Time
	var inFlight, maxInFlight int

	fn := func(context.Context) bool {
		mu.Lock()
		starts = append(starts, time.Now())
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return true
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !g.Execute(context.Background(), "lamp", fn) {
				t.Error("Execute() returned false")
			}
		}()
	}
	wg.Wait()

	if maxInFlight != 1 {
		t.Errorf("max in-flight = %d, want 1", maxInFlight)
	}

	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		if gap < 120*time.Millisecond {
			t.Errorf("gap between command %d and %d = %v, want >= 120ms", i-1, i, gap)
		}
	}
}

func TestGateIndependentBulbs(t *testing.T) {
	g := NewGate([]string{"lamp", "sconce"}, 120*time.Millisecond)

	// Warm both gates so spacing would apply if bulbs shared state.
	g.Execute(context.Background(), "lamp", func(context.Context) bool { return true })

	start := time.Now()
	var wg sync.WaitGroup
	for _, name := range []string{"lamp", "sconce"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			g.Execute(context.Background(), name, func(context.Context) bool { return true })
		}(name)
	}
	wg.Wait()

	// The sconce command has no prior command, and the lamp command
	// waits at most one interval. If bulbs blocked each other the
	// elapsed time would stack.
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Errorf("independent bulbs took %v, want well under 250ms", elapsed)
	}
}

func TestGateReturnsCommandResult(t *testing.T) {
	g := NewGate([]string{"lamp"}, time.Millisecond)

	if g.Execute(context.Background(), "lamp", func(context.Context) bool { return false }) {
		t.Error("expected false when command fails")
	}
	if !g.Execute(context.Background(), "lamp", func(context.Context) bool { return true }) {
		t.Error("expected true when command succeeds")
	}
}

func TestGateCancelledContext(t *testing.T) {
	g := NewGate([]string{"lamp"}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	if g.Execute(ctx, "lamp", func(context.Context) bool { called = true; return true }) {
		t.Error("expected false for cancelled context")
	}
	if called {
		t.Error("command must not run after cancellation")
	}
}
