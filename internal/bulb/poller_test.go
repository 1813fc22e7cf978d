package bulb

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollerBackoffSequence(t *testing.T) {
	engine, fakes := newTestEngine(t, []string{"lamp"}, nil)
	fakes["lamp"].failQuery = true

	p := NewPoller(engine, PollerOptions{})

	wantIntervals := []time.Duration{
		120 * time.Second,
		300 * time.Second,
		600 * time.Second,
		600 * time.Second, // ceiling holds
	}

	for i, want := range wantIntervals {
		p.pollOne("lamp")

		state, _ := engine.GetState("lamp")
		if state.PollInterval != want {
			t.Errorf("after failure %d: PollInterval = %v, want %v", i+1, state.PollInterval, want)
		}
		if state.ConsecutiveFailures != i+1 {
			t.Errorf("after failure %d: ConsecutiveFailures = %d, want %d", i+1, state.ConsecutiveFailures, i+1)
		}
	}

	// A success resets the interval and failure count.
	fakes["lamp"].failQuery = false
	p.pollOne("lamp")

	state, _ := engine.GetState("lamp")
	if state.PollInterval != 60*time.Second {
		t.Errorf("after success: PollInterval = %v, want 60s", state.PollInterval)
	}
	if state.ConsecutiveFailures != 0 {
		t.Errorf("after success: ConsecutiveFailures = %d, want 0", state.ConsecutiveFailures)
	}
}

func TestPollerHealthSink(t *testing.T) {
	engine, fakes := newTestEngine(t, []string{"lamp"}, nil)
	fakes["lamp"].failQuery = true

	p := NewPoller(engine, PollerOptions{})

	type report struct {
		name     string
		failures int
		interval time.Duration
	}
	var reports []report
	p.SetHealthSink(func(name string, failures int, interval time.Duration) {
		reports = append(reports, report{name, failures, interval})
	})

	p.pollOne("lamp")
	fakes["lamp"].failQuery = false
	p.pollOne("lamp")

	want := []report{
		{"lamp", 1, 120 * time.Second},
		{"lamp", 0, 60 * time.Second},
	}
	if len(reports) != len(want) {
		t.Fatalf("got %d health reports, want %d", len(reports), len(want))
	}
	for i, r := range reports {
		if r != want[i] {
			t.Errorf("report %d = %+v, want %+v", i, r, want[i])
		}
	}

	// A nil sink disables reporting.
	p.SetHealthSink(nil)
	p.pollOne("lamp")
	if len(reports) != len(want) {
		t.Error("health sink fired after being cleared")
	}
}

func TestPollerDueBulbs(t *testing.T) {
	engine, _ := newTestEngine(t, []string{"lamp", "sconce"}, nil)
	p := NewPoller(engine, PollerOptions{})

	// Never-updated bulbs are always due.
	due := p.dueBulbs()
	if len(due) != 2 {
		t.Fatalf("dueBulbs() = %v, want both bulbs", due)
	}

	// A freshly refreshed bulb is not due again until its interval elapses.
	engine.Refresh(context.Background(), "lamp")
	due = p.dueBulbs()
	if len(due) != 1 || due[0] != "sconce" {
		t.Errorf("dueBulbs() = %v, want [sconce]", due)
	}
}

func TestPollerSkipsRecentlyCommanded(t *testing.T) {
	engine, _ := newTestEngine(t, []string{"lamp"}, nil)
	p := NewPoller(engine, PollerOptions{SkipAfterCommand: 10 * time.Second})

	if !engine.SetPower(context.Background(), "lamp", true) {
		t.Fatal("SetPower() returned false")
	}

	if due := p.dueBulbs(); len(due) != 0 {
		t.Errorf("dueBulbs() = %v, want empty shortly after a command", due)
	}
}

func TestPollerStartStop(t *testing.T) {
	engine, fakes := newTestEngine(t, []string{"lamp"}, nil)
	p := NewPoller(engine, PollerOptions{Cadence: 10 * time.Millisecond})

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrPollerRunning) {
		t.Errorf("second Start() error = %v, want ErrPollerRunning", err)
	}

	// Give the loop a few ticks to poll the never-updated bulb.
	deadline := time.Now().Add(time.Second)
	for fakes["lamp"].queries() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if fakes["lamp"].queries() == 0 {
		t.Error("poller never queried the bulb")
	}

	p.Stop()
	if p.IsRunning() {
		t.Error("IsRunning() = true after Stop()")
	}

	// No further polls after stop.
	after := fakes["lamp"].queries()
	time.Sleep(50 * time.Millisecond)
	if fakes["lamp"].queries() != after {
		t.Error("poller queried after Stop() returned")
	}

	// A stopped poller can be restarted.
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("restart error: %v", err)
	}
	p.Stop()
}

func TestPollerStopIdempotent(t *testing.T) {
	engine, _ := newTestEngine(t, []string{"lamp"}, nil)
	p := NewPoller(engine, PollerOptions{})

	// Stop on a never-started poller must not block or panic.
	p.Stop()
	p.Stop()
}
