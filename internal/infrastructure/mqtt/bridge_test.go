package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/wrenfold/bulbsync/internal/bulb"
)

// fakePublisher records published messages and subscriptions.
type fakePublisher struct {
	mu        sync.Mutex
	published map[string][]byte
	handlers  map[string]MessageHandler
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		published: make(map[string][]byte),
		handlers:  make(map[string]MessageHandler),
	}
}

func (f *fakePublisher) PublishRetained(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[topic] = payload
	return nil
}

func (f *fakePublisher) Subscribe(topic string, _ byte, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakePublisher) payloadFor(topic string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published[topic]
}

// fakeEngine records commands and feeds a local event bus.
type fakeEngine struct {
	mu       sync.Mutex
	bus      *bulb.Bus
	commands []string
	succeed  bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{bus: bulb.NewBus(), succeed: true}
}

func (f *fakeEngine) note(cmd string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	return f.succeed
}

func (f *fakeEngine) SetPower(_ context.Context, name string, on bool) bool {
	return f.note("power:" + name)
}

func (f *fakeEngine) SetColor(_ context.Context, name string, _, _, _ uint8) bool {
	return f.note("color:" + name)
}

func (f *fakeEngine) SetHSV(_ context.Context, name string, _, _, _ float64) bool {
	return f.note("hsv:" + name)
}

func (f *fakeEngine) SetWarmWhite(_ context.Context, name string, _ float64) bool {
	return f.note("warm_white:" + name)
}

func (f *fakeEngine) Refresh(_ context.Context, name string) bool {
	return f.note("refresh:" + name)
}

func (f *fakeEngine) Subscribe(fn bulb.Subscriber) string {
	return f.bus.Subscribe(fn)
}

func (f *fakeEngine) Unsubscribe(id string) {
	f.bus.Unsubscribe(id)
}

func (f *fakeEngine) lastCommand() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return ""
	}
	return f.commands[len(f.commands)-1]
}

func startTestBridge(t *testing.T) (*Bridge, *fakePublisher, *fakeEngine) {
	t.Helper()

	publisher := newFakePublisher()
	engine := newFakeEngine()
	bridge := NewBridge(publisher, engine, 1)

	if err := bridge.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(bridge.Stop)

	return bridge, publisher, engine
}

func TestBridgeMirrorsStateEvents(t *testing.T) {
	_, publisher, engine := startTestBridge(t)

	engine.bus.Publish(bulb.Event{
		Type: bulb.EventStateChanged,
		Bulb: "lamp",
		State: &bulb.State{
			Name:    "lamp",
			Online:  true,
			PowerOn: true,
			Red:     255,
		},
	})

	payload := publisher.payloadFor("bulbsync/state/lamp")
	if payload == nil {
		t.Fatal("no state published for lamp")
	}

	var state bulb.State
	if err := json.Unmarshal(payload, &state); err != nil {
		t.Fatalf("published payload not valid JSON: %v", err)
	}
	if !state.PowerOn || state.Red != 255 {
		t.Errorf("published state = %+v, want PowerOn/Red set", state)
	}
}

func TestBridgeHandlesCommands(t *testing.T) {
	bridge, _, engine := startTestBridge(t)

	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"power", `{"action":"power","on":true}`, "power:lamp"},
		{"color", `{"action":"color","red":255,"green":128,"blue":0}`, "color:lamp"},
		{"hsv", `{"action":"hsv","hue":30,"saturation":100,"value":100}`, "hsv:lamp"},
		{"warm white", `{"action":"warm_white","brightness":75}`, "warm_white:lamp"},
		{"refresh", `{"action":"refresh"}`, "refresh:lamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := bridge.handleCommand("bulbsync/command/lamp", []byte(tt.payload)); err != nil {
				t.Fatalf("handleCommand() error: %v", err)
			}
			if got := engine.lastCommand(); got != tt.want {
				t.Errorf("command = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBridgeRejectsBadCommands(t *testing.T) {
	bridge, _, _ := startTestBridge(t)

	if err := bridge.handleCommand("bulbsync/command/lamp", []byte(`{"action":"explode"}`)); err == nil {
		t.Error("expected error for unknown action")
	}
	if err := bridge.handleCommand("bulbsync/command/lamp", []byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if err := bridge.handleCommand("bulbsync/state/lamp", []byte(`{}`)); err == nil {
		t.Error("expected error for non-command topic")
	}
}

func TestBridgeStopDetachesFromBus(t *testing.T) {
	bridge, publisher, engine := startTestBridge(t)

	bridge.Stop()

	engine.bus.Publish(bulb.Event{
		Type:  bulb.EventStateChanged,
		Bulb:  "lamp",
		State: &bulb.State{Name: "lamp"},
	})

	if publisher.payloadFor("bulbsync/state/lamp") != nil {
		t.Error("bridge still publishing after Stop()")
	}
}
