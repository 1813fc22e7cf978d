package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wrenfold/bulbsync/internal/bulb"
)

// commandTimeout bounds the handling of one inbound MQTT command.
const commandTimeout = 15 * time.Second

// Publisher is the narrow client surface the bridge publishes through.
type Publisher interface {
	PublishRetained(topic string, payload []byte) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// Engine is the narrow command surface the bridge drives.
type Engine interface {
	SetPower(ctx context.Context, name string, on bool) bool
	SetColor(ctx context.Context, name string, r, g, b uint8) bool
	SetHSV(ctx context.Context, name string, h, s, v float64) bool
	SetWarmWhite(ctx context.Context, name string, brightnessPercent float64) bool
	Refresh(ctx context.Context, name string) bool
	Subscribe(fn bulb.Subscriber) string
	Unsubscribe(id string)
}

// BridgeLogger is the logging interface for the bridge.
type BridgeLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopBridgeLogger is a logger that does nothing.
type noopBridgeLogger struct{}

func (noopBridgeLogger) Debug(string, ...any) {}
func (noopBridgeLogger) Info(string, ...any)  {}
func (noopBridgeLogger) Warn(string, ...any)  {}
func (noopBridgeLogger) Error(string, ...any) {}

// Command is the payload accepted on bulbsync/command/{bulb}.
//
// Exactly one action per message:
//
//	{"action":"power","on":true}
//	{"action":"color","red":255,"green":128,"blue":0}
//	{"action":"hsv","hue":30,"saturation":100,"value":100}
//	{"action":"warm_white","brightness":75}
//	{"action":"refresh"}
type Command struct {
	Action     string  `json:"action"`
	On         bool    `json:"on"`
	Red        uint8   `json:"red"`
	Green      uint8   `json:"green"`
	Blue       uint8   `json:"blue"`
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Value      float64 `json:"value"`
	Brightness float64 `json:"brightness"`
}

// Bridge mirrors bulb state to MQTT and applies inbound MQTT commands.
type Bridge struct {
	publisher Publisher
	engine    Engine
	qos       byte
	logger    BridgeLogger

	subscriptionID string
}

// NewBridge creates a bridge over the client and engine.
func NewBridge(publisher Publisher, engine Engine, qos byte) *Bridge {
	return &Bridge{
		publisher: publisher,
		engine:    engine,
		qos:       qos,
		logger:    noopBridgeLogger{},
	}
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger BridgeLogger) {
	if logger != nil {
		b.logger = logger
	}
}

// Start subscribes to command topics and begins mirroring state events.
func (b *Bridge) Start() error {
	if err := b.publisher.Subscribe(Topics{}.AllCommands(), b.qos, b.handleCommand); err != nil {
		return fmt.Errorf("subscribing to command topics: %w", err)
	}

	b.subscriptionID = b.engine.Subscribe(b.publishState)

	b.logger.Info("mqtt bridge started", "commands", Topics{}.AllCommands())
	return nil
}

// Stop detaches the bridge from the engine's event bus.
// The MQTT subscription is torn down with the client connection.
func (b *Bridge) Stop() {
	if b.subscriptionID != "" {
		b.engine.Unsubscribe(b.subscriptionID)
		b.subscriptionID = ""
	}
}

// publishState mirrors one state change to the bulb's retained state topic.
func (b *Bridge) publishState(event bulb.Event) {
	if event.State == nil {
		return
	}

	payload, err := json.Marshal(event.State)
	if err != nil {
		b.logger.Error("state marshal failed", "bulb", event.Bulb, "error", err)
		return
	}

	if err := b.publisher.PublishRetained(Topics{}.BulbState(event.Bulb), payload); err != nil {
		b.logger.Warn("state publish failed", "bulb", event.Bulb, "error", err)
	}
}

// handleCommand parses and applies one inbound command message.
func (b *Bridge) handleCommand(topic string, payload []byte) error {
	name := Topics{}.BulbFromCommandTopic(topic)
	if name == "" {
		return fmt.Errorf("not a command topic: %s", topic)
	}

	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("parsing command for %s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var ok bool
	switch cmd.Action {
	case "power":
		ok = b.engine.SetPower(ctx, name, cmd.On)
	case "color":
		ok = b.engine.SetColor(ctx, name, cmd.Red, cmd.Green, cmd.Blue)
	case "hsv":
		ok = b.engine.SetHSV(ctx, name, cmd.Hue, cmd.Saturation, cmd.Value)
	case "warm_white":
		ok = b.engine.SetWarmWhite(ctx, name, cmd.Brightness)
	case "refresh":
		ok = b.engine.Refresh(ctx, name)
	default:
		return fmt.Errorf("unknown command action %q for %s", cmd.Action, name)
	}

	if !ok {
		b.logger.Warn("mqtt command failed", "bulb", name, "action", cmd.Action)
		return nil
	}

	b.logger.Debug("mqtt command applied", "bulb", name, "action", cmd.Action)
	return nil
}
