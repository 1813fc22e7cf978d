package bulb

import (
	"context"
	"time"

	"github.com/wrenfold/bulbsync/internal/magichome"
)

// Default poll scheduling values.
const (
	// defaultPollInterval is the per-bulb poll interval after a successful poll.
	defaultPollInterval = 60 * time.Second
)

// State is a point-in-time snapshot of a bulb's cached state.
//
// The colour fields follow the device's own semantics: warm white and
// RGB are mutually exclusive, so WarmWhite > 0 always implies
// Red = Green = Blue = 0. RGB all zero with WarmWhite zero is a valid
// "black/off" state.
type State struct {
	// Name is the unique bulb identifier assigned in configuration.
	Name string `json:"name"`

	// Address is the bulb's network address including port.
	Address string `json:"address"`

	// Online indicates the bulb was reachable as of the last poll or command.
	Online bool `json:"online"`

	// PowerOn indicates the bulb reports itself switched on.
	PowerOn bool `json:"power_on"`

	// Red, Green, Blue are the RGB channel values (0-255).
	Red   uint8 `json:"red"`
	Green uint8 `json:"green"`
	Blue  uint8 `json:"blue"`

	// WarmWhite is the warm white channel value (0-255).
	WarmWhite uint8 `json:"warm_white"`

	// Hue is the derived hue in degrees (0-360).
	Hue float64 `json:"hue"`

	// Saturation is the derived saturation percentage (0-100).
	Saturation float64 `json:"saturation"`

	// Brightness is the derived brightness percentage (0-100).
	Brightness float64 `json:"brightness"`

	// LastUpdatedAt is when state was last successfully derived (UTC).
	LastUpdatedAt time.Time `json:"last_updated_at"`

	// LastCommandAt is when a command was last issued to this bulb (UTC).
	// Used to suppress polls racing a just-issued command.
	LastCommandAt time.Time `json:"last_command_at"`

	// PollInterval is the current adaptive poll interval for this bulb.
	PollInterval time.Duration `json:"poll_interval"`

	// ConsecutiveFailures counts failed polls since the last success.
	ConsecutiveFailures int `json:"consecutive_failures"`
}

// DeepCopy returns an independent copy of the state.
// State contains no reference types, so a value copy suffices; the
// method exists to keep call sites explicit about copy semantics.
func (s *State) DeepCopy() *State {
	if s == nil {
		return nil
	}
	copied := *s
	return &copied
}

// Transport abstracts the per-bulb wire protocol client.
//
// Implementations must be safe for concurrent use; the engine
// serialises calls per bulb through the command gate regardless.
type Transport interface {
	// SetPower turns the bulb on or off.
	SetPower(ctx context.Context, on bool) error

	// SetColor sets the RGB channels. The device firmware leaves warm
	// white mode when it receives a colour frame.
	SetColor(ctx context.Context, r, g, b uint8) error

	// SetWarmWhite sets the warm white channel (0-255).
	SetWarmWhite(ctx context.Context, level uint8) error

	// QueryStatus requests the bulb's current state.
	QueryStatus(ctx context.Context) (*magichome.Status, error)
}

// Logger defines the logging interface used throughout the package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
