package bulb

import (
	"context"
	"time"
)

// State history source values.
const (
	HistorySourceCommand = "command"
	HistorySourcePoller  = "poller"
	HistorySourceRefresh = "refresh"
)

// HistoryEntry represents a single bulb state change record.
//
// Each entry stores a full snapshot of the bulb state at the time the
// change was observed, giving a local audit trail even when the
// time-series database is unavailable.
type HistoryEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// Bulb is the bulb name.
	Bulb string `json:"bulb"`

	// State is the JSON snapshot of the bulb state.
	State State `json:"state"`

	// Source identifies how the change was recorded (command, poller, refresh).
	Source string `json:"source"`

	// CreatedAt is the timestamp of the state change (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRepository stores and retrieves bulb state change history.
//
// Implementations must be thread-safe and use UTC timestamps.
type HistoryRepository interface {
	// RecordStateChange records a bulb state change.
	RecordStateChange(ctx context.Context, bulb string, state State, source string) error

	// GetHistory returns recent state change history for the bulb,
	// ordered newest first. The limit may be clamped by the
	// implementation.
	GetHistory(ctx context.Context, bulb string, limit int) ([]HistoryEntry, error)
}
