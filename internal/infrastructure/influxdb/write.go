package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/wrenfold/bulbsync/internal/bulb"
)

// WriteBulbState records a bulb state snapshot as a time-series point.
//
// The point is queued in the non-blocking batch buffer; errors surface
// asynchronously via the SetOnError callback.
//
// Parameters:
//   - state: the bulb state to record (ignored when nil)
func (c *Client) WriteBulbState(state *bulb.State) {
	if state == nil || !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bulb_state",
		map[string]string{
			"bulb": state.Name,
		},
		map[string]interface{}{
			"online":     state.Online,
			"power_on":   state.PowerOn,
			"red":        int(state.Red),
			"green":      int(state.Green),
			"blue":       int(state.Blue),
			"warm_white": int(state.WarmWhite),
			"hue":        state.Hue,
			"saturation": state.Saturation,
			"brightness": state.Brightness,
		},
		state.LastUpdatedAt,
	)

	c.writeAPI.WritePoint(point)
}

// WritePollHealth records poller health metrics for a bulb.
//
// Parameters:
//   - name: the bulb name
//   - consecutiveFailures: current failure streak
//   - pollInterval: current poll interval (backoff tier)
func (c *Client) WritePollHealth(name string, consecutiveFailures int, pollInterval time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"bulb_poll_health",
		map[string]string{
			"bulb": name,
		},
		map[string]interface{}{
			"consecutive_failures": consecutiveFailures,
			"poll_interval_s":      pollInterval.Seconds(),
		},
		time.Now().UTC(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes an arbitrary measurement point.
//
// Parameters:
//   - measurement: the measurement name
//   - tags: indexed tag key-value pairs
//   - fields: field key-value pairs
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now().UTC())
	c.writeAPI.WritePoint(point)
}
