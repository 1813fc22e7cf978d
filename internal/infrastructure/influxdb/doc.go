// Package influxdb provides time-series telemetry for bulbsync.
//
// Bulb state changes and poll outcomes are written as measurements so
// dashboards can chart colour usage, uptime and polling health over
// time. Writes are non-blocking and batched; a telemetry outage never
// affects bulb control.
package influxdb
