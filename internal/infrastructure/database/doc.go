// Package database provides SQLite connection management for bulbsync.
//
// The database stores the bulb state change history; live bulb state
// lives in memory and is never read back from disk. Opening the
// database configures WAL mode, busy timeout and the single-writer
// connection pool SQLite works best with, then applies the schema
// idempotently.
package database
