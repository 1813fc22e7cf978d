// Package magichome implements the TCP wire protocol spoken by
// MagicHome-family RGB/warm-white LED bulbs (BL606A and compatible).
//
// The protocol is a fixed-frame exchange on port 5577. Every outbound
// frame ends with a single checksum byte: the unsigned sum of the
// preceding bytes modulo 256. A status query is a fixed 4-byte sequence;
// the bulb answers with a frame of at least 14 bytes carrying power state
// and channel levels. Any shorter or missing response means the bulb
// should be treated as unreachable.
//
// This package is transport only: one connection per exchange, bounded
// connect and read timeouts, no retries. Retry and backoff policy belongs
// to the caller.
package magichome
