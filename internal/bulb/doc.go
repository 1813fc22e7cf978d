// Package bulb provides the synchronisation core for networked RGB/warm-white
// LED bulbs speaking the MagicHome TCP protocol.
//
// The package keeps an in-memory cache of bulb state that the rest of the
// application reads, and pushes commands to bulbs through a per-bulb command
// gate so that firmware is never overwhelmed by back-to-back frames.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│                        Synchronisation Core                          │
//	│                                                                      │
//	│  ┌────────────┐   ┌────────────┐   ┌────────────┐   ┌────────────┐  │
//	│  │   Engine   │──▶│    Gate    │──▶│ Controller │   │   Poller   │  │
//	│  │ (engine.go)│   │  (gate.go) │   │ (per bulb) │   │ (poller.go)│  │
//	│  │            │   │            │   │            │   │            │  │
//	│  │ • commands │   │ • serialise│   │ • TCP I/O  │   │ • cadence  │  │
//	│  │ • groups   │   │ • spacing  │   │ • framing  │   │ • backoff  │  │
//	│  └────────────┘   └────────────┘   └────────────┘   └────────────┘  │
//	│        │                                                  │         │
//	│        ▼                                                  ▼         │
//	│  ┌────────────┐   ┌────────────┐   ┌────────────┐                   │
//	│  │   Store    │   │    Bus     │   │  Resolver  │                   │
//	│  │ (store.go) │   │  (bus.go)  │   │(resolver.go)│                  │
//	│  │ • snapshot │   │ • events   │   │ • groups   │                   │
//	│  └────────────┘   └────────────┘   └────────────┘                   │
//	└──────────────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - State: Snapshot of a bulb's power, colour and health
//   - Engine: Command surface (power, colour, warm white, refresh)
//   - Store: Thread-safe in-memory state cache
//   - Gate: Per-bulb command serialisation with minimum spacing
//   - Poller: Background refresh loop with per-bulb adaptive backoff
//   - Bus: Fan-out of state change events to subscribers
//
// # Thread Safety
//
// All exported types are safe for concurrent use. The Store returns deep
// copies so callers never observe a torn write. The Gate guarantees that
// at most one command is in flight per bulb at any time.
package bulb
