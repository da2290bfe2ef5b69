/*
Package log provides structured logging for ledger using zerolog.

ledger wraps zerolog to give every subsystem — the coordinator, the
resource adapter, each KV backend, the provider registry — a
component-scoped child logger, so a single process running several
backends can still tell which component logged what.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - zerolog.Logger, initialized via Init()    │          │
	│  │  - thread-safe for concurrent use            │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Component Loggers                 │          │
	│  │  - WithComponent("txn")                     │          │
	│  │  - WithSessionID("b2b9...-uuid")             │          │
	│  │  - WithResourceID("order-store")             │          │
	│  │  - WithProvider("filestore")                 │          │
	│  └────────────────────────────────────────────┘           │
	└──────────────────────────────────────────────────────────┘

Init writes the human-readable console format unless Config.JSONOutput is
set, in which case it writes JSON. Before Init is called, GlobalLogger
writes JSON to stderr.
*/
package log
