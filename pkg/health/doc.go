/*
Package health provides a small, pluggable health-checking framework: a
Checker reports whether a single dependency is currently reachable, and
a Status tracker turns a stream of Results into a debounced
healthy/unhealthy verdict.

	Checker (interface)
	├── HTTPChecker  - GET/HEAD a URL, healthy if status falls in range
	├── TCPChecker   - dial an address, healthy if the connection succeeds
	├── ExecChecker  - run a command, healthy on exit code 0
	└── StoreChecker - call kv.Store.Count under a deadline (store.go)

cmd/ledgerctl's serve subcommand runs one StoreChecker per enabled
provider at startup and registers each result with pkg/metrics'
component registry (metrics.RegisterComponent), so /health lists whether
each backend is actually reachable. It also registers the "kv_backend"
component, healthy only if every provider's check passed, which /ready
gates on together with "coordinator".

Status.Update requires Config.Retries consecutive failures before
flipping Healthy to false, and a single success to flip it back, so a
momentary blip in one provider does not flap the process's readiness.
*/
package health
