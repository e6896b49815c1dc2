// Package bridge exposes a stateful generative model capability through a
// narrow request/response and streaming surface. It is structured into small
// files by concern:
//
//   - bridge.go: core Bridge type, constructor, capability gate.
//   - config.go: Config and package defaults; New applies defaults.
//   - types.go: availability, stream and request types.
//   - errors.go: error codes and helpers (CodeOf, IsNoSession, ...).
//   - availability.go: the availability probe.
//   - registry.go: session registry and session retirement.
//   - admission.go: per-session queueing; one generation in flight per session.
//   - options.go: permissive parsing of loosely-typed generation options.
//   - dispatch.go: synchronous generation and its future-style variant.
//   - stream.go: stream coordinator and subscription state machine.
//   - events.go, eventpub_*.go: lifecycle event publishers.
//   - metrics.go: Prometheus collectors.
//   - status.go: status reporting.
//
// External packages should use the exported methods on Bridge only
// (CheckAvailability, CreateSession, Session, Generate, Subscribe,
// CancelStream, Status, Shutdown).
package bridge
