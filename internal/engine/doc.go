// Package engine implements the driftsync correlation core.
//
// The core is sans-I/O: it performs no network, disk, or timer work itself.
// A host process translates every external occurrence - storage task
// completions, inbound stream bytes, timer ticks, local API calls - into an
// Event and pushes it into the core. The core reacts by updating its own
// bookkeeping, handing asynchronous work to collaborators as uniquely
// identified requests, and eventually delivering exactly one Result for
// every CommandID.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All state mutation happens in the Run goroutine. Events are consumed one
// at a time, in arrival order, and every command produced while handling an
// event is fully issued before the next event is admitted. Concurrency is
// expressed as outstanding correlation identifiers (in-flight storage tasks,
// open streams, pending outbound requests), never as parallel execution
// inside the core.
//
// Correlation:
// Every submitted command carries a freshly minted CommandID; every storage
// task carries a freshly minted IoTaskID. The loop's pending tables map
// completions back to the operation that requested them. Losing or
// misrouting one of these mappings silently corrupts document or
// access-control state, which is why delivery is checked: a second result
// for an already-resolved identifier is a DuplicateCorrelation bug and is
// surfaced loudly rather than absorbed.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every delivered result is stamped with a monotonic seq counter from
// Clock.Next(). Never wall-clock time; traces must replay identically.
//
// Per-Document Serialization:
// At most one mutating command per DocumentID is in flight. Later mutations
// for the same document queue behind the outstanding one and are released
// when its storage task completes.
package engine
