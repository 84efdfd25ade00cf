// Package ids mints the process-unique identifiers that tie asynchronous
// completions back to the operations that requested them.
//
// Every identifier kind (command, document, stream, endpoint, outbound
// request, entity, I/O task) is an opaque typed value: callers compare them
// for equality and nothing else. Identifiers are never reused within a
// process; revocation marks an identifier inactive, it does not recycle it.
//
// Generation is deliberately injectable. A Minter wraps a TokenSource, so
// production code uses time-sortable UUIDv7 tokens while tests supply
// deterministic sequences. There is no package-level counter: two engines in
// one process each own their own Minter and cannot collide or share state.
package ids
