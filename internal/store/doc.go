// Package store provides durable storage for document history.
//
// The layout is a single key/value table over SQLite. Keys are
// slash-separated paths written by the engine ("<doc>/commits/<seq>",
// "<doc>/bundles/<seq>"), zero-padded so lexicographic range scans return
// history in write order. The store never interprets values; they are
// opaque encoded batches.
//
// Executor adapts the store to the engine's asynchronous Storage contract:
// tasks are executed on a single worker in submission order and completions
// are handed to a sink, which in practice feeds them back into the engine's
// event queue.
package store
