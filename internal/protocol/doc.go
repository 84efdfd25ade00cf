// Package protocol holds the immutable payload values carried by engine
// commands and events: commits, commit bundles, signed messages, audiences,
// stream directions, and access levels.
//
// Nothing here parses or validates network bytes. The engine treats these
// values as opaque cargo; the collaborators that produce and consume them
// (document engine, access control, transport) own their semantics.
package protocol
