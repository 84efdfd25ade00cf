// Package keyhive is the access-control collaborator: principals, groups,
// per-document membership, contact cards, and payload sealing.
//
// The engine consults it synchronously from the event loop, so every method
// must return quickly. Policy defaults come from a CUE policy file loaded at
// startup; the membership state itself lives in memory and is rebuilt from
// the capability graph on restart.
//
// Sealing here is an envelope check, not cryptography. The envelope binds a
// payload to its document so a payload replayed under another document is
// rejected; actual encryption belongs to a key-management layer behind the
// same interface.
package keyhive
