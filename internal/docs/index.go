// Package docs keeps per-document bookkeeping for the engine: which
// documents exist, how much history each has, and which commit hashes are
// current heads.
//
// This is deliberately not a CRDT. Merging and conflict resolution belong to
// the document engine proper; the index only tracks what has been durably
// stored so the correlation core can answer status queries and reject
// operations on unknown documents.
//
// Thread-safety: none. The index is owned by the engine's single-writer
// loop and must only be touched from it.
package docs

import (
	"sort"

	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/protocol"
)

// Status is the introspection snapshot for one document.
type Status struct {
	Exists      bool
	Durable     bool // initial commit confirmed written
	CommitCount int
	BundleCount int
	Heads       []protocol.CommitHash
}

type docState struct {
	durable     bool
	commitCount int
	bundleCount int
	heads       map[protocol.CommitHash]bool
	parents     map[protocol.CommitHash]bool
}

// Index tracks every document this process knows about.
type Index struct {
	byID map[ids.DocumentID]*docState
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{byID: make(map[ids.DocumentID]*docState)}
}

// Create registers a new document with its initial commit. The document is
// visible immediately so follow-up commands can queue behind the creation,
// but stays non-durable until Confirm is called.
func (x *Index) Create(doc ids.DocumentID, initial protocol.Commit) {
	st := &docState{
		heads:   make(map[protocol.CommitHash]bool),
		parents: make(map[protocol.CommitHash]bool),
	}
	st.apply([]protocol.Commit{initial})
	x.byID[doc] = st
}

// Confirm marks a created document durable.
func (x *Index) Confirm(doc ids.DocumentID) {
	if st, ok := x.byID[doc]; ok {
		st.durable = true
	}
}

// Drop removes a document whose creation failed.
func (x *Index) Drop(doc ids.DocumentID) {
	delete(x.byID, doc)
}

// Known reports whether the document exists (durable or pending creation).
func (x *Index) Known(doc ids.DocumentID) bool {
	_, ok := x.byID[doc]
	return ok
}

// RecordCommits folds a durably stored batch of commits into the index.
func (x *Index) RecordCommits(doc ids.DocumentID, commits []protocol.Commit) {
	if st, ok := x.byID[doc]; ok {
		st.apply(commits)
	}
}

// RecordBundle folds a durably stored bundle into the index.
func (x *Index) RecordBundle(doc ids.DocumentID, bundle protocol.CommitBundle) {
	st, ok := x.byID[doc]
	if !ok {
		return
	}
	st.bundleCount++
	// A bundle supersedes the heads it covers; its end hash becomes a head
	// unless something already builds on it.
	if !st.parents[bundle.End] {
		st.heads[bundle.End] = true
	}
	for _, cp := range bundle.Checkpoints {
		delete(st.heads, cp)
	}
	delete(st.heads, bundle.Start)
}

// Status returns the snapshot for a document. Exists is false for unknown
// documents and the rest of the snapshot is zero.
func (x *Index) Status(doc ids.DocumentID) Status {
	st, ok := x.byID[doc]
	if !ok {
		return Status{}
	}
	heads := make([]protocol.CommitHash, 0, len(st.heads))
	for h := range st.heads {
		heads = append(heads, h)
	}
	// Sorted so status snapshots are deterministic across runs.
	sort.Slice(heads, func(i, j int) bool { return heads[i] < heads[j] })
	return Status{
		Exists:      true,
		Durable:     st.durable,
		CommitCount: st.commitCount,
		BundleCount: st.bundleCount,
		Heads:       heads,
	}
}

// Docs returns every known document ID, sorted for determinism.
func (x *Index) Docs() []ids.DocumentID {
	out := make([]ids.DocumentID, 0, len(x.byID))
	for id := range x.byID {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Len returns the number of known documents.
func (x *Index) Len() int { return len(x.byID) }

func (st *docState) apply(commits []protocol.Commit) {
	for _, c := range commits {
		st.commitCount++
		for _, p := range c.Parents {
			st.parents[p] = true
			delete(st.heads, p)
		}
		if !st.parents[c.Hash] {
			st.heads[c.Hash] = true
		}
	}
}
