package engine

import (
	"sync"

	"github.com/driftsync/driftsync/internal/docs"
	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/protocol"
)

// Result is the single, correlated outcome of one submitted command.
// Exactly one Result exists per CommandID, delivered after zero or more
// further events have entered the engine. Err is nil on success; which of
// the payload fields is populated depends on Kind.
type Result struct {
	CommandID ids.CommandID
	Kind      CommandKind
	Seq       int64
	Err       *EngineError

	Doc      ids.DocumentID                         // CreateDoc, AddCommits, AddBundle, LoadDoc, QueryStatus
	Commits  []protocol.Commit                      // LoadDoc
	Stream   ids.StreamID                           // CreateStream
	Endpoint ids.EndpointID                         // RegisterEndpoint
	Entity   ids.EntityID                           // CreateGroup
	Access   map[ids.EntityID]protocol.MemberAccess // QueryAccess
	Card     protocol.ContactCard                   // CreateContactCard
	Response protocol.EndpointResponse              // HandleRequest
	Status   docs.Status                            // QueryStatus
}

// OK reports whether the command succeeded.
func (r Result) OK() bool { return r.Err == nil }

// resultRegistry is the completion registry keyed by CommandID: the
// result-delivery channel behind the correlation contract. Claim may be
// called before or after the result exists; either way the caller sees
// exactly one Result. A second delivery for the same CommandID is a
// DuplicateCorrelation bug reported to the caller of deliver, never
// silently absorbed.
//
// Thread-safety: Claim is safe from any goroutine; deliver is called only
// from the Run loop but locks anyway so the two sides cannot race.
type resultRegistry struct {
	mu      sync.Mutex
	waiting map[ids.CommandID]chan Result
	done    map[ids.CommandID]bool
}

func newResultRegistry() *resultRegistry {
	return &resultRegistry{
		waiting: make(map[ids.CommandID]chan Result),
		done:    make(map[ids.CommandID]bool),
	}
}

// Claim returns the channel on which the command's single Result arrives.
// The channel is buffered: delivery never blocks the loop on a slow caller.
// Claiming the same CommandID twice returns the same channel.
func (r *resultRegistry) Claim(cmdID ids.CommandID) <-chan Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.waiting[cmdID]
	if !ok {
		ch = make(chan Result, 1)
		r.waiting[cmdID] = ch
	}
	return ch
}

// deliver resolves a CommandID with its result. Returns a
// DuplicateCorrelation error if the CommandID was already resolved.
func (r *resultRegistry) deliver(res Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.done[res.CommandID] {
		return newDuplicateCorrelation(res.CommandID.String())
	}
	r.done[res.CommandID] = true

	ch, ok := r.waiting[res.CommandID]
	if !ok {
		// Result before claim: park it so a later Claim still sees it.
		ch = make(chan Result, 1)
		r.waiting[res.CommandID] = ch
	}
	ch <- res
	return nil
}

// resolved reports whether the CommandID already has its result.
func (r *resultRegistry) resolved(cmdID ids.CommandID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done[cmdID]
}
