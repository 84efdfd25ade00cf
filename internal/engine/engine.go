package engine

import (
	"context"
	"log/slog"

	"github.com/driftsync/driftsync/internal/docs"
	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/protocol"
)

const (
	// announceEveryTicks is how often the engine advertises its document set
	// to registered endpoints.
	announceEveryTicks = 5

	// outboundExpiryTicks is how long an outbound request stays correlatable.
	// A response arriving after expiry is rejected as an unknown identifier.
	outboundExpiryTicks = 10
)

// Engine is the single-writer correlation core. All mutation of engine state
// happens on the goroutine running Run; hosts interact with it through
// Ingress-built events fed to Submit and through Claim on the CommandIDs the
// Ingress constructors return.
type Engine struct {
	log     *slog.Logger
	name    string
	minter  *ids.Minter
	ingress *Ingress
	queue   *eventQueue
	clock   *Clock
	results *resultRegistry

	// keyClock numbers storage keys. Separate from clock so delivered
	// results carry a dense sequence.
	keyClock *Clock

	storage Storage
	access  AccessControl
	network Network

	// Loop-owned state below. Never touched off the Run goroutine.
	index      *docs.Index
	pendingIo  map[ids.IoTaskID]*pendingTask
	docBusy    map[ids.DocumentID]bool
	docWaiting map[ids.DocumentID][]queuedCommand
	streams    map[ids.StreamID]protocol.StreamDirection
	endpoints  map[ids.EndpointID]protocol.Audience
	outbound   map[ids.OutboundRequestID]outboundRecord
	ticks      int64
	stopping   bool
}

// pendingTask ties an in-flight storage task back to the command that issued
// it. complete runs on the loop goroutine when the IoResult arrives; doc is
// the document whose serialization slot the task holds, zero for none.
type pendingTask struct {
	cmdID    ids.CommandID
	kind     CommandKind
	doc      ids.DocumentID
	complete func(IoResult)
}

type queuedCommand struct {
	cmdID ids.CommandID
	cmd   *Command
}

type outboundRecord struct {
	endpoint ids.EndpointID
	issued   int64 // tick count at issue
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithTokenSource sets the identifier token source. Defaults to UUIDv7
// tokens; tests inject deterministic sources.
func WithTokenSource(src ids.TokenSource) Option {
	return func(e *Engine) { e.minter = ids.NewMinter(src) }
}

// WithPeerName sets the name announced to endpoints. Defaults to "driftsync".
func WithPeerName(name string) Option {
	return func(e *Engine) { e.name = name }
}

// New creates an engine over the given collaborators. The engine does
// nothing until Run is called.
func New(storage Storage, access AccessControl, network Network, opts ...Option) *Engine {
	e := &Engine{
		log:        slog.Default(),
		name:       "driftsync",
		minter:     ids.NewMinter(ids.UUIDv7Source{}),
		queue:      newEventQueue(),
		clock:      NewClock(),
		keyClock:   NewClock(),
		results:    newResultRegistry(),
		storage:    storage,
		access:     access,
		network:    network,
		index:      docs.NewIndex(),
		pendingIo:  make(map[ids.IoTaskID]*pendingTask),
		docBusy:    make(map[ids.DocumentID]bool),
		docWaiting: make(map[ids.DocumentID][]queuedCommand),
		streams:    make(map[ids.StreamID]protocol.StreamDirection),
		endpoints:  make(map[ids.EndpointID]protocol.Audience),
		outbound:   make(map[ids.OutboundRequestID]outboundRecord),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ingress = NewIngress(e.minter)
	return e
}

// Ingress returns the event constructor bound to this engine's minter.
func (e *Engine) Ingress() *Ingress { return e.ingress }

// Submit enqueues an event for the Run loop. Thread-safe and non-blocking.
// Returns false once the engine has stopped.
func (e *Engine) Submit(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// Claim returns the channel carrying the single Result for a submitted
// command. Safe to call before or after the result exists.
func (e *Engine) Claim(cmdID ids.CommandID) <-chan Result {
	return e.results.Claim(cmdID)
}

// Run is the single-writer event loop. It processes events in strict arrival
// order until a Stop event is handled or ctx is cancelled. Only one Run may
// be active per engine.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine started", "peer", e.name)

	for {
		ev, ok := e.queue.TryDequeue()
		if !ok {
			if e.stopping {
				e.log.Info("engine stopped", "seq", e.clock.Current())
				return nil
			}
			select {
			case <-ctx.Done():
				e.shutdown()
				return ctx.Err()
			case <-e.queue.Wait():
				continue
			}
		}
		e.handleEvent(ev)
	}
}

// shutdown fails everything still in flight with STOPPED and closes the
// queue. Runs on the loop goroutine only.
func (e *Engine) shutdown() {
	e.stopping = true

	for _, waiting := range e.docWaiting {
		for _, qc := range waiting {
			e.deliver(Result{CommandID: qc.cmdID, Kind: qc.cmd.kind, Err: newStopped()})
		}
	}
	e.docWaiting = make(map[ids.DocumentID][]queuedCommand)

	for taskID, pt := range e.pendingIo {
		e.deliver(Result{CommandID: pt.cmdID, Kind: pt.kind, Err: newStopped()})
		delete(e.pendingIo, taskID)
	}
	e.docBusy = make(map[ids.DocumentID]bool)
	e.outbound = make(map[ids.OutboundRequestID]outboundRecord)

	e.queue.Close()

	// Drain what was enqueued before the close so no submitter waits on a
	// result that will never come.
	for {
		ev, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		if ev.kind == evBeginCommand {
			e.deliver(Result{CommandID: ev.cmdID, Kind: ev.cmd.kind, Err: newStopped()})
		}
	}
}

// deliver hands a result to the registry, stamping it with the logical clock.
// Duplicate delivery is a bug in this file; it is logged loudly rather than
// surfaced to the caller who would have no way to act on it.
func (e *Engine) deliver(res Result) {
	res.Seq = e.clock.Next()
	if err := e.results.deliver(res); err != nil {
		e.log.Error("duplicate result delivery",
			"command_id", res.CommandID,
			"kind", res.Kind.String(),
			"err", err)
	}
}

// submitIo mints a task ID, records the continuation, and hands the task to
// storage. The continuation runs on the loop goroutine when the completion
// event arrives.
func (e *Engine) submitIo(cmdID ids.CommandID, kind CommandKind, doc ids.DocumentID, action IoAction, key string, payload []byte, complete func(IoResult)) {
	taskID := e.minter.IoTaskID()
	e.pendingIo[taskID] = &pendingTask{
		cmdID:    cmdID,
		kind:     kind,
		doc:      doc,
		complete: complete,
	}
	e.log.Debug("storage task issued",
		"task_id", taskID,
		"action", action.String(),
		"key", key,
		"command_id", cmdID)
	e.storage.Submit(IoTask{ID: taskID, Action: action, Key: key, Payload: payload})
}
