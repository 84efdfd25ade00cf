package engine

import (
	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/protocol"
)

// eventKind tags the closed four-case union behind Event.
type eventKind int

const (
	evIoComplete eventKind = iota + 1
	evBeginCommand
	evStreamMessage
	evTick
)

func (k eventKind) String() string {
	switch k {
	case evIoComplete:
		return "io_complete"
	case evBeginCommand:
		return "begin_command"
	case evStreamMessage:
		return "stream_message"
	case evTick:
		return "tick"
	default:
		return "unknown"
	}
}

// Event is the single value type accepted at the engine's ingress. It is an
// opaque wrapper: callers obtain events only through the Ingress
// constructors and never inspect the internal tag. Internally it is exactly
// one of four cases: a storage completion, a command submission, inbound
// stream bytes, or a timer tick.
type Event struct {
	kind eventKind

	io       IoResult      // evIoComplete
	cmdID    ids.CommandID // evBeginCommand
	cmd      *Command      // evBeginCommand
	streamID ids.StreamID  // evStreamMessage
	message  []byte        // evStreamMessage
}

// Ingress builds events. Constructors that submit an operation mint exactly
// one fresh CommandID from the injected minter and return it alongside the
// event; the caller keeps the CommandID to claim the operation's eventual
// Result. Constructors are pure value constructors: no I/O, no blocking, no
// validation - safe to call from any goroutine.
type Ingress struct {
	minter *ids.Minter
}

// NewIngress creates an Ingress minting from the given minter. The engine
// the events are fed to must share the same minter, so identifiers minted
// here and identifiers minted inside the loop stay in one namespace.
func NewIngress(minter *ids.Minter) *Ingress {
	return &Ingress{minter: minter}
}

func (in *Ingress) begin(cmd *Command) (ids.CommandID, Event) {
	cmdID := in.minter.CommandID()
	return cmdID, Event{kind: evBeginCommand, cmdID: cmdID, cmd: cmd}
}

// IoComplete wraps a finished storage task. No CommandID: completions are
// raw occurrences the engine routes with its own task bookkeeping.
func (in *Ingress) IoComplete(result IoResult) Event {
	return Event{kind: evIoComplete, io: result}
}

// HandleMessage wraps raw bytes that arrived on an existing stream.
func (in *Ingress) HandleMessage(stream ids.StreamID, message []byte) Event {
	return Event{kind: evStreamMessage, streamID: stream, message: message}
}

// Tick is the sole time-driven scheduling opportunity: timeout detection and
// periodic housekeeping hang off it. No payload.
func (in *Ingress) Tick() Event {
	return Event{kind: evTick}
}

// HandleRequest submits an inbound signed request for processing.
func (in *Ingress) HandleRequest(request protocol.SignedMessage, receiveAudience string) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind: CmdHandleRequest,
		handleRequest: &handleRequestPayload{
			request:         request,
			receiveAudience: receiveAudience,
		},
	})
}

// HandleResponse submits the response to a previously issued outbound
// request.
func (in *Ingress) HandleResponse(requestID ids.OutboundRequestID, response protocol.EndpointResponse) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind: CmdHandleResponse,
		handleResponse: &handleResponsePayload{
			requestID: requestID,
			response:  response,
		},
	})
}

// AddCommits submits new commits for an existing document.
func (in *Ingress) AddCommits(doc ids.DocumentID, commits []protocol.Commit) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind:       CmdAddCommits,
		addCommits: &addCommitsPayload{doc: doc, commits: commits},
	})
}

// CreateDoc submits creation of a new document with its initial commit and
// any co-owning entities.
func (in *Ingress) CreateDoc(initial protocol.Commit, otherOwners []ids.EntityID) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind:      CmdCreateDoc,
		createDoc: &createDocPayload{initial: initial, otherOwners: otherOwners},
	})
}

// LoadDoc submits retrieval of a document with payload decryption.
func (in *Ingress) LoadDoc(doc ids.DocumentID) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind:    CmdLoadDoc,
		loadDoc: &loadDocPayload{doc: doc, decrypt: true},
	})
}

// LoadDocEncrypted submits retrieval of a document without decryption.
// Same lookup and existence behavior as LoadDoc; only the decrypt flag
// differs.
func (in *Ingress) LoadDocEncrypted(doc ids.DocumentID) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind:    CmdLoadDoc,
		loadDoc: &loadDocPayload{doc: doc, decrypt: false},
	})
}

// AddBundle submits a commit bundle for an existing document.
func (in *Ingress) AddBundle(doc ids.DocumentID, bundle protocol.CommitBundle) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind:      CmdAddBundle,
		addBundle: &addBundlePayload{doc: doc, bundle: bundle},
	})
}

// CreateStream submits opening of a stream session in the given direction.
func (in *Ingress) CreateStream(direction protocol.StreamDirection) (ids.CommandID, Event) {
	return in.begin(&Command{kind: CmdCreateStream, createStream: &direction})
}

// DisconnectStream submits teardown of a stream session.
func (in *Ingress) DisconnectStream(stream ids.StreamID) (ids.CommandID, Event) {
	return in.begin(&Command{kind: CmdDisconnectStream, streamID: stream})
}

// RegisterEndpoint submits registration of an addressable destination.
func (in *Ingress) RegisterEndpoint(audience protocol.Audience) (ids.CommandID, Event) {
	return in.begin(&Command{kind: CmdRegisterEndpoint, audience: audience})
}

// UnregisterEndpoint submits removal of a registered endpoint.
func (in *Ingress) UnregisterEndpoint(endpoint ids.EndpointID) (ids.CommandID, Event) {
	return in.begin(&Command{kind: CmdUnregisterEndpoints, endpointID: endpoint})
}

// Stop submits engine shutdown. The CommandID minted here is internal
// bookkeeping; shutdown is observed by Run returning, not by a Result.
func (in *Ingress) Stop() Event {
	_, ev := in.begin(&Command{kind: CmdStop})
	return ev
}

// AddMemberToDoc submits granting a member an access level on a document.
func (in *Ingress) AddMemberToDoc(doc ids.DocumentID, member ids.EntityID, access protocol.MemberAccess) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind:    CmdKeyhive,
		keyhive: &KeyhiveCommand{kind: KeyhiveAddMemberToDoc, doc: doc, member: member, access: access},
	})
}

// RemoveMemberFromDoc submits revoking a member's access to a document.
func (in *Ingress) RemoveMemberFromDoc(doc ids.DocumentID, member ids.EntityID) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind:    CmdKeyhive,
		keyhive: &KeyhiveCommand{kind: KeyhiveRemoveMemberFromDoc, doc: doc, member: member},
	})
}

// QueryAccess submits an access query for a document.
func (in *Ingress) QueryAccess(doc ids.DocumentID) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind:    CmdKeyhive,
		keyhive: &KeyhiveCommand{kind: KeyhiveQueryAccess, doc: doc},
	})
}

// CreateGroup submits creation of a group with the given co-owners.
func (in *Ingress) CreateGroup(otherOwners []ids.EntityID) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind:    CmdKeyhive,
		keyhive: &KeyhiveCommand{kind: KeyhiveCreateGroup, owners: otherOwners},
	})
}

// AddMemberToGroup submits a group-membership grant.
func (in *Ingress) AddMemberToGroup(add protocol.AddMember) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind:    CmdKeyhive,
		keyhive: &KeyhiveCommand{kind: KeyhiveAddMemberToGroup, add: add},
	})
}

// RemoveMemberFromGroup submits a group-membership revocation.
func (in *Ingress) RemoveMemberFromGroup(remove protocol.RemoveMember) (ids.CommandID, Event) {
	return in.begin(&Command{
		kind:    CmdKeyhive,
		keyhive: &KeyhiveCommand{kind: KeyhiveRemoveMemberFromGroup, remove: remove},
	})
}

// CreateContactCard submits minting of a shareable contact card for the
// local principal.
func (in *Ingress) CreateContactCard() (ids.CommandID, Event) {
	return in.begin(&Command{
		kind:    CmdKeyhive,
		keyhive: &KeyhiveCommand{kind: KeyhiveCreateContactCard},
	})
}

// QueryStatus submits an introspection query for a document.
func (in *Ingress) QueryStatus(doc ids.DocumentID) (ids.CommandID, Event) {
	return in.begin(&Command{kind: CmdQueryStatus, statusDoc: doc})
}
