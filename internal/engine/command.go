package engine

import (
	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/protocol"
)

// CommandKind tags the closed set of operations the engine executes. The
// dispatcher matches on this set exhaustively; there is no "unknown
// operation" arm.
type CommandKind int

const (
	CmdHandleRequest CommandKind = iota + 1
	CmdHandleResponse
	CmdAddCommits
	CmdCreateDoc
	CmdLoadDoc
	CmdAddBundle
	CmdCreateStream
	CmdDisconnectStream
	CmdRegisterEndpoint
	CmdUnregisterEndpoints
	CmdStop
	CmdKeyhive
	CmdQueryStatus
)

func (k CommandKind) String() string {
	switch k {
	case CmdHandleRequest:
		return "handle_request"
	case CmdHandleResponse:
		return "handle_response"
	case CmdAddCommits:
		return "add_commits"
	case CmdCreateDoc:
		return "create_doc"
	case CmdLoadDoc:
		return "load_doc"
	case CmdAddBundle:
		return "add_bundle"
	case CmdCreateStream:
		return "create_stream"
	case CmdDisconnectStream:
		return "disconnect_stream"
	case CmdRegisterEndpoint:
		return "register_endpoint"
	case CmdUnregisterEndpoints:
		return "unregister_endpoints"
	case CmdStop:
		return "stop"
	case CmdKeyhive:
		return "keyhive"
	case CmdQueryStatus:
		return "query_status"
	default:
		return "unknown"
	}
}

// Command is one operation request. Commands are immutable once constructed
// and are built only by the Ingress constructors; well-typed arguments can
// never produce an invalid command. Identifier validation ("does this
// document exist?") is deferred to dispatch and reported through the
// command's correlated Result, never synchronously.
//
// Variant payloads larger than a couple of words are held by pointer so the
// command's own footprint stays small regardless of variant.
type Command struct {
	kind CommandKind

	handleRequest  *handleRequestPayload
	handleResponse *handleResponsePayload
	addCommits     *addCommitsPayload
	createDoc      *createDocPayload
	loadDoc        *loadDocPayload
	addBundle      *addBundlePayload
	createStream   *protocol.StreamDirection
	streamID       ids.StreamID      // DisconnectStream
	audience       protocol.Audience // RegisterEndpoint
	endpointID     ids.EndpointID    // UnregisterEndpoints
	keyhive        *KeyhiveCommand
	statusDoc      ids.DocumentID // QueryStatus
}

// Kind returns the command's operation tag.
func (c *Command) Kind() CommandKind { return c.kind }

type handleRequestPayload struct {
	request         protocol.SignedMessage
	receiveAudience string
}

type handleResponsePayload struct {
	requestID ids.OutboundRequestID
	response  protocol.EndpointResponse
}

type addCommitsPayload struct {
	doc     ids.DocumentID
	commits []protocol.Commit
}

type createDocPayload struct {
	initial     protocol.Commit
	otherOwners []ids.EntityID
}

type loadDocPayload struct {
	doc     ids.DocumentID
	decrypt bool
}

type addBundlePayload struct {
	doc    ids.DocumentID
	bundle protocol.CommitBundle
}
