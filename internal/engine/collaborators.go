package engine

import (
	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/protocol"
)

// The engine consumes its collaborators through the narrow interfaces
// below. Storage is asynchronous - the engine submits tasks and learns of
// completion only through IoComplete events. Access control and network
// hooks are synchronous calls made from the single-writer loop, so
// implementations need no locking of engine-visible state but must not
// block.

// Storage executes storage tasks asynchronously. Submit must not block;
// the eventual IoResult comes back through Ingress.IoComplete. Exactly one
// result per submitted task.
type Storage interface {
	Submit(task IoTask)
}

// AccessControl is the capability engine: group membership, document
// membership, access evaluation, contact cards, payload sealing and
// decryption. The engine passes every commit and bundle payload through
// Seal before it reaches storage; whether Seal actually envelopes the
// bytes is the implementation's policy decision.
// Policy denials are reported as *EngineError with ErrCodeUnauthorized;
// unknown principals and documents as ErrCodeUnknownIdentifier.
type AccessControl interface {
	RegisterDoc(doc ids.DocumentID, owners []ids.EntityID) error
	AddMemberToDoc(doc ids.DocumentID, member ids.EntityID, access protocol.MemberAccess) error
	RemoveMemberFromDoc(doc ids.DocumentID, member ids.EntityID) error
	QueryAccess(doc ids.DocumentID) (map[ids.EntityID]protocol.MemberAccess, error)
	CreateGroup(owners []ids.EntityID) (ids.EntityID, error)
	AddMemberToGroup(add protocol.AddMember) error
	RemoveMemberFromGroup(remove protocol.RemoveMember) error
	CreateContactCard() (protocol.ContactCard, error)
	Seal(doc ids.DocumentID, contents []byte) []byte
	Decrypt(doc ids.DocumentID, contents []byte) ([]byte, error)
}

// Network is the transport collaborator. The engine owns the stream,
// endpoint, and outbound-request registries; Network moves bytes and is
// told about lifecycle transitions.
type Network interface {
	// HandleRequest processes an inbound signed request and produces the
	// response to send back.
	HandleRequest(request protocol.SignedMessage, receiveAudience string) (protocol.EndpointResponse, error)

	// HandleMessage processes raw bytes that arrived on an open stream.
	HandleMessage(stream ids.StreamID, message []byte) error

	// SendRequest transmits an outbound request toward an endpoint. The
	// response, when it arrives, is fed back via Ingress.HandleResponse
	// carrying the same OutboundRequestID.
	SendRequest(request ids.OutboundRequestID, endpoint ids.EndpointID, audience protocol.Audience, payload []byte) error

	StreamOpened(stream ids.StreamID, direction protocol.StreamDirection)
	StreamClosed(stream ids.StreamID)
	EndpointRegistered(endpoint ids.EndpointID, audience protocol.Audience)
	EndpointUnregistered(endpoint ids.EndpointID)
}
