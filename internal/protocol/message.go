package protocol

// SignedMessage is an authenticated request received from a peer. The
// signature scheme and envelope layout belong to the transport and
// access-control collaborators; the engine never looks inside.
type SignedMessage struct {
	Payload []byte
}

// EndpointResponse is the reply to an outbound request previously sent
// toward a registered endpoint.
type EndpointResponse struct {
	Payload []byte
}
