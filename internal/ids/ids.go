package ids

// The identifier types below share a representation (an opaque token string)
// but are deliberately distinct types: a CommandID can never be passed where
// a StreamID is expected. The zero value of every kind is invalid and means
// "no identifier".

// CommandID correlates a submitted command with its eventual result.
// Minted exactly once per command; the sole handle for result delivery.
type CommandID struct{ token string }

// DocumentID names a synchronized document.
type DocumentID struct{ token string }

// StreamID names a bidirectional byte-stream session with a peer.
type StreamID struct{ token string }

// EndpointID names a registered addressable destination for outbound requests.
type EndpointID struct{ token string }

// OutboundRequestID names one in-flight outbound network request.
type OutboundRequestID struct{ token string }

// EntityID names a principal (user, device, or group) in the access-control
// system.
type EntityID struct{ token string }

// IoTaskID names one in-flight storage task. Every IoResult carries the task
// ID it resolves, which is how the engine routes completions.
type IoTaskID struct{ token string }

func (id CommandID) String() string         { return id.token }
func (id DocumentID) String() string        { return id.token }
func (id StreamID) String() string          { return id.token }
func (id EndpointID) String() string        { return id.token }
func (id OutboundRequestID) String() string { return id.token }
func (id EntityID) String() string          { return id.token }
func (id IoTaskID) String() string          { return id.token }

// IsZero reports whether the identifier is the invalid zero value.
func (id CommandID) IsZero() bool         { return id.token == "" }
func (id DocumentID) IsZero() bool        { return id.token == "" }
func (id StreamID) IsZero() bool          { return id.token == "" }
func (id EndpointID) IsZero() bool        { return id.token == "" }
func (id OutboundRequestID) IsZero() bool { return id.token == "" }
func (id EntityID) IsZero() bool          { return id.token == "" }
func (id IoTaskID) IsZero() bool          { return id.token == "" }

// ParseDocumentID reconstructs a DocumentID from its string form. Documents
// are the one identifier kind callers legitimately hold across process
// restarts (a document outlives the session that created it), so the round
// trip through String is supported for them alone.
func ParseDocumentID(token string) (DocumentID, bool) {
	if token == "" {
		return DocumentID{}, false
	}
	return DocumentID{token: token}, true
}
