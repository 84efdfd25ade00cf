package ids

// Kind prefixes make identifiers self-describing in logs and traces.
// They carry no semantics beyond readability; equality is on the whole token.
const (
	prefixCommand  = "cmd"
	prefixDocument = "doc"
	prefixStream   = "stream"
	prefixEndpoint = "endpoint"
	prefixOutbound = "req"
	prefixEntity   = "entity"
	prefixIoTask   = "io"
)

// Minter mints typed identifiers from a TokenSource.
//
// A Minter is the only way to obtain a non-zero identifier, which is what
// makes identifiers unforgeable outside this package. Mint methods are as
// concurrency-safe as the underlying source; generation is infallible.
type Minter struct {
	src TokenSource
}

// NewMinter creates a Minter over the given source.
func NewMinter(src TokenSource) *Minter {
	return &Minter{src: src}
}

func (m *Minter) mint(prefix string) string {
	return prefix + ":" + m.src.Generate()
}

// CommandID mints a fresh command identifier.
func (m *Minter) CommandID() CommandID { return CommandID{token: m.mint(prefixCommand)} }

// DocumentID mints a fresh document identifier.
func (m *Minter) DocumentID() DocumentID { return DocumentID{token: m.mint(prefixDocument)} }

// StreamID mints a fresh stream identifier.
func (m *Minter) StreamID() StreamID { return StreamID{token: m.mint(prefixStream)} }

// EndpointID mints a fresh endpoint identifier.
func (m *Minter) EndpointID() EndpointID { return EndpointID{token: m.mint(prefixEndpoint)} }

// OutboundRequestID mints a fresh outbound request identifier.
func (m *Minter) OutboundRequestID() OutboundRequestID {
	return OutboundRequestID{token: m.mint(prefixOutbound)}
}

// EntityID mints a fresh access-control entity identifier.
func (m *Minter) EntityID() EntityID { return EntityID{token: m.mint(prefixEntity)} }

// IoTaskID mints a fresh storage task identifier.
func (m *Minter) IoTaskID() IoTaskID { return IoTaskID{token: m.mint(prefixIoTask)} }
