package transport

import (
	"log/slog"
	"sync"

	"github.com/driftsync/driftsync/internal/engine"
	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/protocol"
)

// EventSink is the slice of the engine the loopback needs: a way to feed
// response events back in. Satisfied by *engine.Engine.
type EventSink interface {
	Submit(ev engine.Event) bool
	Ingress() *engine.Ingress
}

// PeerHandler answers a request addressed to an audience and returns the
// response payload.
type PeerHandler func(payload []byte) []byte

// Loopback is an in-process Network. Outbound requests are answered by peer
// handlers registered per audience; the response is fed back into the engine
// as a HandleResponse command carrying the original OutboundRequestID, which
// closes the correlation loop the same way a real transport would.
//
// Requests toward an audience with no registered peer are dropped, so the
// engine's outbound bookkeeping expires them on ticks.
type Loopback struct {
	log *slog.Logger

	mu      sync.Mutex
	sink    EventSink
	peers   map[protocol.Audience]PeerHandler
	streams map[ids.StreamID]protocol.StreamDirection
	inbox   map[ids.StreamID][]Frame
}

// NewLoopback creates a loopback network. Attach must be called before the
// engine runs.
func NewLoopback(log *slog.Logger) *Loopback {
	return &Loopback{
		log:     log,
		peers:   make(map[protocol.Audience]PeerHandler),
		streams: make(map[ids.StreamID]protocol.StreamDirection),
		inbox:   make(map[ids.StreamID][]Frame),
	}
}

// Attach binds the loopback to the engine consuming its responses.
func (l *Loopback) Attach(sink EventSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

// RegisterPeer installs the handler answering requests for an audience.
func (l *Loopback) RegisterPeer(audience protocol.Audience, handler PeerHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.peers[audience] = handler
}

// HandleRequest answers an inbound request locally with an ack frame.
func (l *Loopback) HandleRequest(request protocol.SignedMessage, receiveAudience string) (protocol.EndpointResponse, error) {
	if _, err := DecodeFrame(request.Payload); err != nil {
		return protocol.EndpointResponse{}, err
	}
	ack, err := EncodeFrame(Frame{Kind: FrameAck})
	if err != nil {
		return protocol.EndpointResponse{}, err
	}
	return protocol.EndpointResponse{Payload: ack}, nil
}

// HandleMessage decodes a stream frame into the stream's inbox.
func (l *Loopback) HandleMessage(stream ids.StreamID, message []byte) error {
	frame, err := DecodeFrame(message)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inbox[stream] = append(l.inbox[stream], frame)
	return nil
}

// SendRequest routes an outbound request to the peer registered for the
// audience. The peer's response re-enters the engine asynchronously, off the
// loop goroutine, exactly as a network callback would.
func (l *Loopback) SendRequest(request ids.OutboundRequestID, endpoint ids.EndpointID, audience protocol.Audience, payload []byte) error {
	l.mu.Lock()
	handler, ok := l.peers[audience]
	sink := l.sink
	l.mu.Unlock()

	if !ok {
		l.log.Debug("no peer for audience, request will expire",
			"request_id", request,
			"audience", audience.String())
		return nil
	}

	go func() {
		response := handler(payload)
		_, ev := sink.Ingress().HandleResponse(request, protocol.EndpointResponse{Payload: response})
		if !sink.Submit(ev) {
			l.log.Debug("engine stopped before response delivery", "request_id", request)
		}
	}()
	return nil
}

// StreamOpened starts inbox bookkeeping for a stream.
func (l *Loopback) StreamOpened(stream ids.StreamID, direction protocol.StreamDirection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.streams[stream] = direction
}

// StreamClosed drops the stream's inbox.
func (l *Loopback) StreamClosed(stream ids.StreamID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.streams, stream)
	delete(l.inbox, stream)
}

func (l *Loopback) EndpointRegistered(endpoint ids.EndpointID, audience protocol.Audience) {
	l.log.Debug("endpoint registered", "endpoint_id", endpoint, "audience", audience.String())
}

func (l *Loopback) EndpointUnregistered(endpoint ids.EndpointID) {
	l.log.Debug("endpoint unregistered", "endpoint_id", endpoint)
}

// Inbox returns the frames received on a stream, in arrival order.
func (l *Loopback) Inbox(stream ids.StreamID) []Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Frame(nil), l.inbox[stream]...)
}
