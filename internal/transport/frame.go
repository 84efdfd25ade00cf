// Package transport carries engine traffic between peers. Frames are the
// unit of exchange on streams and request/response pairs; Loopback is an
// in-process Network for hosts that wire several engines together and for
// the scenario harness.
package transport

import (
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
)

// FrameKind tags the payload of one frame.
type FrameKind int

const (
	// FrameAnnounce advertises a peer's document set.
	FrameAnnounce FrameKind = iota + 1
	// FrameCommits carries encoded commit batches for a document.
	FrameCommits
	// FrameBundle carries one encoded commit bundle.
	FrameBundle
	// FrameAck acknowledges a request.
	FrameAck
)

func (k FrameKind) String() string {
	switch k {
	case FrameAnnounce:
		return "announce"
	case FrameCommits:
		return "commits"
	case FrameBundle:
		return "bundle"
	case FrameAck:
		return "ack"
	default:
		return "unknown"
	}
}

// Frame is one unit of peer traffic. Doc scopes commit and bundle frames;
// Payload holds the encoded batch, bundle, or announcement.
type Frame struct {
	Kind    FrameKind `cbor:"1,keyasint"`
	Doc     string    `cbor:"2,keyasint,omitempty"`
	Payload []byte    `cbor:"3,keyasint,omitempty"`
}

var (
	frameEnc cbor.EncMode
	frameDec cbor.DecMode
)

func init() {
	var err error
	frameEnc, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("transport: cbor enc mode: " + err.Error())
	}
	frameDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("transport: cbor dec mode: " + err.Error())
	}
}

// EncodeFrame serializes a frame with deterministic CBOR.
func EncodeFrame(f Frame) ([]byte, error) {
	if f.Kind == 0 {
		return nil, fmt.Errorf("encode frame: kind not set")
	}
	return frameEnc.Marshal(f)
}

// DecodeFrame parses a frame previously written by EncodeFrame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := frameDec.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Kind == 0 {
		return Frame{}, fmt.Errorf("decode frame: kind not set")
	}
	return f, nil
}
