package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	in := Frame{Kind: FrameCommits, Doc: "doc:a", Payload: []byte("batch")}

	data, err := EncodeFrame(in)
	require.NoError(t, err)

	out, err := DecodeFrame(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFrameEncodingIsDeterministic(t *testing.T) {
	f := Frame{Kind: FrameAnnounce, Payload: []byte("docs")}

	a, err := EncodeFrame(f)
	require.NoError(t, err)
	b, err := EncodeFrame(f)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEncodeFrameRequiresKind(t *testing.T) {
	_, err := EncodeFrame(Frame{Payload: []byte("x")})
	assert.Error(t, err)
}

func TestDecodeFrameRejectsGarbage(t *testing.T) {
	_, err := DecodeFrame([]byte("not cbor"))
	assert.Error(t, err)
}

func TestFrameKindStrings(t *testing.T) {
	assert.Equal(t, "announce", FrameAnnounce.String())
	assert.Equal(t, "commits", FrameCommits.String())
	assert.Equal(t, "bundle", FrameBundle.String())
	assert.Equal(t, "ack", FrameAck.String())
	assert.Equal(t, "unknown", FrameKind(99).String())
}
