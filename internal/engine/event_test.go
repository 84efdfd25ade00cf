package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/protocol"
)

func newTestMinter() *ids.Minter {
	return ids.NewMinter(ids.NewPrefixedSource("test"))
}

func testStream() ids.StreamID {
	return newTestMinter().StreamID()
}

func TestIngressMintsUniqueCommandIDs(t *testing.T) {
	in := NewIngress(newTestMinter())

	seen := make(map[ids.CommandID]bool)
	for i := 0; i < 100; i++ {
		cmdID, ev := in.QueryStatus(ids.DocumentID{})
		require.False(t, cmdID.IsZero())
		require.False(t, seen[cmdID], "command id minted twice")
		seen[cmdID] = true
		assert.Equal(t, cmdID, ev.cmdID, "event must carry the returned id")
	}
}

func TestIngressCommandKinds(t *testing.T) {
	in := NewIngress(newTestMinter())
	doc := newTestMinter().DocumentID()
	entity := newTestMinter().EntityID()

	tests := []struct {
		name string
		ev   Event
		want CommandKind
	}{
		{"handle_request", second(in.HandleRequest(protocol.SignedMessage{}, "")), CmdHandleRequest},
		{"handle_response", second(in.HandleResponse(ids.OutboundRequestID{}, protocol.EndpointResponse{})), CmdHandleResponse},
		{"add_commits", second(in.AddCommits(doc, nil)), CmdAddCommits},
		{"create_doc", second(in.CreateDoc(protocol.Commit{}, nil)), CmdCreateDoc},
		{"load_doc", second(in.LoadDoc(doc)), CmdLoadDoc},
		{"load_doc_encrypted", second(in.LoadDocEncrypted(doc)), CmdLoadDoc},
		{"add_bundle", second(in.AddBundle(doc, protocol.CommitBundle{})), CmdAddBundle},
		{"create_stream", second(in.CreateStream(protocol.Accept())), CmdCreateStream},
		{"disconnect_stream", second(in.DisconnectStream(testStream())), CmdDisconnectStream},
		{"register_endpoint", second(in.RegisterEndpoint(protocol.ServiceName("x"))), CmdRegisterEndpoint},
		{"unregister_endpoints", second(in.UnregisterEndpoint(ids.EndpointID{})), CmdUnregisterEndpoints},
		{"query_status", second(in.QueryStatus(doc)), CmdQueryStatus},
		{"add_member_to_doc", second(in.AddMemberToDoc(doc, entity, protocol.AccessRead)), CmdKeyhive},
		{"remove_member_from_doc", second(in.RemoveMemberFromDoc(doc, entity)), CmdKeyhive},
		{"query_access", second(in.QueryAccess(doc)), CmdKeyhive},
		{"create_group", second(in.CreateGroup(nil)), CmdKeyhive},
		{"add_member_to_group", second(in.AddMemberToGroup(protocol.AddMember{})), CmdKeyhive},
		{"remove_member_from_group", second(in.RemoveMemberFromGroup(protocol.RemoveMember{})), CmdKeyhive},
		{"create_contact_card", second(in.CreateContactCard()), CmdKeyhive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, evBeginCommand, tt.ev.kind)
			require.NotNil(t, tt.ev.cmd)
			assert.Equal(t, tt.want, tt.ev.cmd.Kind())
		})
	}
}

func second(_ ids.CommandID, ev Event) Event { return ev }

func TestLoadDocVariantsDifferOnlyInDecrypt(t *testing.T) {
	in := NewIngress(newTestMinter())
	doc := newTestMinter().DocumentID()

	_, plain := in.LoadDoc(doc)
	_, encrypted := in.LoadDocEncrypted(doc)

	require.True(t, plain.cmd.loadDoc.decrypt)
	require.False(t, encrypted.cmd.loadDoc.decrypt)
	assert.Equal(t, doc, plain.cmd.loadDoc.doc)
	assert.Equal(t, doc, encrypted.cmd.loadDoc.doc)
}

func TestStopEventCarriesInternalCommand(t *testing.T) {
	in := NewIngress(newTestMinter())

	ev := in.Stop()
	require.Equal(t, evBeginCommand, ev.kind)
	require.NotNil(t, ev.cmd)
	assert.Equal(t, CmdStop, ev.cmd.Kind())
	assert.False(t, ev.cmdID.IsZero())
}

func TestBareEventConstructors(t *testing.T) {
	in := NewIngress(newTestMinter())

	io := in.IoComplete(IoResult{Action: IoPut})
	assert.Equal(t, evIoComplete, io.kind)

	stream := testStream()
	msg := in.HandleMessage(stream, []byte("payload"))
	assert.Equal(t, evStreamMessage, msg.kind)
	assert.Equal(t, stream, msg.streamID)
	assert.Equal(t, []byte("payload"), msg.message)

	tick := in.Tick()
	assert.Equal(t, evTick, tick.kind)
	assert.True(t, tick.cmdID.IsZero(), "ticks carry no correlation")
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "io_complete", evIoComplete.String())
	assert.Equal(t, "begin_command", evBeginCommand.String())
	assert.Equal(t, "stream_message", evStreamMessage.String())
	assert.Equal(t, "tick", evTick.String())

	assert.Equal(t, "create_doc", CmdCreateDoc.String())
	assert.Equal(t, "keyhive", CmdKeyhive.String())
	assert.Equal(t, "unknown", CommandKind(0).String())

	assert.Equal(t, "query_access", KeyhiveQueryAccess.String())
	assert.Equal(t, "unknown", KeyhiveKind(0).String())
}
