package keyhive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftsync/driftsync/internal/engine"
	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/protocol"
)

func newTestKeyhive() *Keyhive {
	return New(WithTokenSource(ids.NewPrefixedSource("kh")))
}

func testDoc() ids.DocumentID {
	doc, _ := ids.ParseDocumentID("doc:test-1")
	return doc
}

func TestRegisterDocGrantsOwnersAdmin(t *testing.T) {
	k := newTestKeyhive()
	doc := testDoc()

	coOwner := ids.NewMinter(ids.NewPrefixedSource("peer")).EntityID()
	require.NoError(t, k.RegisterDoc(doc, []ids.EntityID{coOwner}))

	access, err := k.QueryAccess(doc)
	require.NoError(t, err)
	assert.Equal(t, protocol.AccessAdmin, access[k.Local()])
	assert.Equal(t, protocol.AccessAdmin, access[coOwner])
}

func TestAddMemberDefaultsFromPolicy(t *testing.T) {
	k := New(
		WithTokenSource(ids.NewPrefixedSource("kh")),
		WithPolicy(Policy{DefaultAccess: protocol.AccessPull}),
	)
	doc := testDoc()
	require.NoError(t, k.RegisterDoc(doc, nil))

	member := ids.NewMinter(ids.NewPrefixedSource("peer")).EntityID()
	require.NoError(t, k.AddMemberToDoc(doc, member, protocol.AccessNone))

	access, err := k.QueryAccess(doc)
	require.NoError(t, err)
	assert.Equal(t, protocol.AccessPull, access[member])
}

func TestUnknownDocumentRejected(t *testing.T) {
	k := newTestKeyhive()
	ghost, _ := ids.ParseDocumentID("doc:ghost")
	member := ids.NewMinter(ids.NewPrefixedSource("peer")).EntityID()

	err := k.AddMemberToDoc(ghost, member, protocol.AccessRead)
	require.Error(t, err)
	assert.True(t, engine.IsUnknownIdentifier(err))

	_, err = k.QueryAccess(ghost)
	assert.True(t, engine.IsUnknownIdentifier(err))
}

func TestLastAdminCannotBeRemoved(t *testing.T) {
	k := newTestKeyhive()
	doc := testDoc()
	require.NoError(t, k.RegisterDoc(doc, nil))

	err := k.RemoveMemberFromDoc(doc, k.Local())
	require.Error(t, err)
	assert.True(t, engine.IsUnauthorized(err))

	// With a second admin present the removal goes through.
	other := ids.NewMinter(ids.NewPrefixedSource("peer")).EntityID()
	require.NoError(t, k.AddMemberToDoc(doc, other, protocol.AccessAdmin))
	require.NoError(t, k.RemoveMemberFromDoc(doc, k.Local()))

	access, err := k.QueryAccess(doc)
	require.NoError(t, err)
	_, stillThere := access[k.Local()]
	assert.False(t, stillThere)
}

func TestGroupLifecycle(t *testing.T) {
	k := newTestKeyhive()

	group, err := k.CreateGroup(nil)
	require.NoError(t, err)
	require.False(t, group.IsZero())

	member := ids.NewMinter(ids.NewPrefixedSource("peer")).EntityID()
	require.NoError(t, k.AddMemberToGroup(protocol.AddMember{Group: group, Member: member, Access: protocol.AccessWrite}))
	require.NoError(t, k.RemoveMemberFromGroup(protocol.RemoveMember{Group: group, Member: member}))

	err = k.RemoveMemberFromGroup(protocol.RemoveMember{Group: group, Member: member})
	assert.True(t, engine.IsUnknownIdentifier(err), "second removal names a member that is gone")

	ghost := ids.NewMinter(ids.NewPrefixedSource("gg")).EntityID()
	err = k.AddMemberToGroup(protocol.AddMember{Group: ghost, Member: member})
	assert.True(t, engine.IsUnknownIdentifier(err))
}

func TestContactCardNamesLocalPrincipal(t *testing.T) {
	k := newTestKeyhive()

	card, err := k.CreateContactCard()
	require.NoError(t, err)
	assert.Equal(t, k.Local(), card.Entity)
	assert.NotEmpty(t, card.Card)
}

func TestSealRoundTrip(t *testing.T) {
	k := newTestKeyhive()
	doc := testDoc()
	require.NoError(t, k.RegisterDoc(doc, nil))

	sealed := k.Seal(doc, []byte("contents"))
	assert.NotEqual(t, []byte("contents"), sealed)

	plain, err := k.Decrypt(doc, sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("contents"), plain)
}

func TestSealDisabledByPolicy(t *testing.T) {
	k := New(
		WithTokenSource(ids.NewPrefixedSource("kh")),
		WithPolicy(Policy{DefaultAccess: protocol.AccessRead, SealDocuments: false}),
	)
	doc := testDoc()
	require.NoError(t, k.RegisterDoc(doc, nil))

	contents := []byte("contents")
	assert.Equal(t, contents, k.Seal(doc, contents))

	// What was stored plaintext comes back plaintext.
	plain, err := k.Decrypt(doc, contents)
	require.NoError(t, err)
	assert.Equal(t, contents, plain)
}

func TestDecryptRequiresPullAccess(t *testing.T) {
	owner := newTestKeyhive()
	doc := testDoc()
	require.NoError(t, owner.RegisterDoc(doc, nil))
	sealed := owner.Seal(doc, []byte("contents"))

	// A host with no membership on the document cannot open the payload.
	stranger := New(WithTokenSource(ids.NewPrefixedSource("other")))
	_, err := stranger.Decrypt(doc, sealed)
	require.Error(t, err)
	assert.True(t, engine.IsUnauthorized(err))
}

func TestDecryptAllowsPublicPullByPolicy(t *testing.T) {
	owner := newTestKeyhive()
	doc := testDoc()
	require.NoError(t, owner.RegisterDoc(doc, nil))
	sealed := owner.Seal(doc, []byte("contents"))

	stranger := New(
		WithTokenSource(ids.NewPrefixedSource("other")),
		WithPolicy(Policy{DefaultAccess: protocol.AccessRead, SealDocuments: true, AllowPublicPull: true}),
	)
	plain, err := stranger.Decrypt(doc, sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("contents"), plain)
}

func TestDecryptPassesThroughUnsealed(t *testing.T) {
	k := newTestKeyhive()

	plain, err := k.Decrypt(testDoc(), []byte("legacy plaintext"))
	require.NoError(t, err)
	assert.Equal(t, []byte("legacy plaintext"), plain)
}

func TestDecryptRejectsForeignDocument(t *testing.T) {
	k := newTestKeyhive()
	docA := testDoc()
	docB, _ := ids.ParseDocumentID("doc:test-2")

	sealed := k.Seal(docA, []byte("contents"))
	_, err := k.Decrypt(docB, sealed)
	require.Error(t, err)
	assert.True(t, engine.IsUnauthorized(err))
}
