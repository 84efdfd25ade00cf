package keyhive

import (
	"bytes"
	"sync"

	"github.com/driftsync/driftsync/internal/engine"
	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/protocol"
)

// Keyhive holds the local principal's capability state. It satisfies
// engine.AccessControl.
//
// Thread-safety: all methods lock. The engine calls from its loop goroutine,
// but hosts may also query directly.
type Keyhive struct {
	mu     sync.Mutex
	minter *ids.Minter
	policy Policy
	local  ids.EntityID
	docs   map[ids.DocumentID]map[ids.EntityID]protocol.MemberAccess
	groups map[ids.EntityID]map[ids.EntityID]protocol.MemberAccess
}

// Option configures a Keyhive.
type Option func(*Keyhive)

// WithPolicy sets the loaded policy. Defaults to DefaultPolicy.
func WithPolicy(p Policy) Option {
	return func(k *Keyhive) { k.policy = p }
}

// WithTokenSource sets the source for entity identifiers.
func WithTokenSource(src ids.TokenSource) Option {
	return func(k *Keyhive) { k.minter = ids.NewMinter(src) }
}

// New creates a Keyhive and mints its local principal identity.
func New(opts ...Option) *Keyhive {
	k := &Keyhive{
		minter: ids.NewMinter(ids.UUIDv7Source{}),
		policy: DefaultPolicy(),
		docs:   make(map[ids.DocumentID]map[ids.EntityID]protocol.MemberAccess),
		groups: make(map[ids.EntityID]map[ids.EntityID]protocol.MemberAccess),
	}
	for _, opt := range opts {
		opt(k)
	}
	k.local = k.minter.EntityID()
	return k
}

// Local returns the local principal's entity identifier.
func (k *Keyhive) Local() ids.EntityID {
	return k.local
}

// RegisterDoc records a new document owned by the local principal and the
// given co-owners.
func (k *Keyhive) RegisterDoc(doc ids.DocumentID, owners []ids.EntityID) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	members := map[ids.EntityID]protocol.MemberAccess{k.local: protocol.AccessAdmin}
	for _, owner := range owners {
		members[owner] = protocol.AccessAdmin
	}
	k.docs[doc] = members
	return nil
}

// AddMemberToDoc grants a member an access level on a document. AccessNone
// falls back to the policy's default level.
func (k *Keyhive) AddMemberToDoc(doc ids.DocumentID, member ids.EntityID, access protocol.MemberAccess) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	members, ok := k.docs[doc]
	if !ok {
		return engine.NewUnknownIdentifier("document", doc.String())
	}
	if access == protocol.AccessNone {
		access = k.policy.DefaultAccess
	}
	members[member] = access
	return nil
}

// RemoveMemberFromDoc revokes a member's access to a document. The last
// admin cannot be removed: a document with no admin is unrecoverable.
func (k *Keyhive) RemoveMemberFromDoc(doc ids.DocumentID, member ids.EntityID) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	members, ok := k.docs[doc]
	if !ok {
		return engine.NewUnknownIdentifier("document", doc.String())
	}
	if _, ok := members[member]; !ok {
		return engine.NewUnknownIdentifier("member", member.String())
	}
	if members[member] == protocol.AccessAdmin && countAdmins(members) == 1 {
		return engine.NewUnauthorized("cannot remove the last admin")
	}
	delete(members, member)
	return nil
}

// QueryAccess returns a copy of a document's membership.
func (k *Keyhive) QueryAccess(doc ids.DocumentID) (map[ids.EntityID]protocol.MemberAccess, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	members, ok := k.docs[doc]
	if !ok {
		return nil, engine.NewUnknownIdentifier("document", doc.String())
	}
	out := make(map[ids.EntityID]protocol.MemberAccess, len(members))
	for entity, access := range members {
		out[entity] = access
	}
	return out, nil
}

// CreateGroup mints a group owned by the local principal and the given
// co-owners.
func (k *Keyhive) CreateGroup(owners []ids.EntityID) (ids.EntityID, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	group := k.minter.EntityID()
	members := map[ids.EntityID]protocol.MemberAccess{k.local: protocol.AccessAdmin}
	for _, owner := range owners {
		members[owner] = protocol.AccessAdmin
	}
	k.groups[group] = members
	return group, nil
}

// AddMemberToGroup records a group-membership grant.
func (k *Keyhive) AddMemberToGroup(add protocol.AddMember) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	members, ok := k.groups[add.Group]
	if !ok {
		return engine.NewUnknownIdentifier("group", add.Group.String())
	}
	access := add.Access
	if access == protocol.AccessNone {
		access = k.policy.DefaultAccess
	}
	members[add.Member] = access
	return nil
}

// RemoveMemberFromGroup records a group-membership revocation, with the same
// last-admin guard as documents.
func (k *Keyhive) RemoveMemberFromGroup(remove protocol.RemoveMember) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	members, ok := k.groups[remove.Group]
	if !ok {
		return engine.NewUnknownIdentifier("group", remove.Group.String())
	}
	if _, ok := members[remove.Member]; !ok {
		return engine.NewUnknownIdentifier("member", remove.Member.String())
	}
	if members[remove.Member] == protocol.AccessAdmin && countAdmins(members) == 1 {
		return engine.NewUnauthorized("cannot remove the last admin")
	}
	delete(members, remove.Member)
	return nil
}

// CreateContactCard mints a shareable introduction for the local principal.
func (k *Keyhive) CreateContactCard() (protocol.ContactCard, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	return protocol.ContactCard{
		Entity: k.local,
		Card:   sealPrefixed("card", k.local.String(), nil),
	}, nil
}

// Seal wraps plaintext in the document's envelope. The engine calls this
// for every commit and bundle payload on its way to storage; when the
// policy's sealDocuments is off the plaintext passes through unchanged.
func (k *Keyhive) Seal(doc ids.DocumentID, plain []byte) []byte {
	k.mu.Lock()
	seal := k.policy.SealDocuments
	k.mu.Unlock()

	if !seal {
		return plain
	}
	return sealPrefixed("doc", doc.String(), plain)
}

// Decrypt opens a sealed payload. Unsealed payloads pass through untouched
// so plaintext history written before sealing was enabled stays readable. A
// payload sealed for a different document is rejected, and opening one
// requires at least pull access on the document unless the policy's
// allowPublicPull is on.
func (k *Keyhive) Decrypt(doc ids.DocumentID, contents []byte) ([]byte, error) {
	if !bytes.HasPrefix(contents, []byte(envelopeMagic)) {
		return contents, nil
	}
	plain, scope, ok := openSealed(contents)
	if !ok {
		return nil, engine.NewUnauthorized("malformed sealed payload")
	}
	if scope != "doc:"+doc.String() {
		return nil, engine.NewUnauthorized("payload sealed for another document")
	}

	k.mu.Lock()
	access := k.docs[doc][k.local]
	public := k.policy.AllowPublicPull
	k.mu.Unlock()

	if !access.AtLeast(protocol.AccessPull) && !public {
		return nil, engine.NewUnauthorized("no pull access to sealed document")
	}
	return plain, nil
}

const envelopeMagic = "dsv1|"

// sealPrefixed builds "dsv1|<kind>:<scope>|<payload>".
func sealPrefixed(kind, scope string, payload []byte) []byte {
	out := make([]byte, 0, len(envelopeMagic)+len(kind)+1+len(scope)+1+len(payload))
	out = append(out, envelopeMagic...)
	out = append(out, kind...)
	out = append(out, ':')
	out = append(out, scope...)
	out = append(out, '|')
	out = append(out, payload...)
	return out
}

func openSealed(contents []byte) (payload []byte, scope string, ok bool) {
	rest := bytes.TrimPrefix(contents, []byte(envelopeMagic))
	sep := bytes.IndexByte(rest, '|')
	if sep < 0 {
		return nil, "", false
	}
	return rest[sep+1:], string(rest[:sep]), true
}

func countAdmins(members map[ids.EntityID]protocol.MemberAccess) int {
	n := 0
	for _, access := range members {
		if access == protocol.AccessAdmin {
			n++
		}
	}
	return n
}
