package protocol

import "github.com/driftsync/driftsync/internal/ids"

// AddMember describes one group-membership grant.
type AddMember struct {
	Group  ids.EntityID
	Member ids.EntityID
	Access MemberAccess
}

// RemoveMember describes one group-membership revocation.
type RemoveMember struct {
	Group  ids.EntityID
	Member ids.EntityID
}

// ContactCard is a shareable introduction for a principal: enough for
// another party to add the principal to a document or group. The card bytes
// are produced and verified by the access-control engine.
type ContactCard struct {
	Entity ids.EntityID
	Card   []byte
}
