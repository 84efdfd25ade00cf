package engine

import (
	"github.com/driftsync/driftsync/internal/ids"
	"github.com/driftsync/driftsync/internal/protocol"
)

// KeyhiveKind tags the closed sub-taxonomy of access-control operations.
// Access control is a distinct subsystem boundary from documents and
// streams, so its operations live under one Command variant: the dispatcher
// touches the capability engine in exactly one arm.
type KeyhiveKind int

const (
	KeyhiveAddMemberToDoc KeyhiveKind = iota + 1
	KeyhiveRemoveMemberFromDoc
	KeyhiveQueryAccess
	KeyhiveCreateGroup
	KeyhiveAddMemberToGroup
	KeyhiveRemoveMemberFromGroup
	KeyhiveCreateContactCard
)

func (k KeyhiveKind) String() string {
	switch k {
	case KeyhiveAddMemberToDoc:
		return "add_member_to_doc"
	case KeyhiveRemoveMemberFromDoc:
		return "remove_member_from_doc"
	case KeyhiveQueryAccess:
		return "query_access"
	case KeyhiveCreateGroup:
		return "create_group"
	case KeyhiveAddMemberToGroup:
		return "add_member_to_group"
	case KeyhiveRemoveMemberFromGroup:
		return "remove_member_from_group"
	case KeyhiveCreateContactCard:
		return "create_contact_card"
	default:
		return "unknown"
	}
}

// KeyhiveCommand is one access-control operation.
type KeyhiveCommand struct {
	kind KeyhiveKind

	doc    ids.DocumentID        // AddMemberToDoc, RemoveMemberFromDoc, QueryAccess
	member ids.EntityID          // AddMemberToDoc, RemoveMemberFromDoc
	access protocol.MemberAccess // AddMemberToDoc
	owners []ids.EntityID        // CreateGroup
	add    protocol.AddMember    // AddMemberToGroup
	remove protocol.RemoveMember // RemoveMemberFromGroup
}

// Kind returns the access-control operation tag.
func (k *KeyhiveCommand) Kind() KeyhiveKind { return k.kind }
