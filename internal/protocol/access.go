package protocol

// MemberAccess is the capability level a member holds on a document or
// group. Levels are strictly ordered: each level includes everything below.
type MemberAccess int

const (
	// AccessNone is the zero value: no capability.
	AccessNone MemberAccess = iota
	// AccessPull may fetch encrypted payloads without reading them.
	AccessPull
	// AccessRead may decrypt and read.
	AccessRead
	// AccessWrite may add commits and bundles.
	AccessWrite
	// AccessAdmin may change membership.
	AccessAdmin
)

// AtLeast reports whether the level grants at least the given level.
func (a MemberAccess) AtLeast(min MemberAccess) bool { return a >= min }

func (a MemberAccess) String() string {
	switch a {
	case AccessPull:
		return "pull"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessAdmin:
		return "admin"
	default:
		return "none"
	}
}

// ParseAccess maps a policy-file level name to a MemberAccess.
func ParseAccess(s string) (MemberAccess, bool) {
	switch s {
	case "pull":
		return AccessPull, true
	case "read":
		return AccessRead, true
	case "write":
		return AccessWrite, true
	case "admin":
		return AccessAdmin, true
	default:
		return AccessNone, false
	}
}
