package protocol

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Audience names the party a message or endpoint is addressed to, as a
// service name. Two audiences are the same party iff their normalized names
// are equal, so the name is NFC-normalized and case-folded at construction.
// Comparing differently-composed Unicode spellings of one service name must
// never yield two distinct audiences.
type Audience struct {
	name string
}

// ServiceName builds an Audience from a service name.
func ServiceName(name string) Audience {
	return Audience{name: norm.NFC.String(strings.ToLower(strings.TrimSpace(name)))}
}

// String returns the normalized service name.
func (a Audience) String() string { return a.name }

// IsZero reports whether the audience is unset.
func (a Audience) IsZero() bool { return a.name == "" }
