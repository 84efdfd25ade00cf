package ids

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// TokenSource produces the raw tokens a Minter stamps into identifiers.
// Implemented by UUIDv7Source (production) and FixedSource / PrefixedSource
// (tests). Implementations must be safe for concurrent use.
type TokenSource interface {
	Generate() string
}

// UUIDv7Source generates time-sortable UUIDv7 tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so identifiers
// sort by mint time, which helps when reading traces. Uniqueness within a
// process holds far beyond any realistic identifier volume.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Source struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Source) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedSource returns predetermined tokens in order. Tests supply a known
// sequence and verify exact trace output.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedSource struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedSource creates a source that returns tokens in order.
//
//	src := NewFixedSource("t1", "t2")
//	src.Generate() // "t1"
//	src.Generate() // "t2"
//	src.Generate() // panic: all tokens exhausted
func NewFixedSource(tokens ...string) *FixedSource {
	return &FixedSource{tokens: tokens}
}

// Generate returns the next predetermined token.
//
// Panics when the sequence is exhausted. Fail-fast on purpose: a test that
// mints more identifiers than it declared is misconfigured.
func (s *FixedSource) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx >= len(s.tokens) {
		panic("ids: FixedSource exhausted")
	}
	token := s.tokens[s.idx]
	s.idx++
	return token
}

// PrefixedSource generates "prefix-1", "prefix-2", ... without a declared
// bound. Used by the scenario harness, where the number of minted
// identifiers depends on the scenario under test.
//
// Thread-safety: safe for concurrent use (atomic counter).
type PrefixedSource struct {
	prefix string
	n      atomic.Uint64
}

// NewPrefixedSource creates a counting source with the given prefix.
func NewPrefixedSource(prefix string) *PrefixedSource {
	return &PrefixedSource{prefix: prefix}
}

// Generate returns the next counted token.
func (s *PrefixedSource) Generate() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1))
}
