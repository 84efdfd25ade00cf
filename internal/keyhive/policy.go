package keyhive

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/driftsync/driftsync/internal/protocol"
)

// Policy holds the access-control defaults loaded from a CUE policy file.
type Policy struct {
	// DefaultAccess is granted when a membership change names no level.
	DefaultAccess protocol.MemberAccess

	// AllowPublicPull lets hosts without membership on a document open its
	// sealed payloads.
	AllowPublicPull bool

	// SealDocuments controls whether hosts envelope commit contents.
	SealDocuments bool
}

// DefaultPolicy is the policy used when no file is given.
func DefaultPolicy() Policy {
	return Policy{
		DefaultAccess:   protocol.AccessRead,
		AllowPublicPull: false,
		SealDocuments:   true,
	}
}

// Error codes for policy loading.
const (
	ErrCodePolicyNotFound = "POLICY_NOT_FOUND"
	ErrCodePolicyParse    = "POLICY_PARSE"
	ErrCodePolicyInvalid  = "POLICY_INVALID"
)

// PolicyError is a policy loading failure with the CUE position when one is
// available.
type PolicyError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *PolicyError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// policySchema constrains the policy document. Unknown fields are rejected
// by the closed struct; the access level is constrained to the known names.
const policySchema = `
policy: close({
	defaultAccess:   "pull" | "read" | "write" | "admin"
	allowPublicPull: bool | *false
	sealDocuments:   bool | *true
})
`

// LoadPolicy reads and validates a CUE policy file.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Policy{}, &PolicyError{Code: ErrCodePolicyNotFound, Message: fmt.Sprintf("policy file not found: %s", path)}
	}
	if err != nil {
		return Policy{}, &PolicyError{Code: ErrCodePolicyNotFound, Message: fmt.Sprintf("error reading policy file: %v", err)}
	}

	ctx := cuecontext.New()

	schema := ctx.CompileString(policySchema)
	if err := schema.Err(); err != nil {
		return Policy{}, &PolicyError{Code: ErrCodePolicyParse, Message: fmt.Sprintf("compiling policy schema: %v", err)}
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return Policy{}, &PolicyError{Code: ErrCodePolicyParse, Message: err.Error(), Pos: cuePos(value)}
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Policy{}, &PolicyError{Code: ErrCodePolicyInvalid, Message: err.Error()}
	}

	policyVal := unified.LookupPath(cue.ParsePath("policy"))
	if !policyVal.Exists() {
		return Policy{}, &PolicyError{Code: ErrCodePolicyInvalid, Message: "missing top-level policy field"}
	}

	var raw struct {
		DefaultAccess   string `json:"defaultAccess"`
		AllowPublicPull bool   `json:"allowPublicPull"`
		SealDocuments   bool   `json:"sealDocuments"`
	}
	if err := policyVal.Decode(&raw); err != nil {
		return Policy{}, &PolicyError{Code: ErrCodePolicyInvalid, Message: fmt.Sprintf("decoding policy: %v", err), Pos: policyVal.Pos()}
	}

	access, ok := protocol.ParseAccess(raw.DefaultAccess)
	if !ok {
		return Policy{}, &PolicyError{Code: ErrCodePolicyInvalid, Message: fmt.Sprintf("unknown access level %q", raw.DefaultAccess), Pos: policyVal.Pos()}
	}

	return Policy{
		DefaultAccess:   access,
		AllowPublicPull: raw.AllowPublicPull,
		SealDocuments:   raw.SealDocuments,
	}, nil
}

func cuePos(v cue.Value) token.Pos {
	if !v.Exists() {
		return token.NoPos
	}
	return v.Pos()
}
