package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is one declarative engine exercise.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description,omitempty"`

	// Policy is an optional path to a CUE policy file, relative to the
	// scenario file.
	Policy string `yaml:"policy,omitempty"`

	// Steps run in order; each submits one event and, for commands, awaits
	// the correlated result before the next step runs.
	Steps []Step `yaml:"steps"`
}

// Step is one scenario action.
type Step struct {
	// Op selects the operation. See opNames for the closed set.
	Op string `yaml:"op"`

	// As labels the identifier a creating op mints, for later steps.
	As string `yaml:"as,omitempty"`

	// Doc / Stream / Endpoint name an earlier label, or a literal token.
	Doc      string `yaml:"doc,omitempty"`
	Stream   string `yaml:"stream,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`

	// Commit payload fields.
	Hash     string   `yaml:"hash,omitempty"`
	Parents  []string `yaml:"parents,omitempty"`
	Contents string   `yaml:"contents,omitempty"`

	// Bundle fields.
	Start       string   `yaml:"start,omitempty"`
	End         string   `yaml:"end,omitempty"`
	Checkpoints []string `yaml:"checkpoints,omitempty"`

	// Audience for stream and endpoint ops.
	Audience string `yaml:"audience,omitempty"`

	// Encrypted selects the no-decryption load variant.
	Encrypted bool `yaml:"encrypted,omitempty"`

	// Count repeats tick ops. Defaults to 1.
	Count int `yaml:"count,omitempty"`

	// Expect is "ok" (the default) or an engine error code.
	Expect string `yaml:"expect,omitempty"`
}

// The closed set of scenario operations.
const (
	OpCreateDoc          = "create_doc"
	OpAddCommits         = "add_commits"
	OpLoadDoc            = "load_doc"
	OpAddBundle          = "add_bundle"
	OpQueryStatus        = "query_status"
	OpCreateStream       = "create_stream"
	OpDisconnectStream   = "disconnect_stream"
	OpRegisterEndpoint   = "register_endpoint"
	OpUnregisterEndpoint = "unregister_endpoint"
	OpCreateGroup        = "create_group"
	OpCreateContactCard  = "create_contact_card"
	OpQueryAccess        = "query_access"
	OpTick               = "tick"
)

var opNames = map[string]bool{
	OpCreateDoc:          true,
	OpAddCommits:         true,
	OpLoadDoc:            true,
	OpAddBundle:          true,
	OpQueryStatus:        true,
	OpCreateStream:       true,
	OpDisconnectStream:   true,
	OpRegisterEndpoint:   true,
	OpUnregisterEndpoint: true,
	OpCreateGroup:        true,
	OpCreateContactCard:  true,
	OpQueryAccess:        true,
	OpTick:               true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping assertions.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validateScenario(sc *Scenario) error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, step := range sc.Steps {
		if !opNames[step.Op] {
			return fmt.Errorf("step %d: unknown op %q", i+1, step.Op)
		}
		switch step.Op {
		case OpCreateDoc:
			if step.Hash == "" {
				return fmt.Errorf("step %d: create_doc requires hash", i+1)
			}
		case OpAddCommits:
			if step.Doc == "" || step.Hash == "" {
				return fmt.Errorf("step %d: add_commits requires doc and hash", i+1)
			}
		case OpAddBundle:
			if step.Doc == "" || step.Start == "" || step.End == "" {
				return fmt.Errorf("step %d: add_bundle requires doc, start, end", i+1)
			}
		case OpLoadDoc, OpQueryStatus, OpQueryAccess:
			if step.Doc == "" {
				return fmt.Errorf("step %d: %s requires doc", i+1, step.Op)
			}
		case OpCreateStream, OpRegisterEndpoint:
			if step.Audience == "" {
				return fmt.Errorf("step %d: %s requires audience", i+1, step.Op)
			}
		case OpDisconnectStream:
			if step.Stream == "" {
				return fmt.Errorf("step %d: disconnect_stream requires stream", i+1)
			}
		case OpUnregisterEndpoint:
			if step.Endpoint == "" {
				return fmt.Errorf("step %d: unregister_endpoint requires endpoint", i+1)
			}
		}
	}
	return nil
}
