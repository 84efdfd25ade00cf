package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadScenarioValid(t *testing.T) {
	path := writeScenario(t, `
name: minimal
steps:
  - op: create_doc
    hash: h0
`)

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "minimal", sc.Name)
	require.Len(t, sc.Steps, 1)
	assert.Equal(t, OpCreateDoc, sc.Steps[0].Op)
}

func TestLoadScenarioRejectsUnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
step:
  - op: create_doc
`)

	_, err := LoadScenario(path)
	assert.Error(t, err, "unknown top-level field must be rejected")
}

func TestLoadScenarioRejectsUnknownOp(t *testing.T) {
	path := writeScenario(t, `
name: badop
steps:
  - op: destroy_doc
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown op")
}

func TestLoadScenarioRejectsMissingName(t *testing.T) {
	path := writeScenario(t, `
steps:
  - op: create_doc
    hash: h0
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestLoadScenarioRequiresStepArguments(t *testing.T) {
	path := writeScenario(t, `
name: incomplete
steps:
  - op: add_commits
    hash: h1
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add_commits requires doc")
}

func TestRunDetectsExpectationMismatch(t *testing.T) {
	sc := &Scenario{
		Name: "mismatch",
		Steps: []Step{
			{Op: OpQueryStatus, Doc: "doc:ghost"},
		},
	}

	_, err := Run(sc, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `status "UNKNOWN_IDENTIFIER", expected "ok"`)
}

func TestRunResolvesLabels(t *testing.T) {
	sc := &Scenario{
		Name: "labels",
		Steps: []Step{
			{Op: OpCreateDoc, As: "d", Hash: "h0", Contents: "x"},
			{Op: OpQueryStatus, Doc: "d"},
		},
	}

	result, err := Run(sc, "")
	require.NoError(t, err)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, result.Trace[0].Doc, result.Trace[1].Doc)
	assert.True(t, result.Trace[1].DocStatus.Durable)
}
