package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validScenarioYAML = `
name: cli-demo
seed: 11
ticks: 2
config: {event_cap: 64}
event_types: [Ping]
steps:
  - {tick: 0, op: create, count: 2}
  - {tick: 0, op: send, event: Ping, payload: {n: 1}}
  - {tick: 1, op: draw}
`

// writeScenario writes scenario YAML to a temp file and returns its path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateScenarioBytes_Valid(t *testing.T) {
	errs := ValidateScenarioBytes([]byte(validScenarioYAML))
	assert.Empty(t, errs)
}

func TestValidateScenarioBytes_BadYAML(t *testing.T) {
	errs := ValidateScenarioBytes([]byte("name: [unclosed"))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeParseFailed, errs[0].Code)
}

func TestValidateScenarioBytes_SchemaViolations(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"unknown op", "name: x\nticks: 1\nsteps:\n  - {tick: 0, op: teleport}\n"},
		{"missing ticks", "name: x\nsteps:\n  - {tick: 0, op: create}\n"},
		{"negative tick", "name: x\nticks: 1\nsteps:\n  - {tick: -1, op: create}\n"},
		{"unknown field", "name: x\nticks: 1\nbogus: true\n"},
		{"empty name", "name: \"\"\nticks: 1\n"},
		{"zero config cap", "name: x\nticks: 1\nconfig: {event_cap: 0}\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateScenarioBytes([]byte(tc.yaml))
			require.NotEmpty(t, errs)
			assert.Equal(t, ErrCodeSchema, errs[0].Code)
		})
	}
}

func TestValidateScenarioBytes_SemanticViolation(t *testing.T) {
	// Structurally fine, but sends an event type that is never registered.
	src := "name: x\nticks: 1\nsteps:\n  - {tick: 0, op: send, event: Nope}\n"
	errs := ValidateScenarioBytes([]byte(src))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeSemantic, errs[0].Code)
	assert.Contains(t, errs[0].Message, "unregistered event")
}

func TestLoadScenarioFile(t *testing.T) {
	path := writeScenario(t, validScenarioYAML)

	s, errs := LoadScenarioFile(path)
	require.Empty(t, errs)
	assert.Equal(t, "cli-demo", s.Name)
	assert.Equal(t, uint64(11), s.Seed)
	assert.Len(t, s.Steps, 3)
}

func TestLoadScenarioFile_NotFound(t *testing.T) {
	_, errs := LoadScenarioFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNotFound, errs[0].Code)
}
