package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/calder-games/simcore/internal/trace"
)

// toCanonicalMap converts a Result to plain data for canonical JSON
// serialization. The session frames are covered transitively by the
// fingerprint, so the snapshot carries the fingerprint rather than
// duplicating frame content.
func (r *Result) toCanonicalMap() map[string]any {
	events := make([]any, len(r.Trace))
	for i, ev := range r.Trace {
		events[i] = map[string]any{
			"tick":   ev.Tick,
			"kind":   ev.Kind,
			"detail": ev.Detail,
		}
	}
	return map[string]any{
		"scenario_name": r.ScenarioName,
		"session_id":    r.SessionID,
		"fingerprint":   r.Fingerprint,
		"trace":         events,
	}
}

// RunWithGolden executes a scenario and compares the canonical trace
// snapshot against a golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(scenario)
	require.NoError(t, err)

	snapshot, err := trace.MarshalCanonical(result.toCanonicalMap())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)

	return result
}
