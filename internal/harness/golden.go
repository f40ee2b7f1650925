package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/blogsol/internal/ir"
)

// TraceSnapshot captures the trace of a scenario execution.
// Serialized with canonical JSON for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	PostIDWidth  int          `json:"post_id_width,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. ir.MarshalCanonical only handles IR types and
// primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
		}
		if event.Instruction != "" {
			eventMap["instruction"] = event.Instruction
		}
		if event.Signer != "" {
			eventMap["signer"] = event.Signer
		}
		if event.To != "" {
			eventMap["to"] = event.To
		}
		if event.Lamports != 0 {
			eventMap["lamports"] = event.Lamports
		}
		if event.Outcome != "" {
			eventMap["outcome"] = event.Outcome
		}
		if event.PostID != nil {
			eventMap["post_id"] = *event.PostID
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.PostIDWidth != 0 {
		result["post_id_width"] = s.PostIDWidth
	}
	return result
}

// MarshalSnapshot returns the golden form of a snapshot: canonical JSON
// and a trailing newline.
func MarshalSnapshot(s TraceSnapshot) ([]byte, error) {
	data, err := ir.MarshalCanonical(s.toCanonicalMap())
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot := TraceSnapshot{
		ScenarioName: scenario.Name,
		PostIDWidth:  scenario.PostIDWidth,
		Trace:        result.Trace,
	}
	if err := assertGolden(t, scenario.Name, snapshot); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()
	return assertGolden(t, scenarioName, TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	})
}

func assertGolden(t *testing.T, name string, snapshot TraceSnapshot) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}
