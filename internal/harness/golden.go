package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/phaseforge/internal/ir"
)

// Snapshot renders a scenario result as canonical JSON: the scenario name,
// final mode, final document and step trace. In visual mode the document is
// embedded as a JSON value; in raw mode as the raw string, since it may not
// parse.
func Snapshot(scenario *Scenario, result *Result) ([]byte, error) {
	var document any = result.Document
	if result.Mode == "visual" {
		v, err := ir.ParseIRValue([]byte(result.Document))
		if err != nil {
			return nil, err
		}
		document = v
	}

	trace := make([]any, len(result.Trace))
	for i, e := range result.Trace {
		event := map[string]any{
			"seq":     e.Seq,
			"op":      e.Op,
			"outcome": e.Outcome,
			"phases":  e.Phases,
			"rules":   e.Rules,
		}
		if e.Ref != "" {
			event["ref"] = e.Ref
		}
		trace[i] = event
	}

	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenario.Name,
		"mode":          result.Mode,
		"document":      document,
		"trace":         trace,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot, err := Snapshot(scenario, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)

	return result, nil
}
