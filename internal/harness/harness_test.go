package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, data string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(data))
	require.NoError(t, err)
	return s
}

func TestRunDefaultStructure(t *testing.T) {
	s := mustParse(t, `
name: default
assertions:
  - type: phase_count
    count: 1
  - type: phase
    order: 1
    fields: { name: Main Bracket, incomingSlotCount: 8 }
  - type: mode
    mode: visual
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Trace)
	assert.Equal(t, "visual", result.Mode)
}

func TestRunRecordsTrace(t *testing.T) {
	s := mustParse(t, `
name: trace
id_prefix: x
steps:
  - op: add_phase
    as: final
    fields: { name: Final, incomingSlotCount: 2 }
  - op: add_rule
    as: winners
    source: "1"
    target: final
  - op: retarget_rule
    rule: winners
    source: final
    target: final
  - op: remove_rule
    rule: "1"
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 4)
	assert.Equal(t, TraceEvent{Seq: 1, Op: OpAddPhase, Ref: "x-2", Outcome: "ok", Phases: 2}, result.Trace[0])
	assert.Equal(t, TraceEvent{Seq: 2, Op: OpAddRule, Ref: "x-3", Outcome: "ok", Phases: 2, Rules: 1}, result.Trace[1])
	assert.Equal(t, "x-3", result.Trace[2].Ref)
	assert.Equal(t, TraceEvent{Seq: 4, Op: OpRemoveRule, Ref: "x-3", Outcome: "ok", Phases: 2}, result.Trace[3])
}

func TestRunExpectedErrors(t *testing.T) {
	s := mustParse(t, `
name: errors
steps:
  - op: remove_phase
    phase: ghost
    expect_error: not_found
  - op: reorder_phase
    phase: "1"
    index: 5
    expect_error: out_of_range
  - op: edit_phase
    phase: "1"
    fields: { sortOrder: 4 }
    expect_error: validation
  - op: remove_rule
    rule: "3"
    expect_error: not_found
  - op: raw_text
    text: "{}"
    expect_error: wrong_mode
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	for _, e := range result.Trace {
		assert.NotEqual(t, "ok", e.Outcome, e.Op)
	}
}

func TestRunReportsUnexpectedOutcomes(t *testing.T) {
	s := mustParse(t, `
name: surprises
steps:
  - op: remove_phase
    phase: ghost
  - op: to_raw
    expect_error: malformed
assertions:
  - type: phase_count
    count: 3
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "steps[0] remove_phase")
	assert.Contains(t, result.Errors[1], "expected malformed error, got success")
	assert.Contains(t, result.Errors[2], "assertions[0]")
	assert.Contains(t, result.Errors[2], "expected 3, got 1")
}

func TestRunAddPhaseExtraKeys(t *testing.T) {
	s := mustParse(t, `
name: extras
steps:
  - op: add_phase
    fields: { name: Seeding, phaseType: Swiss, rounds: 5 }
assertions:
  - type: phase
    order: 2
    fields: { name: Seeding, rounds: 5, bestOf: 1 }
  - type: text_contains
    text: '"rounds":5'
`)
	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRunRejectsMissingTemplate(t *testing.T) {
	s := mustParse(t, "name: missing\ntemplate: testdata/documents/none.json")
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read template")
}

func TestRunDanglingStartingDocument(t *testing.T) {
	doc := `'{"phases":[{"name":"A","sortOrder":1}],"advancementRules":[{"sourcePhaseOrder":1,"targetPhaseOrder":2}]}'`

	_, err := Run(mustParse(t, "name: strict\ndocument: "+doc))
	require.Error(t, err)

	result, err := Run(mustParse(t, "name: lenient\ndrop_dangling: true\ndocument: "+doc+"\nassertions:\n  - type: rule_count\n    count: 0"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertionFailureMessages(t *testing.T) {
	s := mustParse(t, `
name: failing
assertions:
  - type: phase
    order: 1
    fields: { name: Other }
  - type: phase
    order: 7
    fields: { name: Main Bracket }
  - type: rule
    source: 1
    target: 1
  - type: equivalent
    document: '{"phases":[],"advancementRules":[]}'
`)
	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], `name = "Main Bracket"`)
	assert.Contains(t, result.Errors[1], "no such phase")
	assert.Contains(t, result.Errors[2], "rules []")
	assert.True(t, strings.HasPrefix(result.Errors[3], "assertions[3]: assertion failed: equivalent"))
}
