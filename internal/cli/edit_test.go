package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/taxonomy"
)

const addFinalScript = `steps:
  - op: add_phase
    as: final
    fields:
      name: Final
      incomingSlotCount: 2
  - op: add_rule
    source: "1"
    target: final
    payload:
      finishPosition: 1
`

func runEditCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewEditCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestEditAppliesScript(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "cup.json", taxonomy.DefaultStructure)
	script := writeFile(t, dir, "steps.yaml", addFinalScript)

	out, err := runEditCmd(t, "text", doc, "--script", script)
	require.NoError(t, err)

	parsed, err := ir.DecodeDocument(bytes.TrimSpace([]byte(out)))
	require.NoError(t, err)
	require.Len(t, parsed.Phases, 2)
	assert.Equal(t, "Final", parsed.Phases[1].Name)
	assert.Equal(t, int64(2), parsed.Phases[1].SortOrder)
	require.Len(t, parsed.AdvancementRules, 1)
	assert.Equal(t, int64(1), parsed.AdvancementRules[0].SourcePhaseOrder)
	assert.Equal(t, int64(2), parsed.AdvancementRules[0].TargetPhaseOrder)
	assert.Contains(t, out, `"finishPosition":1`)
}

func TestEditWritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "cup.json", taxonomy.DefaultStructure)
	script := writeFile(t, dir, "steps.yaml", addFinalScript)
	outFile := filepath.Join(dir, "edited.json")

	out, err := runEditCmd(t, "text", doc, "--script", script, "-o", outFile, "--indent", "  ")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Applied 2 step(s), wrote "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"name": "Final"`)

	original, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Equal(t, taxonomy.DefaultStructure, string(original), "input is never modified")
}

func TestEditJSONIncludesTrace(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "cup.json", taxonomy.DefaultStructure)
	script := writeFile(t, dir, "steps.yaml", addFinalScript)

	out, err := runEditCmd(t, "json", doc, "--script", script)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   EditResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Trace, 2)
	assert.Equal(t, "add_phase", resp.Data.Trace[0].Op)
	assert.Equal(t, 1, resp.Data.Trace[1].Rules)
	assert.Equal(t, 2, resp.Data.Trace[1].Phases)
	assert.Contains(t, resp.Data.Document, `"name":"Final"`)
}

func TestEditRawStepsEndInVisualMode(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "cup.json", taxonomy.DefaultStructure)
	script := writeFile(t, dir, "steps.yaml", `steps:
  - op: to_raw
  - op: raw_text
    text: '{"phases":[{"name":"Ladder","phaseType":"Ladder","sortOrder":1}]}'
`)

	out, err := runEditCmd(t, "text", doc, "--script", script)
	require.NoError(t, err)
	assert.Contains(t, out, `"name":"Ladder"`)
	assert.Contains(t, out, `"advancementRules":[]`)
}

func TestEditScriptFailure(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "cup.json", taxonomy.DefaultStructure)
	script := writeFile(t, dir, "steps.yaml", `steps:
  - op: remove_phase
    phase: "7"
`)

	out, err := runEditCmd(t, "text", doc, "--script", script)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeScript)
	assert.Contains(t, out, "steps[0] remove_phase")
}

func TestEditBadScript(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "cup.json", taxonomy.DefaultStructure)

	_, err := runEditCmd(t, "text", doc, "--script", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeScript)

	empty := writeFile(t, dir, "empty.yaml", "steps: []\n")
	_, err = runEditCmd(t, "text", doc, "--script", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no steps")
}

func TestEditRequiresScript(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "cup.json", taxonomy.DefaultStructure)

	_, err := runEditCmd(t, "text", doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "script" not set`)
}

func runEditWith(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewEditCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestEditSaveCreatesThenUpdatesTemplate(t *testing.T) {
	env := newTemplateEnv(t)
	dir := t.TempDir()
	doc := writeFile(t, dir, "cup.json", taxonomy.DefaultStructure)
	script := writeFile(t, dir, "steps.yaml", addFinalScript)

	out, err := runEditWith(t, &RootOptions{Format: "json", DB: env.db, Owner: "alice"},
		doc, "--script", script, "--save", "--name", "Weekly Cup")
	require.NoError(t, err, out)

	var resp struct {
		Data EditResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Data.Saved)
	created := *resp.Data.Saved
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Weekly Cup", created.Name)
	assert.Equal(t, "alice", created.OwnerID)
	assert.Contains(t, created.StructureJSON, `"name":"Final"`)

	rename := writeFile(t, dir, "rename.yaml", `steps:
  - op: edit_phase
    phase: "2"
    fields: { name: Grand Final }
`)
	out, err = runEditWith(t, &RootOptions{Format: "text", DB: env.db, Owner: "alice"},
		"--template", created.ID, "--script", rename, "--save")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ Saved "+created.ID+"  Weekly Cup")

	stored := env.record("alice", "get", created.ID)
	assert.Contains(t, stored.StructureJSON, `"name":"Grand Final"`)
	assert.False(t, stored.IsSystemTemplate)
}

func TestEditSaveRequiresName(t *testing.T) {
	env := newTemplateEnv(t)
	dir := t.TempDir()
	doc := writeFile(t, dir, "cup.json", taxonomy.DefaultStructure)
	script := writeFile(t, dir, "steps.yaml", addFinalScript)

	out, err := runEditWith(t, &RootOptions{Format: "text", DB: env.db, Owner: "alice"},
		doc, "--script", script, "--save")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "name is required")
	assert.Empty(t, env.records("alice", "list"))
}

func TestEditSaveRefusesSystemTemplate(t *testing.T) {
	env := newTemplateEnv(t)
	_, err := env.run("", "text", "seed", seedsDir)
	require.NoError(t, err)
	id := env.systemID("Pools into Bracket")
	script := writeFile(t, t.TempDir(), "steps.yaml", addFinalScript)

	out, err := runEditWith(t, &RootOptions{Format: "text", DB: env.db, Owner: "alice"},
		"--template", id, "--script", script, "--save")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, ErrCodeForbidden)
}

func TestEditNeedsExactlyOneSource(t *testing.T) {
	dir := t.TempDir()
	doc := writeFile(t, dir, "cup.json", taxonomy.DefaultStructure)
	script := writeFile(t, dir, "steps.yaml", addFinalScript)

	for _, args := range [][]string{
		{"--script", script},
		{doc, "--template", "t1", "--script", script},
	} {
		_, err := runEditWith(t, &RootOptions{Format: "text"}, args...)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	}
}
