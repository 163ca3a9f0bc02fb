package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/phaseforge/internal/testutil"
)

func runShowCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewShowCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestShowList(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cup.json", testutil.PoolsToBracket)

	out, err := runShowCmd(t, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ORDER")
	assert.Contains(t, out, "Pool Play")
	assert.Contains(t, out, "Championship Bracket")
	assert.Contains(t, out, "advancement rules:")
}

func TestShowMarksUnknownPhaseType(t *testing.T) {
	doc := `{"phases":[{"name":"Ladder","phaseType":"Ladder","sortOrder":1}],"advancementRules":[]}`
	path := writeFile(t, t.TempDir(), "cup.json", doc)

	out, err := runShowCmd(t, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Ladder (unknown)")
	assert.Contains(t, out, "no advancement rules")
}

func TestShowCanvasJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cup.json", testutil.PoolsToBracket)

	out, err := runShowCmd(t, "json", path, "--view", "canvas")
	require.NoError(t, err)

	var resp struct {
		Data struct {
			View     string `json:"view"`
			Phases   int    `json:"phases"`
			Rules    int    `json:"rules"`
			Rendered string `json:"rendered"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "canvas", resp.Data.View)
	assert.Equal(t, 2, resp.Data.Phases)
	assert.Equal(t, 2, resp.Data.Rules)
	assert.Contains(t, resp.Data.Rendered, "+")
	assert.Contains(t, resp.Data.Rendered, "1 Pool Play")
}

func TestShowInvalidView(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cup.json", testutil.PoolsToBracket)

	_, err := runShowCmd(t, "text", path, "--view", "graph")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid view "graph"`)
}

func TestShowDanglingRule(t *testing.T) {
	path := writeFile(t, t.TempDir(), "cup.json", danglingDocument)

	_, err := runShowCmd(t, "text", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeDangling)

	out, err := runShowCmd(t, "text", path, "--drop-dangling")
	require.NoError(t, err)
	assert.Contains(t, out, "no advancement rules")
}
