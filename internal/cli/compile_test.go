package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seedsDir = filepath.Join("..", "..", "seeds")

const seedHeader = "package seeds\n\n"

const oneSeed = seedHeader + `template: knockout: {
	name:         "Knockout"
	minUnits:     2
	maxUnits:     8
	defaultUnits: 4
	structure: phases: [{name: "Bracket", phaseType: "SingleElimination", sortOrder: 1, incomingSlotCount: 4}]
}
`

func runCompileCmd(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestCompileSeeds(t *testing.T) {
	out, err := runCompileCmd(t, "text", seedsDir)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 5 template(s)")
	assert.Contains(t, out, "double_elimination: Double Elimination (DoubleElimination,")
	assert.Contains(t, out, "pools_to_bracket: Pools into Bracket (Combined, 8-64 units, 2 phase(s))")
}

func TestCompileSeedsJSON(t *testing.T) {
	out, err := runCompileCmd(t, "json", seedsDir)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Templates, 5)
	for _, rec := range resp.Data.Templates {
		assert.True(t, rec.IsSystemTemplate, rec.Name)
		assert.NotEmpty(t, rec.StructureJSON, rec.Name)
	}
}

func TestCompileOutputToFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "seeds/knockout.cue", oneSeed)
	outputFile := filepath.Join(tmpDir, "compiled.json")

	out, err := runCompileCmd(t, "text", filepath.Join(tmpDir, "seeds"), "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote template records to "+outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	require.Len(t, result.Templates, 1)
	rec := result.Templates[0]
	assert.Equal(t, "Knockout", rec.Name)
	assert.Equal(t, "SingleElimination", string(rec.Category), "category defaults")
	assert.True(t, rec.IsActive, "active defaults to true")
	assert.Contains(t, rec.StructureJSON, `"name":"Bracket"`)
}

func TestCompileNonExistentDirectory(t *testing.T) {
	out, err := runCompileCmd(t, "text", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestCompileEmptyDirectory(t *testing.T) {
	out, err := runCompileCmd(t, "text", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, out, "no CUE files found")
}

func TestCompileInvalidSeeds(t *testing.T) {
	tests := []struct {
		name string
		seed string
		code string
	}{
		{
			name: "units_below_minimum",
			seed: `template: tiny: {
	name: "Tiny", minUnits: 1, maxUnits: 4, defaultUnits: 2
	structure: phases: []
}`,
			code: ErrCodeSeedUnits,
		},
		{
			name: "dangling_rule",
			seed: `template: broken: {
	name: "Broken", minUnits: 2, maxUnits: 4, defaultUnits: 2
	structure: {
		phases: [{name: "Only", phaseType: "RoundRobin", sortOrder: 1}]
		advancementRules: [{sourcePhaseOrder: 1, targetPhaseOrder: 2}]
	}
}`,
			code: ErrCodeSeedStructure,
		},
		{
			name: "duplicate_name",
			seed: `template: a: {
	name: "Same", minUnits: 2, maxUnits: 4, defaultUnits: 2
	structure: phases: []
}
template: b: {
	name: "Same", minUnits: 2, maxUnits: 4, defaultUnits: 2
	structure: phases: []
}`,
			code: ErrCodeSeedName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "seed.cue", seedHeader+tt.seed)

			out, err := runCompileCmd(t, "text", dir)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), "compilation failed")
			assert.Contains(t, out, "✗ Compilation failed")
			assert.Contains(t, out, tt.code)
		})
	}
}

func TestCompileCollectsAllErrorsJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seed.cue", seedHeader+`template: small: {
	name: "Small", minUnits: 1, maxUnits: 4, defaultUnits: 2
	structure: phases: []
}
template: wide: {
	name: "Wide", minUnits: 4, maxUnits: 8, defaultUnits: 16
	structure: phases: []
}`)

	out, err := runCompileCmd(t, "json", dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   []CLIError `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSeedUnits, resp.Error.Code)
	require.Len(t, resp.Data, 2)
	assert.Contains(t, resp.Data[0].Message, "template.small: ")
	assert.Contains(t, resp.Data[1].Message, "template.wide: ")
}

func TestLoadSeeds(t *testing.T) {
	seeds, errs := LoadSeeds(seedsDir, LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, seeds)

	assert.Equal(t, 2, seeds.FileCount)
	assert.ElementsMatch(t,
		[]string{"single_elimination", "double_elimination", "round_robin", "pools_to_bracket", "swiss"},
		seeds.Labels)
	require.Len(t, seeds.Templates, len(seeds.Labels))
}

func TestLoadSeedsFailFast(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "seed.cue", seedHeader+`template: a: {
	name: "A", minUnits: 1, maxUnits: 4, defaultUnits: 2
	structure: phases: []
}
template: b: {
	name: "B", minUnits: 1, maxUnits: 4, defaultUnits: 2
	structure: phases: []
}`)

	_, failFast := LoadSeeds(dir, LoadModeFailFast)
	assert.Len(t, failFast, 1)

	_, all := LoadSeeds(dir, LoadModeCollectAll)
	assert.Len(t, all, 2)
}

func TestLoadSeedsWithoutTemplates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.cue", seedHeader+"other: 1\n")

	seeds, errs := LoadSeeds(dir, LoadModeCollectAll)
	require.NotNil(t, seeds)
	require.Len(t, errs, 1)
	code, _ := parseCompileError(errs[0])
	assert.Equal(t, ErrCodeNoSeeds, code)
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.cue", seedHeader)
	writeFile(t, dir, "nested/b.cue", seedHeader)
	writeFile(t, dir, "notes.txt", "ignored")

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.cue"),
		filepath.Join(dir, "nested", "b.cue"),
	}, files)
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := map[string]string{
		"name":         ErrCodeSeedName,
		"minUnits":     ErrCodeSeedUnits,
		"defaultUnits": ErrCodeSeedUnits,
		"structure":    ErrCodeSeedStructure,
		"tags":         ErrCodeSeedField,
		"cue":          ErrCodeGeneric,
	}
	for field, want := range tests {
		assert.Equal(t, want, MapFieldToErrorCode(field), field)
	}
}
