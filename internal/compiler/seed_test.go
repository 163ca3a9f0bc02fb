package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/taxonomy"
)

func compileSeed(t *testing.T, src, label string) (*ir.TemplateRecord, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename("seed.cue"))
	require.NoError(t, v.Err())
	return CompileTemplate(v.LookupPath(cue.MakePath(cue.Str("template"), cue.Str(label))))
}

func TestCompileTemplateBasic(t *testing.T) {
	rec, err := compileSeed(t, `
		template: pools: {
			name:         "Pools into Bracket"
			description:  "Four pools feed an eight-team bracket"
			category:     "Combined"
			minUnits:     8
			maxUnits:     32
			defaultUnits: 16
			tags: ["pools", "best of 3, finals"]

			structure: {
				advancementRules: [
					{sourcePhaseOrder: 1, targetPhaseOrder: 2, finishPosition: 1},
				]
				phases: [
					{name: "Championship", phaseType: "SingleElimination", sortOrder: 2, incomingSlotCount: 8, bestOf: 3},
					{name: "Pool Play", phaseType: "Pools", sortOrder: 1, incomingSlotCount: 16, advancingSlotCount: 8, poolCount: 4},
				]
			}
		}
	`, "pools")
	require.NoError(t, err)

	assert.Equal(t, "Pools into Bracket", rec.Name)
	assert.Equal(t, ir.Category("Combined"), rec.Category)
	assert.Equal(t, int64(8), rec.MinUnits)
	assert.Equal(t, int64(32), rec.MaxUnits)
	assert.Equal(t, int64(16), rec.DefaultUnits)
	assert.Equal(t, `pools, "best of 3, finals"`, rec.Tags)
	assert.True(t, rec.IsSystemTemplate)
	assert.True(t, rec.IsActive)
	assert.True(t, rec.IsNew())

	want := `{"phases":[` +
		`{"name":"Pool Play","phaseType":"Pools","sortOrder":1,"incomingSlotCount":16,"advancingSlotCount":8,"poolCount":4,"bestOf":0,"matchDurationMinutes":0},` +
		`{"name":"Championship","phaseType":"SingleElimination","sortOrder":2,"incomingSlotCount":8,"advancingSlotCount":0,"poolCount":0,"bestOf":3,"matchDurationMinutes":0}],` +
		`"advancementRules":[{"sourcePhaseOrder":1,"targetPhaseOrder":2,"finishPosition":1}]}`
	assert.Equal(t, want, rec.StructureJSON)
}

func TestCompileTemplateDefaults(t *testing.T) {
	rec, err := compileSeed(t, `
		template: single: {
			name:         "Single Elimination"
			minUnits:     2
			maxUnits:     64
			defaultUnits: 8
			structure: phases: [{name: "Main Bracket", phaseType: "SingleElimination", sortOrder: 1}]
		}
	`, "single")
	require.NoError(t, err)

	assert.Equal(t, taxonomy.CategorySingleElimination, rec.Category)
	assert.Empty(t, rec.Description)
	assert.Empty(t, rec.Tags)
	assert.True(t, rec.IsActive)
	assert.Contains(t, rec.StructureJSON, `"advancementRules":[]`)
}

func TestCompileTemplateInactive(t *testing.T) {
	rec, err := compileSeed(t, `
		template: old: {
			name: "Legacy Ladder", active: false
			minUnits: 4, maxUnits: 4, defaultUnits: 4
			structure: phases: []
		}
	`, "old")
	require.NoError(t, err)
	assert.False(t, rec.IsActive)
}

func TestCompileTemplateErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing name", `minUnits: 2, maxUnits: 4, defaultUnits: 2, structure: phases: []`},
		{"empty name", `name: "", minUnits: 2, maxUnits: 4, defaultUnits: 2, structure: phases: []`},
		{"min below floor", `name: "X", minUnits: 1, maxUnits: 4, defaultUnits: 2, structure: phases: []`},
		{"default above max", `name: "X", minUnits: 2, maxUnits: 4, defaultUnits: 5, structure: phases: []`},
		{"missing structure", `name: "X", minUnits: 2, maxUnits: 4, defaultUnits: 2`},
		{"unknown field", `name: "X", minUnits: 2, maxUnits: 4, defaultUnits: 2, owner: "u1", structure: phases: []`},
		{"dangling rule", `name: "X", minUnits: 2, maxUnits: 4, defaultUnits: 2, structure: {
			phases: [{name: "A", sortOrder: 1}]
			advancementRules: [{sourcePhaseOrder: 1, targetPhaseOrder: 9}]
		}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileSeed(t, "template: x: {"+tt.body+"}", "x")
			require.Error(t, err)

			var compileErr *CompileError
			assert.True(t, errors.As(err, &compileErr), "got %T: %v", err, err)
		})
	}
}
