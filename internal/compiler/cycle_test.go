package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/phaseforge/internal/ir"
)

func rule(src, dst int64) ir.AdvancementRule {
	return ir.AdvancementRule{SourcePhaseOrder: src, TargetPhaseOrder: dst, Payload: ir.IRObject{}}
}

func named(names ...string) []ir.Phase {
	phases := make([]ir.Phase, len(names))
	for i, n := range names {
		phases[i] = ir.Phase{Name: n, SortOrder: int64(i + 1)}
	}
	return phases
}

// TestAnalyzeCycles_Empty tests that a document without rules produces no warnings.
func TestAnalyzeCycles_Empty(t *testing.T) {
	warnings := AnalyzeCycles(ir.StructureDocument{Phases: named("Main")})
	assert.Empty(t, warnings)
	assert.NotNil(t, warnings)
}

// TestAnalyzeCycles_DAG tests that a forward-only structure produces no warnings.
func TestAnalyzeCycles_DAG(t *testing.T) {
	doc := ir.StructureDocument{
		Phases:           named("Pools", "Upper", "Lower", "Final"),
		AdvancementRules: []ir.AdvancementRule{rule(1, 2), rule(1, 3), rule(2, 4), rule(3, 4), rule(2, 3)},
	}
	assert.Empty(t, AnalyzeCycles(doc))
}

// TestAnalyzeCycles_SelfLoop tests detection of a phase feeding itself.
func TestAnalyzeCycles_SelfLoop(t *testing.T) {
	doc := ir.StructureDocument{
		Phases:           named("Ladder"),
		AdvancementRules: []ir.AdvancementRule{rule(1, 1)},
	}

	warnings := AnalyzeCycles(doc)
	require.Len(t, warnings, 1)
	assert.Equal(t, []int64{1, 1}, warnings[0].Path)
	assert.Equal(t, `phase 1 "Ladder" advances into itself`, warnings[0].Message)
	assert.Equal(t, "warning", warnings[0].Level)
}

// TestAnalyzeCycles_TwoPhaseCycle tests a repechage loop.
func TestAnalyzeCycles_TwoPhaseCycle(t *testing.T) {
	doc := ir.StructureDocument{
		Phases:           named("Main", "Repechage", "Final"),
		AdvancementRules: []ir.AdvancementRule{rule(2, 1), rule(1, 2), rule(1, 3)},
	}

	warnings := AnalyzeCycles(doc)
	require.Len(t, warnings, 1)
	assert.Equal(t, []int64{1, 2, 1}, warnings[0].Path)
	assert.Equal(t, `advancement cycle: 1 "Main" -> 2 "Repechage" -> 1 "Main"`, warnings[0].Message)
}

// TestAnalyzeCycles_Deterministic tests stable output across calls.
func TestAnalyzeCycles_Deterministic(t *testing.T) {
	doc := ir.StructureDocument{
		AdvancementRules: []ir.AdvancementRule{
			rule(5, 6), rule(6, 5),
			rule(1, 2), rule(2, 3), rule(3, 1),
			rule(9, 9),
		},
	}

	first := AnalyzeCycles(doc)
	require.Len(t, first, 3)
	assert.Equal(t, []int64{1, 2, 3, 1}, first[0].Path)
	assert.Equal(t, []int64{5, 6, 5}, first[1].Path)
	assert.Equal(t, []int64{9, 9}, first[2].Path)
	assert.Equal(t, "advancement cycle: 1 -> 2 -> 3 -> 1", first[0].Message)

	for i := 0; i < 10; i++ {
		assert.Equal(t, first, AnalyzeCycles(doc))
	}
}

// TestAnalyzeCycles_DuplicateRules tests that parallel rules do not skew paths.
func TestAnalyzeCycles_DuplicateRules(t *testing.T) {
	doc := ir.StructureDocument{
		Phases:           named("A", "B"),
		AdvancementRules: []ir.AdvancementRule{rule(1, 2), rule(1, 2), rule(2, 1)},
	}

	warnings := AnalyzeCycles(doc)
	require.Len(t, warnings, 1)
	assert.Equal(t, []int64{1, 2, 1}, warnings[0].Path)
}
