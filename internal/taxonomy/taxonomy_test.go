package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/phaseforge/internal/ir"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()

	assert.True(t, reg.IsKnownPhaseType(ir.PhaseRoundRobin))
	assert.False(t, reg.IsKnownPhaseType("Ladder"))
	assert.True(t, reg.IsKnownCategory(CategoryCombined))
	assert.False(t, reg.IsKnownCategory("Mystery"))
	assert.Equal(t, ir.PhaseSingleElimination, reg.DefaultPhaseType)
	assert.Equal(t, DefaultStructure, reg.DefaultStructure)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := Default()
	b := Default()
	a.PhaseTypes = append(a.PhaseTypes, "Ladder")

	assert.True(t, a.IsKnownPhaseType("Ladder"))
	assert.False(t, b.IsKnownPhaseType("Ladder"))
}

func TestLayoutPositionIsDeterministic(t *testing.T) {
	l := LayoutConfig{Columns: 3, OriginX: 10, OriginY: 20, SpacingX: 100, SpacingY: 50}

	tests := []struct {
		index int
		x, y  int64
	}{
		{0, 10, 20},
		{1, 110, 20},
		{2, 210, 20},
		{3, 10, 70},
		{7, 110, 120},
	}
	for _, tt := range tests {
		x, y := l.Position(tt.index)
		assert.Equal(t, tt.x, x, "x for %d", tt.index)
		assert.Equal(t, tt.y, y, "y for %d", tt.index)
	}

	zero := LayoutConfig{SpacingY: 10}
	_, y := zero.Position(2)
	assert.Equal(t, int64(20), y)
}
