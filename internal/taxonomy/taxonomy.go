// Package taxonomy holds the registry of phase types, template categories
// and editor defaults. A Registry is passed explicitly to the parser, the
// editor and the template service; there is no process-wide instance.
package taxonomy

import (
	"slices"

	"github.com/roach88/phaseforge/internal/ir"
)

// Template categories of the tournament taxonomy.
const (
	CategorySingleElimination ir.Category = "SingleElimination"
	CategoryDoubleElimination ir.Category = "DoubleElimination"
	CategoryRoundRobin        ir.Category = "RoundRobin"
	CategoryPools             ir.Category = "Pools"
	CategorySwiss             ir.Category = "Swiss"
	CategoryCombined          ir.Category = "Combined"
	CategoryCustom            ir.Category = "Custom"
)

// DefaultStructure is the document a new template starts from.
const DefaultStructure = `{"phases":[{"name":"Main Bracket","phaseType":"SingleElimination","sortOrder":1,"incomingSlotCount":8,"advancingSlotCount":1,"poolCount":0,"bestOf":1,"matchDurationMinutes":30}],"advancementRules":[]}`

// LayoutConfig places nodes on the canvas grid. Node i sits at column
// i % Columns and row i / Columns.
type LayoutConfig struct {
	Columns  int
	OriginX  int64
	OriginY  int64
	SpacingX int64
	SpacingY int64
}

// Registry is one template taxonomy plus editor defaults.
type Registry struct {
	PhaseTypes       []ir.PhaseType
	Categories       []ir.Category
	DefaultStructure string
	DefaultPhaseType ir.PhaseType
	DefaultCategory  ir.Category
	Layout           LayoutConfig

	// Defaults for a phase added without explicit values.
	DefaultIncomingSlots int64
	DefaultBestOf        int64
	DefaultMatchDuration int64
	MinUnits             int64
}

// Default returns the tournament taxonomy.
func Default() *Registry {
	return &Registry{
		PhaseTypes: slices.Clone(ir.KnownPhaseTypes),
		Categories: []ir.Category{
			CategorySingleElimination,
			CategoryDoubleElimination,
			CategoryRoundRobin,
			CategoryPools,
			CategorySwiss,
			CategoryCombined,
			CategoryCustom,
		},
		DefaultStructure: DefaultStructure,
		DefaultPhaseType: ir.PhaseSingleElimination,
		DefaultCategory:  CategorySingleElimination,
		Layout: LayoutConfig{
			Columns:  4,
			OriginX:  40,
			OriginY:  40,
			SpacingX: 260,
			SpacingY: 160,
		},
		DefaultIncomingSlots: 8,
		DefaultBestOf:        1,
		DefaultMatchDuration: 30,
		MinUnits:             2,
	}
}

// IsKnownPhaseType reports whether t belongs to this taxonomy.
func (r *Registry) IsKnownPhaseType(t ir.PhaseType) bool {
	return slices.Contains(r.PhaseTypes, t)
}

// IsKnownCategory reports whether c belongs to this taxonomy.
func (r *Registry) IsKnownCategory(c ir.Category) bool {
	return slices.Contains(r.Categories, c)
}

// Position returns the layout slot for the node at index i.
// The result depends only on i and the layout configuration.
func (l LayoutConfig) Position(i int) (x, y int64) {
	cols := l.Columns
	if cols <= 0 {
		cols = 1
	}
	col := int64(i % cols)
	row := int64(i / cols)
	return l.OriginX + col*l.SpacingX, l.OriginY + row*l.SpacingY
}
