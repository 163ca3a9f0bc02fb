package testutil

import (
	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/taxonomy"
)

// PoolsToBracket is a two-phase document: four pools feeding an
// eight-slot bracket, with the top two of each pool advancing.
const PoolsToBracket = `{"phases":[` +
	`{"name":"Pool Play","phaseType":"Pools","sortOrder":1,"incomingSlotCount":16,"advancingSlotCount":8,"poolCount":4,"bestOf":1,"matchDurationMinutes":25},` +
	`{"name":"Championship Bracket","phaseType":"SingleElimination","sortOrder":2,"incomingSlotCount":8,"advancingSlotCount":1,"poolCount":0,"bestOf":3,"matchDurationMinutes":45}],` +
	`"advancementRules":[` +
	`{"sourcePhaseOrder":1,"targetPhaseOrder":2,"finishPosition":1},` +
	`{"sourcePhaseOrder":1,"targetPhaseOrder":2,"finishPosition":2}]}`

// UserTemplate returns a valid, unsaved user template for ownerID.
func UserTemplate(name, ownerID string) ir.TemplateRecord {
	return ir.TemplateRecord{
		Name:          name,
		Description:   name + " description",
		Category:      taxonomy.CategorySingleElimination,
		MinUnits:      2,
		MaxUnits:      16,
		DefaultUnits:  8,
		Tags:          "bracket",
		StructureJSON: taxonomy.DefaultStructure,
		IsActive:      true,
		OwnerID:       ownerID,
	}
}

// SystemTemplate returns a valid, unsaved system template.
func SystemTemplate(name string) ir.TemplateRecord {
	rec := UserTemplate(name, "")
	rec.Category = taxonomy.CategoryCombined
	rec.Tags = "pools, bracket"
	rec.StructureJSON = PoolsToBracket
	rec.IsSystemTemplate = true
	return rec
}
