package template

import "github.com/roach88/phaseforge/internal/ir"

// SavePayload is the body of a create or update request. It carries the
// editable fields only; id, owner and timestamps travel elsewhere.
type SavePayload struct {
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Category         ir.Category `json:"category"`
	MinUnits         int64       `json:"minUnits"`
	MaxUnits         int64       `json:"maxUnits"`
	DefaultUnits     int64       `json:"defaultUnits"`
	DiagramText      string      `json:"diagramText"`
	Tags             string      `json:"tags"`
	StructureJSON    string      `json:"structureJson"`
	IsSystemTemplate bool        `json:"isSystemTemplate"`
}

// Payload builds the save body for rec. Saves from the editor never create
// system templates, so IsSystemTemplate is always false.
func Payload(rec ir.TemplateRecord) SavePayload {
	return SavePayload{
		Name:          rec.Name,
		Description:   rec.Description,
		Category:      rec.Category,
		MinUnits:      rec.MinUnits,
		MaxUnits:      rec.MaxUnits,
		DefaultUnits:  rec.DefaultUnits,
		DiagramText:   rec.DiagramText,
		Tags:          rec.Tags,
		StructureJSON: rec.StructureJSON,
	}
}
