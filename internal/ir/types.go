package ir

import "time"

// StructureDocument is the serialized form of a tournament structure: the
// unit of persistence and wire transfer.
//
// Phase order is significant (ascending SortOrder) unless IsFlexible is set,
// in which case phase count and order are provisional. Rule order carries no
// meaning but is preserved for display stability.
type StructureDocument struct {
	Phases           []Phase
	AdvancementRules []AdvancementRule

	// IsFlexible is nil when the key is absent so that absence round-trips.
	IsFlexible *bool

	// Extra holds top-level keys this version does not recognise.
	Extra IRObject
}

// Phase is one stage of a tournament structure.
type Phase struct {
	Name                 string
	PhaseType            PhaseType
	SortOrder            int64
	IncomingSlotCount    int64
	AdvancingSlotCount   int64
	PoolCount            int64
	BestOf               int64
	MatchDurationMinutes int64

	// Extra holds phase keys this version does not recognise.
	Extra IRObject
}

// AdvancementRule moves competitors from one phase to another.
//
// Phases are referenced by SortOrder. Payload carries every other key of the
// rule object (finish positions, target slots, pool indexes, ...) verbatim;
// its meaning belongs to the consumer of the document.
type AdvancementRule struct {
	SourcePhaseOrder int64
	TargetPhaseOrder int64
	Payload          IRObject
}

// Document keys.
const (
	KeyPhases           = "phases"
	KeyAdvancementRules = "advancementRules"
	KeyIsFlexible       = "isFlexible"

	KeyName                 = "name"
	KeyPhaseType            = "phaseType"
	KeySortOrder            = "sortOrder"
	KeyIncomingSlotCount    = "incomingSlotCount"
	KeyAdvancingSlotCount   = "advancingSlotCount"
	KeyPoolCount            = "poolCount"
	KeyBestOf               = "bestOf"
	KeyMatchDurationMinutes = "matchDurationMinutes"

	KeySourcePhaseOrder = "sourcePhaseOrder"
	KeyTargetPhaseOrder = "targetPhaseOrder"
)

// Category classifies a template. Unrecognised categories are carried as-is.
type Category string

// TemplateRecord is the persisted entity wrapping a structure document.
// ID is empty for a new, unsaved template.
type TemplateRecord struct {
	ID               string    `json:"id,omitempty"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Category         Category  `json:"category"`
	MinUnits         int64     `json:"minUnits"`
	MaxUnits         int64     `json:"maxUnits"`
	DefaultUnits     int64     `json:"defaultUnits"`
	DiagramText      string    `json:"diagramText"`
	Tags             string    `json:"tags"`
	StructureJSON    string    `json:"structureJson"`
	IsSystemTemplate bool      `json:"isSystemTemplate"`
	IsActive         bool      `json:"isActive"`
	OwnerID          string    `json:"ownerId,omitempty"`
	CreatedAt        time.Time `json:"createdAt,omitzero"`
	UpdatedAt        time.Time `json:"updatedAt,omitzero"`
}

// IsNew reports whether the record has never been saved.
func (r TemplateRecord) IsNew() bool {
	return r.ID == ""
}
