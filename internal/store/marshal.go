package store

import (
	"fmt"
	"time"

	"github.com/roach88/phaseforge/internal/ir"
)

// templateColumns is the column list every SELECT uses, in scanTemplate order.
const templateColumns = `id, name, description, category, min_units, max_units, default_units,
	diagram_text, tags, structure_json, is_system, is_active, owner_id, created_at, updated_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTemplate reads one row selected with templateColumns.
func scanTemplate(row rowScanner) (ir.TemplateRecord, error) {
	var rec ir.TemplateRecord
	var category string
	var isSystem, isActive int64
	var createdAt, updatedAt string

	err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Description,
		&category,
		&rec.MinUnits,
		&rec.MaxUnits,
		&rec.DefaultUnits,
		&rec.DiagramText,
		&rec.Tags,
		&rec.StructureJSON,
		&isSystem,
		&isActive,
		&rec.OwnerID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return ir.TemplateRecord{}, err
	}

	rec.Category = ir.Category(category)
	rec.IsSystemTemplate = isSystem != 0
	rec.IsActive = isActive != 0
	if rec.CreatedAt, err = unmarshalTime(createdAt); err != nil {
		return ir.TemplateRecord{}, fmt.Errorf("created_at: %w", err)
	}
	if rec.UpdatedAt, err = unmarshalTime(updatedAt); err != nil {
		return ir.TemplateRecord{}, fmt.Errorf("updated_at: %w", err)
	}
	return rec, nil
}

// marshalBool stores booleans as INTEGER so one schema serves both dialects.
func marshalBool(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// marshalTime formats t as RFC 3339 with nanoseconds in UTC. The fixed
// layout keeps lexical and chronological order aligned.
func marshalTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

func unmarshalTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
