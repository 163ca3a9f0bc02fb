package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/template"
)

// Create inserts rec with a new id and fresh timestamps.
func (s *Store) Create(ctx context.Context, rec ir.TemplateRecord) (ir.TemplateRecord, error) {
	rec.ID = s.ids.NewID()
	now := s.now()
	rec.CreatedAt, rec.UpdatedAt = now, now

	_, err := s.exec(ctx, `
		INSERT INTO templates
		(id, name, description, category, min_units, max_units, default_units,
		 diagram_text, tags, structure_json, is_system, is_active, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Name,
		rec.Description,
		string(rec.Category),
		rec.MinUnits,
		rec.MaxUnits,
		rec.DefaultUnits,
		rec.DiagramText,
		rec.Tags,
		rec.StructureJSON,
		marshalBool(rec.IsSystemTemplate),
		marshalBool(rec.IsActive),
		rec.OwnerID,
		marshalTime(rec.CreatedAt),
		marshalTime(rec.UpdatedAt),
	)
	if err != nil {
		return ir.TemplateRecord{}, fmt.Errorf("create template: %w", err)
	}

	s.logger.Debug("template inserted", "template_id", rec.ID)
	return rec, nil
}

// Update replaces the editable fields of an existing record. ID, OwnerID and
// CreatedAt are kept from the stored row.
func (s *Store) Update(ctx context.Context, rec ir.TemplateRecord) (ir.TemplateRecord, error) {
	existing, err := s.Get(ctx, rec.ID)
	if err != nil {
		return ir.TemplateRecord{}, fmt.Errorf("update template: %w", err)
	}
	rec.OwnerID = existing.OwnerID
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = s.now()

	res, err := s.exec(ctx, `
		UPDATE templates SET
			name = ?, description = ?, category = ?, min_units = ?, max_units = ?,
			default_units = ?, diagram_text = ?, tags = ?, structure_json = ?,
			is_system = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`,
		rec.Name,
		rec.Description,
		string(rec.Category),
		rec.MinUnits,
		rec.MaxUnits,
		rec.DefaultUnits,
		rec.DiagramText,
		rec.Tags,
		rec.StructureJSON,
		marshalBool(rec.IsSystemTemplate),
		marshalBool(rec.IsActive),
		marshalTime(rec.UpdatedAt),
		rec.ID,
	)
	s.cache.Remove(rec.ID)
	if err != nil {
		return ir.TemplateRecord{}, fmt.Errorf("update template: %w", err)
	}
	if err := requireRow(res, rec.ID); err != nil {
		return ir.TemplateRecord{}, fmt.Errorf("update template: %w", err)
	}
	return rec, nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM templates WHERE id = ?`, id)
	s.cache.Remove(id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if err := requireRow(res, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// Get returns one record, from the cache when possible.
func (s *Store) Get(ctx context.Context, id string) (ir.TemplateRecord, error) {
	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}

	row := s.queryRow(ctx, `SELECT `+templateColumns+` FROM templates WHERE id = ?`, id)
	rec, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.TemplateRecord{}, fmt.Errorf("%w: %s", template.ErrNotFound, id)
	}
	if err != nil {
		return ir.TemplateRecord{}, fmt.Errorf("get template: %w", err)
	}

	s.cache.Add(id, rec)
	return rec, nil
}

// ListByOwner returns the non-system templates of ownerID ordered by name,
// then id.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]ir.TemplateRecord, error) {
	return s.list(ctx, `SELECT `+templateColumns+` FROM templates
		WHERE owner_id = ? AND is_system = 0
		ORDER BY name ASC, id ASC`, ownerID)
}

// ListSystem returns every system template, active or not, ordered by name,
// then id.
func (s *Store) ListSystem(ctx context.Context) ([]ir.TemplateRecord, error) {
	return s.list(ctx, `SELECT `+templateColumns+` FROM templates
		WHERE is_system = 1
		ORDER BY name ASC, id ASC`)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]ir.TemplateRecord, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []ir.TemplateRecord
	for rows.Next() {
		rec, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return out, nil
}

func requireRow(res interface{ RowsAffected() (int64, error) }, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", template.ErrNotFound, id)
	}
	return nil
}
