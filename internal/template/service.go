// Package template manages template records: validation, ownership rules,
// duplication of system templates and search. Persistence is delegated to
// a Repository (the SQL store or the remote API client).
package template

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/phaseforge/internal/codec"
	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/taxonomy"
	"github.com/roach88/phaseforge/internal/visual"
)

var (
	// ErrNotFound is returned by repositories for an unknown id.
	ErrNotFound = errors.New("template not found")

	// ErrForbidden is returned when the caller may not change a record.
	ErrForbidden = errors.New("forbidden")
)

// CopySuffix is appended to the name of a duplicated system template.
const CopySuffix = " (Copy)"

// Repository persists template records.
//
// Create assigns ID, CreatedAt and UpdatedAt. Update replaces every field
// except ID, OwnerID and CreatedAt. Get and Delete return ErrNotFound for
// unknown ids.
type Repository interface {
	Create(ctx context.Context, rec ir.TemplateRecord) (ir.TemplateRecord, error)
	Update(ctx context.Context, rec ir.TemplateRecord) (ir.TemplateRecord, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (ir.TemplateRecord, error)
	ListByOwner(ctx context.Context, ownerID string) ([]ir.TemplateRecord, error)
	ListSystem(ctx context.Context) ([]ir.TemplateRecord, error)
}

// Service applies template rules on top of a Repository.
type Service struct {
	repo   Repository
	reg    *taxonomy.Registry
	logger *slog.Logger
}

// NewService creates a service. A nil registry means taxonomy.Default and a
// nil logger means slog.Default.
func NewService(repo Repository, reg *taxonomy.Registry, logger *slog.Logger) *Service {
	if reg == nil {
		reg = taxonomy.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, reg: reg, logger: logger}
}

// Validate checks the fields a save requires: a name, a document that
// parses with every rule resolving to a phase, and consistent unit bounds.
func (s *Service) Validate(rec ir.TemplateRecord) error {
	if strings.TrimSpace(rec.Name) == "" {
		return visual.Errorf(visual.ErrValidationFailed, "validate", "name is required")
	}
	opts := codec.ParseOptions{Registry: s.reg, IDGen: visual.NewSequenceGenerator("validate"), Logger: s.logger}
	if _, err := codec.Parse(rec.StructureJSON, opts); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if rec.MinUnits < s.reg.MinUnits {
		return visual.Errorf(visual.ErrValidationFailed, "validate",
			"minUnits %d below %d", rec.MinUnits, s.reg.MinUnits)
	}
	if rec.DefaultUnits < rec.MinUnits || rec.DefaultUnits > rec.MaxUnits {
		return visual.Errorf(visual.ErrValidationFailed, "validate",
			"defaultUnits %d outside [%d, %d]", rec.DefaultUnits, rec.MinUnits, rec.MaxUnits)
	}
	return nil
}

// Create validates and stores a new user template.
func (s *Service) Create(ctx context.Context, rec ir.TemplateRecord) (ir.TemplateRecord, error) {
	if !rec.IsNew() {
		return ir.TemplateRecord{}, visual.Errorf(visual.ErrValidationFailed, "create", "record already has id %q", rec.ID)
	}
	if rec.Category == "" {
		rec.Category = s.reg.DefaultCategory
	}
	if err := s.Validate(rec); err != nil {
		return ir.TemplateRecord{}, err
	}
	rec.IsSystemTemplate = false

	saved, err := s.repo.Create(ctx, rec)
	if err != nil {
		return ir.TemplateRecord{}, fmt.Errorf("create template: %w", err)
	}
	s.logger.Info("template created", "template_id", saved.ID, "owner", saved.OwnerID)
	return saved, nil
}

// Update validates and stores changes to an existing user template.
func (s *Service) Update(ctx context.Context, rec ir.TemplateRecord) (ir.TemplateRecord, error) {
	if rec.IsNew() {
		return ir.TemplateRecord{}, visual.Errorf(visual.ErrValidationFailed, "update", "id is required")
	}
	if err := s.Validate(rec); err != nil {
		return ir.TemplateRecord{}, err
	}

	existing, err := s.repo.Get(ctx, rec.ID)
	if err != nil {
		return ir.TemplateRecord{}, fmt.Errorf("update template %s: %w", rec.ID, err)
	}
	if err := checkOwnership(existing, rec.OwnerID); err != nil {
		return ir.TemplateRecord{}, err
	}
	rec.IsSystemTemplate = false

	saved, err := s.repo.Update(ctx, rec)
	if err != nil {
		return ir.TemplateRecord{}, fmt.Errorf("update template %s: %w", rec.ID, err)
	}
	s.logger.Info("template updated", "template_id", saved.ID)
	return saved, nil
}

// Delete removes a template owned by ownerID. System templates cannot be
// deleted this way.
func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	if err := checkOwnership(existing, ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	s.logger.Info("template deleted", "template_id", id)
	return nil
}

func checkOwnership(rec ir.TemplateRecord, ownerID string) error {
	if rec.IsSystemTemplate {
		return fmt.Errorf("%w: %s is a system template", ErrForbidden, rec.ID)
	}
	if rec.OwnerID != ownerID {
		return fmt.Errorf("%w: %s belongs to another owner", ErrForbidden, rec.ID)
	}
	return nil
}

// Get returns one template.
func (s *Service) Get(ctx context.Context, id string) (ir.TemplateRecord, error) {
	return s.repo.Get(ctx, id)
}

// DuplicateFromSystem returns an unsaved copy of a system template for
// ownerID. The source record is only read.
func (s *Service) DuplicateFromSystem(ctx context.Context, id, ownerID string) (ir.TemplateRecord, error) {
	src, err := s.repo.Get(ctx, id)
	if err != nil {
		return ir.TemplateRecord{}, fmt.Errorf("duplicate template %s: %w", id, err)
	}
	if !src.IsSystemTemplate {
		return ir.TemplateRecord{}, visual.Errorf(visual.ErrValidationFailed, "duplicate", "%s is not a system template", id)
	}

	dup := src
	dup.ID = ""
	dup.Name = src.Name + CopySuffix
	dup.IsSystemTemplate = false
	dup.IsActive = true
	dup.OwnerID = ownerID
	dup.CreatedAt, dup.UpdatedAt = time.Time{}, time.Time{}
	return dup, nil
}

// ListOwn returns the templates owned by ownerID.
func (s *Service) ListOwn(ctx context.Context, ownerID string) ([]ir.TemplateRecord, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// ListSystem returns the active system templates.
func (s *Service) ListSystem(ctx context.Context) ([]ir.TemplateRecord, error) {
	all, err := s.repo.ListSystem(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0:0]
	for _, rec := range all {
		if rec.IsSystemTemplate && rec.IsActive {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Seed creates or refreshes a system template, matched by name.
func (s *Service) Seed(ctx context.Context, rec ir.TemplateRecord) (ir.TemplateRecord, error) {
	if err := s.Validate(rec); err != nil {
		return ir.TemplateRecord{}, err
	}
	rec.IsSystemTemplate = true
	rec.OwnerID = ""

	existing, err := s.repo.ListSystem(ctx)
	if err != nil {
		return ir.TemplateRecord{}, err
	}
	for _, e := range existing {
		if e.Name == rec.Name {
			if sameContent(e, rec) {
				s.logger.Debug("system template unchanged", "template_id", e.ID, "name", e.Name)
				return e, nil
			}
			rec.ID = e.ID
			s.logger.Debug("refreshing system template", "template_id", e.ID, "name", e.Name)
			return s.repo.Update(ctx, rec)
		}
	}
	rec.ID = ""
	s.logger.Debug("seeding system template", "name", rec.Name)
	return s.repo.Create(ctx, rec)
}

// sameContent reports whether two records carry the same metadata and
// logical structure. A hashing failure counts as a difference.
func sameContent(a, b ir.TemplateRecord) bool {
	if a.IsActive != b.IsActive {
		return false
	}
	ha, err := ir.TemplateHash(a)
	if err != nil {
		return false
	}
	hb, err := ir.TemplateHash(b)
	return err == nil && ha == hb
}
