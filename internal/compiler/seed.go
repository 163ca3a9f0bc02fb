package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/phaseforge/internal/codec"
	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/template"
)

// CompileTemplate turns a CUE template seed into a system template record.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the seed struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`template: swiss: { name: "Swiss", ... }`)
//	rec, err := CompileTemplate(v.LookupPath(cue.ParsePath("template.swiss")))
//
// The seed is unified with the embedded #Template schema first, so
// defaults (category, tags, active) apply and unit bounds are checked.
// The structure field is serialized through the codec, giving the same
// canonical text the editor would save.
func CompileTemplate(v cue.Value) (*ir.TemplateRecord, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def, err := schemaDef(v.Context(), "#Template")
	if err != nil {
		return nil, err
	}
	seed := def.Unify(v)
	if err := seed.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	rec := &ir.TemplateRecord{IsSystemTemplate: true}

	texts := []struct {
		path string
		dst  *string
	}{
		{"name", &rec.Name},
		{"description", &rec.Description},
		{"diagramText", &rec.DiagramText},
	}
	for _, f := range texts {
		if *f.dst, err = seed.LookupPath(cue.ParsePath(f.path)).String(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	category, err := seed.LookupPath(cue.ParsePath("category")).String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	rec.Category = ir.Category(category)

	ints := []struct {
		path string
		dst  *int64
	}{
		{"minUnits", &rec.MinUnits},
		{"maxUnits", &rec.MaxUnits},
		{"defaultUnits", &rec.DefaultUnits},
	}
	for _, f := range ints {
		if *f.dst, err = seed.LookupPath(cue.ParsePath(f.path)).Int64(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	if rec.IsActive, err = seed.LookupPath(cue.ParsePath("active")).Bool(); err != nil {
		return nil, formatCUEError(err)
	}

	tags, err := parseTags(seed.LookupPath(cue.ParsePath("tags")))
	if err != nil {
		return nil, err
	}
	rec.Tags = template.JoinTags(tags)

	structVal := seed.LookupPath(cue.ParsePath("structure"))
	raw, err := structVal.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	text, _, err := codec.Format(string(raw), codec.ParseOptions{}, codec.SerializeOptions{})
	if err != nil {
		return nil, &CompileError{
			Field:   "structure",
			Message: err.Error(),
			Pos:     structVal.Pos(),
		}
	}
	rec.StructureJSON = text

	return rec, nil
}

func parseTags(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var tags []string
	for iter.Next() {
		tag, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	field := "cue"
	if path := firstErr.Path(); len(path) > 0 {
		field = path[0]
	}
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   field,
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
