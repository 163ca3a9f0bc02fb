package compiler

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"
)

//go:embed schema.cue
var schemaCUE string

// schemaDef compiles the embedded schema in ctx and returns one definition.
func schemaDef(ctx *cue.Context, name string) (cue.Value, error) {
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath(name))
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("schema has no %s", name)
	}
	return def, nil
}

// CheckSchema unifies a JSON document with the structural schema and
// returns every violation (does not fail-fast). Text that is not JSON
// yields a single finding.
func CheckSchema(text string) []ValidationError {
	ctx := cuecontext.New()
	def, err := schemaDef(ctx, "#Document")
	if err != nil {
		return []ValidationError{schemaError("schema", err.Error(), 0)}
	}

	expr, err := cuejson.Extract("document.json", []byte(text))
	if err != nil {
		return cueFindings(err)
	}
	data := ctx.BuildExpr(expr)
	if err := data.Err(); err != nil {
		return cueFindings(err)
	}

	if err := def.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return cueFindings(err)
	}
	return nil
}

// cueFindings converts each CUE error into a ValidationError.
func cueFindings(err error) []ValidationError {
	var out []ValidationError
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		field := strings.Join(e.Path(), ".")
		if field == "" {
			field = "document"
		}
		line := 0
		if pos := e.Position(); pos.IsValid() {
			line = pos.Line()
		}
		out = append(out, schemaError(field, fmt.Sprintf(format, args...), line))
	}
	if len(out) == 0 {
		out = append(out, schemaError("document", err.Error(), 0))
	}
	return out
}

func schemaError(field, msg string, line int) ValidationError {
	return ValidationError{
		Field:    field,
		Message:  msg,
		Code:     ErrSchemaViolation,
		Severity: SeverityError,
		Line:     line,
	}
}
