package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/phaseforge/internal/compiler"
	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/taxonomy"
	"github.com/roach88/phaseforge/internal/template"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Record bool // file is a template record, not a bare document
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Findings []compiler.ValidationError `json:"findings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a structure document against the schema and lint rules",
		Long: `Check a structure document without changing it.

The document is checked against the structural schema, then linted:
empty names, odd slot counts, unknown phase types, self-loop and dangling
rules, advancement cycles. Errors fail the command (exit 1); warnings and
informational findings are reported only.

With --record the file is a template record whose structureJson is
checked, along with its category and unit bounds.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Record, "record", false, "file is a template record JSON")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	reg := taxonomy.Default()

	text, err := readDocument(formatter, path)
	if err != nil {
		return err
	}

	var findings []compiler.ValidationError
	if opts.Record {
		findings = lintRecordText(text, reg, opts.logger())
	} else {
		findings = lintDocument(text, reg)
	}
	formatter.VerboseLog("%s: %d finding(s)", path, len(findings))

	result := ValidationResult{Valid: !compiler.HasErrors(findings), Findings: findings}
	return outputValidation(formatter, result)
}

// lintDocument runs the schema check and, when the document decodes, the
// lint rules.
func lintDocument(text string, reg *taxonomy.Registry) []compiler.ValidationError {
	findings := compiler.CheckSchema(text)
	doc, err := ir.DecodeDocument([]byte(text))
	if err != nil {
		if !compiler.HasErrors(findings) {
			findings = append(findings, compiler.ValidationError{
				Field:    "document",
				Message:  err.Error(),
				Code:     compiler.ErrSchemaViolation,
				Severity: compiler.SeverityError,
			})
		}
		return findings
	}
	return append(findings, compiler.Lint(doc, reg)...)
}

// lintRecordText checks a record's unit bounds and category, then its
// structure document.
func lintRecordText(text string, reg *taxonomy.Registry, logger *slog.Logger) []compiler.ValidationError {
	var rec ir.TemplateRecord
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return []compiler.ValidationError{{
			Field:    "record",
			Message:  err.Error(),
			Code:     compiler.ErrSchemaViolation,
			Severity: compiler.SeverityError,
		}}
	}
	logger.Debug("validating record", "name", rec.Name, "category", rec.Category)

	var findings []compiler.ValidationError
	if err := template.NewService(nil, reg, logger).Validate(rec); err != nil {
		findings = append(findings, compiler.ValidationError{
			Field:    "record",
			Message:  err.Error(),
			Code:     compiler.ErrSchemaViolation,
			Severity: compiler.SeverityError,
		})
	}

	schema := compiler.CheckSchema(rec.StructureJSON)
	findings = append(findings, schema...)
	for _, f := range compiler.LintRecord(rec, reg) {
		// An undecodable structure is already reported by the schema check.
		if f.Field == "structureJson" && compiler.HasErrors(schema) {
			continue
		}
		findings = append(findings, f)
	}
	return findings
}

// outputValidation prints the findings and returns ExitFailure when any is
// an error.
func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	failed := !result.Valid
	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if failed {
			resp.Status = "error"
			first := firstError(result.Findings)
			resp.Error = &CLIError{Code: first.Code, Message: first.Message}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		if failed {
			fmt.Fprintln(w, "✗ Validation failed")
		} else {
			fmt.Fprintln(w, "✓ Document valid")
		}
		for _, f := range result.Findings {
			loc := f.Field
			if f.Line > 0 {
				loc = fmt.Sprintf("line %d: %s", f.Line, f.Field)
			}
			fmt.Fprintf(w, "  %s %s %s: %s\n", f.Severity, f.Code, loc, f.Message)
		}
	}

	if failed {
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d finding(s)", len(result.Findings)))
	}
	return nil
}

func firstError(findings []compiler.ValidationError) compiler.ValidationError {
	for _, f := range findings {
		if f.Severity == compiler.SeverityError {
			return f
		}
	}
	return compiler.ValidationError{Code: ErrCodeGeneric, Message: "validation failed"}
}
