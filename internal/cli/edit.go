package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/phaseforge/internal/codec"
	"github.com/roach88/phaseforge/internal/editor"
	"github.com/roach88/phaseforge/internal/harness"
	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/taxonomy"
	"github.com/roach88/phaseforge/internal/template"
)

// EditOptions holds flags for the edit command.
type EditOptions struct {
	*RootOptions
	Script       string
	Output       string
	Indent       string
	DropDangling bool
	Template     string // stored template id to edit instead of a file
	Save         bool
	Name         string
}

// EditResult is the JSON payload of the edit command.
type EditResult struct {
	Document string               `json:"document"`
	Trace    []harness.TraceEvent `json:"trace"`
	Saved    *ir.TemplateRecord   `json:"saved,omitempty"`
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit [file] --script <steps.yaml>",
		Short: "Apply a scripted list of edits to a structure document",
		Long: `Apply edit steps from a YAML script to a structure document.

The script is a "steps:" list in the scenario step format (add_phase,
remove_rule, raw_text, ...). A step that fails without declaring
expect_error aborts the edit and nothing is written. The result goes to
stdout, or to the file named by -o.

--template edits a stored template instead of a file. --save stores the
result: a file becomes a new template (named by --name), a stored
template is updated in place. Saving goes through the editor's save gate,
so a document that could not be opened again is never stored.

Example script:

  steps:
    - op: add_phase
      as: final
      fields: { name: Final, incomingSlotCount: 2 }
    - op: add_rule
      source: "1"
      target: final
      payload: { finishPosition: 1 }`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Script, "script", "", "YAML edit script (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Indent, "indent", "", "indent string for the output document")
	cmd.Flags().BoolVar(&opts.DropDangling, "drop-dangling", false, "drop rules that reference missing phases")
	cmd.Flags().StringVar(&opts.Template, "template", "", "edit the stored template with this id")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "store the result as a template")
	cmd.Flags().StringVar(&opts.Name, "name", "", "template name to save under")
	_ = cmd.MarkFlagRequired("script")

	return cmd
}

func runEdit(opts *EditOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()
	reg := taxonomy.Default()

	if (len(args) == 1) == (opts.Template != "") {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "give either a document file or --template")
	}
	script, err := harness.LoadScript(opts.Script)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScript, err.Error())
	}

	var svc *template.Service
	if opts.Template != "" || opts.Save {
		var closeRepo func() error
		svc, closeRepo, err = opts.openTemplates()
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeRepository, err.Error())
		}
		defer closeRepo()
	}

	rec, err := opts.loadRecord(cmd.Context(), formatter, svc, reg, args)
	if err != nil {
		return err
	}
	session, err := editor.Open(rec, editor.Options{
		Registry: reg,
		Dangling: danglingPolicy(opts.DropDangling),
		Logger:   logger,
	})
	if err != nil {
		return failEdit(formatter, err)
	}
	session.UpdateRecord(func(r *ir.TemplateRecord) {
		if opts.Name != "" {
			r.Name = opts.Name
		}
		if opts.Save {
			r.OwnerID = opts.settings().Owner
		}
	})

	result := harness.NewResult()
	harness.Replay(session, script.Steps, result, logger)
	if !result.Pass {
		_ = formatter.Error(ErrCodeScript, "edit script failed", result.Errors)
		if !formatter.JSON() {
			for _, e := range result.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", e)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("edit script failed with %d error(s)", len(result.Errors)))
	}

	if session.Mode() == editor.ModeRawText {
		if err := session.ToVisual(); err != nil {
			return failEdit(formatter, err)
		}
	}

	out, _, err := codec.Format(session.Text(), codec.ParseOptions{}, codec.SerializeOptions{Indent: opts.Indent})
	if err != nil {
		return failEdit(formatter, err)
	}
	formatter.VerboseLog("applied %d step(s)", len(result.Trace))

	var saved *ir.TemplateRecord
	if opts.Save {
		rec, err := session.Save(cmd.Context(), svc)
		if err != nil {
			return failEdit(formatter, err)
		}
		saved = &rec
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(out+"\n"), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing %s: %v", opts.Output, err))
		}
	}

	if formatter.JSON() {
		return formatter.Success(EditResult{Document: out, Trace: result.Trace, Saved: saved})
	}
	if opts.Output != "" {
		fmt.Fprintf(formatter.Writer, "✓ Applied %d step(s), wrote %s\n", len(result.Trace), opts.Output)
	} else if saved == nil {
		_, err = fmt.Fprintln(formatter.Writer, strings.TrimRight(out, "\n"))
		return err
	}
	if saved != nil {
		fmt.Fprintf(formatter.Writer, "✓ Saved %s  %s\n", saved.ID, saved.Name)
	}
	return nil
}

// loadRecord reads the record to edit: a stored template, or a document
// file wrapped in new-template metadata.
func (o *EditOptions) loadRecord(ctx context.Context, f *OutputFormatter, svc *template.Service, reg *taxonomy.Registry, args []string) (ir.TemplateRecord, error) {
	if o.Template != "" {
		rec, err := svc.Get(ctx, o.Template)
		if err != nil {
			return ir.TemplateRecord{}, failEdit(f, err)
		}
		return rec, nil
	}
	text, err := readDocument(f, args[0])
	if err != nil {
		return ir.TemplateRecord{}, err
	}
	rec := editor.DefaultRecord(reg)
	rec.StructureJSON = text
	return rec, nil
}
