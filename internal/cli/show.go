package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/phaseforge/internal/editor"
	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/taxonomy"
)

// ValidViews lists the views show renders.
var ValidViews = []string{"list", "canvas"}

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	View         string
	DropDangling bool
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Render a structure document",
		Long: `Render a structure document as a phase table (--view list) or as
boxes on the layout grid (--view canvas), followed by its rules.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.View, "view", "list", "view to render (list|canvas)")
	cmd.Flags().BoolVar(&opts.DropDangling, "drop-dangling", false, "drop rules that reference missing phases")

	return cmd
}

func runShow(opts *ShowOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	reg := taxonomy.Default()

	var view editor.VisualEditor
	switch opts.View {
	case "list":
		view = editor.ListEditor{KnownPhaseType: reg.IsKnownPhaseType}
	case "canvas":
		view = editor.CanvasEditor{}
	default:
		return formatter.Fail(ExitCommandError, ErrCodeGeneric,
			fmt.Sprintf("invalid view %q: must be one of %v", opts.View, ValidViews))
	}

	text, err := readDocument(formatter, path)
	if err != nil {
		return err
	}
	session, err := editor.Open(ir.TemplateRecord{StructureJSON: text}, editor.Options{
		Registry: reg,
		Dangling: danglingPolicy(opts.DropDangling),
		Logger:   opts.logger(),
	})
	if err != nil {
		return failEdit(formatter, err)
	}

	var b strings.Builder
	if err := view.Render(&b, session.State()); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	if formatter.JSON() {
		state := session.State()
		return formatter.Success(map[string]any{
			"view":     opts.View,
			"phases":   state.Len(),
			"rules":    state.EdgeLen(),
			"rendered": b.String(),
		})
	}
	_, err = fmt.Fprint(formatter.Writer, b.String())
	return err
}
