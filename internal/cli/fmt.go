package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/phaseforge/internal/codec"
	"github.com/roach88/phaseforge/internal/ir"
)

// FmtOptions holds flags for the fmt command.
type FmtOptions struct {
	*RootOptions
	Indent       string
	DropDangling bool
	Write        bool
}

// FmtResult is the JSON payload of the fmt command.
type FmtResult struct {
	Document string        `json:"document"`
	Hash     string        `json:"hash"` // content identity, independent of key order and whitespace
	Dropped  []DroppedRule `json:"dropped,omitempty"`
	Changed  bool          `json:"changed"`
}

// DroppedRule identifies a dangling rule removed by --drop-dangling.
type DroppedRule struct {
	Index  int   `json:"index"`
	Source int64 `json:"sourcePhaseOrder"`
	Target int64 `json:"targetPhaseOrder"`
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FmtOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Rewrite a structure document in canonical form",
		Long: `Parse a structure document and serialize it again.

Phases come out in sortOrder, rules in their original order, unknown keys
preserved. Rules pointing at missing phases fail the command unless
--drop-dangling is given, in which case they are removed and reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Indent, "indent", "", `indent string, e.g. "  " (default compact)`)
	cmd.Flags().BoolVar(&opts.DropDangling, "drop-dangling", false, "drop rules that reference missing phases")
	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "write the result back to the file")

	return cmd
}

func runFmt(opts *FmtOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	text, err := readDocument(formatter, path)
	if err != nil {
		return err
	}

	out, report, err := codec.Format(text,
		codec.ParseOptions{Dangling: danglingPolicy(opts.DropDangling), Logger: opts.logger()},
		codec.SerializeOptions{Indent: opts.Indent})
	if err != nil {
		return failEdit(formatter, err)
	}
	dropped := make([]DroppedRule, len(report.Dropped))
	for i, d := range report.Dropped {
		dropped[i] = DroppedRule{Index: d.Index, Source: d.Rule.SourcePhaseOrder, Target: d.Rule.TargetPhaseOrder}
		formatter.VerboseLog("dropped advancementRules[%d]: %d -> %d", d.Index, dropped[i].Source, dropped[i].Target)
	}

	if opts.Write {
		if err := os.WriteFile(path, []byte(out+"\n"), 0o644); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing %s: %v", path, err))
		}
	}

	if formatter.JSON() {
		doc, err := ir.DecodeDocument([]byte(out))
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeMalformed, err.Error())
		}
		hash, err := ir.StructureHash(doc)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error())
		}
		return formatter.Success(FmtResult{Document: out, Hash: hash, Dropped: dropped, Changed: out != text})
	}
	if len(dropped) > 0 {
		fmt.Fprintf(formatter.GetErrWriter(), "dropped %d dangling rule(s)\n", len(dropped))
	}
	if !opts.Write {
		fmt.Fprintln(formatter.Writer, out)
	}
	return nil
}
