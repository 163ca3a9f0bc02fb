package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/phaseforge/internal/ir"
	"github.com/roach88/phaseforge/internal/template"
)

// TemplateOptions holds flags shared by the template subcommands.
type TemplateOptions struct {
	*RootOptions
	Name string // new name for duplicate
}

// NewTemplateCommand creates the template command group.
func NewTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TemplateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage stored templates",
		Long: `Create, list and change template records.

Records live in the local store (--db, default phaseforge.db) or, when
--api is set, behind the remote template API. Ownership checks use --owner.
System templates can be duplicated but not changed; seed refreshes them
from CUE seeds and needs the local store.`,
	}

	cmd.AddCommand(
		templateSubcommand(opts, "list", "List your templates", cobra.NoArgs, runTemplateList),
		templateSubcommand(opts, "system", "List active system templates", cobra.NoArgs, runTemplateSystem),
		templateSubcommand(opts, "get <id>", "Show one template", cobra.ExactArgs(1), runTemplateGet),
		templateSubcommand(opts, "create <record.json>", "Create a template from a record file", cobra.ExactArgs(1), runTemplateCreate),
		templateSubcommand(opts, "update <id> <record.json>", "Replace a template's fields from a record file", cobra.ExactArgs(2), runTemplateUpdate),
		templateSubcommand(opts, "delete <id>", "Delete one of your templates", cobra.ExactArgs(1), runTemplateDelete),
		templateSubcommand(opts, "search <query>", "Fuzzy-search your templates and the system templates", cobra.MinimumNArgs(1), runTemplateSearch),
		templateSubcommand(opts, "seed <seeds-dir>", "Create or refresh system templates from CUE seeds", cobra.ExactArgs(1), runTemplateSeed),
	)

	dup := templateSubcommand(opts, "duplicate <id>", "Copy a system template into your templates", cobra.ExactArgs(1), runTemplateDuplicate)
	dup.Flags().StringVar(&opts.Name, "name", "", "name for the copy (default: source name plus \" (Copy)\")")
	cmd.AddCommand(dup)

	return cmd
}

type templateRunner func(ctx context.Context, opts *TemplateOptions, svc *template.Service, f *OutputFormatter, args []string) error

func templateSubcommand(opts *TemplateOptions, use, short string, args cobra.PositionalArgs, run templateRunner) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Args:          args,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			svc, closeRepo, err := opts.openTemplates()
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeRepository, err.Error())
			}
			defer closeRepo()
			return run(cmd.Context(), opts, svc, formatter, args)
		},
	}
}

func runTemplateList(ctx context.Context, opts *TemplateOptions, svc *template.Service, f *OutputFormatter, _ []string) error {
	recs, err := svc.ListOwn(ctx, opts.settings().Owner)
	if err != nil {
		return failEdit(f, err)
	}
	return outputRecords(f, recs)
}

func runTemplateSystem(ctx context.Context, _ *TemplateOptions, svc *template.Service, f *OutputFormatter, _ []string) error {
	recs, err := svc.ListSystem(ctx)
	if err != nil {
		return failEdit(f, err)
	}
	return outputRecords(f, recs)
}

func runTemplateGet(ctx context.Context, _ *TemplateOptions, svc *template.Service, f *OutputFormatter, args []string) error {
	rec, err := svc.Get(ctx, args[0])
	if err != nil {
		return failEdit(f, err)
	}
	return outputRecord(f, rec)
}

func runTemplateCreate(ctx context.Context, opts *TemplateOptions, svc *template.Service, f *OutputFormatter, args []string) error {
	rec, err := readRecord(f, args[0])
	if err != nil {
		return err
	}
	rec.ID = ""
	rec.OwnerID = opts.settings().Owner
	saved, err := svc.Create(ctx, rec)
	if err != nil {
		return failEdit(f, err)
	}
	return outputRecord(f, saved)
}

func runTemplateUpdate(ctx context.Context, opts *TemplateOptions, svc *template.Service, f *OutputFormatter, args []string) error {
	rec, err := readRecord(f, args[1])
	if err != nil {
		return err
	}
	rec.ID = args[0]
	rec.OwnerID = opts.settings().Owner
	saved, err := svc.Update(ctx, rec)
	if err != nil {
		return failEdit(f, err)
	}
	return outputRecord(f, saved)
}

func runTemplateDelete(ctx context.Context, opts *TemplateOptions, svc *template.Service, f *OutputFormatter, args []string) error {
	if err := svc.Delete(ctx, args[0], opts.settings().Owner); err != nil {
		return failEdit(f, err)
	}
	if f.JSON() {
		return f.Success(map[string]string{"deleted": args[0]})
	}
	fmt.Fprintf(f.Writer, "✓ Deleted %s\n", args[0])
	return nil
}

func runTemplateDuplicate(ctx context.Context, opts *TemplateOptions, svc *template.Service, f *OutputFormatter, args []string) error {
	dup, err := svc.DuplicateFromSystem(ctx, args[0], opts.settings().Owner)
	if err != nil {
		return failEdit(f, err)
	}
	if opts.Name != "" {
		dup.Name = opts.Name
	}
	saved, err := svc.Create(ctx, dup)
	if err != nil {
		return failEdit(f, err)
	}
	return outputRecord(f, saved)
}

func runTemplateSearch(ctx context.Context, opts *TemplateOptions, svc *template.Service, f *OutputFormatter, args []string) error {
	own, err := svc.ListOwn(ctx, opts.settings().Owner)
	if err != nil {
		return failEdit(f, err)
	}
	sys, err := svc.ListSystem(ctx)
	if err != nil {
		return failEdit(f, err)
	}
	return outputRecords(f, template.Search(append(own, sys...), strings.Join(args, " ")))
}

func runTemplateSeed(ctx context.Context, opts *TemplateOptions, svc *template.Service, f *OutputFormatter, args []string) error {
	if opts.settings().UseAPI() {
		return f.Fail(ExitCommandError, ErrCodeRepository, "seeding needs the local store; the remote API never stores system templates")
	}
	seeds, errs := LoadSeeds(args[0], LoadModeFailFast)
	if len(errs) > 0 {
		code, message := parseCompileError(errs[0])
		return f.Fail(ExitCommandError, code, message)
	}

	saved := make([]ir.TemplateRecord, 0, len(seeds.Templates))
	for _, rec := range seeds.Templates {
		out, err := svc.Seed(ctx, rec)
		if err != nil {
			return failEdit(f, err)
		}
		f.VerboseLog("seeded %s as %s", out.Name, out.ID)
		saved = append(saved, out)
	}
	return outputRecords(f, saved)
}

func readRecord(f *OutputFormatter, path string) (ir.TemplateRecord, error) {
	text, err := readDocument(f, path)
	if err != nil {
		return ir.TemplateRecord{}, err
	}
	var rec ir.TemplateRecord
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return rec, f.Fail(ExitFailure, ErrCodeMalformed, fmt.Sprintf("%s: %v", path, err))
	}
	return rec, nil
}

func outputRecords(f *OutputFormatter, recs []ir.TemplateRecord) error {
	if f.JSON() {
		if recs == nil {
			recs = []ir.TemplateRecord{}
		}
		return f.Success(recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(f.Writer, "No templates found.")
		return nil
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tUNITS\tTAGS")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d-%d (%d)\t%s\n",
			r.ID, r.Name, r.Category, r.MinUnits, r.MaxUnits, r.DefaultUnits, r.Tags)
	}
	return tw.Flush()
}

func outputRecord(f *OutputFormatter, rec ir.TemplateRecord) error {
	if f.JSON() {
		return f.Success(rec)
	}
	w := f.Writer
	fmt.Fprintf(w, "%s  %s\n", rec.ID, rec.Name)
	if rec.Description != "" {
		fmt.Fprintf(w, "  %s\n", rec.Description)
	}
	fmt.Fprintf(w, "  category: %s\n", rec.Category)
	fmt.Fprintf(w, "  units:    %d-%d (default %d)\n", rec.MinUnits, rec.MaxUnits, rec.DefaultUnits)
	if rec.Tags != "" {
		fmt.Fprintf(w, "  tags:     %s\n", rec.Tags)
	}
	if rec.IsSystemTemplate {
		fmt.Fprintln(w, "  system template")
	} else if rec.OwnerID != "" {
		fmt.Fprintf(w, "  owner:    %s\n", rec.OwnerID)
	}
	fmt.Fprintf(w, "  structure: %s\n", rec.StructureJSON)
	return nil
}
