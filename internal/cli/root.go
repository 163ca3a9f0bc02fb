package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/phaseforge/internal/config"
	"github.com/roach88/phaseforge/internal/store"
	"github.com/roach88/phaseforge/internal/taxonomy"
	"github.com/roach88/phaseforge/internal/template"
	"github.com/roach88/phaseforge/internal/templateapi"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	EnvFile string

	// Flags overriding the environment. Empty means unset.
	DB     string
	APIURL string
	Owner  string

	// Resolved in PersistentPreRunE.
	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the phaseforge CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "phaseforge",
		Short: "phaseforge - tournament structure templates",
		Long: `Edit, validate and store tournament structure templates.

A template's structure document lists its phases (pools, brackets, swiss
rounds, ...) and the advancement rules that move competitors between them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.resolve(cmd.ErrOrStderr())
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVar(&opts.EnvFile, "env-file", ".env", "optional dotenv file")
	pf.StringVar(&opts.DB, "db", "", "SQLite path or postgres:// URL (env "+config.EnvDB+")")
	pf.StringVar(&opts.APIURL, "api", "", "remote template API base URL (env "+config.EnvAPIURL+")")
	pf.StringVar(&opts.Owner, "owner", "", "owner id for template operations (env "+config.EnvOwner+")")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewFmtCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewTemplateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// resolve loads configuration, applies flag overrides and builds the logger.
func (o *RootOptions) resolve(stderr io.Writer) error {
	cfg, err := config.Load(o.EnvFile)
	if err != nil {
		return err
	}
	if o.DB != "" {
		cfg.DB = o.DB
	}
	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
	}
	if o.Owner != "" {
		cfg.Owner = o.Owner
	}
	if o.Verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	o.Config = cfg
	o.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return nil
}

// logger returns the resolved logger, or one that discards everything when
// a command runs without the root command.
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// settings returns the resolved configuration. Commands built without the
// root command fall back to the flag values and defaults.
func (o *RootOptions) settings() config.Config {
	cfg := o.Config
	if cfg.DB == "" {
		cfg.DB = firstNonEmpty(o.DB, config.DefaultDB)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = o.APIURL
	}
	if cfg.Owner == "" {
		cfg.Owner = o.Owner
	}
	return cfg
}

// openTemplates builds the template service over the remote API when one
// is configured, else over the local store. The returned close function
// releases the store.
func (o *RootOptions) openTemplates() (*template.Service, func() error, error) {
	cfg := o.settings()
	logger := o.logger()
	reg := taxonomy.Default()

	if cfg.UseAPI() {
		client := templateapi.New(cfg.APIURL, cfg.APIRPS, logger)
		logger.Debug("using remote template api", "url", cfg.APIURL)
		return template.NewService(client, reg, logger), func() error { return nil }, nil
	}

	st, err := store.Open(cfg.DB, store.Options{Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	return template.NewService(st, reg, logger), st.Close, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
