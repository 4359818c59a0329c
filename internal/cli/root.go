// Package cli provides the pgstar command-line interface: a debug surface
// for driving conversions between typed datums and Starlark values without
// a live database.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pgstar/pgstar/internal/config"
	"github.com/pgstar/pgstar/pkg/catalog"
	"github.com/pgstar/pgstar/pkg/catalogs/memory"
	"github.com/pgstar/pgstar/pkg/catalogs/sqlite"
	"github.com/pgstar/pgstar/pkg/codec"
	"github.com/pgstar/pgstar/pkg/encoding"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

var cfgFile string

// appKey is used to store the assembled App in the command context.
type appKey struct{}

// App bundles everything a command needs: the loaded configuration, the
// codec over the configured catalog backend, and a name registry for
// resolving type names given on the command line.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Codec  *codec.Codec
	TextIO catalog.TextIO

	// Names resolves type names to OIDs. It is always the builtin registry,
	// independent of the metadata backend.
	Names *memory.Catalog

	closer func() error
}

// Close releases the catalog backend, if it holds resources.
func (a *App) Close() error {
	if a.closer != nil {
		return a.closer()
	}
	return nil
}

func appFrom(ctx context.Context) *App {
	app, _ := ctx.Value(appKey{}).(*App)
	return app
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pgstar",
		Short: "pgstar - typed datum / Starlark value codec",
		Long: `pgstar converts values between a relational engine's typed datums and
the Starlark value model: scalars, arrays, composite rows, JSON documents,
byte buffers and temporal values, in both directions.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			app, err := newApp(cmd.Context(), cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, app))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if app := appFrom(cmd.Context()); app != nil {
				return app.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./pgstar.yaml)")
	pf.Bool("check-integer-overflow", false, "range-check narrow integer targets instead of truncating")
	pf.String("int64-mode", "", "64-bit integer mode (exact|graceful)")
	pf.String("json-strategy", "", "jsonb conversion strategy (direct|text)")
	pf.Bool("strict-json-leaves", false, "treat unconvertible JSON leaves as errors")
	pf.String("database-encoding", "", "server encoding name (e.g. UTF8, LATIN1)")
	pf.String("catalog.backend", "", "type catalog backend (memory|sqlite)")
	pf.String("catalog.path", "", "database file for the sqlite catalog backend")
	pf.String("logging.level", "", "log level (debug|info|warn|error)")
	pf.String("logging.format", "", "log format (text|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("json-strategy", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"direct", "text"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("int64-mode", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"exact", "graceful"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newInferCmd())
	rootCmd.AddCommand(newTypesCmd())

	return rootCmd
}

// newApp assembles the codec stack from loaded configuration.
func newApp(ctx context.Context, cfgFile string, flags *pflag.FlagSet) (*App, error) {
	cfg, err := config.Load(cfgFile, flags)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	app := &App{
		Config: cfg,
		Logger: logger,
		Names:  memory.New(),
	}

	var cat catalog.Catalog
	switch cfg.Catalog.Backend {
	case "sqlite":
		sc, err := sqlite.Open(ctx, cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("opening catalog %s: %w", cfg.Catalog.Path, err)
		}
		if err := sc.Seed(ctx); err != nil {
			_ = sc.Close()
			return nil, fmt.Errorf("seeding catalog: %w", err)
		}
		cat = sc
		app.TextIO = sc
		app.closer = sc.Close
	default:
		m := memory.New()
		cat = m
		app.TextIO = m
	}

	app.Codec = codec.New(cat, app.TextIO, encoding.New(), cfg.CodecOptions(), logger)
	return app, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Logging.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
