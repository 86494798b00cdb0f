// Package cmd provides the Cobra commands for the workerbuild CLI.
package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/fluxbase-eu/workerbuild/cli/output"
	"github.com/fluxbase-eu/workerbuild/internal/build"
	"github.com/fluxbase-eu/workerbuild/internal/bundle"
	"github.com/fluxbase-eu/workerbuild/internal/config"
	"github.com/fluxbase-eu/workerbuild/internal/observability"
	"github.com/fluxbase-eu/workerbuild/internal/wranglerjs"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	cfgFile   string
	outputFmt string
	noHeaders bool
	quiet     bool
	debug     bool

	// Shared across commands
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "workerbuild",
	Short: "Build edge workers with wrangler-js",
	Long: `workerbuild bundles a JavaScript (and optionally WebAssembly) worker
with wrangler-js and writes the deployable result to ./worker:

  worker/metadata.json   bindings of the upload
  worker/script.js       the worker script
  worker/module.wasm     the WebAssembly module, when the project has one

Get started:
  workerbuild install    Install wrangler-js into node_modules
  workerbuild build      Build the worker`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silence errors only when --quiet is used
		cmd.SilenceErrors = quiet

		setupLogging(cmd.ErrOrStderr())
		return nil
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the CLI with ctx as the commands' context
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./workerbuild.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&noHeaders, "no-headers", false,
		"hide table headers")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"minimal output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"enable debug output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(cleanCmd)
}

// setupLogging points the global zerolog logger at w. Colours are only used
// when w is a terminal.
func setupLogging(w io.Writer) {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    noColor,
		TimeFormat: time.TimeOnly,
	}).With().Timestamp().Logger()

	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case debug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// newFormatter creates the output formatter for cmd
func newFormatter(cmd *cobra.Command) (*output.Formatter, error) {
	format, err := output.ParseFormat(outputFmt)
	if err != nil {
		return nil, err
	}
	return output.NewFormatter(format, noHeaders, quiet, cmd.OutOrStdout()), nil
}

// loadConfig loads the configuration for commands that run tools. The debug
// setting of the file applies from here on.
func loadConfig() (*config.Config, error) {
	c, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if c.Debug && !quiet {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return c, nil
}

// newBuilder wires a Builder from the loaded config. Tool output goes to the
// command's streams.
func newBuilder(cmd *cobra.Command) (*build.Builder, error) {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return nil, err
	}

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if quiet {
		stdout = io.Discard
	}
	return build.NewBuilder(
		cfg,
		bundle.New(bundle.WithWriter(stdout)),
		wranglerjs.NewRunner(
			wranglerjs.WithTimeout(cfg.Build.Timeout),
			wranglerjs.WithOutput(stdout, stderr),
		),
		wranglerjs.NewInstaller(cfg.NPMPath, stdout, stderr),
		observability.NewMetrics(),
	), nil
}
