package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/workerbuild/internal/watch"
)

var (
	buildWatch       bool
	buildInstallDeps bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the worker into ./worker",
	Long: `Bundle the project with wrangler-js and write the worker to ./worker.

wrangler-js is installed first when it is missing (see build.auto_install).
Without a webpack.config.js the entry point is the "main" file of package.json.

Examples:
  workerbuild build
  workerbuild build --install-deps
  workerbuild build --watch`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVarP(&buildWatch, "watch", "w", false, "Rebuild when project files change")
	buildCmd.Flags().BoolVar(&buildInstallDeps, "install-deps", false, "Run npm install before building")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	builder, err := newBuilder(cmd)
	if err != nil {
		return err
	}

	if buildInstallDeps {
		if err := builder.InstallDependencies(ctx); err != nil {
			return err
		}
	}
	if err := builder.EnsureInstalled(ctx); err != nil {
		return err
	}

	_, err = builder.Build(ctx)
	if !buildWatch {
		return err
	}
	if err != nil {
		log.Warn().Msg("Initial build failed, waiting for changes")
	}

	root, err := filepath.Abs(".")
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watch.New(root, cfg.Watch.Ignore, cfg.Watch.Debounce).Run(ctx, func(ctx context.Context) error {
		_, err := builder.Build(ctx)
		return err
	})
}
