// Package build runs the full worker build: make sure wrangler-js is
// installed, bundle with it, then assemble the worker directory.
package build

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/workerbuild/internal/bundle"
	"github.com/fluxbase-eu/workerbuild/internal/config"
	"github.com/fluxbase-eu/workerbuild/internal/observability"
	"github.com/fluxbase-eu/workerbuild/internal/wranglerjs"
)

// Builder runs builds for the project in the working directory. It is not
// safe for concurrent use: builds share the output directory.
type Builder struct {
	cfg       *config.Config
	bundle    *bundle.Bundle
	runner    *wranglerjs.Runner
	installer *wranglerjs.Installer
	metrics   *observability.Metrics
}

// NewBuilder wires a Builder from its parts
func NewBuilder(cfg *config.Config, b *bundle.Bundle, runner *wranglerjs.Runner, installer *wranglerjs.Installer, metrics *observability.Metrics) *Builder {
	return &Builder{
		cfg:       cfg,
		bundle:    b,
		runner:    runner,
		installer: installer,
		metrics:   metrics,
	}
}

// EnsureInstalled installs wrangler-js when it is missing and auto-install
// is enabled. With auto-install disabled a missing tool is left for the
// build to report.
func (b *Builder) EnsureInstalled(ctx context.Context) error {
	if wranglerjs.IsInstalled() {
		return nil
	}
	if !b.cfg.Build.AutoInstall {
		log.Warn().Str("path", wranglerjs.ExecutablePath()).Msg("wrangler-js is not installed and auto_install is disabled")
		return nil
	}
	log.Info().Msg("wrangler-js not found, installing")
	return b.Install(ctx)
}

// Install installs wrangler-js
func (b *Builder) Install(ctx context.Context) error {
	err := b.installer.Install(ctx)
	b.metrics.RecordInstall(err)
	return err
}

// InstallDependencies runs npm install for the project
func (b *Builder) InstallDependencies(ctx context.Context) error {
	err := b.installer.InstallDependencies(ctx)
	b.metrics.RecordInstall(err)
	return err
}

// Build runs wrangler-js and writes the worker. Metrics are recorded for
// every outcome and flushed to the metrics file when one is configured.
func (b *Builder) Build(ctx context.Context) (*bundle.Report, error) {
	logger := log.With().Str("build_id", uuid.NewString()).Logger()
	logger.Info().Msg("Building worker")

	start := time.Now()
	report, out, err := b.build(ctx)
	duration := time.Since(start)

	b.metrics.RecordBuild(duration, out, err)
	b.flushMetrics()

	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("Build failed")
		return nil, err
	}
	logger.Info().Dur("duration", duration).Bool("wasm", out.HasWasm()).Msg("Build complete")
	return report, nil
}

func (b *Builder) build(ctx context.Context) (*bundle.Report, *bundle.Output, error) {
	out, err := b.runner.Run(ctx, b.cfg.WasmPackPath, b.bundle)
	if err != nil {
		return nil, nil, err
	}
	report, err := b.bundle.Write(out)
	if err != nil {
		return nil, out, err
	}
	return report, out, nil
}

func (b *Builder) flushMetrics() {
	if b.cfg.MetricsFile == "" {
		return
	}
	if err := b.metrics.WriteTextfile(b.cfg.MetricsFile); err != nil {
		log.Warn().Err(err).Msg("Failed to write metrics")
	}
}
