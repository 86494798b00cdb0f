package wranglerjs

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/workerbuild/internal/bundle"
	"github.com/fluxbase-eu/workerbuild/internal/manifest"
)

// WasmPackEnv tells wrangler-js where to find wasm-pack for Rust modules
const WasmPackEnv = "WASM_PACK_PATH"

// Runner runs wrangler-js builds for the project in the working directory
type Runner struct {
	executable string
	timeout    time.Duration
	stdout     io.Writer
	stderr     io.Writer
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithTimeout bounds a build; zero means wait for as long as it takes
func WithTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithOutput redirects the tool's stdout and stderr
func WithOutput(stdout, stderr io.Writer) RunnerOption {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithExecutable overrides the wrangler-js binary location
func WithExecutable(path string) RunnerOption {
	return func(r *Runner) {
		r.executable = path
	}
}

// NewRunner creates a Runner using the project-local wrangler-js
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{executable: ExecutablePath()}
	for _, opt := range opts {
		opt(r)
	}
	r.stdout = orStdout(r.stdout)
	r.stderr = orStderr(r.stderr)
	return r
}

// Run builds the project with wrangler-js and returns its result.
//
// wrangler-js is handed the path of an empty temporary file through
// --output-file and writes its serialized Output there before exiting. When
// the project has no webpack.config.js the entry is taken from package.json.
// The temporary file is always removed; a failure to do so is only logged.
func (r *Runner) Run(ctx context.Context, wasmPackPath string, b *bundle.Bundle) (*bundle.Output, error) {
	if err := b.EnsureDir(); err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp("", ".wranglerjs_output-*")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create wrangler-js output file: %w", bundle.ErrIO, err)
	}
	outputPath := tmp.Name()
	defer func() {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", outputPath).Msg("Failed to remove wrangler-js output file")
		}
	}()
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: failed to create wrangler-js output file: %w", bundle.ErrIO, err)
	}

	args := []string{"--output-file=" + outputPath}

	if !b.HasWebpackConfig() {
		pkg, err := manifest.Load(".")
		if err != nil {
			return nil, err
		}
		entry, err := pkg.EntryPath(".")
		if err != nil {
			return nil, err
		}
		log.Debug().Str("entry", entry).Msg("No webpack.config.js, using package.json main")
		args = append(args, "--no-webpack-config=1", "--use-entry="+entry)
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	exitCode, cmdline, err := command{
		name:   r.executable,
		args:   args,
		env:    []string{WasmPackEnv + "=" + wasmPackPath},
		stdout: r.stdout,
		stderr: r.stderr,
	}.run(runCtx)
	if err != nil {
		return nil, err
	}

	if exitCode != 0 {
		return nil, &ToolError{Command: cmdline, ExitCode: exitCode}
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: could not retrieve wrangler-js output: %w", bundle.ErrIO, err)
	}

	out, err := bundle.ParseOutput(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	return out, nil
}
