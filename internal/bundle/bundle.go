// Package bundle assembles the deployable worker from the output of
// wrangler-js: the composed script, an optional WebAssembly module and the
// metadata describing how they are bound together.
package bundle

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// OutDir is the directory, relative to the project root, the worker is
// written to.
const OutDir = "./worker"

const (
	metadataFile      = "metadata.json"
	wasmFile          = "module.wasm"
	scriptFile        = "script.js"
	webpackConfigFile = "webpack.config.js"
)

var (
	// ErrIO marks failures creating, reading, writing or deleting files
	ErrIO = errors.New("i/o error")

	// ErrCleanupFailed marks a failure removing the webpack dist directory
	ErrCleanupFailed = errors.New("cleanup failed")
)

// Bundle is the built artefact of a worker project: everything under OutDir.
type Bundle struct {
	stdout io.Writer
}

// Option configures a Bundle
type Option func(*Bundle)

// WithWriter sets where the size summary is printed (stdout by default)
func WithWriter(w io.Writer) Option {
	return func(b *Bundle) {
		b.stdout = w
	}
}

// New creates a Bundle rooted at OutDir
func New(opts ...Option) *Bundle {
	b := &Bundle{stdout: os.Stdout}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Report summarises a written bundle
type Report struct {
	ScriptPath   string  `json:"script_path" yaml:"script_path"`
	MetadataPath string  `json:"metadata_path" yaml:"metadata_path"`
	WasmPath     string  `json:"wasm_path,omitempty" yaml:"wasm_path,omitempty"`
	ScriptSize   float64 `json:"script_size" yaml:"script_size"`
	WasmSize     float64 `json:"wasm_size,omitempty" yaml:"wasm_size,omitempty"`
	Summary      string  `json:"summary" yaml:"summary"`
}

// Dir returns the output directory
func (b *Bundle) Dir() string {
	return OutDir
}

// MetadataPath returns the path of metadata.json
func (b *Bundle) MetadataPath() string {
	return filepath.Join(OutDir, metadataFile)
}

// WasmPath returns the path of module.wasm
func (b *Bundle) WasmPath() string {
	return filepath.Join(OutDir, wasmFile)
}

// ScriptPath returns the path of script.js
func (b *Bundle) ScriptPath() string {
	return filepath.Join(OutDir, scriptFile)
}

// HasWebpackConfig reports whether the project in the working directory
// ships its own webpack configuration.
func (b *Bundle) HasWebpackConfig() bool {
	_, err := os.Stat(webpackConfigFile)
	return err == nil
}

// EnsureDir creates the output directory if it does not exist yet.
func (b *Bundle) EnsureDir() error {
	if err := os.MkdirAll(OutDir, 0o755); err != nil { //nolint:gosec // worker output is published as-is
		return fmt.Errorf("%w: failed to create %s: %w", ErrIO, OutDir, err)
	}
	return nil
}

// Write assembles the worker from out. Artifacts are written first; the
// webpack dist directory named by out is only removed once they all exist on
// disk. The size summary is printed last.
func (b *Bundle) Write(out *Output) (*Report, error) {
	metadata, err := MarshalMetadata(out)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode metadata: %w", ErrIO, err)
	}

	// module.wasm exists iff metadata.json declares the binding
	if !out.HasWasm() {
		if err := os.Remove(b.WasmPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to remove stale %s: %w", ErrIO, b.WasmPath(), err)
		}
	}

	log.Debug().Bool("wasm", out.HasWasm()).Msg("Writing metadata")
	if err := writeFile(b.MetadataPath(), metadata); err != nil {
		return nil, err
	}

	report := &Report{
		ScriptPath:   b.ScriptPath(),
		MetadataPath: b.MetadataPath(),
		ScriptSize:   out.ScriptSize,
	}

	if out.HasWasm() {
		if err := writeFile(b.WasmPath(), []byte(*out.Wasm)); err != nil {
			return nil, err
		}
		report.WasmPath = b.WasmPath()
		report.WasmSize = out.WasmSize
	}

	if err := writeFile(b.ScriptPath(), []byte(ComposeScript(out))); err != nil {
		return nil, err
	}

	log.Info().Str("dir", out.DistToClean).Msg("Remove webpack dist")
	if err := os.RemoveAll(out.DistToClean); err != nil {
		return nil, fmt.Errorf("%w: could not remove %s: %w", ErrCleanupFailed, out.DistToClean, err)
	}

	if out.HasWasm() {
		report.Summary = fmt.Sprintf("Sizes: wasm=%s script=%s", FormatSize(out.WasmSize), FormatSize(out.ScriptSize))
	} else {
		report.Summary = fmt.Sprintf("Sizes: script=%s", FormatSize(out.ScriptSize))
	}
	_, _ = fmt.Fprintln(b.stdout, report.Summary)

	return report, nil
}

// Clean removes the output directory and everything in it.
func (b *Bundle) Clean() error {
	if err := os.RemoveAll(OutDir); err != nil {
		return fmt.Errorf("%w: failed to remove %s: %w", ErrIO, OutDir, err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // worker output is published as-is
		return fmt.Errorf("%w: failed to write %s: %w", ErrIO, path, err)
	}
	return nil
}
