// Package wranglerjs drives the wrangler-js bundler: locating and installing
// it through npm, running a build and reading back its result.
package wranglerjs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ToolName is the npm package providing the bundler
const ToolName = "wrangler-js"

// ExecutablePath returns where npm installs the wrangler-js binary, relative
// to the project root.
func ExecutablePath() string {
	return filepath.Join(".", "node_modules", ".bin", ToolName)
}

// IsInstalled reports whether wrangler-js is present in the project. Any
// error from stat, including permission errors, counts as not installed.
func IsInstalled() bool {
	_, err := os.Stat(ExecutablePath())
	return err == nil
}

// command describes one external process invocation
type command struct {
	name   string
	args   []string
	env    []string
	stdout io.Writer
	stderr io.Writer
}

// run executes c synchronously with stdin inherited and returns the exit
// code. A non-nil error means the process could not be run or was killed
// because ctx ended; a non-zero exit is not an error here.
func (c command) run(ctx context.Context) (exitCode int, cmdline string, err error) {
	cmd := exec.CommandContext(ctx, c.name, c.args...) //nolint:gosec // tool paths come from the project or config
	cmd.Env = append(os.Environ(), c.env...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	cmdline = cmd.String()

	log.Info().Str("command", cmdline).Strs("env", c.env).Msg("Running")

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return -1, cmdline, fmt.Errorf("`%s` did not finish: %w", cmdline, ctx.Err())
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return exitErr.ExitCode(), cmdline, nil
		}
		return -1, cmdline, fmt.Errorf("failed to start `%s`: %w", cmdline, runErr)
	}
	return 0, cmdline, nil
}

func orStdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

func orStderr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}
