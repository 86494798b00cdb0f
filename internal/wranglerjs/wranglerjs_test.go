package wranglerjs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/workerbuild/internal/bundle"
)

const validOutput = `{"wasm":null,"wasm_name":"","script":"console.log(1)","dist_to_clean":"/tmp/dist","wasm_size":0,"script_size":14}`

// writeScript writes an executable shell script to path
func writeScript(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
}

// fakeWranglerJS installs a wrangler-js stand-in in the working directory.
// It records its arguments and WASM_PACK_PATH, writes payload to the output
// file and exits with exitCode.
func fakeWranglerJS(t *testing.T, payload string, exitCode int) {
	t.Helper()
	writeScript(t, ExecutablePath(), `
out=""
for arg in "$@"; do
  case "$arg" in
    --output-file=*) out="${arg#--output-file=}" ;;
  esac
done
printf '%s\n' "$@" > args.txt
printf '%s' "$WASM_PACK_PATH" > env.txt
[ -f "$out" ] && echo exists > precreated.txt
cat > "$out" <<'JSON'
`+payload+`
JSON
exit `+strconv.Itoa(exitCode)+`
`)
}

func newProject(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile("package.json", []byte(`{"name":"w","main":"src/index.js"}`), 0o644))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func quietRunner(opts ...RunnerOption) *Runner {
	return NewRunner(append([]RunnerOption{WithOutput(&bytes.Buffer{}, &bytes.Buffer{})}, opts...)...)
}

func TestExecutablePath(t *testing.T) {
	assert.Equal(t, filepath.Join("node_modules", ".bin", "wrangler-js"), ExecutablePath())
}

func TestIsInstalled(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.False(t, IsInstalled())

	writeScript(t, ExecutablePath(), "exit 0\n")
	assert.True(t, IsInstalled())
}

func TestRunner_Run(t *testing.T) {
	t.Run("without webpack config passes the package entry", func(t *testing.T) {
		newProject(t)
		fakeWranglerJS(t, validOutput, 0)

		out, err := quietRunner().Run(context.Background(), "/opt/wasm-pack", bundle.New())
		require.NoError(t, err)
		assert.Equal(t, "console.log(1)", out.Script)
		assert.Equal(t, "/tmp/dist", out.DistToClean)
		assert.False(t, out.HasWasm())

		args := readLines(t, "args.txt")
		require.Len(t, args, 3)
		assert.True(t, strings.HasPrefix(args[0], "--output-file="))
		assert.Equal(t, "--no-webpack-config=1", args[1])

		cwd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, "--use-entry="+filepath.Join(cwd, "src", "index.js"), args[2])

		env, err := os.ReadFile("env.txt")
		require.NoError(t, err)
		assert.Equal(t, "/opt/wasm-pack", string(env))

		assert.FileExists(t, "precreated.txt", "output file must exist before the tool runs")
		assert.DirExists(t, bundle.OutDir)

		outputFile := strings.TrimPrefix(args[0], "--output-file=")
		assert.NoFileExists(t, outputFile)
	})

	t.Run("with webpack config only passes the output file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		require.NoError(t, os.WriteFile("webpack.config.js", []byte("module.exports = {}"), 0o644))
		fakeWranglerJS(t, validOutput, 0)

		_, err := quietRunner().Run(context.Background(), "wasm-pack", bundle.New())
		require.NoError(t, err)

		args := readLines(t, "args.txt")
		require.Len(t, args, 1)
		assert.True(t, strings.HasPrefix(args[0], "--output-file="))
	})

	t.Run("non-zero exit is a tool failure", func(t *testing.T) {
		newProject(t)
		fakeWranglerJS(t, "not json at all", 2)

		_, err := quietRunner().Run(context.Background(), "wasm-pack", bundle.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrToolFailed)
		assert.False(t, errors.Is(err, ErrMalformedOutput), "output must not be parsed on failure")

		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, 2, toolErr.ExitCode)
		assert.Contains(t, toolErr.Command, "wrangler-js")
		assert.Contains(t, toolErr.Command, "--output-file=")

		outputFile := strings.TrimPrefix(readLines(t, "args.txt")[0], "--output-file=")
		assert.NoFileExists(t, outputFile)
	})

	t.Run("failing tool that removes its output is still a tool failure", func(t *testing.T) {
		newProject(t)
		writeScript(t, ExecutablePath(), `
for arg in "$@"; do
  case "$arg" in
    --output-file=*) rm -f "${arg#--output-file=}" ;;
  esac
done
exit 3
`)

		_, err := quietRunner().Run(context.Background(), "wasm-pack", bundle.New())
		require.Error(t, err)
		assert.False(t, errors.Is(err, bundle.ErrIO))

		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, 3, toolErr.ExitCode)
	})

	t.Run("unreadable result is an i/o error", func(t *testing.T) {
		newProject(t)
		writeScript(t, ExecutablePath(), `
for arg in "$@"; do
  case "$arg" in
    --output-file=*) rm -f "${arg#--output-file=}" ;;
  esac
done
exit 0
`)

		_, err := quietRunner().Run(context.Background(), "wasm-pack", bundle.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, bundle.ErrIO)
		assert.Contains(t, err.Error(), "could not retrieve wrangler-js output")
	})

	t.Run("output directory that cannot be created", func(t *testing.T) {
		newProject(t)
		require.NoError(t, os.WriteFile("worker", []byte("not a directory"), 0o644))
		fakeWranglerJS(t, validOutput, 0)

		_, err := quietRunner().Run(context.Background(), "wasm-pack", bundle.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, bundle.ErrIO)
		assert.NoFileExists(t, "args.txt", "tool must not start")
	})

	t.Run("invalid result is malformed output", func(t *testing.T) {
		newProject(t)
		fakeWranglerJS(t, `{"script":`, 0)

		_, err := quietRunner().Run(context.Background(), "wasm-pack", bundle.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedOutput)
	})

	t.Run("missing package.json without webpack config", func(t *testing.T) {
		t.Chdir(t.TempDir())
		fakeWranglerJS(t, validOutput, 0)

		_, err := quietRunner().Run(context.Background(), "wasm-pack", bundle.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "package.json not found")
		assert.NoFileExists(t, "args.txt")
	})

	t.Run("missing executable", func(t *testing.T) {
		newProject(t)

		_, err := quietRunner().Run(context.Background(), "wasm-pack", bundle.New())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start")
	})

	t.Run("timeout kills the tool", func(t *testing.T) {
		newProject(t)
		writeScript(t, ExecutablePath(), "exec sleep 10\n")

		start := time.Now()
		_, err := quietRunner(WithTimeout(100*time.Millisecond)).Run(context.Background(), "wasm-pack", bundle.New())
		require.Error(t, err)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("custom executable", func(t *testing.T) {
		newProject(t)
		fake := filepath.Join(t.TempDir(), "bin", "wrangler-js")
		writeScript(t, fake, `
for arg in "$@"; do
  case "$arg" in
    --output-file=*) printf '%s' '`+validOutput+`' > "${arg#--output-file=}" ;;
  esac
done
`)

		out, err := quietRunner(WithExecutable(fake)).Run(context.Background(), "wasm-pack", bundle.New())
		require.NoError(t, err)
		assert.Equal(t, "console.log(1)", out.Script)
	})
}

func TestInstaller(t *testing.T) {
	t.Run("install passes the tool name", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		npm := filepath.Join(dir, "npm")
		writeScript(t, npm, `printf '%s\n' "$@" > npm-args.txt`+"\n")

		var stdout bytes.Buffer
		require.NoError(t, NewInstaller(npm, &stdout, &stdout).Install(context.Background()))
		assert.Equal(t, []string{"install", "wrangler-js"}, readLines(t, "npm-args.txt"))
	})

	t.Run("dependencies install has no target", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		npm := filepath.Join(dir, "npm")
		writeScript(t, npm, `printf '%s\n' "$@" > npm-args.txt`+"\n")

		require.NoError(t, NewInstaller(npm, &bytes.Buffer{}, &bytes.Buffer{}).InstallDependencies(context.Background()))
		assert.Equal(t, []string{"install"}, readLines(t, "npm-args.txt"))
	})

	t.Run("non-zero exit", func(t *testing.T) {
		npm := filepath.Join(t.TempDir(), "npm")
		writeScript(t, npm, "echo 'ERR! 404' >&2\nexit 1\n")

		var stderr bytes.Buffer
		err := NewInstaller(npm, &bytes.Buffer{}, &stderr).Install(context.Background())
		require.Error(t, err)

		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, 1, toolErr.ExitCode)
		assert.Contains(t, toolErr.Command, "install wrangler-js")
		assert.Contains(t, err.Error(), "exited with status 1")
		assert.Contains(t, stderr.String(), "ERR! 404")
	})

	t.Run("default npm path", func(t *testing.T) {
		assert.Equal(t, "npm", NewInstaller("", nil, nil).npmPath)
	})
}
