package wranglerjs

import (
	"context"
	"io"
)

// Installer runs npm in the project directory
type Installer struct {
	npmPath string
	stdout  io.Writer
	stderr  io.Writer
}

// NewInstaller creates an installer using the npm binary at npmPath.
// Output goes to the given writers, or the process's own streams when nil.
func NewInstaller(npmPath string, stdout, stderr io.Writer) *Installer {
	if npmPath == "" {
		npmPath = "npm"
	}
	return &Installer{
		npmPath: npmPath,
		stdout:  orStdout(stdout),
		stderr:  orStderr(stderr),
	}
}

// Install installs wrangler-js into the project's node_modules
func (i *Installer) Install(ctx context.Context) error {
	return i.npm(ctx, "install", ToolName)
}

// InstallDependencies installs the dependencies declared in package.json
func (i *Installer) InstallDependencies(ctx context.Context) error {
	return i.npm(ctx, "install")
}

func (i *Installer) npm(ctx context.Context, args ...string) error {
	exitCode, cmdline, err := command{
		name:   i.npmPath,
		args:   args,
		stdout: i.stdout,
		stderr: i.stderr,
	}.run(ctx)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return &ToolError{Command: cmdline, ExitCode: exitCode}
	}
	return nil
}
