package wranglerjs

import (
	"errors"
	"fmt"
)

var (
	// ErrToolFailed marks an external tool (wrangler-js, npm) exiting with a
	// non-zero status
	ErrToolFailed = errors.New("tool failed")

	// ErrMalformedOutput marks a result file that does not match the
	// wrangler-js output schema
	ErrMalformedOutput = errors.New("malformed wrangler-js output")
)

// ToolError is returned when an external command exits unsuccessfully
type ToolError struct {
	Command  string
	ExitCode int
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("failed to execute `%s`: exited with status %d", e.Command, e.ExitCode)
}

// Is lets errors.Is match ToolError against ErrToolFailed
func (e *ToolError) Is(target error) bool {
	return target == ErrToolFailed
}
