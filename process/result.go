package process

import (
	"fmt"
	"time"
)

// Result holds the output and status of a completed subprocess.
type Result struct {
	// Stdout is the captured standard output.
	Stdout []byte
	// Stderr is the captured standard error.
	Stderr []byte
	// ExitCode is the process exit code. -1 if the process was killed.
	ExitCode int
	// Duration is how long the process ran.
	Duration time.Duration
}

// ExitError reports a command that ran to completion with a non-zero status.
type ExitError struct {
	Binary string
	Code   int
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process: %s exited with code %d", e.Binary, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }
