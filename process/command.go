// Package process runs external binaries such as ffmpeg and ffprobe with
// captured output, graceful termination and optional resilience policies.
package process

import (
	"io"
	"time"
)

// Command configures a subprocess.
type Command struct {
	// Binary is the executable path or a name resolved via PATH.
	Binary string
	// Args are the command-line arguments.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is appended to the parent environment as key=value pairs.
	Env []string
	// Stdin feeds the process. May be nil.
	Stdin io.Reader
	// GracePeriod is the wait between SIGTERM and SIGKILL on cancellation.
	// Defaults to 5 seconds.
	GracePeriod time.Duration
}

// Result holds the outcome of a finished subprocess.
type Result struct {
	Stdout []byte
	Stderr []byte
	// ExitCode is -1 when the process was killed by a signal.
	ExitCode int
	Duration time.Duration
}
