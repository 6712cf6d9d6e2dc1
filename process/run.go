package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

const stderrTail = 512

// ExitError reports a process that exited with a non-zero code.
type ExitError struct {
	Binary   string
	ExitCode int
	// Stderr holds the last bytes the process wrote to standard error.
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("process: %s exited with code %d", e.Binary, e.ExitCode)
	}
	return fmt.Sprintf("process: %s exited with code %d: %s", e.Binary, e.ExitCode, e.Stderr)
}

// Run executes cmd and waits for it. On context cancellation the whole
// process group gets SIGTERM, then SIGKILL after GracePeriod, and the
// returned error wraps ctx.Err().
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, errors.New("process: binary is required")
	}
	grace := cmd.GracePeriod
	if grace == 0 {
		grace = 5 * time.Second
	}

	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // running caller-chosen binaries is the point
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.Stdin = cmd.Stdin

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return syscall.Kill(-c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = grace

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
		Duration: time.Since(start),
	}
	if c.ProcessState != nil {
		res.ExitCode = c.ProcessState.ExitCode()
	}

	switch {
	case err == nil:
		return res, nil
	case ctx.Err() != nil:
		return res, fmt.Errorf("process: %s killed: %w", cmd.Binary, ctx.Err())
	case res.ExitCode > 0:
		return res, &ExitError{Binary: cmd.Binary, ExitCode: res.ExitCode, Stderr: tail(res.Stderr)}
	default:
		return res, fmt.Errorf("process: %s: %w", cmd.Binary, err)
	}
}

func tail(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}
