// Package printer wraps the page-count and print-submission command line tools.
package printer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// PageCounter inspects a local PDF and reports its page count.
type PageCounter interface {
	CountPages(ctx context.Context, path string) (uint, error)
}

// Submission is what the print tool reported for an accepted job.
type Submission struct {
	// JobID is the spooler request id, empty when the tool did not print one.
	JobID  string
	Output string
}

// Submitter hands a local PDF to the print spooler.
type Submitter interface {
	Submit(ctx context.Context, path string) (Submission, error)
}

// ToolError is a failed external tool invocation.
type ToolError struct {
	Tool string
	// ExitCode is -1 when the process could not be started or was killed.
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	if e.ExitCode >= 0 {
		if e.Output != "" {
			return fmt.Sprintf("%s exited with status %d: %s", e.Tool, e.ExitCode, e.Output)
		}
		return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	}
	return fmt.Sprintf("run %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// toolError classifies an exec error; output is the captured diagnostic text.
func toolError(tool string, err error, output []byte) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		if len(output) == 0 {
			output = exitErr.Stderr
		}
		return &ToolError{
			Tool:     tool,
			ExitCode: exitErr.ExitCode(),
			Output:   strings.TrimSpace(string(output)),
			Err:      err,
		}
	}
	return &ToolError{Tool: tool, ExitCode: -1, Err: err}
}

// withTimeout bounds a tool invocation; zero means no limit.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// lookPath reports whether binary can be executed.
func lookPath(binary string) error {
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%s: %w", binary, err)
	}
	return nil
}

func lastLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
