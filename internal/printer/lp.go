package printer

import (
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

var requestIDPattern = regexp.MustCompile(`request id is (\S+)`)

// LpConfig configures the lp adapter.
type LpConfig struct {
	Binary string
	// Printer is passed as -d when set; otherwise the spooler default is used.
	Printer string
	// IgnoreExitStatus treats a non-zero exit as an accepted job.
	IgnoreExitStatus bool
	Timeout          time.Duration
}

// Lp implements Submitter using the CUPS/System V lp command.
type Lp struct {
	cfg LpConfig
}

// NewLp creates a print submitter.
func NewLp(cfg LpConfig) *Lp {
	if cfg.Binary == "" {
		cfg.Binary = "lp"
	}
	return &Lp{cfg: cfg}
}

// Args returns the command line used for path.
func (l *Lp) Args(path string) []string {
	var args []string
	if l.cfg.Printer != "" {
		args = append(args, "-d", l.cfg.Printer)
	}
	return append(args, path)
}

// Submit runs lp with path as its only positional argument.
func (l *Lp) Submit(ctx context.Context, path string) (Submission, error) {
	ctx, cancel := withTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, l.cfg.Binary, l.Args(path)...).CombinedOutput()
	sub := Submission{
		JobID:  parseRequestID(out),
		Output: strings.TrimSpace(string(out)),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if l.cfg.IgnoreExitStatus && errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			return sub, nil
		}
		return Submission{}, toolError(l.cfg.Binary, err, []byte(lastLine(out)))
	}
	return sub, nil
}

// Check reports whether the binary is resolvable.
func (l *Lp) Check() error {
	return lookPath(l.cfg.Binary)
}

func parseRequestID(out []byte) string {
	m := requestIDPattern.FindSubmatch(out)
	if m == nil {
		return ""
	}
	return string(m[1])
}
