package printer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrNoPageCount is returned when the tool output has no "Pages:" line.
var ErrNoPageCount = errors.New("no Pages line in pdfinfo output")

// Pdfinfo implements PageCounter using poppler's pdfinfo.
type Pdfinfo struct {
	binary  string
	timeout time.Duration
}

// NewPdfinfo creates a page counter running binary.
func NewPdfinfo(binary string, timeout time.Duration) *Pdfinfo {
	return &Pdfinfo{binary: binary, timeout: timeout}
}

// CountPages runs `pdfinfo <path>` and parses its output.
// A non-zero exit or malformed output is an error.
func (p *Pdfinfo) CountPages(ctx context.Context, path string) (uint, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, p.binary, path).Output()
	if err != nil {
		return 0, toolError(p.binary, err, nil)
	}
	return ParsePageCount(out)
}

// Check reports whether the binary is resolvable.
func (p *Pdfinfo) Check() error {
	return lookPath(p.binary)
}

// ParsePageCount finds the first line starting with "Pages:" and parses its
// last whitespace-separated token as an unsigned integer.
func ParsePageCount(output []byte) (uint, error) {
	// Metadata lines such as Title are sender-controlled and unbounded.
	for _, raw := range bytes.Split(output, []byte("\n")) {
		line := strings.TrimRight(string(raw), "\r")
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		fields := strings.Fields(line)
		token := fields[len(fields)-1]
		n, err := strconv.ParseUint(token, 10, 0)
		if err != nil {
			return 0, fmt.Errorf("parse page count %q: %w", token, err)
		}
		return uint(n), nil
	}
	return 0, ErrNoPageCount
}
