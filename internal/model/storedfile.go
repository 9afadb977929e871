package model

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	// StoredFileTimeLayout is the timestamp prefix of every stored file name.
	StoredFileTimeLayout = "2006-01-02_15-04-05"
	// DefaultFileName replaces a missing original file name.
	DefaultFileName = "no_name"
)

// StoredFileName builds the deterministic local name of an accepted attachment:
// {timestamp}_{sender}_{original} with the extension forced to .pdf.
// The timestamp is formatted in loc; a nil loc means UTC.
func StoredFileName(ts time.Time, loc *time.Location, sender, original string) string {
	if loc == nil {
		loc = time.UTC
	}
	name := strings.TrimSpace(original)
	if name == "" {
		name = DefaultFileName
	}
	name = sanitizeComponent(name)
	name = strings.TrimSuffix(name, filepath.Ext(name)) + ".pdf"

	return fmt.Sprintf("%s_%s_%s", ts.In(loc).Format(StoredFileTimeLayout), sanitizeComponent(sender), name)
}

// sanitizeComponent keeps a remote-supplied name inside the upload directory.
func sanitizeComponent(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, s)
}

// PrintJob is the success value of the pipeline.
type PrintJob struct {
	Pages    uint
	FileName string
	// Path is the committed local file that was sent to the printer.
	Path string
	// PrinterJobID is the spooler's request id when the print tool reports one.
	PrinterJobID string
}

// FormatPages renders a page count: "1 page", otherwise "{n} pages".
func FormatPages(n uint) string {
	if n == 1 {
		return "1 page"
	}
	return fmt.Sprintf("%d pages", n)
}

// SuccessMessage is the text sent to the user after a successful submission.
func (j PrintJob) SuccessMessage() string {
	return fmt.Sprintf("%s of file %s sent to the printer", FormatPages(j.Pages), j.FileName)
}
