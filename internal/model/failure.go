package model

import "fmt"

// Kind names a failure variant. Values are stable and used as metric labels.
type Kind string

const (
	KindPrintSubmissionFailed  Kind = "print_submission_failed"
	KindPageCountFailed        Kind = "page_count_failed"
	KindWrongFileType          Kind = "wrong_file_type"
	KindUnrecognizedEvent      Kind = "unrecognized_event"
	KindNoDocument             Kind = "no_document"
	KindTransportRequestFailed Kind = "transport_request_failed"
	KindDownloadFailed         Kind = "download_failed"
)

// KindSuccess labels a pipeline that reached the printer.
const KindSuccess Kind = "success"

// Failure is the closed set of per-event pipeline failures. Every variant
// carries its own payload and renders one message per audience: users get a
// generic text, the admin channel gets the underlying cause.
type Failure interface {
	error
	Kind() Kind
	UserMessage() string
	AdminMessage() string
	failure()
}

// PrintSubmissionFailed means the print tool could not be run or rejected the job.
type PrintSubmissionFailed struct{ Cause error }

// PageCountFailed means the page-count tool could not be run or its output
// could not be parsed.
type PageCountFailed struct{ Cause error }

// WrongFileType means the attachment's declared MIME type is not a PDF.
type WrongFileType struct{ MIMEType string }

// UnrecognizedEvent means the event has no message-content payload.
type UnrecognizedEvent struct{}

// NoDocument means the message carries no document attachment.
type NoDocument struct{}

// TransportRequestFailed means the transport refused the file descriptor request.
type TransportRequestFailed struct{ Cause error }

// DownloadFailed means streaming the remote file into local storage failed.
type DownloadFailed struct{ Cause error }

func (PrintSubmissionFailed) failure()  {}
func (PageCountFailed) failure()        {}
func (WrongFileType) failure()          {}
func (UnrecognizedEvent) failure()      {}
func (NoDocument) failure()             {}
func (TransportRequestFailed) failure() {}
func (DownloadFailed) failure()         {}

func (PrintSubmissionFailed) Kind() Kind  { return KindPrintSubmissionFailed }
func (PageCountFailed) Kind() Kind        { return KindPageCountFailed }
func (WrongFileType) Kind() Kind          { return KindWrongFileType }
func (UnrecognizedEvent) Kind() Kind      { return KindUnrecognizedEvent }
func (NoDocument) Kind() Kind             { return KindNoDocument }
func (TransportRequestFailed) Kind() Kind { return KindTransportRequestFailed }
func (DownloadFailed) Kind() Kind         { return KindDownloadFailed }

const pleaseSendPDF = "Please send a PDF document"

func (f PrintSubmissionFailed) UserMessage() string {
	return "Sorry, the printer is not responding. Please try again later."
}

func (f PrintSubmissionFailed) AdminMessage() string {
	return "failed to submit print job: " + causeText(f.Cause)
}

func (f PageCountFailed) UserMessage() string {
	return "Error getting number of pages: " + causeText(f.Cause)
}

func (f PageCountFailed) AdminMessage() string { return f.UserMessage() }

func (f WrongFileType) UserMessage() string {
	return fmt.Sprintf("Please send a PDF, not a %s", f.MIMEType)
}

func (f WrongFileType) AdminMessage() string { return f.UserMessage() }

func (UnrecognizedEvent) UserMessage() string  { return pleaseSendPDF }
func (UnrecognizedEvent) AdminMessage() string { return "unrecognized event shape" }

func (NoDocument) UserMessage() string  { return pleaseSendPDF }
func (NoDocument) AdminMessage() string { return pleaseSendPDF }

func (f TransportRequestFailed) UserMessage() string {
	return "Failed to process your file, please try again"
}

func (f TransportRequestFailed) AdminMessage() string {
	return "failed to request file from transport: " + causeText(f.Cause)
}

func (f DownloadFailed) UserMessage() string {
	return "Failed to download your file, please try again"
}

func (f DownloadFailed) AdminMessage() string {
	return "failed to download file: " + causeText(f.Cause)
}

// Error returns the admin-facing text so logs keep the cause.
func (f PrintSubmissionFailed) Error() string  { return f.AdminMessage() }
func (f PageCountFailed) Error() string        { return f.AdminMessage() }
func (f WrongFileType) Error() string          { return f.AdminMessage() }
func (f UnrecognizedEvent) Error() string      { return f.AdminMessage() }
func (f NoDocument) Error() string             { return "no document attached" }
func (f TransportRequestFailed) Error() string { return f.AdminMessage() }
func (f DownloadFailed) Error() string         { return f.AdminMessage() }

func (f PrintSubmissionFailed) Unwrap() error  { return f.Cause }
func (f PageCountFailed) Unwrap() error        { return f.Cause }
func (f TransportRequestFailed) Unwrap() error { return f.Cause }
func (f DownloadFailed) Unwrap() error         { return f.Cause }

func causeText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}
