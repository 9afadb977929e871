// Package transport is the chat transport port and its Telegram implementation.
package transport

import (
	"context"
	"fmt"
	"io"

	"printbot/internal/model"
)

// FileDescriptor is the transient handle returned by the transport for one
// remote file. It is only valid for a limited time after it was requested.
type FileDescriptor struct {
	FileID string
	// Path is the transport-side location used to build the download URL.
	Path string
	Size int64
}

// Transport is the chat transport consumed by the relay.
// Implementations must be safe to call from the single event loop goroutine.
type Transport interface {
	// Events starts receiving inbound events. The channel is closed when ctx
	// is cancelled or the transport stops.
	Events(ctx context.Context) (<-chan model.Event, error)
	// FileDescriptor requests the download descriptor for a remote file.
	// Failures are returned as *RequestError.
	FileDescriptor(ctx context.Context, fileID string) (FileDescriptor, error)
	// Download streams the remote file's bytes into w.
	// Failures are returned as *DownloadError.
	Download(ctx context.Context, fd FileDescriptor, w io.Writer) error
	// Send delivers a text message.
	Send(ctx context.Context, dest model.Destination, text string) error
}

// RequestError is a failed API request to the transport.
type RequestError struct {
	Op  string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// DownloadError is a failed file download from the transport.
type DownloadError struct {
	Path string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.Path, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
