// Package model contains the transient domain values of one relay invocation.
// Nothing in here is persisted and none of it carries transport-specific types.
package model

import (
	"strconv"
	"time"
)

// MIMETypePDF is the only declared MIME type the relay accepts.
const MIMETypePDF = "application/pdf"

// UnknownSender is the identity used when an event carries no sender at all.
const UnknownSender = "unknown user"

// Sender identifies who submitted an event. Handle is optional.
type Sender struct {
	ID     int64
	Handle string
}

// Attachment is a document payload referenced by an event and downloadable
// through the transport.
type Attachment struct {
	FileID   string
	MIMEType string
	// FileName is the original name as sent by the user; empty when absent.
	FileName string
}

// Event is one inbound chat message as delivered by the transport.
type Event struct {
	UpdateID  int64
	Chat      Destination
	Timestamp time.Time
	Sender    *Sender
	// HasContent is false for event shapes without a message-content payload
	// (service messages, edits and similar).
	HasContent bool
	Document   *Attachment
}

// SenderIdentity resolves the label used in file names and admin reports:
// the handle, else the decimal id, else UnknownSender.
func (e Event) SenderIdentity() string {
	if e.Sender == nil {
		return UnknownSender
	}
	if e.Sender.Handle != "" {
		return e.Sender.Handle
	}
	return strconv.FormatInt(e.Sender.ID, 10)
}
