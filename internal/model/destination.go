package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Destination is where an outbound text message is delivered: either a
// numeric chat id or a public channel username such as "@printlog".
type Destination struct {
	ChatID  int64
	Channel string
}

// ChatDestination returns a destination addressing a chat by id.
func ChatDestination(chatID int64) Destination {
	return Destination{ChatID: chatID}
}

// ParseDestination parses a configured destination. Numeric values are chat
// ids (negative for groups and channels); anything else must be a channel
// username and gets a leading "@" if missing.
func ParseDestination(raw string) (Destination, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Destination{}, fmt.Errorf("destination is empty")
	}
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		if id == 0 {
			return Destination{}, fmt.Errorf("destination chat id must not be zero")
		}
		return Destination{ChatID: id}, nil
	}
	if strings.ContainsAny(value, " \t/") {
		return Destination{}, fmt.Errorf("invalid channel username %q", value)
	}
	if !strings.HasPrefix(value, "@") {
		value = "@" + value
	}
	return Destination{Channel: value}, nil
}

// IsZero reports whether the destination addresses nothing.
func (d Destination) IsZero() bool {
	return d.ChatID == 0 && d.Channel == ""
}

func (d Destination) String() string {
	if d.Channel != "" {
		return d.Channel
	}
	return strconv.FormatInt(d.ChatID, 10)
}
