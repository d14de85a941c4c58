// Package message defines the local IPC protocol between the cliptrail
// daemon and its CLI tools.
//
// All messages are newline-delimited JSON, one message per line: <json>\n
// A client sends one request and reads one response per connection.
package message

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"go.klb.dev/cliptrail/internal/history"
)

// Type identifies the kind of message.
type Type string

const (
	TypeHistory         Type = "HISTORY"
	TypeHistoryResponse Type = "HISTORY_RESPONSE"
	TypeStatus          Type = "STATUS"
	TypeStatusResponse  Type = "STATUS_RESPONSE"
	TypeError           Type = "ERROR"
)

// Status describes a running watcher.
type Status struct {
	Backend     string    `json:"backend"`
	State       string    `json:"state"`
	Interval    string    `json:"interval"`
	Capacity    int       `json:"capacity"`
	Size        int       `json:"size"`
	StartedAt   time.Time `json:"started_at"`
	Ticks       uint64    `json:"ticks"`
	Changes     uint64    `json:"changes"`
	Delivered   uint64    `json:"delivered"`
	Absent      uint64    `json:"absent"`
	Unavailable uint64    `json:"unavailable"`
}

// Entry is a history entry as sent to clients. Content may be clipped to a
// preview; Size is always the byte length of the full text.
type Entry struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Size      int       `json:"size"`
	Truncated bool      `json:"truncated,omitempty"`
}

// Message is the top-level wire envelope.
type Message struct {
	Type Type `json:"type"`

	// HISTORY — maximum number of entries wanted; 0 means all.
	Limit int `json:"limit,omitempty"`
	// HISTORY — clip each entry's content to this many bytes; 0 means full.
	MaxBytes int `json:"max_bytes,omitempty"`
	// HISTORY — when set, only the entry at this index, unclipped.
	Index *int `json:"index,omitempty"`

	// HISTORY_RESPONSE — newest first
	Entries []Entry `json:"entries,omitempty"`

	// STATUS_RESPONSE
	Status *Status `json:"status,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("message decode: missing type")
	}
	return &m, nil
}

// Errorf builds an ERROR message.
func Errorf(format string, args ...any) *Message {
	return &Message{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}

// Truncate returns at most limit entries from the head of entries. A
// non-positive limit returns entries unchanged.
func Truncate(entries []history.Entry, limit int) []history.Entry {
	if limit <= 0 || limit >= len(entries) {
		return entries
	}
	return entries[:limit]
}

// Clip converts entries for the wire, cutting each content to at most
// maxBytes bytes on a rune boundary. A non-positive maxBytes keeps the full
// text.
func Clip(entries []history.Entry, maxBytes int) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Content: e.Content, Timestamp: e.Timestamp, Size: len(e.Content)}
		if maxBytes <= 0 || len(e.Content) <= maxBytes {
			continue
		}
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(e.Content[cut]) {
			cut--
		}
		out[i].Content = e.Content[:cut]
		out[i].Truncated = true
	}
	return out
}
