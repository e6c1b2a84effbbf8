// Package sse provides a minimal, purpose-built decoder for the "data:" framed
// event streams served by livewire endpoints. It reassembles newline
// delimited frames out of arbitrarily split transport chunks and classifies
// each frame as content, terminal sentinel, or malformed.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"encoding/json"
	"strings"
)

const (
	// DataPrefix is the field marker carried by every meaningful frame.
	DataPrefix = "data:"

	// DoneSentinel is the literal payload signaling the end of a stream.
	DoneSentinel = "[DONE]"
)

// Kind classifies a decoded frame.
type Kind int

const (
	// KindContent is a frame whose JSON payload carries a "content" string.
	KindContent Kind = iota

	// KindTerminal is the DoneSentinel frame.
	KindTerminal

	// KindMalformed is a data frame that failed to decode, or that decoded
	// without a textual "content" field.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindContent:
		return "content"
	case KindTerminal:
		return "terminal"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Event represents a single decoded data frame.
type Event struct {
	Kind Kind

	// Content is the "content" field of a KindContent frame.
	Content string

	// Line is the original, untrimmed line the event was decoded from.
	Line string

	// Payload is the raw JSON object of the frame. It is set whenever the
	// payload decoded as a JSON object, including malformed frames that
	// lack a "content" field.
	Payload json.RawMessage
}

// Decodable reports whether the frame carried a recognizable event: content,
// the terminal sentinel, or at least a well-formed JSON object.
func (e Event) Decodable() bool {
	return e.Kind != KindMalformed || e.Payload != nil
}

// Decode classifies a single line. The boolean is false for lines that are
// not data frames (blank lines, comments, other fields); those are ignored
// rather than treated as malformed.
func Decode(line string) (Event, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, DataPrefix) {
		return Event{}, false
	}

	payload := strings.TrimSpace(strings.TrimPrefix(trimmed, DataPrefix))
	if payload == DoneSentinel {
		return Event{Kind: KindTerminal, Line: line}, true
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil || fields == nil {
		return Event{Kind: KindMalformed, Line: line}, true
	}

	ev := Event{Kind: KindMalformed, Line: line, Payload: json.RawMessage(payload)}

	raw, ok := fields["content"]
	if !ok || string(raw) == "null" {
		return ev, true
	}

	var content string
	if err := json.Unmarshal(raw, &content); err != nil {
		return ev, true
	}

	ev.Kind = KindContent
	ev.Content = content
	return ev, true
}
