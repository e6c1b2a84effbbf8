// Package envelope decodes the loosely shaped JSON bodies returned by
// livewire REST endpoints. Servers wrap payloads inconsistently (a named key,
// a generic "data" key, or nothing at all), so decoding walks an explicit
// fallback order instead of guessing.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Shape identifies which form a body took.
type Shape int

const (
	// ShapeKeyed means the payload sat under one of the requested keys.
	ShapeKeyed Shape = iota

	// ShapeBare means no requested key was present and the whole document
	// is the payload.
	ShapeBare
)

// ErrEmptyBody is returned when there is nothing to decode.
var ErrEmptyBody = errors.New("empty response body")

// Envelope is the result of Unwrap.
type Envelope struct {
	Shape Shape

	// Key is the key the payload was found under for ShapeKeyed.
	Key string

	Payload json.RawMessage
}

// Unwrap returns the value of the first key in keys that is present and not
// null in a top-level JSON object. When none matches, or the document is not
// an object, the whole document is returned as ShapeBare.
//
//	Unwrap(body, "friends", "data")  // body.friends || body.data || body
func Unwrap(body []byte, keys ...string) (Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return Envelope{}, ErrEmptyBody
	}

	if !json.Valid(body) {
		return Envelope{}, errors.New("response body is not valid JSON")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range keys {
			raw, ok := fields[key]
			if !ok || string(raw) == "null" {
				continue
			}
			return Envelope{Shape: ShapeKeyed, Key: key, Payload: raw}, nil
		}
	}

	return Envelope{Shape: ShapeBare, Payload: json.RawMessage(body)}, nil
}

// Decode unwraps body with keys and decodes the payload into v.
func Decode(body []byte, v any, keys ...string) (Envelope, error) {
	env, err := Unwrap(body, keys...)
	if err != nil {
		return env, err
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return env, err
	}
	return env, nil
}

// errorKeys is the fallback order for error messages.
var errorKeys = []string{"error", "message", "detail"}

// ErrorMessage extracts a human-readable message from an error response
// body. It tries "error", "message" and "detail" in order, descending one
// level when the value is itself an object, and falls back to the trimmed
// raw text.
func ErrorMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	env, err := Unwrap(body, errorKeys...)
	if err != nil || env.Shape == ShapeBare {
		return text
	}

	var msg string
	if err := json.Unmarshal(env.Payload, &msg); err == nil {
		return msg
	}

	// Nested form: {"error": {"message": "..."}}
	if nested := ErrorMessage(env.Payload); nested != "" {
		return nested
	}

	return text
}
