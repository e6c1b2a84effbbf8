package sse

import "strings"

// FrameBuffer accumulates raw transport text and splits it into complete
// lines on "\n" boundaries, holding any trailing partial line until more text
// arrives.
//
// Two feeding strategies are supported:
//
//   - Feed takes the cumulative text observed so far and uses a watermark of
//     consumed bytes so already scanned text is never emitted twice.
//   - Write takes disjoint chunks, as delivered by an io.Reader.
//
// Both produce the same lines for the same underlying byte stream. The zero
// value is ready to use. A FrameBuffer is not safe for concurrent use.
type FrameBuffer struct {
	// pending never contains a newline.
	pending  string
	consumed int
}

// Feed consumes the cumulative text seen so far and returns the complete lines
// that became available since the previous call, in order. Text at or below
// the watermark is ignored, so repeated calls with the same text emit nothing.
func (b *FrameBuffer) Feed(text string) []string {
	if len(text) <= b.consumed {
		return nil
	}

	return b.Write(text[b.consumed:])
}

// Write consumes one discrete chunk and returns the complete lines it
// finished, in order.
func (b *FrameBuffer) Write(chunk string) []string {
	if chunk == "" {
		return nil
	}
	b.consumed += len(chunk)

	if !strings.Contains(chunk, "\n") {
		b.pending += chunk
		return nil
	}

	segments := strings.Split(b.pending+chunk, "\n")
	b.pending = segments[len(segments)-1]

	return segments[:len(segments)-1]
}

// Flush returns and clears the trailing unterminated line, if any. Call it
// once the transport reports end of response.
func (b *FrameBuffer) Flush() (string, bool) {
	if b.pending == "" {
		return "", false
	}

	line := b.pending
	b.pending = ""
	return line, true
}

// Pending returns the partial line held since the last emitted newline.
func (b *FrameBuffer) Pending() string {
	return b.pending
}

// Consumed returns the watermark: the number of bytes scanned so far.
func (b *FrameBuffer) Consumed() int {
	return b.consumed
}
