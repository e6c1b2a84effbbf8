package sse

import (
	"errors"
	"io"
)

const readChunkSize = 4 * 1024

// Reader reads raw chunks from a source io.Reader, splits them into lines
// with a FrameBuffer, and writes every raw byte verbatim to an optional
// destination io.Writer.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │  Reader.Next()   │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │   []string lines │
// └──────────────────┘
//
// The destination typically records a transcript that the replay server can
// serve back later.
type Reader struct {
	src  io.Reader
	dest io.Writer
	buf  []byte

	frames FrameBuffer
	done   bool
}

// NewReader returns a Reader over src. dest may be nil.
func NewReader(src io.Reader, dest io.Writer) *Reader {
	return &Reader{
		src:  src,
		dest: dest,
		buf:  make([]byte, readChunkSize),
	}
}

// Next performs a single read from the source and returns the complete lines
// it produced, which may be none. Once the source is exhausted Next returns
// any trailing unterminated line together with io.EOF; every later call
// returns nil, io.EOF.
func (r *Reader) Next() ([]string, error) {
	if r.done {
		return nil, io.EOF
	}

	n, err := r.src.Read(r.buf)

	var lines []string
	if n > 0 {
		// Write the raw bytes to the destination before handing out lines.
		if r.dest != nil {
			if _, werr := r.dest.Write(r.buf[:n]); werr != nil {
				return nil, werr
			}
		}
		lines = r.frames.Write(string(r.buf[:n]))
	}

	if err != nil {
		if !errors.Is(err, io.EOF) {
			return lines, err
		}

		r.done = true
		if tail, ok := r.frames.Flush(); ok {
			lines = append(lines, tail)
		}
		return lines, io.EOF
	}

	return lines, nil
}

// Consumed returns the number of bytes read from the source so far.
func (r *Reader) Consumed() int {
	return r.frames.Consumed()
}
