package sse

import (
	"bufio"
	"io"
	"strings"
)

const (
	initialBufferSize = 64 * 1024

	// DefaultMaxLineSize bounds a single line. Finalize events carry every
	// citation excerpt inline, so lines can be large.
	DefaultMaxLineSize = 4 * 1024 * 1024
)

// Reader reads classified lines from a source io.Reader while optionally
// writing all raw lines verbatim to a destination io.Writer.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌────────────────────────────┐
// │  Reader.Next()   │──▶│ optional tee io.Writer     │
// └──────────────────┘   └────────────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │       Line       │
// └──────────────────┘
type Reader struct {
	scanner *bufio.Scanner
	tee     io.Writer
}

// Option configures a Reader.
type Option func(*options)

type options struct {
	tee         io.Writer
	maxLineSize int
}

// WithTee writes every raw line, newline terminated, to w as it is read.
func WithTee(w io.Writer) Option {
	return func(o *options) {
		o.tee = w
	}
}

// WithMaxLineSize overrides DefaultMaxLineSize. Non-positive values are
// ignored.
func WithMaxLineSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxLineSize = n
		}
	}
}

// NewReader returns a Reader that classifies lines from src.
func NewReader(src io.Reader, opts ...Option) *Reader {
	o := &options{maxLineSize: DefaultMaxLineSize}
	for _, opt := range opts {
		opt(o)
	}

	initial := initialBufferSize
	if o.maxLineSize < initial {
		initial = o.maxLineSize
	}

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, initial), o.maxLineSize)

	return &Reader{
		scanner: scanner,
		tee:     o.tee,
	}
}

// Next returns the next line of the stream. It blocks until a full line is
// available. Next returns nil, nil when the source is exhausted; a trailing
// line without a terminator is still returned.
//
// "\r\n" terminators are accepted and stripped.
func (r *Reader) Next() (*Line, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	raw := r.scanner.Text()

	if r.tee != nil {
		// bufio.Scanner strips the newline from the Scan() so we reinsert it here.
		if _, err := io.WriteString(r.tee, raw+"\n"); err != nil {
			return nil, err
		}
	}

	return parseLine(raw), nil
}

// parseLine classifies a single raw line.
//
// In the event stream format a line has the form "field:value" where the first space
// after the colon is optional and stripped if present.
func parseLine(raw string) *Line {
	line := &Line{Raw: raw}

	switch {
	case raw == "":
		line.Kind = LineBlank
	case strings.HasPrefix(raw, ":"):
		line.Kind = LineComment
		line.Value = strings.TrimPrefix(raw[1:], " ")
	default:
		line.Kind = LineField
		if before, after, ok := strings.Cut(raw, ":"); ok {
			line.Field = before
			line.Value = strings.TrimPrefix(after, " ")
			line.HasColon = true
		} else {
			line.Field = raw
		}
	}

	return line
}
