// Package sse provides a minimal, purpose-built line reader for SSE
// (Server-Sent Events) response bodies. It classifies each line of the stream
// as it arrives and can optionally tee every raw line verbatim to a
// destination writer, which is how aisearch records streams for later replay.
//
// This package intentionally does NOT assemble multi-line events or provide
// SSE writer capabilities: the streaming chat protocol carries one complete
// JSON payload per "data:" line, and the decoder acts on each line as soon as
// it is read.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// LineKind classifies a single line of an SSE stream.
type LineKind int

const (
	// LineBlank is an empty line. In SSE it separates events.
	LineBlank LineKind = iota

	// LineComment is a line starting with ':'.
	LineComment

	// LineField is a "field:value" line, or a bare line with no colon.
	LineField
)

// FieldData is the SSE field that carries event payloads.
const FieldData = "data"

// Line is one classified line of the stream.
type Line struct {
	Kind LineKind

	// Field is the field name for LineField lines. A line without a colon is
	// a field with an empty Value, as the event stream format requires.
	Field string

	// Value is the field value with a single leading space stripped.
	Value string

	// HasColon reports whether the line contained a field separator.
	HasColon bool

	// Raw is the line exactly as read, without its line terminator.
	Raw string
}

// IsData reports whether the line is a "data:" field.
func (l *Line) IsData() bool {
	return l.Kind == LineField && l.HasColon && l.Field == FieldData
}
