// Package stream decodes a streaming chat response body into a lazy sequence
// of typed chunks.
//
// The decoder acts on one line at a time: every event line on the wire
// results in exactly one emitted item, in arrival order, as soon as the line
// has been read. A malformed payload produces a *PayloadDecodeError for that
// line only; a failure to read the body produces a single *TransportError and
// ends the sequence.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"unicode"

	"github.com/papercomputeco/aisearch/pkg/logger"
	"github.com/papercomputeco/aisearch/pkg/rag"
	"github.com/papercomputeco/aisearch/pkg/sse"
)

// doneSentinel is the stream-end marker some backends send as a payload.
const doneSentinel = "[DONE]"

// Framing selects which lines of the body carry payloads.
type Framing int

const (
	// FramingSSE treats only "data:" lines as event lines.
	FramingSSE Framing = iota

	// FramingLegacy additionally treats every other non-empty, non-comment
	// line as a bare payload. Older backend versions stream one JSON value
	// per line without the "data:" prefix.
	FramingLegacy
)

func (f Framing) String() string {
	if f == FramingLegacy {
		return "legacy"
	}
	return "sse"
}

// ParseFraming parses a framing name. The empty string selects FramingSSE.
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sse":
		return FramingSSE, nil
	case "legacy":
		return FramingLegacy, nil
	default:
		return FramingSSE, fmt.Errorf("unknown framing: %q (available: sse, legacy)", s)
	}
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithFraming sets the line framing. Defaults to FramingSSE.
func WithFraming(f Framing) Option {
	return func(d *Decoder) {
		d.framing = f
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithReaderOptions passes options through to the underlying sse.Reader,
// e.g. sse.WithTee to record the raw stream.
func WithReaderOptions(opts ...sse.Option) Option {
	return func(d *Decoder) {
		d.readerOpts = append(d.readerOpts, opts...)
	}
}

// Decoder turns a line-oriented response body into chunks.
type Decoder struct {
	lines      *sse.Reader
	src        io.Reader
	framing    Framing
	logger     *slog.Logger
	readerOpts []sse.Option

	done      bool
	closeOnce sync.Once
	closeErr  error
}

// NewDecoder returns a Decoder reading from src. If src is an io.Closer it is
// closed by Close.
func NewDecoder(src io.Reader, opts ...Option) *Decoder {
	d := &Decoder{
		src:     src,
		framing: FramingSSE,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.lines = sse.NewReader(src, d.readerOpts...)
	return d
}

// Next returns the next decoded chunk. It blocks until an event line arrives.
//
// Next returns io.EOF when the source is exhausted. A *PayloadDecodeError
// reports one malformed line and Next may be called again. A *TransportError
// reports a read failure; every later call returns io.EOF.
func (d *Decoder) Next() (rag.Chunk, error) {
	for {
		if d.done {
			return rag.Chunk{}, io.EOF
		}

		line, err := d.lines.Next()
		if err != nil {
			d.done = true
			return rag.Chunk{}, &TransportError{Op: "read", Err: err}
		}
		if line == nil {
			d.done = true
			return rag.Chunk{}, io.EOF
		}

		data, ok := d.payload(line)
		if !ok {
			continue
		}

		chunk, err := rag.ParseChunk([]byte(data))
		if err != nil {
			d.logger.Debug("failed to decode stream payload",
				"error", err,
				"line", data,
			)
			return rag.Chunk{}, &PayloadDecodeError{Line: data, Err: err}
		}

		d.logger.Debug("decoded stream chunk",
			"kind", chunk.Kind.String(),
			"closed", chunk.Closed,
			"delta_len", len(chunk.TextDelta),
			"sources", len(chunk.Sources),
		)
		return chunk, nil
	}
}

// payload extracts the payload text of an event line. It reports false for
// lines that carry no payload: separators, comments, non-data fields, empty
// payloads and the [DONE] sentinel.
func (d *Decoder) payload(line *sse.Line) (string, bool) {
	var data string

	switch {
	case line.IsData():
		data = strings.TrimLeftFunc(line.Value, unicode.IsSpace)
	case d.framing == FramingLegacy && line.Kind == sse.LineField:
		data = strings.TrimSpace(line.Raw)
	default:
		return "", false
	}

	if data == "" || data == doneSentinel {
		return "", false
	}
	return data, true
}

// Close releases the source. It is safe to call concurrently with Next and
// more than once; a blocked Next returns once the source is closed.
func (d *Decoder) Close() error {
	d.closeOnce.Do(func() {
		if c, ok := d.src.(io.Closer); ok {
			d.closeErr = c.Close()
		}
	})
	return d.closeErr
}

// All returns the decoder as a lazy, single-use sequence of chunk results.
//
// The source is closed when the consumer stops iterating, when the sequence
// ends, or as soon as ctx is cancelled. Nothing is emitted after ctx is done,
// so read failures caused by cancellation are never reported.
func (d *Decoder) All(ctx context.Context) iter.Seq2[rag.Chunk, error] {
	return func(yield func(rag.Chunk, error) bool) {
		stop := context.AfterFunc(ctx, func() {
			_ = d.Close()
		})
		defer stop()
		defer func() { _ = d.Close() }()

		for {
			chunk, err := d.Next()
			if ctx.Err() != nil {
				return
			}
			if isEndOfStream(err) {
				return
			}
			if !yield(chunk, err) {
				return
			}
			if IsTransport(err) {
				return
			}
		}
	}
}

// Decode is shorthand for NewDecoder(src, opts...).All(ctx).
func Decode(ctx context.Context, src io.Reader, opts ...Option) iter.Seq2[rag.Chunk, error] {
	return NewDecoder(src, opts...).All(ctx)
}

// Fail returns a sequence that yields err once. Transports use it to end a
// sequence early when the response could not be obtained.
func Fail(err error) iter.Seq2[rag.Chunk, error] {
	return func(yield func(rag.Chunk, error) bool) {
		yield(rag.Chunk{}, err)
	}
}

func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) && !IsTransport(err) && !IsPayload(err)
}
