// Package rag holds the wire data model of the RAG workspace streaming chat
// protocol: the chat request body, the decoded stream chunks and the
// citations attached to them.
package rag

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire values of the "type" field of a stream payload.
const (
	TypeTextResponseChunk      = "textResponseChunk"
	TypeFinalizeResponseStream = "finalizeResponseStream"
	TypeAbort                  = "abort"
)

// ChunkKind discriminates decoded stream events.
type ChunkKind int

const (
	// KindUnknown is any payload whose type is missing or not recognized.
	KindUnknown ChunkKind = iota

	// KindTextDelta carries an incremental piece of answer text.
	KindTextDelta

	// KindFinalize marks the definitive end of a turn and carries the final
	// citations.
	KindFinalize

	// KindAbort is a backend-side failure reported inside the stream.
	KindAbort
)

func (k ChunkKind) String() string {
	switch k {
	case KindTextDelta:
		return "text_delta"
	case KindFinalize:
		return "finalize"
	case KindAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Chunk is one decoded protocol event. A Chunk is built once per event line
// and never mutated afterwards.
type Chunk struct {
	Kind ChunkKind

	// TextDelta is the incremental text. Absent on the wire decodes as "".
	TextDelta string

	// Closed signals that this is the last delta of the turn.
	Closed bool

	// Sources are the citations attached to this event. Only meaningful on a
	// closed delta or a finalize event.
	Sources []Source

	// ConversationID is the backend chat id, when reported.
	ConversationID *int64

	// CorrelationID groups chunks of one answer. It is not guaranteed to be
	// unique across a session and is informational only.
	CorrelationID string

	// ErrorText is the error reported by the backend on abort payloads.
	ErrorText string

	// Metrics are the generation metrics, usually only on the final event.
	Metrics *Metrics
}

// Metrics are the generation statistics some backends attach to the last
// event of a turn.
type Metrics struct {
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	TotalTokens      int     `json:"total_tokens,omitempty"`
	OutputTPS        float64 `json:"outputTps,omitempty"`
	Duration         float64 `json:"duration,omitempty"`
}

// payload is the JSON shape of one event line. Unknown fields are ignored.
type payload struct {
	UUID         string          `json:"uuid"`
	Type         string          `json:"type"`
	TextResponse *string         `json:"textResponse"`
	Close        bool            `json:"close"`
	Error        json.RawMessage `json:"error"`
	Sources      []Source        `json:"sources"`
	ChatID       *int64          `json:"chatId"`
	Metrics      *Metrics        `json:"metrics"`
}

// ParseChunk decodes one event payload into a Chunk.
func ParseChunk(data []byte) (Chunk, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Chunk{}, fmt.Errorf("decoding stream payload: %w", err)
	}

	c := Chunk{
		Closed:         p.Close,
		Sources:        p.Sources,
		ConversationID: p.ChatID,
		CorrelationID:  p.UUID,
		Metrics:        p.Metrics,
	}
	if p.TextResponse != nil {
		c.TextDelta = *p.TextResponse
	}

	failed, errText := parseErrorField(p.Error)

	switch {
	case p.Type == TypeAbort || failed:
		c.Kind = KindAbort
		c.ErrorText = errText
		if c.ErrorText == "" {
			c.ErrorText = c.TextDelta
		}
	case p.Type == TypeTextResponseChunk:
		c.Kind = KindTextDelta
	case p.Type == TypeFinalizeResponseStream:
		c.Kind = KindFinalize
	default:
		c.Kind = KindUnknown
	}

	return c, nil
}

// parseErrorField interprets the "error" field, which backends send either as
// a boolean flag or as an error message string.
func parseErrorField(raw json.RawMessage) (bool, string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false, ""
	}

	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return flag, ""
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg != "", msg
	}

	return false, ""
}
