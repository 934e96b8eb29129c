package mockserver

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/papercomputeco/aisearch/pkg/rag"
	"github.com/papercomputeco/aisearch/pkg/stream"
)

// Script describes a synthetic answer.
type Script struct {
	// Deltas are the answer text pieces. When empty the question is echoed
	// back word by word.
	Deltas []string

	// Sources are attached to the finalize event.
	Sources []rag.Source

	// Framing selects "data:" lines or bare JSON lines.
	Framing stream.Framing

	// ChatID is reported as the backend conversation id when non-zero.
	ChatID int64

	// Malformed injects an undecodable event line after the first delta.
	Malformed bool

	// Abort ends the answer with a backend abort event carrying this text.
	Abort string

	// SkipFinalize omits the finalize event.
	SkipFinalize bool

	// Status fails the request with this HTTP status when non-zero.
	Status int
}

// wireChunk is the payload shape the workspace stream-chat endpoint emits.
type wireChunk struct {
	UUID         string       `json:"uuid"`
	Type         string       `json:"type"`
	TextResponse string       `json:"textResponse"`
	Sources      []rag.Source `json:"sources"`
	Close        bool         `json:"close"`
	Error        any          `json:"error"`
	ChatID       *int64       `json:"chatId,omitempty"`
	Metrics      *rag.Metrics `json:"metrics,omitempty"`
}

// Lines renders the response body lines for question, separators included.
func (s Script) Lines(question string) []string {
	deltas := s.Deltas
	if len(deltas) == 0 {
		deltas = echo(question)
	}

	id := uuid.NewString()
	var chatID *int64
	if s.ChatID != 0 {
		chatID = &s.ChatID
	}

	var lines []string
	emit := func(payload string) {
		if s.Framing == stream.FramingLegacy {
			lines = append(lines, payload)
			return
		}
		lines = append(lines, "data: "+payload, "")
	}
	encode := func(c wireChunk) string {
		if c.Sources == nil {
			c.Sources = []rag.Source{}
		}
		if c.Error == nil {
			c.Error = false
		}
		b, _ := json.Marshal(c)
		return string(b)
	}

	for i, d := range deltas {
		emit(encode(wireChunk{
			UUID:         id,
			Type:         rag.TypeTextResponseChunk,
			TextResponse: d,
			ChatID:       chatID,
		}))
		if i == 0 && s.Malformed {
			emit(`{"type":"textResponseChunk","textResponse":`)
		}
	}

	if s.Abort != "" {
		emit(encode(wireChunk{
			UUID:  id,
			Type:  rag.TypeAbort,
			Close: true,
			Error: s.Abort,
		}))
		return lines
	}

	if !s.SkipFinalize {
		tokens := len(deltas)
		emit(encode(wireChunk{
			UUID:    id,
			Type:    rag.TypeFinalizeResponseStream,
			Sources: s.Sources,
			Close:   true,
			ChatID:  chatID,
			Metrics: &rag.Metrics{CompletionTokens: tokens, TotalTokens: tokens},
		}))
	}
	return lines
}

func echo(question string) []string {
	words := strings.Fields(question)
	out := []string{"You asked:"}
	for _, w := range words {
		out = append(out, " "+w)
	}
	return out
}
