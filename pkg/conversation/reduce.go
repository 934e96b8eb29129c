package conversation

import (
	"strings"
	"unicode"

	"github.com/papercomputeco/aisearch/pkg/rag"
)

const documentMetadataEnd = "</document_metadata>"

// Event is an input to Reduce.
type Event interface {
	event()
}

// Submitted is a user message accepted for sending.
type Submitted struct {
	Message string
}

// Received is a decoded chunk of the in-flight turn.
type Received struct {
	Chunk rag.Chunk
}

// Failed is a transport or payload error of the in-flight turn.
type Failed struct {
	Err error
}

// Cleared returns the reducer to idle, discarding any partial answer.
type Cleared struct{}

func (Submitted) event() {}
func (Received) event()  {}
func (Failed) event()    {}
func (Cleared) event()   {}

// Reduce applies ev to s. It reports false when ev leaves the state unchanged
// and nothing should be published.
func Reduce(s State, ev Event) (State, bool) {
	switch e := ev.(type) {
	case Submitted:
		if strings.TrimSpace(e.Message) == "" || s.Status.Phase == PhaseLoading {
			return s, false
		}
		s.Transcript = s.appendMessages(TextMessage{Text: e.Message, FromUser: true})
		s.Status = Loading()
		s.LastError = ""
		return s, true

	case Received:
		c := e.Chunk
		if c.ConversationID != nil {
			id := *c.ConversationID
			s.ConversationID = &id
		}

		switch c.Kind {
		case rag.KindTextDelta:
			if s.Status.Phase == PhaseFinished {
				return s, false
			}
			var text string
			if s.Status.Phase == PhaseAccumulating {
				text = s.Status.Text
			}
			text += c.TextDelta
			if c.Closed {
				return finalize(s, text, c.Sources)
			}
			s.Status = Accumulating(text)
			return s, true

		case rag.KindFinalize:
			var text string
			if s.Status.Phase == PhaseAccumulating {
				text = s.Status.Text
			}
			return finalize(s, text, c.Sources)

		case rag.KindAbort:
			msg := c.ErrorText
			if msg == "" {
				msg = "backend aborted the response"
			}
			s.Status = Idle()
			s.LastError = msg
			return s, true

		case rag.KindUnknown:
			return s, false
		}
		return s, false

	case Failed:
		s.Status = Idle()
		if e.Err != nil {
			s.LastError = e.Err.Error()
		}
		return s, true

	case Cleared:
		if s.Status.Phase == PhaseIdle {
			return s, false
		}
		s.Status = Idle()
		return s, true
	}
	return s, false
}

// finalize closes the turn. A turn is finalized at most once: a second
// finalize signal, or one arriving after the sources were appended, is
// ignored.
func finalize(s State, text string, sources []rag.Source) (State, bool) {
	if s.Status.Phase == PhaseFinished {
		return s, false
	}
	if _, ok := s.Last().(SourcesMessage); ok {
		return s, false
	}

	var msgs []DisplayMessage
	if text != "" {
		msgs = append(msgs, TextMessage{Text: text})
	}
	if len(sources) > 0 {
		mapped := make([]Source, 0, len(sources))
		for _, src := range sources {
			mapped = append(mapped, SourceFromWire(src))
		}
		msgs = append(msgs, SourcesMessage{Sources: mapped})
	}

	s.Transcript = s.appendMessages(msgs...)
	s.Status = Finished()
	return s, true
}

// StripDocumentMetadata removes the metadata header backends prepend to
// citation excerpts. Everything up to and including the closing
// </document_metadata> tag is dropped along with the whitespace after it.
// Text without the tag is only trimmed.
func StripDocumentMetadata(raw string) string {
	if raw == "" {
		return ""
	}
	if _, after, ok := strings.Cut(raw, documentMetadataEnd); ok {
		return strings.TrimLeftFunc(after, unicode.IsSpace)
	}
	return strings.TrimSpace(raw)
}
