package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/aisearch/pkg/conversation"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnFinished is emitted after an answer turn finished.
	EventTypeTurnFinished = "aisearch.turn.finished"
)

// TurnFinishedEvent is a transport-neutral event payload for a finished turn.
type TurnFinishedEvent struct {
	SchemaVersion  int          `json:"schema_version"`
	EventType      string       `json:"event_type"`
	EventID        string       `json:"event_id"`
	EmittedAt      time.Time    `json:"emitted_at"`
	SessionID      string       `json:"session_id"`
	Workspace      string       `json:"workspace"`
	ConversationID *int64       `json:"conversation_id,omitempty"`
	Question       string       `json:"question"`
	Answer         string       `json:"answer"`
	Sources        []TurnSource `json:"sources,omitempty"`
}

// TurnSource is a citation attached to the answer.
type TurnSource struct {
	Title string `json:"title"`
	Text  string `json:"text,omitempty"`
}

// TurnOrigin identifies the session that produced a turn.
type TurnOrigin struct {
	SessionID string
	Workspace string
}

// NewTurnFinishedEvent builds the event for the last turn of s. It reports
// false when s is not finished or holds no question.
func NewTurnFinishedEvent(origin TurnOrigin, s conversation.State, now time.Time) (*TurnFinishedEvent, bool) {
	if s.Status.Phase != conversation.PhaseFinished {
		return nil, false
	}

	event := &TurnFinishedEvent{
		SchemaVersion:  SchemaVersionV1,
		EventType:      EventTypeTurnFinished,
		EventID:        uuid.NewString(),
		EmittedAt:      now.UTC(),
		SessionID:      origin.SessionID,
		Workspace:      origin.Workspace,
		ConversationID: s.ConversationID,
	}

	// Walk back to the user message that opened the turn.
	for i := len(s.Transcript) - 1; i >= 0; i-- {
		switch m := s.Transcript[i].(type) {
		case conversation.TextMessage:
			if m.FromUser {
				event.Question = m.Text
				return event, true
			}
			event.Answer = m.Text
		case conversation.SourcesMessage:
			for _, src := range m.Sources {
				event.Sources = append(event.Sources, TurnSource{Title: src.Title, Text: src.BodyText})
			}
		}
	}
	return nil, false
}
