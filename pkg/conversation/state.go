// Package conversation folds decoded stream chunks into an append-only chat
// transcript and publishes an immutable snapshot after every transition.
package conversation

import (
	"slices"

	"github.com/papercomputeco/aisearch/pkg/rag"
)

// Phase is the turn state machine position:
//
//	Idle → Loading → Accumulating → Finished → Idle
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseAccumulating
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseAccumulating:
		return "accumulating"
	case PhaseFinished:
		return "finished"
	default:
		return "idle"
	}
}

// TurnStatus is the status of the current turn. Text is the running answer
// and only meaningful in PhaseAccumulating.
type TurnStatus struct {
	Phase Phase
	Text  string
}

// Idle returns the idle status.
func Idle() TurnStatus { return TurnStatus{Phase: PhaseIdle} }

// Loading returns the status of a submitted turn with no answer text yet.
func Loading() TurnStatus { return TurnStatus{Phase: PhaseLoading} }

// Accumulating returns the status of a turn that has received text.
func Accumulating(text string) TurnStatus {
	return TurnStatus{Phase: PhaseAccumulating, Text: text}
}

// Finished returns the status of a completed turn.
func Finished() TurnStatus { return TurnStatus{Phase: PhaseFinished} }

// Source is a citation as shown to the user.
type Source struct {
	Title    string
	BodyText string
}

// SourceFromWire maps a wire citation to its display form. The description
// wins over the title when present since backends put the human readable
// document name there.
func SourceFromWire(s rag.Source) Source {
	return Source{
		Title:    s.DisplayTitle(),
		BodyText: StripDocumentMetadata(s.Text),
	}
}

// DisplayMessage is one transcript entry: a TextMessage or a SourcesMessage.
type DisplayMessage interface {
	displayMessage()
}

// TextMessage is a user question or an assistant answer.
type TextMessage struct {
	Text     string
	FromUser bool
}

// SourcesMessage holds the citations of one answer.
type SourcesMessage struct {
	Sources []Source
}

func (TextMessage) displayMessage()    {}
func (SourcesMessage) displayMessage() {}

// State is a snapshot of the conversation. Snapshots are never modified after
// they are published; every transition builds a new transcript slice header
// and appends past a clipped capacity.
type State struct {
	Transcript []DisplayMessage
	Status     TurnStatus

	// LastError is the error text of the last abandoned turn. It is cleared
	// when a new message is accepted.
	LastError string

	// ConversationID is the last backend chat id seen, if any.
	ConversationID *int64
}

// Last returns the final transcript entry, or nil for an empty transcript.
func (s State) Last() DisplayMessage {
	if len(s.Transcript) == 0 {
		return nil
	}
	return s.Transcript[len(s.Transcript)-1]
}

func (s State) appendMessages(msgs ...DisplayMessage) []DisplayMessage {
	return append(slices.Clip(s.Transcript), msgs...)
}
