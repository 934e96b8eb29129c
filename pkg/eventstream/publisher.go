package eventstream

import (
	"context"
	"errors"
)

// ErrNilTurnEvent is returned by PublishTurn when event is nil.
var ErrNilTurnEvent = errors.New("nil turn event")

// Publisher publishes turn events to an event stream backend.
//
// PublishTurn is called from worker goroutines and must be safe for
// concurrent use. Close flushes anything buffered; no PublishTurn call
// follows it.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnFinishedEvent) error
	Close() error
}
