// Package nop provides the publisher used when no event stream backend is
// configured. Events are validated, logged at debug level and discarded.
package nop

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/papercomputeco/aisearch/pkg/eventstream"
	"github.com/papercomputeco/aisearch/pkg/logger"
)

// Publisher discards turn events.
type Publisher struct {
	logger    *slog.Logger
	discarded atomic.Int64
}

// NewPublisher creates a no-op publisher. A nil logger discards output.
func NewPublisher(log *slog.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{logger: log}
}

// PublishTurn validates input and otherwise drops the event.
func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnFinishedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.discarded.Add(1)
	p.logger.Debug("turn event discarded",
		"event_id", event.EventID,
		"session_id", event.SessionID,
	)
	return nil
}

// Discarded returns how many events were accepted and dropped.
func (p *Publisher) Discarded() int64 {
	return p.discarded.Load()
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
