// Package relay turns finished conversation turns into published events.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/papercomputeco/aisearch/pkg/conversation"
	"github.com/papercomputeco/aisearch/pkg/eventstream"
	"github.com/papercomputeco/aisearch/pkg/eventstream/worker"
	"github.com/papercomputeco/aisearch/pkg/logger"
)

// Relay watches conversation snapshots and enqueues one event per turn that
// reaches the finished phase.
type Relay struct {
	origin eventstream.TurnOrigin
	pool   *worker.Pool
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Relay feeding pool.
func New(origin eventstream.TurnOrigin, pool *worker.Pool, log *slog.Logger) *Relay {
	if log == nil {
		log = logger.Nop()
	}
	return &Relay{
		origin: origin,
		pool:   pool,
		logger: log,
		now:    time.Now,
	}
}

// Run consumes updates until the channel closes or ctx is done. It returns
// the number of events enqueued.
func (r *Relay) Run(ctx context.Context, updates <-chan conversation.State) int {
	enqueued := 0
	prev := conversation.PhaseIdle

	for {
		select {
		case <-ctx.Done():
			return enqueued
		case s, ok := <-updates:
			if !ok {
				return enqueued
			}

			phase := s.Status.Phase
			entered := phase == conversation.PhaseFinished && prev != conversation.PhaseFinished
			prev = phase
			if !entered {
				continue
			}

			event, ok := eventstream.NewTurnFinishedEvent(r.origin, s, r.now())
			if !ok {
				r.logger.Debug("finished turn has no question, skipping event")
				continue
			}
			if r.pool.Enqueue(event) {
				enqueued++
			}
		}
	}
}
