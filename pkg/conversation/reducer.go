package conversation

import (
	"context"
	"iter"
	"log/slog"
	"sync"

	"github.com/papercomputeco/aisearch/pkg/logger"
	"github.com/papercomputeco/aisearch/pkg/rag"
)

// Streamer produces the chunk sequence answering one message.
type Streamer interface {
	Stream(ctx context.Context, message string) iter.Seq2[rag.Chunk, error]
}

// StreamerFunc adapts a function to Streamer.
type StreamerFunc func(ctx context.Context, message string) iter.Seq2[rag.Chunk, error]

// Stream calls f(ctx, message).
func (f StreamerFunc) Stream(ctx context.Context, message string) iter.Seq2[rag.Chunk, error] {
	return f(ctx, message)
}

// Option configures a Reducer.
type Option func(*Reducer)

// WithLogger sets the logger. Transitions are logged at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reducer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithContext sets the parent context of every turn. Cancelling it abandons
// the in-flight turn.
func WithContext(ctx context.Context) Option {
	return func(r *Reducer) {
		if ctx != nil {
			r.parent = ctx
		}
	}
}

// Reducer owns one conversation. It is the only writer of its State and runs
// at most one turn at a time.
type Reducer struct {
	streamer Streamer
	logger   *slog.Logger
	parent   context.Context

	mu        sync.Mutex
	state     State
	observers map[*observer]struct{}
	closed    bool

	// in-flight turn, nil when none
	turn       uint64
	cancelTurn context.CancelFunc
	turnDone   chan struct{}
}

// New returns an idle Reducer that answers messages with streamer.
func New(streamer Streamer, opts ...Option) *Reducer {
	r := &Reducer{
		streamer:  streamer,
		logger:    logger.Nop(),
		parent:    context.Background(),
		state:     State{Status: Idle()},
		observers: make(map[*observer]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the latest snapshot.
func (r *Reducer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Observe returns a channel receiving one snapshot per transition, in
// transition order. The channel is closed when ctx is done or the reducer is
// closed.
func (r *Reducer) Observe(ctx context.Context) <-chan State {
	o := newObserver()

	r.mu.Lock()
	if r.closed {
		o.stopped = true
	} else {
		r.observers[o] = struct{}{}
	}
	r.mu.Unlock()

	go o.run(ctx, r.detach)
	return o.out
}

func (r *Reducer) detach(o *observer) {
	r.mu.Lock()
	delete(r.observers, o)
	r.mu.Unlock()
}

// Submit sends message as the next user turn. Blank messages are ignored, as
// are submissions while a turn is loading or still streaming. Submit reports
// whether the message was accepted; the turn outcome is published through the
// state.
func (r *Reducer) Submit(message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.turnDone != nil {
		r.logger.Debug("submission rejected, turn in flight",
			"phase", r.state.Status.Phase.String(),
			"closed", r.closed,
		)
		return false
	}

	if _, ok := Reduce(r.state, Submitted{Message: message}); !ok {
		return false
	}
	if r.state.Status.Phase == PhaseFinished {
		r.applyLocked(Cleared{})
	}
	r.applyLocked(Submitted{Message: message})

	ctx, cancel := context.WithCancel(r.parent)
	done := make(chan struct{})
	r.turn++
	r.cancelTurn = cancel
	r.turnDone = done

	go r.drive(ctx, r.turn, message, done)
	return true
}

// drive consumes the turn's sequence until it ends, fails or the turn is
// cancelled.
func (r *Reducer) drive(ctx context.Context, turn uint64, message string, done chan struct{}) {
	defer close(done)
	defer r.endTurn(turn)

	for chunk, err := range r.streamer.Stream(ctx, message) {
		if ctx.Err() != nil {
			return
		}

		var ev Event = Received{Chunk: chunk}
		if err != nil {
			r.logger.Warn("turn failed", "error", err)
			ev = Failed{Err: err}
		} else if chunk.Kind == rag.KindAbort {
			r.logger.Warn("backend aborted turn", "error", chunk.ErrorText)
		}

		if !r.apply(turn, ev) {
			return
		}
		if err != nil || chunk.Kind == rag.KindAbort {
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	if phase := r.State().Status.Phase; phase != PhaseFinished && phase != PhaseIdle {
		r.logger.Warn("stream ended without a finalize signal",
			"phase", phase.String(),
		)
	}
}

// apply reduces ev into the state if turn is still current. It reports false
// once the turn has been superseded.
func (r *Reducer) apply(turn uint64, ev Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if turn != r.turn || r.closed {
		return false
	}
	r.applyLocked(ev)
	return true
}

func (r *Reducer) applyLocked(ev Event) {
	next, changed := Reduce(r.state, ev)
	if !changed {
		return
	}
	r.state = next

	r.logger.Debug("conversation transition",
		"phase", next.Status.Phase.String(),
		"transcript_len", len(next.Transcript),
	)
	for o := range r.observers {
		o.push(next)
	}
}

func (r *Reducer) endTurn(turn uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if turn != r.turn {
		return
	}
	r.cancelTurn()
	r.cancelTurn = nil
	r.turnDone = nil
}

// abandon cancels the in-flight turn and waits for it to stop.
func (r *Reducer) abandon() {
	r.mu.Lock()
	cancel, done := r.cancelTurn, r.turnDone
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the in-flight turn, if any, has ended.
func (r *Reducer) Wait() {
	r.mu.Lock()
	done := r.turnDone
	r.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Reset abandons the in-flight turn and returns to idle. It is the way out
// of a turn whose stream ended without a finalize signal.
func (r *Reducer) Reset() {
	r.abandon()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.turnDone != nil {
		return
	}
	r.applyLocked(Cleared{})
}

// Close abandons the in-flight turn and closes every observer channel after
// its pending snapshots. Later submissions are rejected.
func (r *Reducer) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.abandon()

	r.mu.Lock()
	defer r.mu.Unlock()
	for o := range r.observers {
		o.stop()
	}
	return nil
}
