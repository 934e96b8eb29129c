package conversation

import (
	"context"
	"sync"
)

// observer delivers snapshots to one subscriber. Snapshots are queued without
// bound so the reducer never waits on a slow reader and none are lost.
type observer struct {
	out  chan State
	wake chan struct{}

	mu      sync.Mutex
	queue   []State
	stopped bool
}

func newObserver() *observer {
	return &observer{
		out:  make(chan State),
		wake: make(chan struct{}, 1),
	}
}

func (o *observer) push(s State) {
	o.mu.Lock()
	o.queue = append(o.queue, s)
	o.mu.Unlock()
	o.notify()
}

// stop closes the channel once the queued snapshots have been delivered.
func (o *observer) stop() {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()
	o.notify()
}

func (o *observer) notify() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

func (o *observer) pop() (State, bool, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.queue) == 0 {
		return State{}, false, o.stopped
	}
	next := o.queue[0]
	o.queue[0] = State{}
	o.queue = o.queue[1:]
	return next, true, o.stopped
}

func (o *observer) run(ctx context.Context, detach func(*observer)) {
	defer close(o.out)
	defer detach(o)

	for {
		next, ok, stopped := o.pop()
		if !ok {
			if stopped {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-o.wake:
			}
			continue
		}

		select {
		case o.out <- next:
		case <-ctx.Done():
			return
		}
	}
}
