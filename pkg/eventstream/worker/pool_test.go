package worker

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aisearch/pkg/eventstream"
)

// recordingPublisher stores published events. block, when set, holds every
// publish until it is closed.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnFinishedEvent
	err    error
	block  chan struct{}
}

func (r *recordingPublisher) PublishTurn(_ context.Context, event *eventstream.TurnFinishedEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventID)
	}
	return out
}

var _ = Describe("Worker Pool", func() {
	var pub *recordingPublisher

	BeforeEach(func() {
		pub = &recordingPublisher{}
	})

	It("requires a publisher", func() {
		_, err := NewPool(&Config{})
		Expect(err).To(MatchError(ContainSubstring("publisher")))
	})

	It("applies defaults", func() {
		wp, err := NewPool(&Config{Publisher: pub})
		Expect(err).NotTo(HaveOccurred())
		defer wp.Close()

		Expect(wp.config.NumWorkers).To(Equal(defaultNumWorkers))
		Expect(wp.config.QueueSize).To(Equal(defaultJobQueueSize))
		Expect(wp.config.PublishTimeout).To(Equal(defaultPublishTimeout))
	})

	Describe("Enqueue", func() {
		It("publishes every queued event before Close returns", func() {
			wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(&eventstream.TurnFinishedEvent{EventID: "a"})).To(BeTrue())
			Expect(wp.Enqueue(&eventstream.TurnFinishedEvent{EventID: "b"})).To(BeTrue())
			wp.Close()

			Expect(pub.ids()).To(Equal([]string{"a", "b"}))
		})

		It("drops events when the queue is full", func() {
			pub.block = make(chan struct{})
			wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 1, QueueSize: 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(&eventstream.TurnFinishedEvent{EventID: "in-flight"})).To(BeTrue())
			Eventually(func() int { return len(wp.queue) }).Should(BeZero())
			Expect(wp.Enqueue(&eventstream.TurnFinishedEvent{EventID: "queued"})).To(BeTrue())
			Expect(wp.Enqueue(&eventstream.TurnFinishedEvent{EventID: "dropped"})).To(BeFalse())

			close(pub.block)
			wp.Close()
			Expect(pub.ids()).To(ConsistOf("in-flight", "queued"))
		})

		It("rejects nil events and events after Close", func() {
			wp, err := NewPool(&Config{Publisher: pub})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(nil)).To(BeFalse())
			wp.Close()
			wp.Close()
			Expect(wp.Enqueue(&eventstream.TurnFinishedEvent{EventID: "late"})).To(BeFalse())
		})

		It("keeps working after a publish failure", func() {
			pub.err = errors.New("broker down")
			wp, err := NewPool(&Config{Publisher: pub, NumWorkers: 1})
			Expect(err).NotTo(HaveOccurred())

			Expect(wp.Enqueue(&eventstream.TurnFinishedEvent{EventID: "a"})).To(BeTrue())
			wp.Close()
			Expect(pub.ids()).To(BeEmpty())
		})
	})
})
