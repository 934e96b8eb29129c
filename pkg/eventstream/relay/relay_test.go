package relay_test

import (
	"context"
	"iter"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/goleak"

	"github.com/papercomputeco/aisearch/pkg/conversation"
	"github.com/papercomputeco/aisearch/pkg/eventstream"
	"github.com/papercomputeco/aisearch/pkg/eventstream/relay"
	"github.com/papercomputeco/aisearch/pkg/eventstream/worker"
	"github.com/papercomputeco/aisearch/pkg/rag"
)

type memoryPublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnFinishedEvent
}

func (m *memoryPublisher) PublishTurn(_ context.Context, e *eventstream.TurnFinishedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memoryPublisher) Close() error { return nil }

// answer streams "answer to <message>" followed by a finalize event, sent
// twice to check that a repeated finalize yields a single event.
func answer(_ context.Context, message string) iter.Seq2[rag.Chunk, error] {
	return func(yield func(rag.Chunk, error) bool) {
		chunks := []rag.Chunk{
			{Kind: rag.KindTextDelta, TextDelta: "answer to " + message},
			{Kind: rag.KindFinalize, Closed: true, Sources: []rag.Source{{Title: "doc.pdf"}}},
			{Kind: rag.KindFinalize, Closed: true},
		}
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
	}
}

var _ = Describe("Relay", func() {
	var baseline goleak.Option

	BeforeEach(func() {
		baseline = goleak.IgnoreCurrent()
	})

	AfterEach(func() {
		Expect(goleak.Find(baseline)).To(Succeed())
	})

	It("publishes exactly one event per finished turn", func() {
		pub := &memoryPublisher{}
		pool, err := worker.NewPool(&worker.Config{Publisher: pub, NumWorkers: 1})
		Expect(err).NotTo(HaveOccurred())

		r := conversation.New(conversation.StreamerFunc(answer))
		rl := relay.New(eventstream.TurnOrigin{SessionID: "sess", Workspace: "ios"}, pool, nil)

		done := make(chan int)
		updates := r.Observe(context.Background())
		go func() { done <- rl.Run(context.Background(), updates) }()

		for _, q := range []string{"first", "second"} {
			Expect(r.Submit(q)).To(BeTrue())
			r.Wait()
		}
		Expect(r.Close()).To(Succeed())
		Expect(<-done).To(Equal(2))
		pool.Close()

		Expect(pub.events).To(HaveLen(2))
		Expect(pub.events[0].Question).To(Equal("first"))
		Expect(pub.events[0].Answer).To(Equal("answer to first"))
		Expect(pub.events[0].Sources).To(HaveLen(1))
		Expect(pub.events[1].Question).To(Equal("second"))
		Expect(pub.events[1].Workspace).To(Equal("ios"))
	})

	It("stops when the context is cancelled", func() {
		pool, err := worker.NewPool(&worker.Config{Publisher: &memoryPublisher{}})
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(relay.New(eventstream.TurnOrigin{}, pool, nil).Run(ctx, make(chan conversation.State))).To(BeZero())
	})
})
