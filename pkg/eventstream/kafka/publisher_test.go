package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/aisearch/pkg/eventstream"
)

type fakeWriter struct {
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		w *fakeWriter
		p *Publisher
	)

	event := &eventstream.TurnFinishedEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeTurnFinished,
		EventID:       "evt-1",
		EmittedAt:     time.Unix(1735689600, 0).UTC(),
		SessionID:     "sess-1",
		Question:      "Q",
		Answer:        "A",
	}

	BeforeEach(func() {
		w = &fakeWriter{}
		p = newPublisher(w, "aisearch.turns", nil)
	})

	It("validates its configuration", func() {
		_, err := NewPublisher(Config{Topic: "t"}, nil)
		Expect(err).To(MatchError(ContainSubstring("broker")))

		_, err = NewPublisher(Config{Brokers: []string{"localhost:9092"}}, nil)
		Expect(err).To(MatchError(ContainSubstring("topic")))

		pub, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}, Topic: "t"}, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(pub.Close()).To(Succeed())
	})

	It("returns ErrNilTurnEvent for nil events", func() {
		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
		Expect(w.messages).To(BeEmpty())
	})

	It("writes a JSON message keyed by session", func() {
		Expect(p.PublishTurn(context.Background(), event)).To(Succeed())
		Expect(w.messages).To(HaveLen(1))

		msg := w.messages[0]
		Expect(string(msg.Key)).To(Equal("sess-1"))
		Expect(msg.Time).To(Equal(event.EmittedAt))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte("aisearch.turn.finished")}))

		var got eventstream.TurnFinishedEvent
		Expect(json.Unmarshal(msg.Value, &got)).To(Succeed())
		Expect(got.EventID).To(Equal("evt-1"))
		Expect(got.Answer).To(Equal("A"))
	})

	It("wraps write failures", func() {
		w.err = errors.New("leader not available")
		err := p.PublishTurn(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("aisearch.turns")))
		Expect(errors.Is(err, w.err)).To(BeTrue())
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})
})
