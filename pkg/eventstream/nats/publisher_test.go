package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	natsgo "github.com/nats-io/nats.go"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aisearch/pkg/eventstream"
)

type fakeConn struct {
	published []*natsgo.Msg
	err       error
	flushErr  error
	closed    bool
}

func (c *fakeConn) PublishMsg(msg *natsgo.Msg) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeConn) FlushTimeout(time.Duration) error { return c.flushErr }

func (c *fakeConn) Close() { c.closed = true }

var _ = Describe("Publisher", func() {
	var (
		c *fakeConn
		p *Publisher
	)

	event := &eventstream.TurnFinishedEvent{
		EventType: eventstream.EventTypeTurnFinished,
		EventID:   "evt-1",
		SessionID: "sess-1",
		Answer:    "A",
	}

	BeforeEach(func() {
		c = &fakeConn{}
		p = newPublisher(c, "aisearch.turns", nil)
	})

	It("requires a server url", func() {
		_, err := NewPublisher(Config{}, nil)
		Expect(err).To(MatchError(ContainSubstring("server url")))
	})

	It("returns ErrNilTurnEvent for nil events", func() {
		Expect(p.PublishTurn(context.Background(), nil)).To(MatchError(eventstream.ErrNilTurnEvent))
	})

	It("publishes JSON with a dedup id", func() {
		Expect(p.PublishTurn(context.Background(), event)).To(Succeed())
		Expect(c.published).To(HaveLen(1))

		msg := c.published[0]
		Expect(msg.Subject).To(Equal("aisearch.turns"))
		Expect(msg.Header.Get(natsgo.MsgIdHdr)).To(Equal("evt-1"))

		var got eventstream.TurnFinishedEvent
		Expect(json.Unmarshal(msg.Data, &got)).To(Succeed())
		Expect(got.SessionID).To(Equal("sess-1"))
	})

	It("does not publish once the context is done", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(p.PublishTurn(ctx, event)).To(MatchError(context.Canceled))
		Expect(c.published).To(BeEmpty())
	})

	It("wraps publish failures", func() {
		c.err = natsgo.ErrConnectionClosed
		err := p.PublishTurn(context.Background(), event)
		Expect(errors.Is(err, natsgo.ErrConnectionClosed)).To(BeTrue())
	})

	It("closes the connection even when the flush fails", func() {
		c.flushErr = natsgo.ErrTimeout
		Expect(p.Close()).To(MatchError(ContainSubstring("flushing")))
		Expect(c.closed).To(BeTrue())
	})
})
