package session_test

import (
	"bytes"
	"context"
	"net"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aisearch/pkg/config"
	"github.com/papercomputeco/aisearch/pkg/conversation"
	"github.com/papercomputeco/aisearch/pkg/eventstream"
	"github.com/papercomputeco/aisearch/pkg/mockserver"
	"github.com/papercomputeco/aisearch/pkg/rag"
	"github.com/papercomputeco/aisearch/pkg/session"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []*eventstream.TurnFinishedEvent
	closed bool
}

func (p *capturePublisher) PublishTurn(_ context.Context, event *eventstream.TurnFinishedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func startMock(script mockserver.Script) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())

	s := mockserver.New(mockserver.Config{Script: script}, nil)
	go func() {
		defer GinkgoRecover()
		_ = s.RunWithListener(ln)
	}()
	DeferCleanup(s.Close)

	return "http://" + ln.Addr().String()
}

var _ = Describe("Session", func() {
	var (
		cfg *config.Config
		pub *capturePublisher
	)

	BeforeEach(func() {
		cfg = config.NewDefaultConfig()
		cfg.Backend.Workspace = "dev"
		pub = &capturePublisher{}
	})

	It("runs a turn against the backend and publishes it on close", func() {
		cfg.Backend.URL = startMock(mockserver.Script{
			Deltas:  []string{"Hello", " there"},
			Sources: []rag.Source{{Title: "guide.pdf", Text: "<document_metadata>x</document_metadata>body"}},
		})

		var rec bytes.Buffer
		s, err := session.New(context.Background(), session.Options{
			Config:    cfg,
			Publisher: pub,
			Recorder:  &rec,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.ID).NotTo(BeEmpty())

		Expect(s.Reducer.Submit("Hi")).To(BeTrue())
		s.Reducer.Wait()

		state := s.Reducer.State()
		Expect(state.Status.Phase).To(Equal(conversation.PhaseFinished))
		Expect(state.Transcript).To(Equal([]conversation.DisplayMessage{
			conversation.TextMessage{Text: "Hi", FromUser: true},
			conversation.TextMessage{Text: "Hello there"},
			conversation.SourcesMessage{Sources: []conversation.Source{{Title: "guide.pdf", BodyText: "body"}}},
		}))

		Expect(s.Close(context.Background())).To(Succeed())
		Expect(pub.closed).To(BeTrue())
		Expect(pub.events).To(HaveLen(1))
		Expect(pub.events[0].SessionID).To(Equal(s.ID))
		Expect(pub.events[0].Workspace).To(Equal("dev"))
		Expect(pub.events[0].Question).To(Equal("Hi"))
		Expect(pub.events[0].Answer).To(Equal("Hello there"))

		Expect(rec.String()).To(ContainSubstring(`"textResponse":"Hello"`))
	})

	It("surfaces backend failures in the state", func() {
		cfg.Backend.URL = startMock(mockserver.Script{Status: 500})

		s, err := session.New(context.Background(), session.Options{Config: cfg, Publisher: pub})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(s.Close(context.Background())).To(Succeed()) })

		Expect(s.Reducer.Submit("Hi")).To(BeTrue())
		s.Reducer.Wait()

		state := s.Reducer.State()
		Expect(state.Status.Phase).To(Equal(conversation.PhaseIdle))
		Expect(state.LastError).To(ContainSubstring("500"))
	})

	It("requires a config", func() {
		_, err := session.New(context.Background(), session.Options{})
		Expect(err).To(MatchError("session requires a config"))
	})

	It("rejects an unknown framing", func() {
		cfg.Backend.Framing = "ndjson"
		_, err := session.New(context.Background(), session.Options{Config: cfg, Publisher: pub})
		Expect(err).To(MatchError(ContainSubstring("unknown framing")))
	})

	It("rejects an invalid backend URL", func() {
		cfg.Backend.URL = "not a url"
		_, err := session.New(context.Background(), session.Options{Config: cfg, Publisher: pub})
		Expect(err).To(HaveOccurred())
	})
})
