package mockserver_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/aisearch/pkg/mockserver"
	"github.com/papercomputeco/aisearch/pkg/rag"
	"github.com/papercomputeco/aisearch/pkg/stream"
)

func post(s *mockserver.Server, body string) *http.Response {
	req := httptest.NewRequest(http.MethodPost, "/api/workspace/ios/stream-chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

// payloads returns the data payload of every event line in body.
func payloads(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if p, ok := strings.CutPrefix(line, "data: "); ok {
			out = append(out, p)
		}
	}
	return out
}

var _ = Describe("Script", func() {
	It("renders deltas followed by a finalize event", func() {
		script := mockserver.Script{
			Deltas:  []string{"Hello", " World"},
			Sources: []rag.Source{{Title: "doc.pdf", Text: "excerpt"}},
			ChatID:  7,
		}

		lines := script.Lines("Q")
		data := payloads(strings.Join(lines, "\n"))
		Expect(data).To(HaveLen(3))

		first, err := rag.ParseChunk([]byte(data[0]))
		Expect(err).NotTo(HaveOccurred())
		Expect(first.Kind).To(Equal(rag.KindTextDelta))
		Expect(first.TextDelta).To(Equal("Hello"))
		Expect(first.ConversationID).To(HaveValue(Equal(int64(7))))

		last, err := rag.ParseChunk([]byte(data[2]))
		Expect(err).NotTo(HaveOccurred())
		Expect(last.Kind).To(Equal(rag.KindFinalize))
		Expect(last.Closed).To(BeTrue())
		Expect(last.Sources).To(HaveLen(1))
		Expect(last.Metrics).NotTo(BeNil())
	})

	It("echoes the question when no deltas are scripted", func() {
		data := payloads(strings.Join(mockserver.Script{}.Lines("how are you"), "\n"))

		var text strings.Builder
		for _, p := range data {
			c, err := rag.ParseChunk([]byte(p))
			Expect(err).NotTo(HaveOccurred())
			text.WriteString(c.TextDelta)
		}
		Expect(text.String()).To(Equal("You asked: how are you"))
	})

	It("emits bare JSON lines with legacy framing", func() {
		lines := mockserver.Script{Deltas: []string{"x"}, Framing: stream.FramingLegacy}.Lines("Q")
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]).To(HavePrefix("{"))
	})

	It("injects a malformed line and an abort", func() {
		lines := mockserver.Script{Deltas: []string{"a", "b"}, Malformed: true, Abort: "model offline"}.Lines("Q")
		data := payloads(strings.Join(lines, "\n"))
		Expect(data).To(HaveLen(4))

		_, err := rag.ParseChunk([]byte(data[1]))
		Expect(err).To(HaveOccurred())

		abort, err := rag.ParseChunk([]byte(data[3]))
		Expect(err).NotTo(HaveOccurred())
		Expect(abort.Kind).To(Equal(rag.KindAbort))
		Expect(abort.ErrorText).To(Equal("model offline"))
	})

	It("can omit the finalize event", func() {
		data := payloads(strings.Join(mockserver.Script{Deltas: []string{"a"}, SkipFinalize: true}.Lines("Q"), "\n"))
		Expect(data).To(HaveLen(1))
	})
})

var _ = Describe("Server", func() {
	It("streams a scripted answer as server-sent events", func() {
		s := mockserver.New(mockserver.Config{Script: mockserver.Script{Deltas: []string{"Hi"}}}, nil)

		resp := post(s, `{"message":"Q","mode":"query"}`)
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(payloads(string(body))).To(HaveLen(2))
	})

	It("rejects an empty message", func() {
		s := mockserver.New(mockserver.Config{}, nil)

		resp := post(s, `{"message":"  "}`)
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("fails with the scripted status", func() {
		s := mockserver.New(mockserver.Config{Script: mockserver.Script{Status: http.StatusServiceUnavailable}}, nil)

		resp := post(s, `{"message":"Q"}`)
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
	})

	It("replays a recorded stream verbatim", func() {
		recorded := ": ping\n\ndata: {\"type\":\"textResponseChunk\",\"textResponse\":\"replayed\"}\n\n"
		path := filepath.Join(GinkgoT().TempDir(), "answer.sse")
		Expect(os.WriteFile(path, []byte(recorded), 0o600)).To(Succeed())

		replay, err := mockserver.LoadReplay(path)
		Expect(err).NotTo(HaveOccurred())

		s := mockserver.New(mockserver.Config{Replay: replay}, nil)
		resp := post(s, `{"message":"Q"}`)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal(recorded))
	})

	It("reports a missing replay file", func() {
		_, err := mockserver.LoadReplay(filepath.Join(GinkgoT().TempDir(), "missing.sse"))
		Expect(err).To(MatchError(ContainSubstring("opening replay file")))
	})

	It("serves swapped replay lines to later requests", func() {
		s := mockserver.New(mockserver.Config{Replay: []string{"data: first"}}, nil)
		s.SetReplay([]string{"data: second"})

		resp := post(s, `{"message":"Q"}`)
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal("data: second\n"))
	})

	It("reloads a watched replay file when it changes", func() {
		path := filepath.Join(GinkgoT().TempDir(), "answer.sse")
		Expect(os.WriteFile(path, []byte("data: old\n"), 0o600)).To(Succeed())

		replay, err := mockserver.LoadReplay(path)
		Expect(err).NotTo(HaveOccurred())
		s := mockserver.New(mockserver.Config{Replay: replay}, nil)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- s.WatchReplay(ctx, path)
		}()

		Eventually(func() string {
			Expect(os.WriteFile(path, []byte("data: new\n"), 0o600)).To(Succeed())
			resp := post(s, `{"message":"Q"}`)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			return string(body)
		}).Should(Equal("data: new\n"))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	})
})
