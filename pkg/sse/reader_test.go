package sse

import (
	"bytes"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// readAll drains r and returns every line it produced.
func readAll(r *Reader) []*Line {
	var lines []*Line
	for {
		l, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		if l == nil {
			return lines
		}
		lines = append(lines, l)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

var _ = Describe("Reader", func() {
	Describe("Next", func() {
		Context("with workspace stream-chat framing", func() {
			It("classifies data lines and separators", func() {
				src := strings.NewReader("data: {\"type\":\"textResponseChunk\",\"textResponse\":\"Hi\"}\n\n")
				r := NewReader(src)

				l, err := r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(l.Kind).To(Equal(LineField))
				Expect(l.IsData()).To(BeTrue())
				Expect(l.Value).To(Equal("{\"type\":\"textResponseChunk\",\"textResponse\":\"Hi\"}"))

				l, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(l.Kind).To(Equal(LineBlank))

				l, err = r.Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(l).To(BeNil())
			})

			It("returns one line per data field without joining", func() {
				lines := readAll(NewReader(strings.NewReader("data: one\ndata: two\n\ndata: three\n")))
				var data []string
				for _, l := range lines {
					if l.IsData() {
						data = append(data, l.Value)
					}
				}
				Expect(data).To(Equal([]string{"one", "two", "three"}))
			})

			It("keeps [DONE] as a regular data value", func() {
				lines := readAll(NewReader(strings.NewReader("data: [DONE]\n\n")))
				Expect(lines[0].IsData()).To(BeTrue())
				Expect(lines[0].Value).To(Equal("[DONE]"))
			})
		})

		Context("with SSE comments", func() {
			It("classifies comment lines", func() {
				lines := readAll(NewReader(strings.NewReader(": keep-alive\ndata: hello\n")))
				Expect(lines).To(HaveLen(2))
				Expect(lines[0].Kind).To(Equal(LineComment))
				Expect(lines[0].Value).To(Equal("keep-alive"))
				Expect(lines[1].IsData()).To(BeTrue())
			})
		})

		Context("with field variations", func() {
			It("handles data field with no space after colon", func() {
				lines := readAll(NewReader(strings.NewReader("data:no-space\n")))
				Expect(lines[0].Value).To(Equal("no-space"))
			})

			It("strips only a single leading space", func() {
				lines := readAll(NewReader(strings.NewReader("data:   padded\n")))
				Expect(lines[0].Value).To(Equal("  padded"))
			})

			It("parses other fields", func() {
				lines := readAll(NewReader(strings.NewReader("event: message\nid: 7\nretry: 3000\n")))
				Expect(lines).To(HaveLen(3))
				Expect(lines[0].Field).To(Equal("event"))
				Expect(lines[0].IsData()).To(BeFalse())
				Expect(lines[1].Field).To(Equal("id"))
				Expect(lines[1].Value).To(Equal("7"))
				Expect(lines[2].Field).To(Equal("retry"))
			})

			It("handles field with no colon", func() {
				// A line with no colon is all field name with an empty value.
				lines := readAll(NewReader(strings.NewReader("data\n")))
				Expect(lines[0].Kind).To(Equal(LineField))
				Expect(lines[0].Field).To(Equal("data"))
				Expect(lines[0].HasColon).To(BeFalse())
				Expect(lines[0].IsData()).To(BeFalse())
			})

			It("splits a bare JSON line on its first colon", func() {
				lines := readAll(NewReader(strings.NewReader("{\"type\":\"abort\"}\n")))
				Expect(lines[0].Kind).To(Equal(LineField))
				Expect(lines[0].IsData()).To(BeFalse())
				Expect(lines[0].Raw).To(Equal("{\"type\":\"abort\"}"))
			})
		})

		Context("edge cases", func() {
			It("returns nil on empty input", func() {
				l, err := NewReader(strings.NewReader("")).Next()
				Expect(err).NotTo(HaveOccurred())
				Expect(l).To(BeNil())
			})

			It("returns the last line when the stream ends without a newline", func() {
				lines := readAll(NewReader(strings.NewReader("data: unterminated")))
				Expect(lines).To(HaveLen(1))
				Expect(lines[0].Value).To(Equal("unterminated"))
			})

			It("strips CRLF terminators", func() {
				lines := readAll(NewReader(strings.NewReader("data: windows\r\n\r\n")))
				Expect(lines).To(HaveLen(2))
				Expect(lines[0].Value).To(Equal("windows"))
				Expect(lines[1].Kind).To(Equal(LineBlank))
			})

			It("fails on lines longer than the configured maximum", func() {
				r := NewReader(strings.NewReader("data: "+strings.Repeat("x", 128)+"\n"), WithMaxLineSize(32))
				_, err := r.Next()
				Expect(err).To(HaveOccurred())
			})
		})

		Context("verbatim tee", func() {
			It("forwards every line including separators and comments", func() {
				var dst bytes.Buffer
				input := ": comment\ndata: first\n\ndata: [DONE]\n\n"
				readAll(NewReader(strings.NewReader(input), WithTee(&dst)))
				Expect(dst.String()).To(Equal(input))
			})

			It("surfaces tee write failures", func() {
				r := NewReader(strings.NewReader("data: x\n"), WithTee(failingWriter{}))
				_, err := r.Next()
				Expect(err).To(MatchError("disk full"))
			})
		})
	})
})
