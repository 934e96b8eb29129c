package cliui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/aisearch/pkg/conversation"
)

// DefaultWidth is the wrap width used when the terminal size is unknown.
const DefaultWidth = 80

const (
	assistantLabel = "assistant> "
	sourceIndent   = "      "
)

// RenderOption configures a Renderer.
type RenderOption func(*Renderer)

// WithMarkdown renders finished answers through glamour instead of streaming
// raw text. While the answer arrives only a progress line is shown.
func WithMarkdown(markdown bool) RenderOption {
	return func(r *Renderer) {
		r.markdown = markdown
	}
}

// WithWidth sets the wrap and truncation width.
func WithWidth(width int) RenderOption {
	return func(r *Renderer) {
		if width > 0 {
			r.width = width
		}
	}
}

// WithColorProfile forces a color profile. termenv.Ascii disables styling.
func WithColorProfile(p termenv.Profile) RenderOption {
	return func(r *Renderer) {
		r.profile = &p
	}
}

// Renderer writes conversation snapshots to a terminal as they are
// published. Each call prints only what changed since the previous snapshot,
// so Render must see every snapshot in order.
type Renderer struct {
	w        io.Writer
	markdown bool
	width    int
	profile  *termenv.Profile

	prompt lipgloss.Style
	dim    lipgloss.Style
	title  lipgloss.Style
	fail   lipgloss.Style

	phase    conversation.Phase
	streamed string
	seen     int
}

// NewRenderer creates a Renderer writing to w. The color profile is
// detected from w unless WithColorProfile is given.
func NewRenderer(w io.Writer, opts ...RenderOption) *Renderer {
	r := &Renderer{
		w:     w,
		width: DefaultWidth,
	}
	for _, opt := range opts {
		opt(r)
	}

	lr := lipgloss.NewRenderer(w)
	if r.profile != nil {
		lr.SetColorProfile(*r.profile)
	}
	r.prompt = lr.NewStyle().Foreground(lipgloss.Color("245"))
	r.dim = lr.NewStyle().Foreground(lipgloss.Color("245"))
	r.title = lr.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	r.fail = lr.NewStyle().Foreground(lipgloss.Color("196"))

	return r
}

// Render prints the difference between s and the previously rendered
// snapshot.
func (r *Renderer) Render(s conversation.State) error {
	var b strings.Builder

	prev := r.phase
	r.phase = s.Status.Phase

	switch s.Status.Phase {
	case conversation.PhaseLoading:
		if prev != conversation.PhaseLoading {
			r.streamed = ""
			r.seen = len(s.Transcript)
			b.WriteString(r.prompt.Render(assistantLabel))
		}

	case conversation.PhaseAccumulating:
		r.writeProgress(&b, s.Status.Text)

	case conversation.PhaseFinished:
		if prev != conversation.PhaseFinished {
			r.writeFinished(&b, s)
		}

	case conversation.PhaseIdle:
		if prev == conversation.PhaseLoading || prev == conversation.PhaseAccumulating {
			r.writeAbandoned(&b, s.LastError)
		}
		r.seen = len(s.Transcript)
		r.streamed = ""
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *Renderer) writeProgress(b *strings.Builder, text string) {
	if r.markdown {
		b.WriteString("\r" + ansi.EraseEntireLine)
		b.WriteString(r.prompt.Render(assistantLabel))
		b.WriteString(r.dim.Render(fmt.Sprintf("receiving answer (%d chars)", utf8.RuneCountInString(text))))
		r.streamed = text
		return
	}

	r.writeRemainder(b, text)
}

// writeRemainder prints the part of text not streamed yet.
func (r *Renderer) writeRemainder(b *strings.Builder, text string) {
	if rest, ok := strings.CutPrefix(text, r.streamed); ok {
		b.WriteString(rest)
	} else {
		b.WriteString("\n" + text)
	}
	r.streamed = text
}

func (r *Renderer) writeFinished(b *strings.Builder, s conversation.State) {
	if r.markdown {
		b.WriteString("\r" + ansi.EraseEntireLine)
	}

	answered := false
	for _, msg := range s.Transcript[min(r.seen, len(s.Transcript)):] {
		switch m := msg.(type) {
		case conversation.TextMessage:
			if m.FromUser {
				continue
			}
			answered = true
			r.writeAnswer(b, m.Text)

		case conversation.SourcesMessage:
			if !answered {
				r.writeEmptyAnswer(b)
				answered = true
			}
			b.WriteString(FormatSources(m.Sources, r.width, r.title, r.dim))
		}
	}
	if !answered {
		r.writeEmptyAnswer(b)
	}

	r.seen = len(s.Transcript)
	r.streamed = ""
}

func (r *Renderer) writeAnswer(b *strings.Builder, text string) {
	if !r.markdown {
		r.writeRemainder(b, text)
		b.WriteString("\n")
		return
	}

	rendered, err := RenderMarkdown(text, r.width)
	if err != nil {
		b.WriteString(r.prompt.Render(assistantLabel))
		b.WriteString(text + "\n")
		return
	}
	b.WriteString(rendered)
}

func (r *Renderer) writeEmptyAnswer(b *strings.Builder) {
	if r.markdown {
		b.WriteString(r.prompt.Render(assistantLabel))
	} else if r.streamed != "" {
		b.WriteString("\n")
	}
	b.WriteString(r.dim.Render("(no answer text)") + "\n")
}

func (r *Renderer) writeAbandoned(b *strings.Builder, lastError string) {
	if r.markdown {
		b.WriteString("\r" + ansi.EraseEntireLine)
	} else {
		b.WriteString("\n")
	}

	if lastError == "" {
		lastError = "turn cancelled"
	}
	b.WriteString(r.fail.Render("✗") + " " + lastError + "\n")
}

// FormatSources renders a numbered citation list. Titles and the first line
// of each body are truncated to width display columns.
func FormatSources(sources []conversation.Source, width int, title, dim lipgloss.Style) string {
	if len(sources) == 0 {
		return ""
	}
	if width <= 0 {
		width = DefaultWidth
	}

	var b strings.Builder
	b.WriteString(dim.Render("Sources:") + "\n")

	for i, src := range sources {
		prefix := fmt.Sprintf("  [%d] ", i+1)
		name := src.Title
		if name == "" {
			name = "(untitled)"
		}
		b.WriteString(prefix + title.Render(truncate(name, width-ansi.StringWidth(prefix))) + "\n")

		if snippet := firstLine(src.BodyText); snippet != "" {
			b.WriteString(sourceIndent + dim.Render(truncate(snippet, width-len(sourceIndent))) + "\n")
		}
	}
	return b.String()
}

func truncate(s string, width int) string {
	if width <= 1 {
		width = 1
	}
	return ansi.Truncate(s, width, "…")
}

func firstLine(s string) string {
	for line := range strings.Lines(s) {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
