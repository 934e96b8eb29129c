// Package chatcmder provides the chat command for interactive streaming chat
// with a RAG workspace.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/papercomputeco/aisearch/cmd/aisearch/sessionflags"
	"github.com/papercomputeco/aisearch/pkg/cliui"
	"github.com/papercomputeco/aisearch/pkg/config"
	"github.com/papercomputeco/aisearch/pkg/conversation"
	"github.com/papercomputeco/aisearch/pkg/logger"
	"github.com/papercomputeco/aisearch/pkg/session"
)

var userPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")

const (
	cmdExit  = "/exit"
	cmdReset = "/reset"
)

type chatCommander struct {
	flags     sessionflags.Values
	cfg       *config.Config
	configDir string
	plain     bool
	logFile   string
	debug     bool

	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

const chatLongDesc string = `Start an interactive chat session with a RAG workspace.

Each line you type is sent to the workspace stream-chat endpoint. The answer
is shown as it streams in, followed by the documents it cites. One question
is answered at a time.

Commands:
  /reset   Abandon the current answer and start over
  /exit    Quit (Ctrl+D also quits)

Examples:
  aisearch chat
  aisearch chat --workspace docs --backend-url http://localhost:3001
  aisearch chat --record --eventstream-provider kafka --eventstream-target localhost:9092`

const chatShortDesc string = "Interactive streaming chat with a RAG workspace"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = sessionflags.Resolve(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()

			return cmder.run(cmd.Context())
		},
	}

	sessionflags.Register(cmd, &cmder.flags)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Stream raw answer text instead of rendering markdown")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append debug logs as JSON lines to this file")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		c.logger = logger.Multi(c.logger, logger.New(
			logger.WithJSON(true),
			logger.WithDebug(true),
			logger.WithWriter(f),
		))
	}

	rec, recPath, err := sessionflags.OpenRecording(c.flags.Record, c.configDir, time.Now())
	if err != nil {
		return err
	}
	opts := session.Options{Config: c.cfg, Logger: c.logger}
	if rec != nil {
		defer rec.Close()
		opts.Recorder = rec
	}

	s, err := session.New(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(context.WithoutCancel(ctx)); err != nil {
			c.logger.Warn("closing session", "error", err)
		}
	}()

	out := &lockedWriter{w: c.out}
	markdown, width := terminalMode(c.out)
	renderer := cliui.NewRenderer(out,
		cliui.WithMarkdown(markdown && !c.plain),
		cliui.WithWidth(width),
	)

	fmt.Fprintf(out, "\n  %s %s\n", cliui.KeyStyle.Render("Endpoint:"), cliui.ValueStyle.Render(s.Client.Endpoint()))
	if recPath != "" {
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render("Recording:"), cliui.DimStyle.Render(recPath))
	}
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /reset abandons an answer, /exit or Ctrl+D quits."))

	g, gctx := errgroup.WithContext(ctx)
	updates := s.Reducer.Observe(gctx)

	g.Go(func() error {
		return c.renderLoop(gctx, renderer, out, updates)
	})
	g.Go(func() error {
		return c.inputLoop(gctx, s.Reducer, out, readLines(gctx, c.in))
	})

	err = g.Wait()
	fmt.Fprintln(out)
	return err
}

// renderLoop renders every snapshot and prints the prompt whenever a turn
// ends. It returns when the reducer closes the channel.
func (c *chatCommander) renderLoop(ctx context.Context, renderer *cliui.Renderer, out io.Writer, updates <-chan conversation.State) error {
	busy := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-updates:
			if !ok {
				return nil
			}
			if err := renderer.Render(st); err != nil {
				return fmt.Errorf("rendering answer: %w", err)
			}

			switch st.Status.Phase {
			case conversation.PhaseLoading, conversation.PhaseAccumulating:
				busy = true
			case conversation.PhaseFinished, conversation.PhaseIdle:
				if busy {
					fmt.Fprint(out, "\n"+userPrompt)
				}
				busy = false
			}
		}
	}
}

// inputLoop submits each line until /exit or end of input. On exit it waits
// for the in-flight answer and closes the reducer so the render loop drains.
func (c *chatCommander) inputLoop(ctx context.Context, r *conversation.Reducer, out io.Writer, lines <-chan lineResult) error {
	fmt.Fprint(out, userPrompt)

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line.text) == cmdExit {
				r.Wait()
				return r.Close()
			}
			if line.err != nil {
				_ = r.Close()
				return fmt.Errorf("reading input: %w", line.err)
			}

			input := strings.TrimSpace(line.text)
			switch {
			case input == "":
				fmt.Fprint(out, userPrompt)

			case input == cmdReset:
				phase := r.State().Status.Phase
				r.Reset()
				if phase != conversation.PhaseLoading && phase != conversation.PhaseAccumulating {
					fmt.Fprint(out, userPrompt)
				}

			case !r.Submit(input):
				fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("Still answering. Wait for the answer or type /reset."))
			}
		}
	}
}

type lineResult struct {
	text string
	err  error
}

// readLines scans in on its own goroutine until ctx is done. A blocked
// terminal read cannot be interrupted, so the goroutine may outlive ctx until
// the next line or the end of the process.
func readLines(ctx context.Context, in io.Reader) <-chan lineResult {
	lines := make(chan lineResult)
	send := func(l lineResult) bool {
		select {
		case lines <- l:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if !send(lineResult{text: scanner.Text()}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			send(lineResult{err: err})
		}
	}()
	return lines
}

// terminalMode reports whether w is a terminal and its width.
func terminalMode(w io.Writer) (bool, int) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, cliui.DefaultWidth
	}

	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return true, cliui.DefaultWidth
	}
	return true, min(width, 120)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
