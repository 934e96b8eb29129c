// Package askcmder provides the ask command, a one-shot question to a RAG
// workspace.
package askcmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/papercomputeco/aisearch/cmd/aisearch/sessionflags"
	"github.com/papercomputeco/aisearch/pkg/cliui"
	"github.com/papercomputeco/aisearch/pkg/config"
	"github.com/papercomputeco/aisearch/pkg/conversation"
	"github.com/papercomputeco/aisearch/pkg/eventstream"
	"github.com/papercomputeco/aisearch/pkg/logger"
	"github.com/papercomputeco/aisearch/pkg/session"
)

// ErrNotFinished is returned when the answer did not complete.
var ErrNotFinished = errors.New("answer did not finish")

type askCommander struct {
	flags     sessionflags.Values
	cfg       *config.Config
	configDir string
	plain     bool
	jsonOut   bool
	debug     bool

	out io.Writer
}

const askLongDesc string = `Ask a single question and print the streamed answer and its citations.

The command exits non-zero when the answer does not finish, for example
because the backend failed, aborted, or closed the stream early.

With --json the finished turn is printed as a turn event document instead,
the same document published to the configured event stream.

Examples:
  aisearch ask "How do I reset my password?"
  aisearch ask --workspace docs --json "What is the refund policy?"`

const askShortDesc string = "Ask one question and print the answer"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.cfg, err = sessionflags.Resolve(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()

			return cmder.run(cmd.Context(), strings.Join(args, " "))
		},
	}

	sessionflags.Register(cmd, &cmder.flags)
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Print raw answer text instead of rendering markdown")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the finished turn as JSON")

	return cmd
}

func (c *askCommander) run(ctx context.Context, question string) error {
	log := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithWriter(os.Stderr),
	)

	rec, _, err := sessionflags.OpenRecording(c.flags.Record, c.configDir, time.Now())
	if err != nil {
		return err
	}
	opts := session.Options{Config: c.cfg, Logger: log}
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
			log.Warn("closing session", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	updates := s.Reducer.Observe(gctx)

	if !c.jsonOut {
		renderer := cliui.NewRenderer(c.out,
			cliui.WithMarkdown(isTerminal(c.out) && !c.plain),
		)
		g.Go(func() error {
			for st := range updates {
				if err := renderer.Render(st); err != nil {
					return fmt.Errorf("rendering answer: %w", err)
				}
			}
			return nil
		})
	}

	if !s.Reducer.Submit(question) {
		_ = s.Reducer.Close()
		_ = g.Wait()
		return errors.New("question is empty")
	}
	s.Reducer.Wait()
	_ = s.Reducer.Close()
	if err := g.Wait(); err != nil {
		return err
	}

	final := s.Reducer.State()
	if final.Status.Phase != conversation.PhaseFinished {
		if final.LastError != "" {
			return fmt.Errorf("%w: %s", ErrNotFinished, final.LastError)
		}
		return ErrNotFinished
	}

	if c.jsonOut {
		event, ok := eventstream.NewTurnFinishedEvent(eventstream.TurnOrigin{
			SessionID: s.ID,
			Workspace: c.cfg.Backend.Workspace,
		}, final, time.Now())
		if !ok {
			return ErrNotFinished
		}
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(event)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
