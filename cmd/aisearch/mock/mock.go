// Package mockcmder provides the mock command, a local scripted RAG backend.
package mockcmder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aisearch/pkg/config"
	"github.com/papercomputeco/aisearch/pkg/dotdir"
	"github.com/papercomputeco/aisearch/pkg/logger"
	"github.com/papercomputeco/aisearch/pkg/mockserver"
	"github.com/papercomputeco/aisearch/pkg/stream"
)

// replayLatest selects the most recent recording in .aisearch/recordings/.
const replayLatest = "latest"

type mockCommander struct {
	listen    string
	replay    string
	watch     bool
	framing   string
	delay     time.Duration
	malformed bool
	abort     string
	status    int
	configDir string
	debug     bool
}

const mockLongDesc string = `Run a mock RAG workspace backend.

The mock answers POST /api/workspace/<slug>/stream-chat with a streamed
answer. By default it echoes the question back word by word, then sends a
finalize event. With --replay it serves a recorded raw stream verbatim
instead ("aisearch chat --record" writes such recordings). With --watch the
replay file is reloaded whenever it changes.

Examples:
  aisearch mock
  aisearch mock --listen :4000 --delay 50ms
  aisearch mock --replay latest
  aisearch mock --replay answer.sse --watch
  aisearch mock --malformed --framing legacy`

const mockShortDesc string = "Run a mock RAG workspace backend"

func NewMockCmd() *cobra.Command {
	cmder := &mockCommander{}

	cmd := &cobra.Command{
		Use:   "mock",
		Short: mockShortDesc,
		Long:  mockLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagMockListen,
				config.FlagFraming,
			})

			cfg := config.FromViper(v)
			cmder.listen = cfg.Mock.Listen
			cmder.framing = cfg.Backend.Framing
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagMockListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagFraming, &cmder.framing)
	cmd.Flags().StringVar(&cmder.replay, "replay", "", `Recorded stream file to serve, or "latest"`)
	cmd.Flags().BoolVar(&cmder.watch, "watch", false, "Reload the --replay file whenever it changes")
	cmd.Flags().DurationVar(&cmder.delay, "delay", 0, "Pause after each streamed line (e.g. 50ms)")
	cmd.Flags().BoolVar(&cmder.malformed, "malformed", false, "Inject an undecodable line after the first delta")
	cmd.Flags().StringVar(&cmder.abort, "abort", "", "End each answer with a backend abort carrying this error")
	cmd.Flags().IntVar(&cmder.status, "status", 0, "Fail every request with this HTTP status")

	return cmd
}

func (c *mockCommander) run(ctx context.Context) error {
	log := logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(true),
		logger.WithPrefix("mock"),
	)

	serverCfg, replayPath, err := c.serverConfig()
	if err != nil {
		return err
	}

	server := mockserver.New(serverCfg, log)

	if c.watch {
		go func() {
			if err := server.WatchReplay(ctx, replayPath); err != nil {
				log.Error("watching replay file", "error", err)
			}
		}()
	}

	stop := context.AfterFunc(ctx, func() {
		if err := server.Close(); err != nil {
			log.Warn("shutting down mock backend", "error", err)
		}
	})
	defer stop()

	return server.Run()
}

// serverConfig builds the server configuration and returns the resolved
// replay path, empty when answers are scripted.
func (c *mockCommander) serverConfig() (mockserver.Config, string, error) {
	framing, err := stream.ParseFraming(c.framing)
	if err != nil {
		return mockserver.Config{}, "", err
	}
	if c.watch && c.replay == "" {
		return mockserver.Config{}, "", errors.New("--watch requires --replay")
	}

	cfg := mockserver.Config{
		ListenAddr: c.listen,
		Delay:      c.delay,
		Script: mockserver.Script{
			Framing:   framing,
			Malformed: c.malformed,
			Abort:     c.abort,
			Status:    c.status,
		},
	}

	if c.replay == "" {
		return cfg, "", nil
	}

	path := c.replay
	if path == replayLatest {
		path, err = dotdir.NewManager().LatestRecording(c.configDir)
		if err != nil {
			return mockserver.Config{}, "", fmt.Errorf("resolving latest recording: %w", err)
		}
	}

	cfg.Replay, err = mockserver.LoadReplay(path)
	if err != nil {
		return mockserver.Config{}, "", err
	}
	return cfg, path, nil
}
