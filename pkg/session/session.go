// Package session assembles one conversation from resolved configuration:
// the backend client, the conversation reducer, tracing and the turn event
// pipeline. Commands create a Session, drive its Reducer and Close it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/papercomputeco/aisearch/pkg/client"
	"github.com/papercomputeco/aisearch/pkg/config"
	"github.com/papercomputeco/aisearch/pkg/conversation"
	"github.com/papercomputeco/aisearch/pkg/eventstream"
	"github.com/papercomputeco/aisearch/pkg/eventstream/publisher"
	"github.com/papercomputeco/aisearch/pkg/eventstream/relay"
	"github.com/papercomputeco/aisearch/pkg/eventstream/worker"
	"github.com/papercomputeco/aisearch/pkg/logger"
	"github.com/papercomputeco/aisearch/pkg/observability"
	"github.com/papercomputeco/aisearch/pkg/stream"
)

// Options configures New.
type Options struct {
	// Config is the effective configuration. Required.
	Config *config.Config

	// Logger receives component logs. A nil logger discards output.
	Logger *slog.Logger

	// Recorder, when set, receives every raw response line.
	Recorder io.Writer

	// TraceWriter receives stdout exporter spans. Defaults to os.Stderr.
	TraceWriter io.Writer

	// Publisher overrides the configured event stream publisher.
	Publisher eventstream.Publisher

	// ClientOptions are appended to the client options built from Config.
	ClientOptions []client.Option
}

// Session is a running conversation with its supporting services.
type Session struct {
	// ID identifies this session in published turn events.
	ID string

	Client  *client.Client
	Reducer *conversation.Reducer

	logger        *slog.Logger
	cancel        context.CancelFunc
	publisher     eventstream.Publisher
	pool          *worker.Pool
	relayDone     chan struct{}
	stopTracing   observability.Shutdown
	enqueuedTurns int
}

// New starts a session. Cancelling ctx abandons any in-flight turn; Close
// must still be called to release resources.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, errors.New("session requires a config")
	}
	cfg := opts.Config

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	framing, err := stream.ParseFraming(cfg.Backend.Framing)
	if err != nil {
		return nil, err
	}

	stopTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Exporter: cfg.Tracing.Exporter,
		Endpoint: cfg.Tracing.Endpoint,
		Writer:   opts.TraceWriter,
		Logger:   log,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	s := &Session{
		ID:          uuid.NewString(),
		logger:      log,
		stopTracing: stopTracing,
		relayDone:   make(chan struct{}),
	}

	clientOpts := []client.Option{client.WithLogger(log)}
	if opts.Recorder != nil {
		clientOpts = append(clientOpts, client.WithRecorder(opts.Recorder))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	s.Client, err = client.New(client.Config{
		BaseURL:     cfg.Backend.URL,
		Workspace:   cfg.Backend.Workspace,
		Mode:        cfg.Backend.Mode,
		Framing:     framing,
		MaxLineSize: int(cfg.Backend.MaxLineSize),
	}, clientOpts...)
	if err != nil {
		_ = stopTracing(context.WithoutCancel(ctx))
		return nil, err
	}

	s.publisher = opts.Publisher
	if s.publisher == nil {
		s.publisher, err = publisher.New(publisher.Config{
			Provider: cfg.EventStream.Provider,
			Target:   cfg.EventStream.Target,
			Topic:    cfg.EventStream.Topic,
		}, log)
		if err != nil {
			_ = stopTracing(context.WithoutCancel(ctx))
			return nil, err
		}
	}

	s.pool, err = worker.NewPool(&worker.Config{
		Publisher: s.publisher,
		Logger:    log,
	})
	if err != nil {
		_ = s.publisher.Close()
		_ = stopTracing(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("creating event worker pool: %w", err)
	}

	var runCtx context.Context
	runCtx, s.cancel = context.WithCancel(ctx)

	s.Reducer = conversation.New(s.Client,
		conversation.WithLogger(log),
		conversation.WithContext(runCtx),
	)

	rl := relay.New(eventstream.TurnOrigin{
		SessionID: s.ID,
		Workspace: cfg.Backend.Workspace,
	}, s.pool, log)

	// The relay subscription is detached from ctx so turns finished just
	// before cancellation are still published; Close ends it.
	updates := s.Reducer.Observe(context.WithoutCancel(ctx))
	go func() {
		defer close(s.relayDone)
		s.enqueuedTurns = rl.Run(context.WithoutCancel(ctx), updates)
	}()

	log.Debug("session started",
		"session_id", s.ID,
		"endpoint", s.Client.Endpoint(),
		"framing", framing.String(),
		"eventstream", cfg.EventStream.Provider,
		"tracing", cfg.Tracing.Exporter,
	)

	return s, nil
}

// Close stops the conversation, drains pending turn events, and shuts down
// publishing and tracing. ctx bounds the tracing flush.
func (s *Session) Close(ctx context.Context) error {
	s.cancel()

	var errs []error
	if err := s.Reducer.Close(); err != nil {
		errs = append(errs, err)
	}
	<-s.relayDone

	s.pool.Close()
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing publisher: %w", err))
	}
	if err := s.stopTracing(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down tracing: %w", err))
	}

	s.logger.Debug("session closed",
		"session_id", s.ID,
		"turn_events", s.enqueuedTurns,
	)
	return errors.Join(errs...)
}
