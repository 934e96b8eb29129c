// Package redis appends turn events to a Redis stream.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/papercomputeco/aisearch/pkg/eventstream"
	"github.com/papercomputeco/aisearch/pkg/logger"
)

// DefaultStream is used when no stream key is configured.
const DefaultStream = "aisearch:turns"

// DefaultMaxLen caps the stream length. Trimming is approximate.
const DefaultMaxLen = 10000

const dialTimeout = 5 * time.Second

// Config is the Redis publisher configuration.
type Config struct {
	// Target is a redis:// URL or a bare host:port address.
	Target string

	// Stream is the stream key events are appended to.
	Stream string

	// MaxLen caps the stream length. Zero uses DefaultMaxLen.
	MaxLen int64
}

// client is the subset of *goredis.Client the publisher uses.
type client interface {
	XAdd(ctx context.Context, a *goredis.XAddArgs) *goredis.StringCmd
	Close() error
}

// Publisher appends turn events as stream entries.
type Publisher struct {
	client client
	stream string
	maxLen int64
	logger *slog.Logger
}

// NewPublisher connects to Redis and checks the connection with a ping.
func NewPublisher(cfg Config, log *slog.Logger) (*Publisher, error) {
	target := strings.TrimSpace(cfg.Target)
	if target == "" {
		return nil, errors.New("redis publisher requires a target address")
	}

	opts, err := options(target)
	if err != nil {
		return nil, err
	}

	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newPublisher(rdb, cfg, log), nil
}

func options(target string) (*goredis.Options, error) {
	if strings.Contains(target, "://") {
		opts, err := goredis.ParseURL(target)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		return opts, nil
	}
	return &goredis.Options{Addr: target, DialTimeout: dialTimeout}, nil
}

func newPublisher(c client, cfg Config, log *slog.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = DefaultMaxLen
	}
	return &Publisher{client: c, stream: cfg.Stream, maxLen: cfg.MaxLen, logger: log}
}

// PublishTurn appends event to the stream. The entry carries the event id,
// type and session id as fields next to the JSON payload so consumers can
// filter without decoding it.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnFinishedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	id, err := p.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_id":   event.EventID,
			"event_type": event.EventType,
			"session_id": event.SessionID,
			"payload":    payload,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}

	p.logger.Debug("turn event published",
		"backend", "redis",
		"stream", p.stream,
		"entry_id", id,
		"event_id", event.EventID,
	)
	return nil
}

// Close closes the client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
