// Package nats publishes turn events to a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/papercomputeco/aisearch/pkg/eventstream"
	"github.com/papercomputeco/aisearch/pkg/logger"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "aisearch.turn.finished"

const flushTimeout = 2 * time.Second

// Config is the NATS publisher configuration.
type Config struct {
	// URL is the server URL, e.g. "nats://localhost:4222".
	URL string

	// Subject receives the events.
	Subject string

	// Token authenticates the connection when set.
	Token string
}

// conn is the subset of *natsgo.Conn the publisher uses.
type conn interface {
	PublishMsg(msg *natsgo.Msg) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// Publisher publishes turn events as JSON messages.
type Publisher struct {
	conn    conn
	subject string
	logger  *slog.Logger
}

// NewPublisher connects to NATS. The connection retries in the background,
// so an unreachable server does not fail construction; messages published
// meanwhile are buffered.
func NewPublisher(cfg Config, log *slog.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats publisher requires a server url")
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if log == nil {
		log = logger.Nop()
	}

	opts := []natsgo.Option{
		natsgo.Name("aisearch"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(60),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", "error", err)
			}
		}),
		natsgo.ReconnectHandler(func(_ *natsgo.Conn) {
			log.Info("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, natsgo.Token(cfg.Token))
	}

	nc, err := natsgo.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return newPublisher(nc, cfg.Subject, log), nil
}

func newPublisher(c conn, subject string, log *slog.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{conn: c, subject: subject, logger: log}
}

// PublishTurn publishes event on the configured subject. The event id is set
// as Nats-Msg-Id so JetStream can deduplicate redeliveries.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnFinishedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	msg := natsgo.NewMsg(p.subject)
	msg.Data = payload
	msg.Header.Set(natsgo.MsgIdHdr, event.EventID)
	msg.Header.Set("Aisearch-Event-Type", event.EventType)

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}

	p.logger.Debug("turn event published",
		"backend", "nats",
		"subject", p.subject,
		"event_id", event.EventID,
	)
	return nil
}

// Close flushes buffered messages and closes the connection.
func (p *Publisher) Close() error {
	err := p.conn.FlushTimeout(flushTimeout)
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("flushing nats connection: %w", err)
	}
	return nil
}
