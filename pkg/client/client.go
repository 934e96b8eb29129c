// Package client talks to a RAG workspace stream-chat endpoint and exposes
// each answer as a lazy chunk sequence.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/papercomputeco/aisearch/pkg/logger"
	"github.com/papercomputeco/aisearch/pkg/rag"
	"github.com/papercomputeco/aisearch/pkg/sse"
	"github.com/papercomputeco/aisearch/pkg/stream"
)

const (
	tracerName = "github.com/papercomputeco/aisearch/pkg/client"
	spanName   = "aisearch.stream_chat"

	// maxErrorBody bounds how much of a failed response is kept for the
	// error message.
	maxErrorBody = 512
)

// Config describes the backend workspace to talk to.
type Config struct {
	// BaseURL is the backend origin, e.g. "https://chat.example.com".
	BaseURL string

	// Workspace is the workspace slug in the endpoint path.
	Workspace string

	// Mode is the chat mode sent with each request, "query" when empty.
	Mode string

	// Framing selects which response lines carry payloads.
	Framing stream.Framing

	// MaxLineSize bounds one response line. Zero keeps the sse default.
	MaxLineSize int
}

// Client streams chat answers from one workspace.
type Client struct {
	endpoint string
	cfg      Config

	httpClient *http.Client
	logger     *slog.Logger
	recorder   io.Writer
	tracer     trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. It should not carry an overall
// timeout since answers stream for as long as the model generates.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder writes every raw response line to w.
func WithRecorder(w io.Writer) Option {
	return func(c *Client) {
		c.recorder = w
	}
}

// WithTracer sets the tracer. Defaults to the global tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New returns a Client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	endpoint, err := Endpoint(cfg.BaseURL, cfg.Workspace)
	if err != nil {
		return nil, err
	}
	if cfg.Mode == "" {
		cfg.Mode = rag.DefaultMode
	}

	c := &Client{
		endpoint:   endpoint,
		cfg:        cfg,
		httpClient: &http.Client{
			// No Timeout: answers stream for as long as the model generates.
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:     logger.Nop(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint builds the stream-chat URL of a workspace.
func Endpoint(baseURL, workspace string) (string, error) {
	if strings.TrimSpace(workspace) == "" {
		return "", errors.New("workspace is required")
	}

	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parsing backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("backend url must be http or https: %q", baseURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("backend url has no host: %q", baseURL)
	}

	return u.JoinPath("api", "workspace", workspace, "stream-chat").String(), nil
}

// Endpoint returns the stream-chat URL this client posts to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Stream sends message and returns its answer as a chunk sequence.
//
// Connection failures and non-2xx responses yield one *stream.TransportError
// and end the sequence. The request is sent when iteration starts and is
// aborted when iteration stops or ctx is cancelled.
func (c *Client) Stream(ctx context.Context, message string) iter.Seq2[rag.Chunk, error] {
	return func(yield func(rag.Chunk, error) bool) {
		ctx, span := c.tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("aisearch.workspace", c.cfg.Workspace),
				attribute.String("aisearch.mode", c.cfg.Mode),
			),
		)
		defer span.End()

		chunks := 0
		fail := func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		resp, err := c.send(ctx, message)
		if err != nil {
			if ctx.Err() == nil {
				fail(err)
				yield(rag.Chunk{}, err)
			}
			return
		}

		opts := []stream.Option{
			stream.WithFraming(c.cfg.Framing),
			stream.WithLogger(c.logger),
		}
		readerOpts := []sse.Option{sse.WithMaxLineSize(c.cfg.MaxLineSize)}
		if c.recorder != nil {
			readerOpts = append(readerOpts, sse.WithTee(c.recorder))
		}
		opts = append(opts, stream.WithReaderOptions(readerOpts...))

		for chunk, err := range stream.Decode(ctx, resp.Body, opts...) {
			if err != nil && stream.IsTransport(err) {
				fail(err)
			}
			if err == nil {
				chunks++
			}
			if !yield(chunk, err) {
				break
			}
		}

		span.SetAttributes(attribute.Int("aisearch.chunks", chunks))
		c.logger.Debug("stream finished",
			"endpoint", c.endpoint,
			"chunks", chunks,
		)
	}
}

// send posts the chat request and returns a response with a 2xx status.
func (c *Client) send(ctx context.Context, message string) (*http.Response, error) {
	body, err := json.Marshal(rag.NewChatRequest(message, c.cfg.Mode))
	if err != nil {
		return nil, &stream.TransportError{Op: "encode", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &stream.TransportError{Op: "send", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// A compressed body is buffered by the transport before the first byte
	// is handed over.
	req.Header.Set("Accept-Encoding", "identity")

	c.logger.Debug("sending chat request",
		"endpoint", c.endpoint,
		"mode", c.cfg.Mode,
		"message_len", len(message),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &stream.TransportError{Op: "send", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		prefix, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &stream.TransportError{
			Op:         "send",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(prefix)),
		}
	}

	return resp, nil
}
