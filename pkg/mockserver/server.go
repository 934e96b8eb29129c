// Package mockserver provides a scripted RAG workspace backend that streams
// stream-chat answers over SSE. It replays recorded streams or synthesizes
// answers from a Script, for local development and transport tests.
package mockserver

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/aisearch/pkg/logger"
	"github.com/papercomputeco/aisearch/pkg/rag"
)

// StreamChatPath is the route the server answers on.
const StreamChatPath = "/api/workspace/:slug/stream-chat"

// Config is the mock server configuration.
type Config struct {
	// ListenAddr is the address Run listens on, e.g. ":3001".
	ListenAddr string

	// Script synthesizes answers when no replay is configured.
	Script Script

	// Replay holds raw recorded response lines, served verbatim.
	Replay []string

	// Delay is slept after each written line.
	Delay time.Duration
}

// Server is the mock backend.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App

	mu     sync.RWMutex
	replay []string
}

// New creates a mock server. A nil logger discards output.
func New(config Config, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: log,
		app:    app,
		replay: config.Replay,
	}

	app.Post(StreamChatPath, s.handleStreamChat)
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	return s
}

// LoadReplay reads a recorded stream file, one raw line per line.
func LoadReplay(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening replay file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading replay file: %w", err)
	}
	return lines, nil
}

// Run starts the server on the configured listen address.
func (s *Server) Run() error {
	s.logger.Info("starting mock backend",
		"listen", s.config.ListenAddr,
		"replay", len(s.replayLines()) > 0,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting mock backend",
		"listen", listener.Addr().String(),
		"replay", len(s.replayLines()) > 0,
	)
	return s.app.Listener(listener)
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.app.Shutdown()
}

// App exposes the fiber app, mostly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetReplay swaps the recorded lines served to later requests. Requests
// already streaming keep their lines.
func (s *Server) SetReplay(lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replay = lines
}

func (s *Server) replayLines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.replay
}

// Handler exposes the server as a net/http handler, e.g. for httptest.
// Responses are buffered whole, so Delay only stretches the total time.
func (s *Server) Handler() http.Handler {
	return adaptor.FiberApp(s.app)
}

func (s *Server) handleStreamChat(c *fiber.Ctx) error {
	var req rag.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "message is required"})
	}

	slug := c.Params("slug")
	s.logger.Debug("stream-chat request",
		"workspace", slug,
		"mode", req.Mode,
		"message_len", len(req.Message),
	)

	lines := s.replayLines()
	if status := s.config.Script.Status; status != 0 && len(lines) == 0 {
		return c.Status(status).JSON(fiber.Map{"error": fmt.Sprintf("workspace %s unavailable", slug)})
	}

	if len(lines) == 0 {
		lines = s.config.Script.Lines(req.Message)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// io.Pipe gives per-line flushing: fasthttp writes each chunk to the
	// socket as soon as the writer hands it over.
	pr, pw := io.Pipe()
	go s.writeLines(pw, lines)
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) writeLines(pw *io.PipeWriter, lines []string) {
	defer pw.Close()

	for _, line := range lines {
		if _, err := io.WriteString(pw, line+"\n"); err != nil {
			s.logger.Debug("client went away", "error", err)
			return
		}
		if s.config.Delay > 0 {
			time.Sleep(s.config.Delay)
		}
	}
}
