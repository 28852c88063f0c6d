// Package web serves a small dashboard for the conversation loop: the
// current status, the persisted conversation, Prometheus metrics and a
// websocket feed of assistant events.
package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-clawd/pkg/assistant"
	"github.com/teslashibe/go-clawd/pkg/hub"
	"github.com/teslashibe/go-clawd/pkg/memory"
)

// State is what the loop is doing, as far as the dashboard can tell.
type State string

const (
	StateListening State = "listening"
	StateThinking  State = "thinking"
	StateSpeaking  State = "speaking"
)

// Status is the dashboard view of the loop.
type Status struct {
	State          State             `json:"state"`
	Turns          int               `json:"turns"`
	Failures       int               `json:"failures"`
	LastTranscript string            `json:"last_transcript"`
	LastReply      string            `json:"last_reply"`
	LastError      string            `json:"last_error,omitempty"`
	LastOutcome    assistant.Outcome `json:"last_outcome,omitempty"`
	HistoryTurns   int               `json:"history_turns"`
	Clients        int               `json:"clients"`
	StartedAt      time.Time         `json:"started_at"`
	Uptime         string            `json:"uptime"`
}

// EventMessage is the websocket encoding of an assistant event.
type EventMessage struct {
	Kind      assistant.EventKind `json:"kind"`
	Text      string              `json:"text,omitempty"`
	Error     string              `json:"error,omitempty"`
	LatencyMs int64               `json:"latency_ms"`
	Outcome   assistant.Outcome   `json:"outcome,omitempty"`
	History   int                 `json:"history,omitempty"`
	Time      string              `json:"time"`
}

// Server is the dashboard server.
type Server struct {
	app    *fiber.App
	addr   string
	store  *memory.Store
	events *hub.Hub
	logger *slog.Logger

	mu     sync.RWMutex
	status Status
}

// Option configures a Server.
type Option func(*serverOptions)

type serverOptions struct {
	metrics http.Handler
	logger  *slog.Logger
	backlog int
}

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(o *serverOptions) {
		o.metrics = h
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// WithBacklog sets how many recent events a new websocket client receives.
func WithBacklog(n int) Option {
	return func(o *serverOptions) {
		o.backlog = n
	}
}

// NewServer creates a dashboard listening on addr (e.g. ":8080") that reads
// the conversation from store.
func NewServer(addr string, store *memory.Store, opts ...Option) *Server {
	o := serverOptions{logger: slog.Default(), backlog: 20}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		addr:   addr,
		store:  store,
		logger: o.logger.With("component", "web"),
		events: hub.New("events", hub.WithLogger(o.logger), hub.WithBacklog(o.backlog)),
		status: Status{State: StateListening, StartedAt: time.Now()},
	}

	app := fiber.New(fiber.Config{
		AppName:               "clawd",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/conversation", s.handleConversation)

	if o.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(o.metrics))
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the event hub.
func (s *Server) Hub() *hub.Hub {
	return s.events
}

// Serve runs the event hub and serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.events.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listener(ln) }()

	s.logger.Info("dashboard listening", "addr", ln.Addr().String())
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.app.ShutdownWithTimeout(5 * time.Second)
	}
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Observe updates the status and forwards the event to websocket clients.
func (s *Server) Observe(e assistant.Event) {
	s.mu.Lock()
	switch e.Kind {
	case assistant.KindListen:
		if e.Text != "" {
			s.status.State = StateThinking
			s.status.LastTranscript = e.Text
		}
	case assistant.KindChat:
		s.status.State = StateSpeaking
		s.status.LastReply = e.Text
		if e.History > 0 {
			s.status.HistoryTurns = e.History
		}
	case assistant.KindTurn:
		s.status.State = StateListening
		if e.Outcome != assistant.OutcomeEmpty {
			s.status.Turns++
			s.status.LastOutcome = e.Outcome
		}
		if e.Outcome == assistant.OutcomeFailed {
			s.status.Failures++
		}
	}
	if e.Err != nil {
		s.status.LastError = e.Err.Error()
	}
	s.mu.Unlock()

	msg := EventMessage{
		Kind:      e.Kind,
		Text:      e.Text,
		Error:     e.Error(),
		LatencyMs: e.Latency.Milliseconds(),
		Outcome:   e.Outcome,
		History:   e.History,
		Time:      e.Time.Format(time.RFC3339),
	}
	if err := s.events.BroadcastJSON(msg); err != nil {
		s.logger.Warn("failed to encode event", "error", err)
	}
}

// Status returns a snapshot of the dashboard status.
func (s *Server) Status() Status {
	s.mu.RLock()
	st := s.status
	s.mu.RUnlock()

	st.Clients = s.events.ClientCount()
	st.Uptime = time.Since(st.StartedAt).Round(time.Second).String()
	return st
}

var _ assistant.Observer = (*Server)(nil)
