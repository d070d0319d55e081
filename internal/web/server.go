// Package web exposes the assistant over HTTP: a WebSocket endpoint for
// text commands plus the health probes and the Prometheus metrics scrape.
//
// Clients connect to GET /ws and send JSON frames of the form
// {"command": "..."}. Each frame is dispatched synchronously and the
// response is written back on the same connection, so replies always
// reach the surface that issued the command. WebSocket commands bypass
// the voice queue; backpressure is per-connection.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/asterbyte/jarvis/pkg/types"
)

const (
	// maxFrameBytes caps inbound command frames. Commands are short
	// utterances; anything larger is a protocol violation.
	maxFrameBytes = 16 * 1024

	// writeTimeout bounds a single response write so one stalled client
	// cannot pin its handler goroutine.
	writeTimeout = 10 * time.Second
)

// Dispatcher processes one command and always produces a response.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg types.CommandMessage) types.Response
}

// commandFrame is the inbound wire format.
type commandFrame struct {
	Command string `json:"command"`
}

// responseFrame is the outbound wire format.
type responseFrame struct {
	Text       string         `json:"text"`
	Action     string         `json:"action,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
}

// errorFrame reports a protocol-level problem without closing the
// connection.
type errorFrame struct {
	Error string `json:"error"`
}

// Server serves the WebSocket command endpoint and the operational
// endpoints. Safe for concurrent use.
type Server struct {
	dispatcher Dispatcher
	health     http.Handler
	metrics    http.Handler
	onClients  func(delta int64)
	now        func() time.Time
}

// Option is a functional option for configuring a Server.
type Option func(*Server)

// WithHealth mounts h under /healthz and /readyz. h should be a mux the
// health handler registered itself on, or any handler serving those
// paths.
func WithHealth(h http.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics mounts h under GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithClientCounter installs a callback invoked with +1 when a client
// connects and -1 when it disconnects. Used to feed the active-clients
// gauge.
func WithClientCounter(fn func(delta int64)) Option {
	return func(s *Server) { s.onClients = fn }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server dispatching inbound commands through d.
func New(d Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the HTTP handler serving /ws and the mounted
// operational endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	if s.health != nil {
		mux.Handle("GET /healthz", s.health)
		mux.Handle("GET /readyz", s.health)
	}
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// handleWS upgrades the connection and serves command frames until the
// client disconnects or the request context ends.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxFrameBytes)

	if s.onClients != nil {
		s.onClients(1)
		defer s.onClients(-1)
	}

	slog.Info("web client connected", "remote", r.RemoteAddr)
	ctx := r.Context()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				slog.Info("web client disconnected", "remote", r.RemoteAddr)
			} else {
				slog.Warn("websocket read failed", "remote", r.RemoteAddr, "error", err)
			}
			return
		}

		var frame commandFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.writeFrame(ctx, conn, errorFrame{Error: "invalid frame: expected {\"command\": ...}"})
			continue
		}
		if frame.Command == "" {
			s.writeFrame(ctx, conn, errorFrame{Error: "command must not be empty"})
			continue
		}

		resp := s.dispatcher.Dispatch(ctx, types.CommandMessage{
			Text:      frame.Command,
			Source:    types.SourceWeb,
			Timestamp: s.now(),
		})

		s.writeFrame(ctx, conn, responseFrame{
			Text:       resp.Text,
			Action:     resp.Action,
			Data:       resp.Data,
			Confidence: resp.Confidence,
			Timestamp:  resp.Timestamp,
		})
	}
}

// writeFrame sends v as a JSON text frame under the write timeout.
// Write failures end the connection on the next read.
func (s *Server) writeFrame(ctx context.Context, conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode response frame", "error", err)
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := conn.Write(wctx, websocket.MessageText, data); err != nil {
		slog.Warn("websocket write failed", "error", err)
	}
}
