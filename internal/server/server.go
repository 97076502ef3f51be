// Package server exposes the Reflections HTTP surface: the WebSocket voice
// session endpoint, the REST helpers around it (greeting, voice listing),
// health probes, and the Prometheus metrics scrape endpoint.
package server

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reflections-ai/reflections/internal/health"
	"github.com/reflections-ai/reflections/internal/observe"
	"github.com/reflections-ai/reflections/internal/session"
	"github.com/reflections-ai/reflections/internal/transport"
	"github.com/reflections-ai/reflections/pkg/memory"
	"github.com/reflections-ai/reflections/pkg/provider/embeddings"
	"github.com/reflections-ai/reflections/pkg/provider/llm"
	"github.com/reflections-ai/reflections/pkg/provider/stt"
	"github.com/reflections-ai/reflections/pkg/provider/tts"
)

// Providers are the backends shared by every session and REST handler. Any
// field may be nil; sessions degrade to stub behaviour and REST handlers
// answer with fallbacks instead of failing.
type Providers struct {
	STT        stt.Transcriber
	LLM        llm.Provider
	TTS        tts.Provider
	Embeddings embeddings.Provider
	Log        memory.ConversationLog
	Index      memory.SemanticIndex
}

// Config assembles a Server.
type Config struct {
	// Session is the per-session tuning baseline. Identity fields
	// (UserID, AvatarID, SessionID) are filled per connection.
	Session session.Config

	// Providers are the shared backends.
	Providers Providers

	// Metrics may be nil, disabling instrumentation.
	Metrics *observe.Metrics

	// Checkers feed the /readyz probe.
	Checkers []health.Checker

	// InsecureOriginPatterns, when set, relaxes the WebSocket origin check.
	// Intended for development setups where the web client is served from a
	// different host than the API.
	InsecureOriginPatterns []string
}

// Server routes HTTP traffic to voice sessions and the REST surface.
type Server struct {
	cfg     Config
	log     *slog.Logger
	handler http.Handler
}

// New builds a Server and its route table.
func New(cfg Config) *Server {
	s := &Server{
		cfg: cfg,
		log: slog.Default().With("component", "server"),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the fully assembled root handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// routes builds the route table. The WebSocket endpoint is mounted on the
// outer mux, outside the observability middleware: the middleware's response
// recorder does not implement http.Hijacker, which the WebSocket upgrade
// requires. REST routes go through the middleware as usual.
func (s *Server) routes() http.Handler {
	rest := http.NewServeMux()
	rest.HandleFunc("POST /v1/voice/greet", s.handleGreet)
	rest.HandleFunc("GET /v1/voice/voices", s.handleVoices)
	rest.Handle("GET /metrics", promhttp.Handler())
	health.New(s.cfg.Checkers...).Register(rest)

	var restHandler http.Handler = rest
	if s.cfg.Metrics != nil {
		restHandler = observe.Middleware(s.cfg.Metrics)(rest)
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /ws/voice", s.handleVoice)
	root.Handle("/", restHandler)
	return root
}

// handleVoice upgrades the connection and runs one voice session on it until
// the peer disconnects. Session identity comes from query parameters; the
// session ID is assigned here and returned in the close reason on failure.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	opts := &websocket.AcceptOptions{}
	if len(s.cfg.InsecureOriginPatterns) > 0 {
		opts.OriginPatterns = s.cfg.InsecureOriginPatterns
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.log.Debug("websocket accept failed", "error", err)
		return
	}

	cfg := s.cfg.Session
	cfg.SessionID = uuid.NewString()
	cfg.UserID = r.URL.Query().Get("user_id")
	cfg.AvatarID = r.URL.Query().Get("avatar_id")
	if v := r.URL.Query().Get("voice"); v != "" {
		cfg.Voice = v
	}

	s.log.Info("voice session accepted",
		"session_id", cfg.SessionID,
		"user_id", cfg.UserID,
		"avatar_id", cfg.AvatarID,
		"remote", r.RemoteAddr,
	)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.ActiveSessions.Add(r.Context(), 1)
		defer s.cfg.Metrics.ActiveSessions.Add(r.Context(), -1)
	}

	ctrl := session.New(transport.NewWebSocket(conn), cfg, session.Collaborators{
		STT:        s.cfg.Providers.STT,
		LLM:        s.cfg.Providers.LLM,
		TTS:        s.cfg.Providers.TTS,
		Embeddings: s.cfg.Providers.Embeddings,
		Log:        s.cfg.Providers.Log,
		Index:      s.cfg.Providers.Index,
	}, s.cfg.Metrics)

	if err := ctrl.Run(r.Context()); err != nil {
		s.log.Warn("voice session ended with error", "session_id", cfg.SessionID, "error", err)
	}
}
