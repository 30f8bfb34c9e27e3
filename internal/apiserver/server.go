// Package apiserver exposes the agent runtime over HTTP: agent listing,
// session management, run execution and a websocket event stream.
package apiserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/revsup/agentd/internal/metrics"
	"github.com/revsup/agentd/pkg/agent"
	"github.com/revsup/agentd/pkg/session"
)

// Server is the agent API server
type Server struct {
	host           string
	port           int
	sharedSecret   string
	server         *http.Server
	upgrader       websocket.Upgrader
	registry       *agent.Registry
	runner         *agent.Runner
	sessions       *session.Store
	metrics        *metrics.Metrics
	broadcaster    *Broadcaster
	logger         zerolog.Logger
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	SharedSecret string
	Registry     *agent.Registry
	Runner       *agent.Runner
	Sessions     *session.Store
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
}

// NewServer creates a new API server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("agent registry is required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("agent runner is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}

	s := &Server{
		host:         cfg.Host,
		port:         cfg.Port,
		sharedSecret: cfg.SharedSecret,
		registry:     cfg.Registry,
		runner:       cfg.Runner,
		sessions:     cfg.Sessions,
		metrics:      cfg.Metrics,
		broadcaster:  NewBroadcaster(cfg.Logger),
		logger:       cfg.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	return s, nil
}

// Handler builds the HTTP handler with all routes registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /list-apps", s.handleListApps)
	mux.HandleFunc("GET /list-agents", s.handleListAgents)
	mux.HandleFunc("GET /openapi.json", s.handleOpenAPI)

	mux.HandleFunc("POST /apps/{app}/users/{user}/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /apps/{app}/users/{user}/sessions", s.handleListSessions)
	mux.HandleFunc("GET /apps/{app}/users/{user}/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /apps/{app}/users/{user}/sessions/{id}", s.handleDeleteSession)

	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return s.withLogging(mux)
}

// Start binds the listen address and begins serving. Binding happens
// synchronously so a port clash is reported to the caller.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	s.logger.Info().Str("host", s.host).Int("port", s.port).Msg("Starting agent API server")

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()

	return nil
}

// Stop gracefully stops the API server
func (s *Server) Stop() error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	s.logger.Info().Msg("Shutting down agent API server")

	s.broadcaster.Broadcast("server.shutdown", map[string]interface{}{
		"message": "Server is shutting down",
	})

	// Wait for in-flight requests with timeout
	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All in-flight requests completed")
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	s.broadcaster.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	s.logger.Info().Msg("Agent API server stopped")
	return nil
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShuttingDown
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWebSocket upgrades the connection and registers it with the
// broadcaster. Clients only receive events; inbound messages are ignored.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	if s.sharedSecret != "" {
		secret := r.Header.Get("X-Agentd-Secret")
		if secret == "" {
			secret = r.URL.Query().Get("secret")
		}
		if secret != s.sharedSecret {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	client := s.broadcaster.Add(conn, r.RemoteAddr)

	go func() {
		defer s.broadcaster.Remove(client.ID)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
