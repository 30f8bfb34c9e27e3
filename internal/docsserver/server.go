// Package docsserver serves the Scalar API reference and a CORS-enabled
// proxy in front of the agent API server, so browser clients can explore
// and call the API from the documentation UI.
package docsserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/revsup/agentd/internal/metrics"
)

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS, HEAD, PATCH"
	defaultTimeout   = 30 * time.Second
)

// Server is the documentation and proxy server
type Server struct {
	host        string
	port        int
	upstreamURL string
	client      *http.Client
	server      *http.Server
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// Config holds docs server configuration
type Config struct {
	Host        string
	Port        int
	UpstreamURL string
	Timeout     time.Duration
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

// NewServer creates a new docs server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.UpstreamURL == "" {
		return nil, fmt.Errorf("upstream URL is required")
	}
	if _, err := url.Parse(cfg.UpstreamURL); err != nil {
		return nil, fmt.Errorf("invalid upstream URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Server{
		host:        cfg.Host,
		port:        cfg.Port,
		upstreamURL: strings.TrimRight(cfg.UpstreamURL, "/"),
		client:      &http.Client{Timeout: cfg.Timeout},
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}, nil
}

// Handler builds the HTTP handler with all routes registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /scalar", s.handleScalar)
	mux.HandleFunc("GET /openapi-proxy.json", s.handleOpenAPIProxy)
	mux.HandleFunc("/api/", s.handleProxy)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return s.withCORS(mux)
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

	s.logger.Info().
		Str("host", s.host).
		Int("port", s.port).
		Str("upstream", s.upstreamURL).
		Msg("Starting docs server")

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Docs server error")
		}
	}()

	return nil
}

// Stop gracefully stops the docs server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info().Msg("Shutting down docs server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown docs server: %w", err)
	}
	return nil
}

// withCORS adds permissive CORS headers to every response and answers
// preflight requests locally.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w.Header())

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setCORSHeaders(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", "*")
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Agent API Documentation Server",
		"docs":    "/scalar",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
