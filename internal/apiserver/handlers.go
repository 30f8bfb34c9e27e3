package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/revsup/agentd/pkg/agent"
	"github.com/revsup/agentd/pkg/session"
)

// AgentInfo is the public description of an agent
type AgentInfo struct {
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	Status       string `json:"status"`
	Model        string `json:"model"`
	Instruction  string `json:"instruction,omitempty"`
	Description  string `json:"description,omitempty"`
	InternalName string `json:"internal_name,omitempty"`
}

// SessionResponse is a session with its events
type SessionResponse struct {
	ID        string          `json:"id"`
	AppName   string          `json:"app_name"`
	UserID    string          `json:"user_id"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Events    []session.Event `json:"events,omitempty"`
}

// RunRequest is the payload of POST /run
type RunRequest struct {
	AppName    string     `json:"app_name"`
	UserID     string     `json:"user_id"`
	SessionID  string     `json:"session_id"`
	NewMessage NewMessage `json:"new_message"`
}

// NewMessage carries the user turn as a list of parts
type NewMessage struct {
	Role  string        `json:"role"`
	Parts []MessagePart `json:"parts"`
}

// MessagePart is one part of a message; only text parts are supported
type MessagePart struct {
	Text string `json:"text"`
}

// RunResponse is the payload returned by POST /run
type RunResponse struct {
	SessionID string           `json:"session_id"`
	Events    []RunEvent       `json:"events"`
	Usage     agent.TokenUsage `json:"usage"`
}

// RunEvent is one conversation turn produced by a run
type RunEvent struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// handleListApps returns the IDs of all registered agents. Kept for
// compatibility with older clients; /list-agents is the richer endpoint.
func (s *Server) handleListApps(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Names())
}

// handleListAgents returns agent descriptions with display names
func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	agents := s.registry.List()
	infos := make([]AgentInfo, 0, len(agents))
	for _, a := range agents {
		infos = append(infos, AgentInfo{
			Name:         a.ID,
			DisplayName:  a.DisplayName(),
			Status:       "active",
			Model:        a.Model,
			Instruction:  a.Instruction,
			Description:  a.Description,
			InternalName: a.Name,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agents": infos,
		"total":  len(infos),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	app := r.PathValue("app")
	user := r.PathValue("user")

	if _, ok := s.registry.Get(app); !ok {
		writeError(w, http.StatusNotFound, "unknown app: "+app)
		return
	}

	sess, err := s.sessions.Create(r.Context(), app, user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create session")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
		if n, err := s.sessions.Count(r.Context()); err == nil {
			s.metrics.SessionsActive.Set(float64(n))
		}
	}

	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.List(r.Context(), r.PathValue("app"), r.PathValue("user"))
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list sessions")
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	if sess.AppName != r.PathValue("app") || sess.UserID != r.PathValue("user") {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	events, err := s.sessions.Events(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load session events")
		return
	}

	writeJSON(w, http.StatusOK, SessionResponse{
		ID:        sess.ID,
		AppName:   sess.AppName,
		UserID:    sess.UserID,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
		Events:    events,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	err := s.sessions.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	if s.metrics != nil {
		if n, err := s.sessions.Count(r.Context()); err == nil {
			s.metrics.SessionsActive.Set(float64(n))
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleRun executes one user message against an agent within a session
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown() {
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AppName == "" || req.UserID == "" || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "app_name, user_id and session_id are required")
		return
	}

	prompt := joinParts(req.NewMessage.Parts)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "new_message must contain at least one text part")
		return
	}

	a, ok := s.registry.Get(req.AppName)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown app: "+req.AppName)
		return
	}

	sess, err := s.sessions.Get(r.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if sess.AppName != req.AppName || sess.UserID != req.UserID {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	history, err := s.loadHistory(r, req.SessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load session history")
		return
	}

	start := time.Now()
	result, err := s.runner.Run(r.Context(), agent.RunParams{
		Agent:   a,
		Prompt:  prompt,
		History: history,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("agent", a.ID).Msg("Agent run failed")
		if s.metrics != nil {
			s.metrics.AgentRunsTotal.WithLabelValues(a.ID, "error").Inc()
			s.metrics.AgentRunErrorsTotal.WithLabelValues(a.ID, "run_failed").Inc()
		}
		writeError(w, http.StatusInternalServerError, "agent run failed: "+err.Error())
		return
	}

	if s.metrics != nil {
		s.metrics.AgentRunsTotal.WithLabelValues(a.ID, "success").Inc()
		s.metrics.AgentRunDuration.WithLabelValues(a.ID).Observe(time.Since(start).Seconds())
	}

	events := s.persistRun(r, req.SessionID, a, result)

	s.broadcaster.Broadcast("run.completed", map[string]interface{}{
		"app_name":   a.ID,
		"session_id": req.SessionID,
		"response":   result.Response,
	})

	writeJSON(w, http.StatusOK, RunResponse{
		SessionID: req.SessionID,
		Events:    events,
		Usage:     result.Usage,
	})
}

// loadHistory reconstructs the conversation from stored events. Tool
// turns are not persisted, so the history is plain user/assistant text.
func (s *Server) loadHistory(r *http.Request, sessionID string) ([]agent.Message, error) {
	events, err := s.sessions.Events(r.Context(), sessionID)
	if err != nil {
		return nil, err
	}

	history := make([]agent.Message, 0, len(events))
	for _, ev := range events {
		role := "assistant"
		if ev.Author == "user" {
			role = "user"
		}
		history = append(history, agent.Message{Role: role, Content: ev.Content})
	}
	return history, nil
}

// persistRun stores the user turn and the final answer as session events
func (s *Server) persistRun(r *http.Request, sessionID string, a *agent.Agent, result *agent.RunResult) []RunEvent {
	now := time.Now().UTC()
	events := []RunEvent{}

	for _, msg := range result.Messages {
		switch msg.Role {
		case "user":
			if err := s.sessions.AppendEvent(r.Context(), sessionID, "user", msg.Content, nil); err != nil {
				s.logger.Error().Err(err).Msg("Failed to persist user event")
			}
			events = append(events, RunEvent{Author: "user", Content: msg.Content, Timestamp: now})
		case "assistant":
			if msg.Content == "" {
				continue
			}
			meta := map[string]interface{}{"model": a.Model}
			if err := s.sessions.AppendEvent(r.Context(), sessionID, a.ID, msg.Content, meta); err != nil {
				s.logger.Error().Err(err).Msg("Failed to persist assistant event")
			}
			events = append(events, RunEvent{Author: a.ID, Content: msg.Content, Timestamp: now})
		}
	}

	return events
}

func joinParts(parts []MessagePart) string {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}
