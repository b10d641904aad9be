package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/edumentor-ai/edumentor/pkg/agent"
	"github.com/edumentor-ai/edumentor/pkg/session"
)

type createSessionRequest struct {
	StudentID string `json:"student_id"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	StudentID string `json:"student_id"`
	Greeting  string `json:"greeting"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	Reply  string       `json:"reply"`
	Intent agent.Intent `json:"intent"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.StudentID) == "" {
		writeError(w, http.StatusBadRequest, "student_id is required")
		return
	}

	sess, greeting, err := s.orch.StartSession(r.Context(), req.StudentID)
	if err != nil {
		s.logger.Error("failed to start session", "student_id", req.StudentID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: sess.ID(),
		StudentID: sess.StudentID(),
		Greeting:  greeting,
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	reply, intent, err := s.orch.Route(r.Context(), sessionID, req.Text)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("failed to route message", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Reply: reply, Intent: intent})
}

func (s *Server) handleSessionStats(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	stats, err := s.orch.Sessions().Stats(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.orch.Sessions().End(r.Context(), sessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.logger.Error("failed to end session", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to end session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	report, err := s.orch.Tracker().AnalyzeProgress(r.Context(), studentID)
	if err != nil {
		s.logger.Error("failed to analyze progress", "student_id", studentID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to analyze progress")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"student_id": studentID,
		"report":     report,
	})
}

func (s *Server) handleMemory(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")

	sc, err := s.orch.Memory().StudentContext(studentID)
	if err != nil {
		s.logger.Error("failed to load student context", "student_id", studentID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load student memory")
		return
	}

	writeJSON(w, http.StatusOK, sc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
