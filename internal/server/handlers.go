package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"ai-interviewer/internal/interview"
	"ai-interviewer/internal/protocol"
	"ai-interviewer/internal/resume"
	"ai-interviewer/internal/session"
	"ai-interviewer/internal/store"
)

type startInterviewResponse struct {
	SessionID string                  `json:"session_id"`
	Policy    session.IntegrityPolicy `json:"policy"`
	Snapshot  session.Snapshot        `json:"snapshot"`
	Status    string                  `json:"status"`
}

func (s *Server) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxResumeBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	company := strings.TrimSpace(r.FormValue("company"))
	role := strings.TrimSpace(r.FormValue("role"))
	interviewType := r.FormValue("type")
	if interviewType == "" {
		interviewType = "Technical"
	}
	difficulty := r.FormValue("difficulty")
	if difficulty == "" {
		difficulty = "medium"
	}

	// The intake boundary guarantees non-empty company, role and
	// résumé before a session may be constructed.
	if company == "" || role == "" {
		writeError(w, http.StatusBadRequest, "company and role are required")
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no resume file uploaded")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxResumeBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read resume file")
		return
	}

	resumeText, err := resume.ExtractText(header.Filename, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(resumeText) == "" {
		writeError(w, http.StatusBadRequest, "resume appears to be empty")
		return
	}

	params := interview.Params{
		Company:    company,
		Role:       role,
		Type:       interviewType,
		Difficulty: difficulty,
		Resume:     resumeText,
	}

	c, err := s.manager.CreateSession(r.Context(), params)
	if err != nil {
		log.Printf("❌ failed to start interview: %v", err)
		var startErr *protocol.SessionStartError
		if errors.As(err, &startErr) {
			writeError(w, http.StatusBadGateway, startErr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to start interview")
		return
	}

	writeJSON(w, http.StatusOK, startInterviewResponse{
		SessionID: c.ID(),
		Policy:    session.DefaultIntegrityPolicy(),
		Snapshot:  c.Snapshot(),
		Status:    "Interview started successfully",
	})
}

type turnRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	c := s.manager.Get(req.SessionID)
	if c == nil {
		writeError(w, http.StatusBadRequest, "invalid or expired session")
		return
	}

	s.finishTurn(w, c, c.SubmitAnswer(r.Context(), req.Message))
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := s.manager.Get(req.SessionID)
	if c == nil {
		writeError(w, http.StatusBadRequest, "invalid or expired session")
		return
	}

	s.finishTurn(w, c, c.Skip(r.Context()))
}

func (s *Server) finishTurn(w http.ResponseWriter, c *session.Controller, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, c.Snapshot())
	case errors.Is(err, session.ErrAnswerPending), errors.Is(err, session.ErrNotAwaitingAnswer):
		writeError(w, http.StatusConflict, err.Error())
	default:
		// The turn may be retried; the session state is unchanged.
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func (s *Server) handleEndInterview(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c := s.manager.Get(req.SessionID)
	if c == nil {
		writeError(w, http.StatusBadRequest, "invalid or expired session")
		return
	}

	c.Terminate("ended by the candidate")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Interview ended successfully"})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]

	if c := s.manager.Get(sessionID); c != nil && !c.State().Terminal() {
		snap := c.Snapshot()
		count := 0
		if s.cfg.Progress != nil {
			count, _ = s.cfg.Progress(sessionID)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"active":         true,
			"company":        snap.Params.Company,
			"role":           snap.Params.Role,
			"type":           snap.Params.Type,
			"state":          snap.State,
			"question_count": count,
		})
		return
	}

	if _, err := s.store.Get(r.Context(), sessionID); err == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"active": false})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]interface{}{"active": false})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionID"]

	rec, err := s.store.Get(r.Context(), sessionID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && rec.Result == nil) {
		writeError(w, http.StatusNotFound, "results not available yet")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load results")
		return
	}
	writeJSON(w, http.StatusOK, rec.Result)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
