package scan

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
)

// Server exposes the pipeline over HTTP. One handler per variant plus a
// health probe; /metrics is registered by main.
type Server struct {
	Pipeline *Pipeline
}

func NewServer(p *Pipeline) *Server {
	return &Server{Pipeline: p}
}

type emailRequest struct {
	Email string `json:"email"`
}

type urlRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleEmail serves POST /check/email.
func (s *Server) HandleEmail(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	identifier := strings.TrimSpace(req.Email)
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	log.Printf("[API] evaluating email %q", identifier)
	result := s.Pipeline.EvaluateEmail(r.Context(), identifier)
	writeJSON(w, result)
	log.Printf("[API] email %q -> %s (%s)", identifier, result.Verdict, result.VerdictSource)
}

// HandleURL serves POST /check/url.
func (s *Server) HandleURL(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	identifier := strings.TrimSpace(req.URL)
	if identifier == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}

	log.Printf("[API] evaluating url %q", identifier)
	result := s.Pipeline.EvaluateURL(r.Context(), identifier)
	writeJSON(w, result)
	log.Printf("[API] url %q -> %s (%s)", identifier, result.Verdict, result.VerdictSource)
}

// HandleHealth serves GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	writeJSON(w, map[string]string{"status": "ok"})
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
