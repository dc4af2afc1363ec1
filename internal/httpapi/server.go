// Package httpapi exposes the relay's HTTP surface: the voice and text
// pipelines plus health and metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chapibot/chapi/internal/config"
	"github.com/chapibot/chapi/internal/observability"
	"github.com/chapibot/chapi/internal/pipeline"
)

// Uploads beyond this are a client error; the robot records short clips.
const maxAudioUploadBytes = 32 << 20

// Orchestrator runs the two request pipelines.
type Orchestrator interface {
	Text(ctx context.Context, req pipeline.TextRequest) (string, error)
	Voice(ctx context.Context, req pipeline.VoiceRequest) ([]byte, error)
}

type Server struct {
	cfg          config.Config
	orchestrator Orchestrator
	metrics      *observability.Metrics
}

func New(cfg config.Config, orchestrator Orchestrator, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		metrics:      metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/text", s.handleText)
	r.Post("/api/voice", s.handleVoice)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type textRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type textResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		s.metrics.Requests.WithLabelValues("text", "invalid_input").Inc()
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	reply, err := s.orchestrator.Text(r.Context(), pipeline.TextRequest{
		Message:   req.Message,
		SessionID: req.SessionID,
	})
	if err != nil {
		status, code := errorStatus(err)
		s.metrics.Requests.WithLabelValues("text", code).Inc()
		respondError(w, status, code, err.Error())
		return
	}

	s.metrics.Requests.WithLabelValues("text", "ok").Inc()
	respondJSON(w, http.StatusOK, textResponse{Reply: reply})
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		s.metrics.Requests.WithLabelValues("voice", "invalid_input").Inc()
		respondError(w, http.StatusBadRequest, "invalid_input", "expected multipart form with an audio field")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.metrics.Requests.WithLabelValues("voice", "invalid_input").Inc()
		respondError(w, http.StatusBadRequest, "invalid_input", "missing audio field")
		return
	}
	defer file.Close()

	audioBytes, err := io.ReadAll(file)
	if err != nil {
		s.metrics.Requests.WithLabelValues("voice", "invalid_input").Inc()
		respondError(w, http.StatusBadRequest, "invalid_input", "unreadable audio field")
		return
	}

	replyAudio, err := s.orchestrator.Voice(r.Context(), pipeline.VoiceRequest{
		Audio:     audioBytes,
		Filename:  header.Filename,
		MIMEType:  header.Header.Get("Content-Type"),
		SessionID: strings.TrimSpace(r.FormValue("session_id")),
	})
	if err != nil {
		status, code := errorStatus(err)
		s.metrics.Requests.WithLabelValues("voice", code).Inc()
		respondError(w, status, code, err.Error())
		return
	}

	s.metrics.Requests.WithLabelValues("voice", "ok").Inc()
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", `attachment; filename="reply.wav"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(replyAudio)
}

// errorStatus maps the pipeline error taxonomy to client-visible statuses.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, pipeline.ErrTranscription):
		return http.StatusBadGateway, "transcription_failed"
	case errors.Is(err, pipeline.ErrGeneration):
		return http.StatusBadGateway, "generation_failed"
	case errors.Is(err, pipeline.ErrSynthesis):
		return http.StatusBadGateway, "synthesis_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
