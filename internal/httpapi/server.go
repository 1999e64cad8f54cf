package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/davigres/alma/internal/brain"
	"github.com/davigres/alma/internal/observability"
	"github.com/davigres/alma/internal/pipeline"
	"github.com/davigres/alma/internal/session"
	"github.com/davigres/alma/internal/voice"
)

// Replier runs one utterance through the reply pipeline.
type Replier interface {
	Reply(ctx context.Context, in pipeline.Input) (pipeline.Result, error)
}

type Server struct {
	engine   Replier
	guardian *session.Guardian
	metrics  *observability.Metrics
}

func New(engine Replier, guardian *session.Guardian, metrics *observability.Metrics) *Server {
	return &Server{
		engine:   engine,
		guardian: guardian,
		metrics:  metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/turns", s.handleTurn)
	r.Post("/v1/session/reset", s.handleReset)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"session_expired": s.guardian.Expired(),
	})
}

type turnRequest struct {
	// Message is the typed utterance. Ignored when Audio is present.
	Message string `json:"message"`
	// Audio is a base64-encoded recording to transcribe.
	Audio    string `json:"audio,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	in := pipeline.Input{Message: req.Message, MimeType: req.MimeType}
	if strings.TrimSpace(req.Audio) != "" {
		raw, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_audio", "audio is not valid base64")
			return
		}
		in.Audio = raw
	}

	res, err := s.engine.Reply(r.Context(), in)
	if err != nil {
		status, code := classifyReplyError(err)
		respondError(w, status, code, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type resetRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "user_request"
	}

	s.guardian.Reset(reason)
	s.metrics.IncSessionEvent("reset")
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "reset",
		"reason": reason,
	})
}

// classifyReplyError maps pipeline sentinels to stable error codes. Stage
// failures from upstream providers are reported as bad-gateway; anything
// unrecognized (persistence included) is an internal error.
func classifyReplyError(err error) (int, string) {
	switch {
	case errors.Is(err, voice.ErrTranscription):
		return http.StatusBadGateway, "transcription_failed"
	case errors.Is(err, brain.ErrGeneration):
		return http.StatusBadGateway, "generation_failed"
	case errors.Is(err, voice.ErrSynthesis):
		return http.StatusBadGateway, "synthesis_failed"
	case errors.Is(err, voice.ErrViseme):
		return http.StatusBadGateway, "viseme_failed"
	default:
		return http.StatusInternalServerError, "reply_failed"
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
