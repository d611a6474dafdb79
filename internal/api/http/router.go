// Package http exposes the evaluation service over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"ai-interview-evaluator/internal/events"
	"ai-interview-evaluator/internal/models"
	"ai-interview-evaluator/internal/rubric"
	"ai-interview-evaluator/internal/service/remote"
	"ai-interview-evaluator/internal/service/scoring"
)

// Transcriber is the slice of the remote provider the transcribe endpoint
// needs. Each request carries exactly one chunk; the client owns the chunk
// loop and transcript assembly.
type Transcriber interface {
	TranscribeChunk(ctx context.Context, chunk []byte, filename, language string) (string, error)
}

// Scorer is the slice of the scoring engine the analyze endpoint needs.
type Scorer interface {
	Score(ctx context.Context, transcript, language, rubricVersion string) (*scoring.Verdict, error)
}

// Handlers bundles the dependencies behind the HTTP boundary.
type Handlers struct {
	Transcriber Transcriber
	Scorer      Scorer
	Publisher   *events.Publisher
	// ChunkCeiling is the largest accepted upload per transcribe request.
	// Zero selects remote.DefaultChunkSize.
	ChunkCeiling int64
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(h *Handlers) http.Handler {
	if h.ChunkCeiling <= 0 {
		h.ChunkCeiling = remote.DefaultChunkSize
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/transcribe", h.transcribe)
		r.Post("/analyze", h.analyze)
	})

	return r
}

func (h *Handlers) transcribe(w http.ResponseWriter, r *http.Request) {
	// One extra byte past the ceiling turns into a clean 413 below.
	r.Body = http.MaxBytesReader(w, r.Body, h.ChunkCeiling+(10<<10))
	if err := r.ParseMultipartForm(h.ChunkCeiling); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes per request", h.ChunkCeiling))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.ChunkCeiling+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload failed")
		return
	}
	if int64(len(data)) > h.ChunkCeiling {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes per request", h.ChunkCeiling))
		return
	}

	language := r.FormValue("language")
	if language == "" {
		language = rubric.LangSpanish
	}

	text, err := h.Transcriber.TranscribeChunk(r.Context(), data, header.Filename, language)
	if err != nil {
		log.Error().Err(err).Str("component", "api").Str("filename", header.Filename).Msg("Chunk transcription failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

type analyzeRequest struct {
	Transcript    string `json:"transcript"`
	Language      string `json:"language"`
	RubricVersion string `json:"rubricVersion"`
}

func (h *Handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Transcript == "" {
		writeError(w, http.StatusBadRequest, "transcript is required")
		return
	}
	if req.Language == "" {
		req.Language = rubric.LangSpanish
	}

	verdict, err := h.Scorer.Score(r.Context(), req.Transcript, req.Language, req.RubricVersion)
	if err != nil {
		var mv *scoring.MalformedVerdictError
		if errors.As(err, &mv) {
			// The raw reply stays in the logs; the response carries only
			// the parse error.
			log.Error().Str("component", "api").Str("raw_prefix", mv.RawPrefix).Msg("Model returned a malformed verdict")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error":   "model returned a malformed verdict",
				"details": mv.Err.Error(),
			})
			return
		}
		log.Error().Err(err).Str("component", "api").Msg("Scoring failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.publishVerdict(r, req, verdict)
	writeJSON(w, http.StatusOK, verdict)
}

func (h *Handlers) publishVerdict(r *http.Request, req analyzeRequest, v *scoring.Verdict) {
	if h.Publisher == nil {
		return
	}
	sessionId := uuid.NewString()
	event := models.VerdictReady{
		EventType:      "verdict.ready",
		SessionID:      sessionId,
		RubricVersion:  v.RubricVersion,
		Language:       req.Language,
		Timestamp:      time.Now().UnixMilli(),
		OverallScore:   v.OverallScore,
		Classification: v.Classification,
	}
	if err := h.Publisher.PublishVerdict(r.Context(), sessionId, event); err != nil {
		log.Error().Err(err).Str("component", "api").Msg("Failed to publish verdict event")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
