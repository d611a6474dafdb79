package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"ai-interview-evaluator/internal/observability/metrics"
	"ai-interview-evaluator/internal/rubric"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"

	// scoringTemperature keeps verdicts stable across repeated runs of the
	// same transcript without making them fully deterministic.
	scoringTemperature = 0.3
)

// ErrMissingCredential is returned before any work when no API key is set.
var ErrMissingCredential = errors.New("scoring API key is not configured")

// Engine scores transcripts against a versioned rubric via the chat
// completions API.
type Engine struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	metrics *metrics.Metrics
}

// Option customizes an Engine.
type Option func(*Engine)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(url string) Option {
	return func(e *Engine) { e.baseURL = url }
}

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(e *Engine) { e.model = model }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.client = c }
}

// NewEngine creates a scoring engine.
func NewEngine(apiKey string, opts ...Option) *Engine {
	e := &Engine{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		client:  &http.Client{Timeout: 2 * time.Minute},
		metrics: metrics.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
	Messages       []chatMessage  `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Score evaluates a transcript against the given rubric version (empty
// selects the default). The returned verdict carries the transcript and any
// shape warnings; only a malformed reply or transport failure is an error.
func (e *Engine) Score(ctx context.Context, transcript, language, rubricVersion string) (*Verdict, error) {
	if e.apiKey == "" {
		e.metrics.RecordScoringFailure("missing_credential")
		return nil, ErrMissingCredential
	}

	if rubricVersion == "" {
		rubricVersion = rubric.DefaultVersion
	}
	r, err := rubric.Get(rubricVersion)
	if err != nil {
		e.metrics.RecordScoringFailure("unknown_rubric")
		return nil, err
	}
	prompt, err := rubric.BuildPrompt(r, language)
	if err != nil {
		e.metrics.RecordScoringFailure("unsupported_language")
		return nil, err
	}

	start := time.Now()
	raw, err := e.complete(ctx, prompt, transcript)
	if err != nil {
		e.metrics.RecordScoringFailure("api_error")
		return nil, err
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		e.metrics.RecordScoringFailure("malformed_verdict")
		return nil, err
	}
	e.metrics.RecordScoring(time.Since(start).Seconds())

	verdict.RubricVersion = r.Version
	verdict.Transcript = transcript
	verdict.Warnings = e.validateShape(r, verdict)

	log.Info().
		Str("component", "scoring").
		Str("rubricVersion", r.Version).
		Int("overallScore", verdict.OverallScore).
		Str("classification", verdict.Classification).
		Int("warnings", len(verdict.Warnings)).
		Msg("Transcript scored")

	return verdict, nil
}

func (e *Engine) complete(ctx context.Context, systemPrompt, transcript string) (string, error) {
	reqBody := chatRequest{
		Model:          e.model,
		Temperature:    scoringTemperature,
		ResponseFormat: responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: transcript},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling completion API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion API returned %d: %s", resp.StatusCode, string(detail))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// validateShape checks the verdict against the rubric without rejecting it.
// The verdict stays usable; warnings tell the reader where the model drifted
// from the requested shape.
func (e *Engine) validateShape(r *rubric.Rubric, v *Verdict) []string {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
		e.metrics.RecordVerdictShapeWarning()
	}

	got := make(map[string]struct{}, len(v.Dimensions))
	for key := range v.Dimensions {
		got[key] = struct{}{}
	}
	missing, extra := r.MissingAndExtraKeys(got)
	for _, key := range missing {
		warn("missing dimension %q", key)
	}
	for _, key := range extra {
		warn("unexpected dimension %q", key)
	}

	total := 0
	for _, d := range r.Dimensions {
		ds, ok := v.Dimensions[d.Key]
		if !ok {
			continue
		}
		if ds.Score < d.MinScore || ds.Score > d.MaxScore {
			warn("dimension %q score %d outside [%d,%d]", d.Key, ds.Score, d.MinScore, d.MaxScore)
		}
		total += ds.Score
	}

	if len(missing) == 0 && len(extra) == 0 && total != v.OverallScore {
		warn("overall_score %d does not equal dimension sum %d", v.OverallScore, total)
	}
	if v.OverallScore < 0 || v.OverallScore > r.MaxScore {
		warn("overall_score %d outside [0,%d]", v.OverallScore, r.MaxScore)
	}
	// The legacy output shape never asks for a classification, so its
	// absence is not model drift.
	if v.Classification != "" {
		if expected := r.Classify(v.OverallScore); v.Classification != expected {
			warn("classification %q does not match score band %q", v.Classification, expected)
		}
	}
	return warnings
}
