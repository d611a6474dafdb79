package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultWhisperModel  = "whisper-1"
)

// OpenAITranscriber submits chunks to the hosted Whisper transcription
// endpoint as multipart uploads.
type OpenAITranscriber struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// OpenAIOption customizes an OpenAITranscriber.
type OpenAIOption func(*OpenAITranscriber)

// WithOpenAIBaseURL overrides the API base URL, mainly for tests.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(t *OpenAITranscriber) { t.baseURL = url }
}

// WithOpenAIModel overrides the transcription model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(t *OpenAITranscriber) { t.model = model }
}

// WithOpenAIHTTPClient overrides the HTTP client used for uploads.
func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(t *OpenAITranscriber) { t.client = c }
}

// NewOpenAITranscriber creates a transcriber against the hosted Whisper API.
func NewOpenAITranscriber(apiKey string, opts ...OpenAIOption) *OpenAITranscriber {
	t := &OpenAITranscriber{
		apiKey:  apiKey,
		baseURL: defaultOpenAIBaseURL,
		model:   defaultWhisperModel,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *OpenAITranscriber) Name() string { return "openai" }

// TranscribeChunk uploads one chunk and returns its text. The chunk keeps
// the original filename so the service can infer the container format.
func (t *OpenAITranscriber) TranscribeChunk(ctx context.Context, chunk []byte, filename, language string) (string, error) {
	if t.apiKey == "" {
		return "", fmt.Errorf("openai transcription: missing API key")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(chunk); err != nil {
		return "", fmt.Errorf("writing chunk to form: %w", err)
	}
	if err := w.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("writing model field: %w", err)
	}
	if language != "" {
		if err := w.WriteField("language", language); err != nil {
			return "", fmt.Errorf("writing language field: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("building transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling transcription API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("transcription API returned %d: %s", resp.StatusCode, string(detail))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding transcription response: %w", err)
	}
	return out.Text, nil
}
