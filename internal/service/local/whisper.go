package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"ai-interview-evaluator/internal/audio"

	"github.com/rs/zerolog/log"
)

const (
	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 120 * time.Second
)

var healthPollInterval = 2 * time.Second

// WhisperConfig holds configuration for the faster-whisper sidecar.
type WhisperConfig struct {
	URL     string
	Model   string
	Timeout time.Duration
}

// WhisperRecognizer implements Recognizer against a faster-whisper HTTP
// sidecar running on the local machine. No per-use cost is incurred; the
// sidecar keeps the model resident once loaded.
type WhisperRecognizer struct {
	cfg    WhisperConfig
	client *http.Client
}

// NewWhisperRecognizer creates a recognizer for the configured sidecar.
func NewWhisperRecognizer(cfg WhisperConfig) *WhisperRecognizer {
	if cfg.URL == "" {
		cfg.URL = defaultWhisperURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultWhisperTimeout
	}
	return &WhisperRecognizer{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Load waits for the sidecar to report healthy, which implies the model has
// been fetched and initialized. Progress is coarse: the sidecar does not
// expose byte-level download progress.
func (w *WhisperRecognizer) Load(ctx context.Context, onProgress func(percent float64)) error {
	onProgress(0)

	deadline := time.Now().Add(w.cfg.Timeout)
	for {
		if w.healthy(ctx) {
			onProgress(100)
			log.Debug().Str("component", "whisper-recognizer").Str("url", w.cfg.URL).Msg("Sidecar ready")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("whisper sidecar at %s not ready within %s", w.cfg.URL, w.cfg.Timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthPollInterval):
		}
	}
}

func (w *WhisperRecognizer) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cfg.URL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Recognize sends one window to the sidecar and returns its text.
func (w *WhisperRecognizer) Recognize(ctx context.Context, samples []float32, language string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", "window.wav")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(samples, audio.TargetSampleRate)); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	_ = writer.WriteField("model", w.cfg.Model)
	if language != "" {
		_ = writer.WriteField("language", language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL+"/transcribe", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whisper error (status %d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode whisper response: %w", err)
	}
	return result.Text, nil
}

// Close is a no-op for the sidecar: the model lives in its process.
func (w *WhisperRecognizer) Close() error { return nil }
