// Package api wires configured components for the service entrypoints.
package api

import (
	"context"
	"fmt"

	"ai-interview-evaluator/internal/config"
	"ai-interview-evaluator/internal/service/local"
	"ai-interview-evaluator/internal/service/remote"
	"ai-interview-evaluator/internal/service/scoring"
)

// BuildTranscriber selects the remote transcription provider from config.
func BuildTranscriber(ctx context.Context, cfg *config.Configuration) (remote.ChunkTranscriber, error) {
	switch cfg.Remote.Provider {
	case "openai", "":
		return remote.NewOpenAITranscriber(
			cfg.Remote.OpenAIKey,
			remote.WithOpenAIBaseURL(cfg.Remote.OpenAIBaseURL),
			remote.WithOpenAIModel(cfg.Remote.OpenAIModel),
		), nil
	case "google":
		return remote.NewGoogleTranscriber(ctx)
	default:
		return nil, fmt.Errorf("unknown remote provider %q", cfg.Remote.Provider)
	}
}

// BuildFallback wraps the provider in the chunked fallback.
func BuildFallback(ctx context.Context, cfg *config.Configuration) (*remote.Fallback, error) {
	t, err := BuildTranscriber(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return remote.NewFallback(t, cfg.Remote.ChunkSizeBytes), nil
}

// BuildScorer constructs the verdict engine.
func BuildScorer(cfg *config.Configuration) *scoring.Engine {
	return scoring.NewEngine(
		cfg.Scoring.APIKey,
		scoring.WithBaseURL(cfg.Scoring.BaseURL),
		scoring.WithModel(cfg.Scoring.Model),
	)
}

// BuildLocalEngine constructs the local engine over the whisper sidecar.
func BuildLocalEngine(cfg *config.Configuration) *local.Engine {
	rec := local.NewWhisperRecognizer(local.WhisperConfig{
		URL:     cfg.Local.WhisperURL,
		Model:   cfg.Local.Model,
		Timeout: cfg.Local.RequestTimeout,
	})
	return local.New(rec)
}
