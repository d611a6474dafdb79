package config

import (
	"os"
	"testing"
	"time"
)

var configEnvVars = []string{
	"SERVICE_PRINCIPAL", "HTTP_PORT", "ENV",
	"WHISPER_URL", "WHISPER_MODEL", "WHISPER_REQUEST_TIMEOUT", "LOCAL_ATTEMPT_TIMEOUT",
	"REMOTE_PROVIDER", "REMOTE_CHUNK_SIZE_BYTES", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_TRANSCRIBE_MODEL",
	"SCORING_API_KEY", "SCORING_BASE_URL", "SCORING_MODEL",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_TRANSCRIPT", "KAFKA_TOPIC_VERDICT",
	"LOG_LEVEL", "METRICS_PORT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range configEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "svc-interview-evaluator" {
		t.Errorf("expected default principal 'svc-interview-evaluator', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default port '8080', got %s", cfg.Service.HTTPPort)
	}

	if cfg.Local.WhisperURL != "http://localhost:8387" {
		t.Errorf("expected default whisper URL, got %s", cfg.Local.WhisperURL)
	}
	if cfg.Local.Model != "base" {
		t.Errorf("expected default model 'base', got %s", cfg.Local.Model)
	}
	if cfg.Local.AttemptTimeout != 600*time.Second {
		t.Errorf("expected default attempt timeout 600s, got %v", cfg.Local.AttemptTimeout)
	}

	if cfg.Remote.Provider != "openai" {
		t.Errorf("expected default provider 'openai', got %s", cfg.Remote.Provider)
	}
	if cfg.Remote.ChunkSizeBytes != 20*1024*1024 {
		t.Errorf("expected default chunk size 20MiB, got %d", cfg.Remote.ChunkSizeBytes)
	}

	if cfg.Scoring.Model != "gpt-4o" {
		t.Errorf("expected default scoring model 'gpt-4o', got %s", cfg.Scoring.Model)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.TopicTranscript != "evaluation.transcript.ready" {
		t.Errorf("expected default transcript topic, got %s", cfg.Kafka.TopicTranscript)
	}
	if cfg.Kafka.TopicVerdict != "evaluation.verdict.ready" {
		t.Errorf("expected default verdict topic, got %s", cfg.Kafka.TopicVerdict)
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("expected no default brokers, got %v", cfg.Kafka.Brokers)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("WHISPER_MODEL", "small")
	os.Setenv("LOCAL_ATTEMPT_TIMEOUT", "5m")
	os.Setenv("REMOTE_PROVIDER", "google")
	os.Setenv("REMOTE_CHUNK_SIZE_BYTES", "1048576")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	os.Setenv("SCORING_API_KEY", "sk-scoring")
	defer clearEnv(t)

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.HTTPPort)
	}
	if cfg.Local.Model != "small" {
		t.Errorf("expected model 'small', got %s", cfg.Local.Model)
	}
	if cfg.Local.AttemptTimeout != 5*time.Minute {
		t.Errorf("expected attempt timeout 5m, got %v", cfg.Local.AttemptTimeout)
	}
	if cfg.Remote.Provider != "google" {
		t.Errorf("expected provider 'google', got %s", cfg.Remote.Provider)
	}
	if cfg.Remote.ChunkSizeBytes != 1048576 {
		t.Errorf("expected chunk size 1048576, got %d", cfg.Remote.ChunkSizeBytes)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "k1:9092" || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("expected trimmed broker list, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Scoring.APIKey != "sk-scoring" {
		t.Errorf("expected scoring key override, got %s", cfg.Scoring.APIKey)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	os.Setenv("REMOTE_CHUNK_SIZE_BYTES", "not-a-number")
	os.Setenv("KAFKA_ENABLED", "maybe")
	os.Setenv("LOCAL_ATTEMPT_TIMEOUT", "soon")
	defer clearEnv(t)

	cfg := Load()

	if cfg.Remote.ChunkSizeBytes != 20*1024*1024 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.Remote.ChunkSizeBytes)
	}
	if cfg.Kafka.Enabled {
		t.Error("invalid bool should fall back to default")
	}
	if cfg.Local.AttemptTimeout != 600*time.Second {
		t.Errorf("invalid duration should fall back to default, got %v", cfg.Local.AttemptTimeout)
	}
}

func TestLoad_ScoringKeyFallsBackToOpenAIKey(t *testing.T) {
	clearEnv(t)
	os.Setenv("OPENAI_API_KEY", "sk-shared")
	defer clearEnv(t)

	cfg := Load()
	if cfg.Scoring.APIKey != "sk-shared" {
		t.Errorf("scoring key should default to OPENAI_API_KEY, got %s", cfg.Scoring.APIKey)
	}
	if cfg.Remote.OpenAIKey != "sk-shared" {
		t.Errorf("remote key should be OPENAI_API_KEY, got %s", cfg.Remote.OpenAIKey)
	}
}
