// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configuration holds all service configuration.
type Configuration struct {
	Service       ServiceConfig
	Local         LocalConfig
	Remote        RemoteConfig
	Scoring       ScoringConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig holds process identity and HTTP settings.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
	Env       string
}

// LocalConfig configures the local transcription engine and its model worker.
type LocalConfig struct {
	WhisperURL     string
	Model          string
	RequestTimeout time.Duration
	// AttemptTimeout bounds a whole local transcription attempt before the
	// session moves to the fallback gate.
	AttemptTimeout time.Duration
}

// RemoteConfig configures the chunked remote transcription fallback.
type RemoteConfig struct {
	Provider       string // openai or google
	ChunkSizeBytes int
	OpenAIKey      string
	OpenAIBaseURL  string
	OpenAIModel    string
}

// ScoringConfig configures the verdict engine.
type ScoringConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// KafkaConfig configures event publishing.
type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicTranscript string
	TopicVerdict    string
	Principal       string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string
	MetricsPort string
}

// Load reads configuration from the environment, applying defaults for
// anything unset. A .env file in the working directory is honored when
// present.
func Load() *Configuration {
	_ = godotenv.Load()

	return &Configuration{
		Service: ServiceConfig{
			Principal: envOrDefault("SERVICE_PRINCIPAL", "svc-interview-evaluator"),
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
			Env:       envOrDefault("ENV", "prod"),
		},
		Local: LocalConfig{
			WhisperURL:     envOrDefault("WHISPER_URL", "http://localhost:8387"),
			Model:          envOrDefault("WHISPER_MODEL", "base"),
			RequestTimeout: envOrDefaultDuration("WHISPER_REQUEST_TIMEOUT", 120*time.Second),
			AttemptTimeout: envOrDefaultDuration("LOCAL_ATTEMPT_TIMEOUT", 600*time.Second),
		},
		Remote: RemoteConfig{
			Provider:       envOrDefault("REMOTE_PROVIDER", "openai"),
			ChunkSizeBytes: envOrDefaultInt("REMOTE_CHUNK_SIZE_BYTES", 20*1024*1024),
			OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
			OpenAIBaseURL:  envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIModel:    envOrDefault("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
		},
		Scoring: ScoringConfig{
			APIKey:  envOrDefault("SCORING_API_KEY", os.Getenv("OPENAI_API_KEY")),
			BaseURL: envOrDefault("SCORING_BASE_URL", "https://api.openai.com/v1"),
			Model:   envOrDefault("SCORING_MODEL", "gpt-4o"),
		},
		Kafka: KafkaConfig{
			Enabled:         envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:         splitNonEmpty(envOrDefault("KAFKA_BROKERS", "")),
			TopicTranscript: envOrDefault("KAFKA_TOPIC_TRANSCRIPT", "evaluation.transcript.ready"),
			TopicVerdict:    envOrDefault("KAFKA_TOPIC_VERDICT", "evaluation.verdict.ready"),
			Principal:       envOrDefault("SERVICE_PRINCIPAL", "svc-interview-evaluator"),
		},
		Observability: ObservabilityConfig{
			LogLevel:    envOrDefault("LOG_LEVEL", "info"),
			MetricsPort: envOrDefault("METRICS_PORT", "9090"),
		},
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrDefaultBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
