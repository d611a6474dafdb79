// Package remote provides the chunked server-side transcription fallback
// used when local transcription fails or times out. Submissions are metered
// by the provider, so callers must obtain user confirmation before invoking
// this path.
package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-interview-evaluator/internal/observability/metrics"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultChunkSize is 20 MiB: safe margin under the 25 MiB per-request cap
// the hosted transcription service enforces.
const DefaultChunkSize = 20 * 1024 * 1024

// ChunkTranscriber submits one bounded chunk of the original file and
// returns its text fragment.
type ChunkTranscriber interface {
	// Name identifies the provider for logs and config.
	Name() string

	// TranscribeChunk uploads one chunk (always <= the configured ceiling).
	TranscribeChunk(ctx context.Context, chunk []byte, filename, language string) (string, error)
}

// ChunkError reports which chunk broke the fallback operation. There is no
// partial recovery: the caller must restart the whole fallback.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("remote transcription failed at chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Fallback splits a file into fixed-size chunks and submits them strictly
// in order, one at a time.
type Fallback struct {
	transcriber ChunkTranscriber
	chunkSize   int
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewFallback creates a fallback over the given provider. chunkSize <= 0
// selects DefaultChunkSize.
func NewFallback(t ChunkTranscriber, chunkSize int) *Fallback {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Fallback{
		transcriber: t,
		chunkSize:   chunkSize,
		metrics:     metrics.DefaultMetrics,
		logger:      log.With().Str("component", "remote-fallback").Str("provider", t.Name()).Logger(),
	}
}

// ChunkCount returns how many chunks a file of the given size produces.
func (f *Fallback) ChunkCount(size int) int {
	if size == 0 {
		return 0
	}
	return (size + f.chunkSize - 1) / f.chunkSize
}

// Transcribe submits every chunk of data sequentially and concatenates the
// returned fragments with single spaces, in chunk order. onChunk, if set, is
// called after each successful chunk with (completed, total).
//
// Chunks are never submitted in parallel: ordering must be deterministic and
// load on the remote service bounded. Any chunk failure aborts the whole
// operation with a ChunkError; fragments from earlier chunks are discarded.
func (f *Fallback) Transcribe(ctx context.Context, data []byte, filename, language string, onChunk func(completed, total int)) (string, error) {
	total := f.ChunkCount(len(data))
	texts := make([]string, 0, total)

	f.logger.Info().
		Str("filename", filename).
		Int("bytes", len(data)).
		Int("chunks", total).
		Msg("Starting remote fallback transcription")

	for i := 0; i < total; i++ {
		start := i * f.chunkSize
		end := start + f.chunkSize
		if end > len(data) {
			end = len(data)
		}

		begin := time.Now()
		text, err := f.transcriber.TranscribeChunk(ctx, data[start:end], filename, language)
		f.metrics.RecordRemoteChunk(err, time.Since(begin).Seconds())
		if err != nil {
			f.logger.Error().Err(err).Int("chunk", i).Int("chunks", total).Msg("Chunk transcription failed")
			return "", &ChunkError{Index: i, Err: err}
		}

		texts = append(texts, strings.TrimSpace(text))
		if onChunk != nil {
			onChunk(i+1, total)
		}
	}

	return strings.Join(texts, " "), nil
}
