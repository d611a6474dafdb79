// Package local provides the on-device transcription engine. It runs speech
// recognition without any metered external call, so routine use costs the
// user nothing.
//
// The engine is a long-lived worker: callers submit one audio buffer and
// receive a stream of progress events back. Communication is strictly
// message-passing; ownership of the sample buffer transfers to the engine on
// submission and the caller must not touch it afterward.
package local

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ai-interview-evaluator/internal/audio"
	"ai-interview-evaluator/internal/observability/metrics"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Window geometry: long recordings are split into fixed windows with overlap
// so a single file never exceeds the model's native context. Texts from
// overlapping regions are stitched as-is, without deduplication.
const (
	WindowSeconds  = 30
	OverlapSeconds = 5

	windowSamples = WindowSeconds * audio.TargetSampleRate
	strideSamples = (WindowSeconds - OverlapSeconds) * audio.TargetSampleRate
)

// Status tags for engine events, mirroring the worker wire protocol.
type Status string

const (
	StatusProgress Status = "progress" // model load progress, Percent set
	StatusUpdate   Status = "update"   // partial result, Text + Percent set
	StatusComplete Status = "complete" // terminal, Text is the full transcript
	StatusError    Status = "error"    // terminal, Error set
)

// Event is one message from the engine to its caller. For any single
// transcription the stream is: zero or more progress events (cold start
// only), zero or more updates, then exactly one terminal event.
type Event struct {
	Status  Status  `json:"status"`
	Percent float64 `json:"percent,omitempty"`
	Text    string  `json:"text,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// Terminal reports whether no further events will follow this one.
func (e Event) Terminal() bool {
	return e.Status == StatusComplete || e.Status == StatusError
}

// Recognizer is the opaque speech model behind the engine. Implementations
// must be safe for use from the engine's worker goroutine.
type Recognizer interface {
	// Load initializes the model, reporting progress in [0,100].
	// Called at most once per process lifetime.
	Load(ctx context.Context, onProgress func(percent float64)) error

	// Recognize transcribes one mono 16 kHz window.
	Recognize(ctx context.Context, samples []float32, language string) (string, error)

	// Close releases the model.
	Close() error
}

// Engine errors.
var (
	ErrTranscriptionInFlight = errors.New("local engine: transcription already in flight")
	ErrEngineTerminated      = errors.New("local engine: terminated")
)

type job struct {
	ctx      context.Context
	samples  []float32
	language string
	events   chan Event
}

// Engine owns a Recognizer and serializes transcriptions through a single
// worker goroutine. At most one transcription is in flight at a time.
type Engine struct {
	rec     Recognizer
	metrics *metrics.Metrics
	logger  zerolog.Logger

	loadOnce sync.Once
	loadErr  error

	mu         sync.Mutex
	busy       bool
	terminated bool

	jobs chan job
	done chan struct{}
}

// New creates the engine and starts its worker goroutine. The recognizer's
// model is not loaded until the first transcription arrives.
func New(rec Recognizer) *Engine {
	e := &Engine{
		rec:     rec,
		metrics: metrics.DefaultMetrics,
		logger:  log.With().Str("component", "local-engine").Logger(),
		jobs:    make(chan job, 1),
		done:    make(chan struct{}),
	}
	go e.loop()
	return e
}

// Transcribe submits one sample buffer and returns the event stream for it.
// The buffer is moved into the engine: the caller must not read it after
// this call. A second submission before the first completes is rejected with
// ErrTranscriptionInFlight.
func (e *Engine) Transcribe(ctx context.Context, sample *audio.AudioSample, language string) (<-chan Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.terminated {
		return nil, ErrEngineTerminated
	}
	if e.busy {
		return nil, ErrTranscriptionInFlight
	}
	e.busy = true

	events := make(chan Event, 16)
	e.jobs <- job{ctx: ctx, samples: sample.Samples(), language: language, events: events}
	return events, nil
}

// Terminate stops the worker and releases the model. The engine cannot be
// reused afterward; model teardown never happens implicitly.
func (e *Engine) Terminate() error {
	e.mu.Lock()
	if e.terminated {
		e.mu.Unlock()
		return nil
	}
	e.terminated = true
	e.mu.Unlock()

	close(e.jobs)
	<-e.done
	return e.rec.Close()
}

func (e *Engine) loop() {
	defer close(e.done)
	for j := range e.jobs {
		e.run(j)
		e.mu.Lock()
		e.busy = false
		e.mu.Unlock()
	}
}

func (e *Engine) run(j job) {
	defer close(j.events)

	// Model loads at most once per process; the cost is amortized across
	// calls. A warm engine emits no progress events.
	cold := false
	e.loadOnce.Do(func() {
		cold = true
		e.metrics.RecordModelLoad()
		e.loadErr = e.rec.Load(j.ctx, func(percent float64) {
			e.emit(j, Event{Status: StatusProgress, Percent: percent})
		})
	})
	if e.loadErr != nil {
		if cold {
			e.logger.Error().Err(e.loadErr).Msg("Speech model load failed")
		}
		e.emit(j, Event{Status: StatusError, Error: fmt.Sprintf("model load: %v", e.loadErr)})
		return
	}

	total := windowCount(len(j.samples))
	texts := make([]string, 0, total)

	for i := 0; i < total; i++ {
		if err := j.ctx.Err(); err != nil {
			e.emit(j, Event{Status: StatusError, Error: err.Error()})
			return
		}

		start := i * strideSamples
		end := start + windowSamples
		if end > len(j.samples) {
			end = len(j.samples)
		}

		text, err := e.rec.Recognize(j.ctx, j.samples[start:end], j.language)
		if err != nil {
			e.logger.Error().Err(err).Int("window", i).Msg("Window recognition failed")
			e.emit(j, Event{Status: StatusError, Error: err.Error()})
			return
		}
		if t := strings.TrimSpace(text); t != "" {
			texts = append(texts, t)
		}

		e.emit(j, Event{
			Status:  StatusUpdate,
			Text:    strings.TrimSpace(text),
			Percent: float64(i+1) / float64(total) * 100,
		})
	}

	e.emit(j, Event{Status: StatusComplete, Text: strings.Join(texts, " ")})
}

// emit delivers an event unless the caller has gone away.
func (e *Engine) emit(j job, ev Event) {
	select {
	case j.events <- ev:
	case <-j.ctx.Done():
	}
}

// windowCount returns how many overlapping windows cover n samples.
func windowCount(n int) int {
	if n <= windowSamples {
		return 1
	}
	// First window covers windowSamples; each further stride adds
	// strideSamples of new audio.
	return 1 + (n-windowSamples+strideSamples-1)/strideSamples
}
