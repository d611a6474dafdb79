package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ai-interview-evaluator/internal/audio"
	"ai-interview-evaluator/internal/events"
	"ai-interview-evaluator/internal/models"
	"ai-interview-evaluator/internal/observability/logging"
	"ai-interview-evaluator/internal/observability/metrics"
	"ai-interview-evaluator/internal/service/local"
)

// DefaultLocalTimeout bounds one local transcription attempt. Past it the
// attempt is abandoned and the session moves to the fallback gate.
const DefaultLocalTimeout = 600 * time.Second

// Source identifies which path produced the transcript.
type Source string

const (
	SourceTextFile Source = "text-file"
	SourceLocal    Source = "local"
	SourceRemote   Source = "remote"
)

// ErrUserCancelled is returned when the user declines the remote fallback.
var ErrUserCancelled = errors.New("user declined remote transcription")

// Input is one uploaded recording (or plain-text transcript).
type Input struct {
	Filename string
	Data     []byte
	Language string
}

// Result is a finished transcription session.
type Result struct {
	SessionID  string
	Transcript string
	Source     Source
	Duration   time.Duration
}

// Progress is a coarse session-level progress update. Percent is monotonic
// within each state but restarts when the session switches paths.
type Progress struct {
	SessionID string
	State     State
	Percent   int
}

// Confirmer decides whether the metered remote fallback may run. It is
// consulted at most once per session.
type Confirmer interface {
	ConfirmRemoteFallback(ctx context.Context, reason string) (bool, error)
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, reason string) (bool, error)

func (f ConfirmerFunc) ConfirmRemoteFallback(ctx context.Context, reason string) (bool, error) {
	return f(ctx, reason)
}

// LocalEngine is the slice of the local engine the orchestrator needs.
type LocalEngine interface {
	Transcribe(ctx context.Context, sample *audio.AudioSample, language string) (<-chan local.Event, error)
}

// RemoteFallback is the slice of the remote fallback the orchestrator needs.
type RemoteFallback interface {
	Transcribe(ctx context.Context, data []byte, filename, language string, onChunk func(completed, total int)) (string, error)
}

// Orchestrator runs evaluation sessions end to end, from upload to assembled
// transcript. It owns path selection, the local attempt timeout, and the
// confirmation gate in front of the remote fallback.
type Orchestrator struct {
	engine     LocalEngine
	fallback   RemoteFallback
	confirmer  Confirmer
	publisher  *events.Publisher
	timeout    time.Duration
	onProgress func(Progress)
	metrics    *metrics.Metrics
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLocalTimeout overrides the local attempt timeout.
func WithLocalTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// WithProgress installs a progress callback. It is invoked synchronously
// from the session goroutine and must not block.
func WithProgress(fn func(Progress)) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

// WithPublisher installs the event publisher for transcript-ready and
// session-failed events.
func WithPublisher(p *events.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// New creates an orchestrator. confirmer may be nil, in which case the
// remote fallback is always declined.
func New(engine LocalEngine, fallback RemoteFallback, confirmer Confirmer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:    engine,
		fallback:  fallback,
		confirmer: confirmer,
		timeout:   DefaultLocalTimeout,
		metrics:   metrics.DefaultMetrics,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run drives one session to completion. On Done it returns the transcript;
// on Cancelled it returns ErrUserCancelled; any other error means Failed.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*Result, error) {
	sessionId := uuid.NewString()
	lc := NewLifecycle(sessionId)
	logger := logging.WithSession(sessionId, in.Language)
	start := time.Now()

	o.metrics.RecordSessionStart()
	logger.Info().Str("filename", in.Filename).Int("bytes", len(in.Data)).Msg("Session started")

	result, err := o.run(ctx, lc, in, logger)

	elapsed := time.Since(start)
	o.metrics.RecordSessionEnd(strings.ToLower(lc.State().String()), elapsed.Seconds())

	if err != nil {
		logger.Error().Err(err).Stringer("state", lc.State()).Dur("elapsed", elapsed).Msg("Session ended without transcript")
		o.publishFailure(ctx, sessionId, lc.State(), err)
		return nil, err
	}

	result.Duration = elapsed
	logger.Info().
		Str("source", string(result.Source)).
		Int("transcriptLen", len(result.Transcript)).
		Dur("elapsed", elapsed).
		Msg("Session completed")
	o.publishTranscript(ctx, in, result)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, lc *Lifecycle, in Input, logger zerolog.Logger) (*Result, error) {
	if err := lc.Transition(StateNormalizing); err != nil {
		return nil, err
	}

	// Plain-text uploads skip transcription entirely.
	if audio.IsTextFile(in.Filename) {
		if err := lc.Transition(StateDone); err != nil {
			return nil, err
		}
		o.emit(lc, 100)
		return &Result{
			SessionID:  lc.SessionId(),
			Transcript: strings.TrimSpace(string(in.Data)),
			Source:     SourceTextFile,
		}, nil
	}

	sample, normErr := audio.Normalize(ctx, in.Data, in.Filename)
	if normErr != nil {
		// The remote path uploads the original bytes, so an undecodable
		// container can still be transcribed there.
		logger.Warn().Err(normErr).Msg("Normalization failed, offering remote fallback")
		return o.runRemote(ctx, lc, in, fmt.Sprintf("could not decode %s locally", in.Filename))
	}

	if err := lc.Transition(StateAttemptingLocal); err != nil {
		return nil, err
	}

	transcript, localErr := o.runLocal(ctx, lc, sample, in.Language, logger)
	if localErr == nil {
		if err := lc.Transition(StateLocalSucceeded); err != nil {
			return nil, err
		}
		if err := lc.Transition(StateAssembling); err != nil {
			return nil, err
		}
		if err := lc.Transition(StateDone); err != nil {
			return nil, err
		}
		o.emit(lc, 100)
		return &Result{SessionID: lc.SessionId(), Transcript: transcript, Source: SourceLocal}, nil
	}
	if errors.Is(localErr, local.ErrTranscriptionInFlight) || errors.Is(localErr, local.ErrEngineTerminated) {
		// Capacity problems are not worth paying for: surface them instead
		// of burning remote credits.
		lc.Transition(StateFailed)
		return nil, localErr
	}
	if ctx.Err() != nil {
		lc.Transition(StateFailed)
		return nil, ctx.Err()
	}

	logger.Warn().Err(localErr).Msg("Local transcription failed, offering remote fallback")
	return o.runRemote(ctx, lc, in, localErr.Error())
}

// runLocal consumes the engine's event stream, mapping its progress into the
// session-level [0,95] range. The local attempt is abandoned after the
// configured timeout.
func (o *Orchestrator) runLocal(ctx context.Context, lc *Lifecycle, sample *audio.AudioSample, language string, logger zerolog.Logger) (string, error) {
	o.metrics.RecordLocalAttempt()

	localCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := o.engine.Transcribe(localCtx, sample, language)
	if err != nil {
		o.metrics.RecordLocalFailure("busy")
		return "", err
	}

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			cancel()
			o.metrics.RecordLocalFailure("timeout")
			logger.Warn().Dur("timeout", o.timeout).Msg("Local transcription timed out")
			return "", fmt.Errorf("local transcription exceeded %s", o.timeout)
		case <-ctx.Done():
			cancel()
			return "", ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				o.metrics.RecordLocalFailure("stream_closed")
				return "", errors.New("local engine closed its event stream without a terminal event")
			}
			switch ev.Status {
			case local.StatusProgress:
				// Model load occupies the first half of the bar.
				o.emit(lc, int(math.Round(ev.Percent*0.5)))
			case local.StatusUpdate:
				p := 50 + int(math.Round(ev.Percent*0.45))
				if p > 95 {
					p = 95
				}
				o.emit(lc, p)
			case local.StatusComplete:
				o.metrics.RecordLocalSuccess()
				return ev.Text, nil
			case local.StatusError:
				o.metrics.RecordLocalFailure("engine_error")
				return "", errors.New(ev.Error)
			}
		}
	}
}

// runRemote asks the user once, then runs the chunked fallback over the
// original upload bytes.
func (o *Orchestrator) runRemote(ctx context.Context, lc *Lifecycle, in Input, reason string) (*Result, error) {
	if err := lc.Transition(StateAwaitingConfirmation); err != nil {
		return nil, err
	}

	accepted := false
	if o.confirmer != nil {
		var err error
		accepted, err = o.confirmer.ConfirmRemoteFallback(ctx, reason)
		if err != nil {
			lc.Transition(StateFailed)
			return nil, fmt.Errorf("confirming remote fallback: %w", err)
		}
	}
	o.metrics.RecordFallbackConfirmation(accepted)

	if !accepted {
		if err := lc.Transition(StateCancelled); err != nil {
			return nil, err
		}
		return nil, ErrUserCancelled
	}

	if err := lc.Transition(StateRemoteFallback); err != nil {
		return nil, err
	}
	if o.fallback == nil {
		lc.Transition(StateFailed)
		return nil, errors.New("remote fallback is not configured")
	}

	transcript, err := o.fallback.Transcribe(ctx, in.Data, in.Filename, in.Language, func(done, total int) {
		// total+1 keeps the bar short of 100 until assembly finishes.
		o.emit(lc, int(math.Round(float64(done)/float64(total+1)*100)))
	})
	if err != nil {
		lc.Transition(StateFailed)
		return nil, err
	}

	if err := lc.Transition(StateAssembling); err != nil {
		return nil, err
	}
	if err := lc.Transition(StateDone); err != nil {
		return nil, err
	}
	o.emit(lc, 100)
	return &Result{SessionID: lc.SessionId(), Transcript: transcript, Source: SourceRemote}, nil
}

func (o *Orchestrator) emit(lc *Lifecycle, percent int) {
	if o.onProgress == nil {
		return
	}
	o.onProgress(Progress{SessionID: lc.SessionId(), State: lc.State(), Percent: percent})
}

func (o *Orchestrator) publishTranscript(ctx context.Context, in Input, res *Result) {
	if o.publisher == nil {
		return
	}
	event := models.TranscriptReady{
		EventType:  "transcript.ready",
		SessionID:  res.SessionID,
		Language:   in.Language,
		Source:     string(res.Source),
		Timestamp:  time.Now().UnixMilli(),
		Text:       res.Transcript,
		DurationMs: res.Duration.Milliseconds(),
	}
	if err := o.publisher.PublishTranscript(ctx, res.SessionID, event); err != nil {
		logger := logging.WithComponent("orchestrator")
		logger.Error().Err(err).Str("sessionId", res.SessionID).Msg("Failed to publish transcript event")
	}
}

func (o *Orchestrator) publishFailure(ctx context.Context, sessionId string, state State, cause error) {
	if o.publisher == nil {
		return
	}
	event := models.SessionFailed{
		EventType: "session.failed",
		SessionID: sessionId,
		Timestamp: time.Now().UnixMilli(),
		Reason:    cause.Error(),
		Cancelled: state == StateCancelled,
	}
	if err := o.publisher.PublishTranscript(ctx, sessionId, event); err != nil {
		logger := logging.WithComponent("orchestrator")
		logger.Error().Err(err).Str("sessionId", sessionId).Msg("Failed to publish session failure event")
	}
}
