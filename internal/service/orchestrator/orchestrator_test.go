package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-interview-evaluator/internal/audio"
	"ai-interview-evaluator/internal/service/local"
)

// fakeEngine plays back a scripted event stream.
type fakeEngine struct {
	events []local.Event
	err    error
	hang   bool // never emit a terminal event
	calls  int
}

func (f *fakeEngine) Transcribe(ctx context.Context, sample *audio.AudioSample, language string) (<-chan local.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan local.Event)
	go func() {
		defer close(ch)
		for _, ev := range f.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
		if f.hang {
			<-ctx.Done()
		}
	}()
	return ch, nil
}

type fakeFallback struct {
	text    string
	err     error
	chunks  int
	calls   int
	gotData []byte
}

func (f *fakeFallback) Transcribe(ctx context.Context, data []byte, filename, language string, onChunk func(completed, total int)) (string, error) {
	f.calls++
	f.gotData = append([]byte(nil), data...)
	if f.err != nil {
		return "", f.err
	}
	for i := 1; i <= f.chunks; i++ {
		if onChunk != nil {
			onChunk(i, f.chunks)
		}
	}
	return f.text, nil
}

type recordingConfirmer struct {
	accept bool
	calls  int
	reason string
}

func (c *recordingConfirmer) ConfirmRemoteFallback(ctx context.Context, reason string) (bool, error) {
	c.calls++
	c.reason = reason
	return c.accept, nil
}

// wavUpload builds a decodable upload of roughly the given duration.
func wavUpload(t *testing.T, seconds float64) []byte {
	t.Helper()
	samples := make([]float32, int(seconds*audio.TargetSampleRate))
	for i := range samples {
		samples[i] = 0.1
	}
	return audio.EncodeWAV(samples, audio.TargetSampleRate)
}

func TestRun_LocalSuccess(t *testing.T) {
	engine := &fakeEngine{events: []local.Event{
		{Status: local.StatusProgress, Percent: 40},
		{Status: local.StatusProgress, Percent: 100},
		{Status: local.StatusUpdate, Percent: 50, Text: "hola"},
		{Status: local.StatusUpdate, Percent: 100, Text: "hola mundo"},
		{Status: local.StatusComplete, Text: "hola mundo"},
	}}
	fallback := &fakeFallback{}
	confirmer := &recordingConfirmer{accept: true}

	var progress []Progress
	o := New(engine, fallback, confirmer, WithProgress(func(p Progress) {
		progress = append(progress, p)
	}))

	res, err := o.Run(context.Background(), Input{Filename: "call.wav", Data: wavUpload(t, 1), Language: "es"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Transcript != "hola mundo" {
		t.Errorf("transcript = %q", res.Transcript)
	}
	if res.Source != SourceLocal {
		t.Errorf("source = %q, expected local", res.Source)
	}
	if res.SessionID == "" {
		t.Error("expected a session ID")
	}

	if confirmer.calls != 0 {
		t.Errorf("confirmer consulted %d times on the happy path", confirmer.calls)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback invoked %d times on the happy path", fallback.calls)
	}

	// Model load maps to [0,50], updates to [50,95], completion to 100.
	expected := []int{20, 50, 73, 95, 100}
	if len(progress) != len(expected) {
		t.Fatalf("expected %d progress updates, got %d: %v", len(expected), len(progress), progress)
	}
	for i, want := range expected {
		if progress[i].Percent != want {
			t.Errorf("progress[%d] = %d, expected %d", i, progress[i].Percent, want)
		}
	}
	last := progress[len(progress)-1]
	if last.State != StateDone {
		t.Errorf("final progress state = %v, expected DONE", last.State)
	}
}

func TestRun_UpdatePercentCappedAt95(t *testing.T) {
	engine := &fakeEngine{events: []local.Event{
		{Status: local.StatusUpdate, Percent: 100, Text: "x"},
		{Status: local.StatusComplete, Text: "x"},
	}}

	var percents []int
	o := New(engine, nil, nil, WithProgress(func(p Progress) {
		if p.State == StateAttemptingLocal {
			percents = append(percents, p.Percent)
		}
	}))

	if _, err := o.Run(context.Background(), Input{Filename: "a.wav", Data: wavUpload(t, 1), Language: "es"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for _, p := range percents {
		if p > 95 {
			t.Errorf("local update progress %d exceeds 95", p)
		}
	}
}

func TestRun_TextFilePassthrough(t *testing.T) {
	engine := &fakeEngine{}
	o := New(engine, nil, nil)

	res, err := o.Run(context.Background(), Input{Filename: "transcript.txt", Data: []byte("  already transcribed \n"), Language: "es"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Transcript != "already transcribed" {
		t.Errorf("transcript = %q", res.Transcript)
	}
	if res.Source != SourceTextFile {
		t.Errorf("source = %q, expected text-file", res.Source)
	}
	if engine.calls != 0 {
		t.Error("engine must not run for text uploads")
	}
}

func TestRun_LocalFailureDeclined(t *testing.T) {
	engine := &fakeEngine{events: []local.Event{
		{Status: local.StatusError, Error: "model crashed"},
	}}
	fallback := &fakeFallback{text: "never"}
	confirmer := &recordingConfirmer{accept: false}

	o := New(engine, fallback, confirmer)
	_, err := o.Run(context.Background(), Input{Filename: "a.wav", Data: wavUpload(t, 1), Language: "es"})
	if !errors.Is(err, ErrUserCancelled) {
		t.Fatalf("expected ErrUserCancelled, got %v", err)
	}
	if confirmer.calls != 1 {
		t.Errorf("confirmer consulted %d times, expected exactly once", confirmer.calls)
	}
	if !strings.Contains(confirmer.reason, "model crashed") {
		t.Errorf("confirmation reason should carry the local failure, got %q", confirmer.reason)
	}
	if fallback.calls != 0 {
		t.Error("fallback must not run when declined")
	}
}

func TestRun_LocalFailureAcceptedRunsFallback(t *testing.T) {
	engine := &fakeEngine{events: []local.Event{
		{Status: local.StatusError, Error: "out of memory"},
	}}
	fallback := &fakeFallback{text: "remote transcript", chunks: 3}
	confirmer := &recordingConfirmer{accept: true}

	var remotePercents []int
	o := New(engine, fallback, confirmer, WithProgress(func(p Progress) {
		if p.State == StateRemoteFallback {
			remotePercents = append(remotePercents, p.Percent)
		}
	}))

	res, err := o.Run(context.Background(), Input{Filename: "a.wav", Data: wavUpload(t, 1), Language: "es"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Transcript != "remote transcript" {
		t.Errorf("transcript = %q", res.Transcript)
	}
	if res.Source != SourceRemote {
		t.Errorf("source = %q, expected remote", res.Source)
	}

	// done/(total+1): 1/4, 2/4, 3/4.
	expected := []int{25, 50, 75}
	if len(remotePercents) != len(expected) {
		t.Fatalf("remote progress = %v", remotePercents)
	}
	for i, want := range expected {
		if remotePercents[i] != want {
			t.Errorf("remote progress[%d] = %d, expected %d", i, remotePercents[i], want)
		}
	}
}

func TestRun_LocalTimeoutFallsBack(t *testing.T) {
	engine := &fakeEngine{
		events: []local.Event{{Status: local.StatusUpdate, Percent: 10, Text: "partial"}},
		hang:   true,
	}
	fallback := &fakeFallback{text: "rescued", chunks: 1}
	confirmer := &recordingConfirmer{accept: true}

	o := New(engine, fallback, confirmer, WithLocalTimeout(50*time.Millisecond))
	res, err := o.Run(context.Background(), Input{Filename: "a.wav", Data: wavUpload(t, 1), Language: "es"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Transcript != "rescued" || res.Source != SourceRemote {
		t.Errorf("result = %+v, expected remote rescue", res)
	}
	if confirmer.calls != 1 {
		t.Errorf("confirmer consulted %d times", confirmer.calls)
	}
}

func TestRun_UndecodableUploadGoesRemoteWithOriginalBytes(t *testing.T) {
	raw := []byte("definitely not audio")
	engine := &fakeEngine{}
	fallback := &fakeFallback{text: "still transcribed", chunks: 1}
	confirmer := &recordingConfirmer{accept: true}

	o := New(engine, fallback, confirmer)
	res, err := o.Run(context.Background(), Input{Filename: "call.xyz", Data: raw, Language: "es"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Source != SourceRemote {
		t.Errorf("source = %q", res.Source)
	}
	if engine.calls != 0 {
		t.Error("engine must not run for undecodable uploads")
	}
	if !bytes.Equal(fallback.gotData, raw) {
		t.Error("fallback must receive the original upload bytes")
	}
}

func TestRun_EngineBusyDoesNotTriggerFallback(t *testing.T) {
	engine := &fakeEngine{err: local.ErrTranscriptionInFlight}
	fallback := &fakeFallback{}
	confirmer := &recordingConfirmer{accept: true}

	o := New(engine, fallback, confirmer)
	_, err := o.Run(context.Background(), Input{Filename: "a.wav", Data: wavUpload(t, 1), Language: "es"})
	if !errors.Is(err, local.ErrTranscriptionInFlight) {
		t.Fatalf("expected ErrTranscriptionInFlight, got %v", err)
	}
	if confirmer.calls != 0 || fallback.calls != 0 {
		t.Error("busy engine must not reach the metered fallback")
	}
}

func TestRun_NilConfirmerDeclines(t *testing.T) {
	engine := &fakeEngine{events: []local.Event{{Status: local.StatusError, Error: "boom"}}}
	fallback := &fakeFallback{text: "x"}

	o := New(engine, fallback, nil)
	_, err := o.Run(context.Background(), Input{Filename: "a.wav", Data: wavUpload(t, 1), Language: "es"})
	if !errors.Is(err, ErrUserCancelled) {
		t.Fatalf("expected ErrUserCancelled without a confirmer, got %v", err)
	}
	if fallback.calls != 0 {
		t.Error("fallback must not run without explicit confirmation")
	}
}

func TestRun_FallbackFailurePropagatesChunkError(t *testing.T) {
	engine := &fakeEngine{events: []local.Event{{Status: local.StatusError, Error: "boom"}}}
	cause := errors.New("chunk 2 rejected")
	fallback := &fakeFallback{err: cause}
	confirmer := &recordingConfirmer{accept: true}

	o := New(engine, fallback, confirmer)
	_, err := o.Run(context.Background(), Input{Filename: "a.wav", Data: wavUpload(t, 1), Language: "es"})
	if !errors.Is(err, cause) {
		t.Fatalf("expected fallback error to propagate, got %v", err)
	}
}
