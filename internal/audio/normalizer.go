// Package audio normalizes uploaded recordings into the fixed-format sample
// buffer the transcription engine expects: mono float32 at 16 kHz.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// TargetSampleRate is the sample rate the transcription engine requires.
const TargetSampleRate = 16000

// ErrUnsupportedFormat indicates the input could not be decoded by any
// available decoder. The caller may still submit the original bytes to the
// remote transcription path.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// AudioSample is an immutable mono 16 kHz sample buffer. It is produced once
// per uploaded file and handed to exactly one transcription path; it is never
// mutated after creation.
type AudioSample struct {
	samples []float32
}

// Samples returns the underlying buffer. Callers that pass an AudioSample to
// the local engine must not touch the buffer afterward.
func (s *AudioSample) Samples() []float32 { return s.samples }

// Len returns the number of samples.
func (s *AudioSample) Len() int { return len(s.samples) }

// Duration returns the audio duration in seconds.
func (s *AudioSample) Duration() float64 {
	return float64(len(s.samples)) / float64(TargetSampleRate)
}

// Normalize decodes an uploaded file into a mono 16 kHz AudioSample.
// WAV containers are decoded in pure Go; anything else is handed to ffmpeg
// for container decoding, then resampled here. Duration is preserved: the
// output holds exactly ceil(duration_seconds * 16000) samples.
func Normalize(ctx context.Context, data []byte, filename string) (*AudioSample, error) {
	pcm, rate, channels, err := decodeContainer(ctx, data, filename)
	if err != nil {
		return nil, err
	}

	mono := mixdown(pcm, channels)
	resampled := Resample(mono, rate, TargetSampleRate)

	log.Debug().
		Str("component", "normalizer").
		Str("filename", filename).
		Int("sourceRate", rate).
		Int("sourceChannels", channels).
		Int("samples", len(resampled)).
		Msg("Audio normalized")

	return &AudioSample{samples: resampled}, nil
}

func decodeContainer(ctx context.Context, data []byte, filename string) ([]float32, int, int, error) {
	if isWAV(data) {
		pcm, rate, channels, err := decodeWAV(data)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return pcm, rate, channels, nil
	}
	return decodeWithFFmpeg(ctx, data, filename)
}

// decodeWithFFmpeg converts a non-WAV container to a native-rate mono WAV via
// ffmpeg and decodes the result. Resampling stays in our hands so the output
// length contract holds regardless of ffmpeg's resampler.
func decodeWithFFmpeg(ctx context.Context, data []byte, filename string) ([]float32, int, int, error) {
	tmpDir, err := os.MkdirTemp("", "evaluator-audio-*")
	if err != nil {
		return nil, 0, 0, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".bin"
	}
	in := filepath.Join(tmpDir, "input"+ext)
	out := filepath.Join(tmpDir, "decoded.wav")

	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, 0, 0, fmt.Errorf("write temp input: %w", err)
	}

	// ffmpeg -y -i input -ac 1 -f wav decoded.wav (native sample rate)
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", in, "-ac", "1", "-f", "wav", out)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Warn().
			Str("component", "normalizer").
			Str("filename", filename).
			Str("ffmpeg", truncate(stderr.String(), 300)).
			Msg("ffmpeg decode failed")
		return nil, 0, 0, fmt.Errorf("%w: ffmpeg: %v", ErrUnsupportedFormat, err)
	}

	decoded, err := os.ReadFile(out)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read decoded wav: %w", err)
	}
	pcm, rate, channels, err := decodeWAV(decoded)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return pcm, rate, channels, nil
}

// mixdown averages interleaved channels into a mono buffer. A new buffer is
// always returned; the source is never edited in place.
func mixdown(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		mono := make([]float32, len(interleaved))
		copy(mono, interleaved)
		return mono
	}
	frames := len(interleaved) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// Resample converts src from srcRate to dstRate by linear interpolation.
// The output length is exactly ceil(len(src) * dstRate / srcRate), i.e.
// ceil(duration_seconds * dstRate), so duration is preserved.
func Resample(src []float32, srcRate, dstRate int) []float32 {
	if len(src) == 0 {
		return nil
	}
	if srcRate == dstRate {
		out := make([]float32, len(src))
		copy(out, src)
		return out
	}

	n := (len(src)*dstRate + srcRate - 1) / srcRate
	out := make([]float32, n)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(src)-1 {
			out[i] = src[len(src)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = src[idx]*(1-frac) + src[idx+1]*frac
	}
	return out
}

// IsTextFile reports whether the filename indicates a plain-text transcript
// that needs no audio processing at all.
func IsTextFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md":
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
