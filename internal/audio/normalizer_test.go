package audio

import (
	"context"
	"errors"
	"math"
	"testing"
)

func sine(rate int, seconds float64, freq float64) []float32 {
	n := int(float64(rate) * seconds)
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestResample_OutputLength(t *testing.T) {
	tests := []struct {
		name     string
		srcRate  int
		samples  int
		expected int
	}{
		{"44100 to 16000, 1s", 44100, 44100, 16000},
		{"48000 to 16000, 1s", 48000, 48000, 16000},
		{"8000 to 16000, 1s", 8000, 8000, 16000},
		{"16000 to 16000, 1s", 16000, 16000, 16000},
		{"odd length rounds up", 44100, 44101, 16001},
		{"half second at 22050", 22050, 11025, 8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := make([]float32, tt.samples)
			out := Resample(src, tt.srcRate, TargetSampleRate)
			if len(out) != tt.expected {
				t.Errorf("expected %d samples, got %d", tt.expected, len(out))
			}
		})
	}
}

func TestResample_PreservesContent(t *testing.T) {
	src := sine(48000, 1.0, 440)
	out := Resample(src, 48000, TargetSampleRate)

	// A resampled sine should keep roughly the same RMS energy.
	rms := func(s []float32) float64 {
		var sum float64
		for _, v := range s {
			sum += float64(v) * float64(v)
		}
		return math.Sqrt(sum / float64(len(s)))
	}
	srcRMS, outRMS := rms(src), rms(out)
	if math.Abs(srcRMS-outRMS) > 0.05 {
		t.Errorf("RMS drifted: src=%f out=%f", srcRMS, outRMS)
	}
}

func TestResample_DoesNotMutateSource(t *testing.T) {
	src := []float32{0.1, 0.2, 0.3, 0.4}
	orig := make([]float32, len(src))
	copy(orig, src)

	_ = Resample(src, 8000, 16000)

	for i := range src {
		if src[i] != orig[i] {
			t.Fatalf("source mutated at %d", i)
		}
	}
}

func TestMixdown_Stereo(t *testing.T) {
	// Interleaved L/R pairs.
	stereo := []float32{1, 0, 0, 1, 0.5, 0.5}
	mono := mixdown(stereo, 2)

	expected := []float32{0.5, 0.5, 0.5}
	if len(mono) != len(expected) {
		t.Fatalf("expected %d frames, got %d", len(expected), len(mono))
	}
	for i := range expected {
		if mono[i] != expected[i] {
			t.Errorf("frame %d: expected %f, got %f", i, expected[i], mono[i])
		}
	}
}

func TestNormalize_WAVRoundTrip(t *testing.T) {
	src := sine(44100, 2.0, 440)
	wav := EncodeWAV(src, 44100)

	sample, err := Normalize(context.Background(), wav, "interview.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := (len(src)*TargetSampleRate + 44100 - 1) / 44100
	if sample.Len() != expected {
		t.Errorf("expected %d samples, got %d", expected, sample.Len())
	}
	if d := sample.Duration(); math.Abs(d-2.0) > 0.001 {
		t.Errorf("expected ~2s duration, got %f", d)
	}
}

func TestNormalize_GarbageFails(t *testing.T) {
	// Not a WAV and not decodable by ffmpeg either.
	_, err := Normalize(context.Background(), []byte("definitely not audio"), "notes.xyz")
	if err == nil {
		t.Fatal("expected error for undecodable input")
	}
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeWAV_Float32(t *testing.T) {
	// Hand-build a float32 WAV: reuse the encoder for the header then check
	// the float path with a synthetic fmt chunk is exercised via EncodeWAV's
	// PCM16 output instead; float32 decoding is covered by decodePCM directly.
	raw := make([]byte, 8)
	// two float32 samples: 0.5, -0.5
	putFloat32 := func(b []byte, f float32) {
		bits := math.Float32bits(f)
		b[0] = byte(bits)
		b[1] = byte(bits >> 8)
		b[2] = byte(bits >> 16)
		b[3] = byte(bits >> 24)
	}
	putFloat32(raw[0:4], 0.5)
	putFloat32(raw[4:8], -0.5)

	samples, err := decodePCM(raw, wavFormatFloat, 32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 2 || samples[0] != 0.5 || samples[1] != -0.5 {
		t.Errorf("unexpected samples: %v", samples)
	}
}

func TestDecodeWAV_UnsupportedEncoding(t *testing.T) {
	if _, err := decodePCM(make([]byte, 8), wavFormatPCM, 24); err == nil {
		t.Error("expected error for 24-bit PCM")
	}
}

func TestIsTextFile(t *testing.T) {
	tests := []struct {
		filename string
		expected bool
	}{
		{"interview.txt", true},
		{"notes.md", true},
		{"INTERVIEW.TXT", true},
		{"recording.mp3", false},
		{"recording.wav", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		if got := IsTextFile(tt.filename); got != tt.expected {
			t.Errorf("IsTextFile(%q) = %v, want %v", tt.filename, got, tt.expected)
		}
	}
}
