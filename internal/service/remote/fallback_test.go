package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeTranscriber records chunk submissions and plays scripted answers.
type fakeTranscriber struct {
	calls   [][]byte
	answers []string
	failAt  int // chunk index that errors, -1 for never
}

func newFakeTranscriber(answers []string) *fakeTranscriber {
	return &fakeTranscriber{answers: answers, failAt: -1}
}

func (f *fakeTranscriber) Name() string { return "fake" }

func (f *fakeTranscriber) TranscribeChunk(ctx context.Context, chunk []byte, filename, language string) (string, error) {
	idx := len(f.calls)
	cp := make([]byte, len(chunk))
	copy(cp, chunk)
	f.calls = append(f.calls, cp)
	if idx == f.failAt {
		return "", errors.New("provider rejected chunk")
	}
	if idx < len(f.answers) {
		return f.answers[idx], nil
	}
	return "", nil
}

func TestFallback_ChunkCount(t *testing.T) {
	f := NewFallback(newFakeTranscriber(nil), 10)

	tests := []struct {
		size     int
		expected int
	}{
		{0, 0},
		{1, 1},
		{10, 1},
		{11, 2},
		{20, 2},
		{21, 3},
	}

	for _, tt := range tests {
		if got := f.ChunkCount(tt.size); got != tt.expected {
			t.Errorf("ChunkCount(%d) = %d, expected %d", tt.size, got, tt.expected)
		}
	}
}

func TestFallback_SequentialChunksJoinedInOrder(t *testing.T) {
	fake := newFakeTranscriber([]string{"first part", "second part", "tail"})
	f := NewFallback(fake, 4)

	data := []byte("aaaabbbbcc") // 3 chunks: aaaa, bbbb, cc
	got, err := f.Transcribe(context.Background(), data, "call.mp3", "es", nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if got != "first part second part tail" {
		t.Errorf("transcript = %q, expected single-space join in order", got)
	}

	if len(fake.calls) != 3 {
		t.Fatalf("expected 3 chunk submissions, got %d", len(fake.calls))
	}
	if !bytes.Equal(fake.calls[0], []byte("aaaa")) || !bytes.Equal(fake.calls[1], []byte("bbbb")) || !bytes.Equal(fake.calls[2], []byte("cc")) {
		t.Errorf("chunks not split at fixed boundaries: %q", fake.calls)
	}
}

func TestFallback_TrimsFragmentWhitespace(t *testing.T) {
	fake := newFakeTranscriber([]string{"  hello ", " world"})
	f := NewFallback(fake, 2)

	got, err := f.Transcribe(context.Background(), []byte("abcd"), "a.wav", "en", nil)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if got != "hello world" {
		t.Errorf("transcript = %q, expected trimmed fragments", got)
	}
}

func TestFallback_FailFastReportsChunkIndex(t *testing.T) {
	fake := newFakeTranscriber([]string{"ok", "ok", "ok"})
	fake.failAt = 1
	f := NewFallback(fake, 2)

	_, err := f.Transcribe(context.Background(), []byte("aabbcc"), "a.wav", "es", nil)
	if err == nil {
		t.Fatal("expected error from failing chunk")
	}

	var ce *ChunkError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ChunkError, got %T", err)
	}
	if ce.Index != 1 {
		t.Errorf("ChunkError.Index = %d, expected 1", ce.Index)
	}

	// The third chunk must never be submitted after the second fails.
	if len(fake.calls) != 2 {
		t.Errorf("expected 2 submissions before abort, got %d", len(fake.calls))
	}
}

func TestFallback_ProgressCallback(t *testing.T) {
	fake := newFakeTranscriber([]string{"a", "b", "c"})
	f := NewFallback(fake, 2)

	var progress [][2]int
	_, err := f.Transcribe(context.Background(), []byte("aabbcc"), "a.wav", "es", func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	expected := [][2]int{{1, 3}, {2, 3}, {3, 3}}
	if len(progress) != len(expected) {
		t.Fatalf("expected %d progress calls, got %d", len(expected), len(progress))
	}
	for i, p := range expected {
		if progress[i] != p {
			t.Errorf("progress[%d] = %v, expected %v", i, progress[i], p)
		}
	}
}

func TestFallback_DefaultChunkSize(t *testing.T) {
	f := NewFallback(newFakeTranscriber(nil), 0)
	if f.chunkSize != DefaultChunkSize {
		t.Errorf("chunkSize = %d, expected %d", f.chunkSize, DefaultChunkSize)
	}
}

func TestOpenAITranscriber_Success(t *testing.T) {
	var gotAuth, gotModel, gotLanguage, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		if fh := r.MultipartForm.File["file"]; len(fh) == 1 {
			gotFilename = fh[0].Filename
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "hola mundo"})
	}))
	defer srv.Close()

	tr := NewOpenAITranscriber("sk-test", WithOpenAIBaseURL(srv.URL))
	got, err := tr.TranscribeChunk(context.Background(), []byte("audio-bytes"), "call.mp3", "es")
	if err != nil {
		t.Fatalf("TranscribeChunk failed: %v", err)
	}
	if got != "hola mundo" {
		t.Errorf("text = %q", got)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotModel != "whisper-1" {
		t.Errorf("model = %q", gotModel)
	}
	if gotLanguage != "es" {
		t.Errorf("language = %q", gotLanguage)
	}
	if gotFilename != "call.mp3" {
		t.Errorf("filename = %q", gotFilename)
	}
}

func TestOpenAITranscriber_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer srv.Close()

	tr := NewOpenAITranscriber("sk-test", WithOpenAIBaseURL(srv.URL))
	_, err := tr.TranscribeChunk(context.Background(), []byte("x"), "a.wav", "es")
	if err == nil {
		t.Fatal("expected error on 429 response")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("429")) {
		t.Errorf("error should mention status code, got %v", err)
	}
	if !bytes.Contains([]byte(err.Error()), []byte("rate limited")) {
		t.Errorf("error should carry response body, got %v", err)
	}
}

func TestOpenAITranscriber_MissingKey(t *testing.T) {
	tr := NewOpenAITranscriber("")
	if _, err := tr.TranscribeChunk(context.Background(), []byte("x"), "a.wav", "es"); err == nil {
		t.Fatal("expected error without API key")
	}
}
