package remote

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

// GoogleTranscriber submits chunks to Google Cloud Speech-to-Text using
// synchronous recognition. Requires GOOGLE_APPLICATION_CREDENTIALS to be set.
type GoogleTranscriber struct {
	client *speech.Client
}

// NewGoogleTranscriber creates a transcriber backed by Cloud Speech-to-Text.
func NewGoogleTranscriber(ctx context.Context) (*GoogleTranscriber, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating speech client: %w", err)
	}
	return &GoogleTranscriber{client: c}, nil
}

func (t *GoogleTranscriber) Name() string { return "google" }

// TranscribeChunk runs synchronous recognition over one chunk. Encoding is
// left unspecified so the service reads it from the container header.
func (t *GoogleTranscriber) TranscribeChunk(ctx context.Context, chunk []byte, filename, language string) (string, error) {
	resp, err := t.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:     speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
			LanguageCode: languageCode(language),
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: chunk},
		},
	})
	if err != nil {
		return "", fmt.Errorf("google recognize: %w", err)
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		parts = append(parts, r.Alternatives[0].Transcript)
	}
	return strings.Join(parts, " "), nil
}

// Close releases the underlying client connection.
func (t *GoogleTranscriber) Close() error {
	return t.client.Close()
}

func languageCode(language string) string {
	switch language {
	case "es":
		return "es-ES"
	case "en":
		return "en-US"
	default:
		return "es-ES"
	}
}
