// Package transcribe implements the transcribe.Transcriber contract with
// OpenAI Whisper over WAV-framed uploads.
package transcribe

import (
	"bytes"
	"context"

	"github.com/sashabaranov/go-openai"

	"voxkit/core"
	"voxkit/utils/audio"
)

// Config holds the configuration for the Whisper transcriber.
type Config struct {
	APIKey   string
	Model    string // defaults to whisper-1
	Language string // optional ISO-639-1 hint
}

// Transcriber sends audio segments to the Whisper transcription endpoint.
type Transcriber struct {
	client *openai.Client
	cfg    Config
}

func NewTranscriber(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, core.Errorf(core.ErrorKindConfiguration, "openai.transcribe", "OpenAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	return &Transcriber{client: openai.NewClient(cfg.APIKey), cfg: cfg}, nil
}

// Transcribe frames the chunk as a WAV file image and uploads it. Whisper
// wants a container, not raw samples, so companded input is expanded first.
func (t *Transcriber) Transcribe(ctx context.Context, chunk core.AudioChunk) (string, error) {
	wav, err := audio.WAVFromChunk(chunk)
	if err != nil {
		return "", err
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.cfg.Model,
		Language: t.cfg.Language,
		Reader:   bytes.NewReader(wav),
		FilePath: "segment.wav",
	})
	if err != nil {
		return "", core.NewError(core.ErrorKindTransport, "openai.transcribe", err)
	}
	return resp.Text, nil
}
