package stt

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/voicebackend/internal/config"
)

// AudioInput is an uploaded audio blob.
type AudioInput struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Input is either free text or an audio upload, never both.
type Input struct {
	Text  string
	Audio *AudioInput
}

func TextInput(s string) Input { return Input{Text: s} }

func AudioFileInput(a AudioInput) Input { return Input{Audio: &a} }

func (in Input) IsAudio() bool { return in.Audio != nil }

// Transcriber resolves a transcript from an input. An empty transcript with a
// nil error means the input produced no usable text.
type Transcriber interface {
	Transcribe(ctx context.Context, in Input) (string, error)
	Name() string
}

// NewFromConfig builds the transcriber selected by STT_BACKEND.
func NewFromConfig(cfg config.STTConfig) (Transcriber, error) {
	switch cfg.Backend {
	case "", "placeholder":
		return NewPlaceholder(), nil
	case "groq":
		return NewOpenAISTT(OpenAISTTConfig{
			APIKey:  cfg.GroqKey,
			BaseURL: cfg.GroqBaseURL,
			Model:   cfg.GroqModel,
		}), nil
	case "local":
		return NewLocalSTT(LocalSTTConfig{BaseURL: cfg.LocalBaseURL}), nil
	default:
		return nil, fmt.Errorf("unknown STT backend %q", cfg.Backend)
	}
}
