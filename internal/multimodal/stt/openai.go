package stt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAISTTConfig holds configuration for an OpenAI-compatible Whisper endpoint.
type OpenAISTTConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.groq.com/openai/v1"
	Model   string // default: "whisper-large-v3"
}

// OpenAISTT transcribes audio through an OpenAI-compatible transcription API.
// Groq is the default target. Text inputs are already transcripts and are
// returned without a network call.
type OpenAISTT struct {
	cfg    OpenAISTTConfig
	client *openai.Client
}

// NewOpenAISTT creates an OpenAISTT with defaults applied.
func NewOpenAISTT(cfg OpenAISTTConfig) *OpenAISTT {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-large-v3"
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAISTT{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (o *OpenAISTT) Name() string { return "groq-whisper" }

func (o *OpenAISTT) Transcribe(ctx context.Context, in Input) (string, error) {
	if !in.IsAudio() {
		return strings.TrimSpace(in.Text), nil
	}
	if len(in.Audio.Data) == 0 {
		return "", nil
	}

	filename := in.Audio.Filename
	if filename == "" {
		filename = "audio.webm"
	}

	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.cfg.Model,
		FilePath: filename,
		Reader:   bytes.NewReader(in.Audio.Data),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
