package tts

import (
	"context"
	"errors"
)

// ErrUpstream marks a synthesis call the provider did not complete successfully.
var ErrUpstream = errors.New("tts upstream failure")

// SynthesisRequest holds the text to speak. Model, voice and output format
// are fixed per provider at construction time.
type SynthesisRequest struct {
	Transcript string
}

// SynthesisResult holds the generated audio.
type SynthesisResult struct {
	Audio []byte
}

// Synthesizer is the interface for text-to-speech backends.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error)
	Name() string
}
