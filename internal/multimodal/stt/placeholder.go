package stt

import "context"

// PlaceholderTranscript is returned for every input by Placeholder.
const PlaceholderTranscript = "Sample transcript"

// Placeholder stands in for a real speech-to-text backend. It ignores the
// input and always yields PlaceholderTranscript.
type Placeholder struct{}

func NewPlaceholder() *Placeholder { return &Placeholder{} }

func (p *Placeholder) Name() string { return "placeholder" }

func (p *Placeholder) Transcribe(ctx context.Context, _ Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return PlaceholderTranscript, nil
}
