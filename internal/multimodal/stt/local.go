package stt

// LocalSTTConfig holds configuration for a whisper.cpp server.
type LocalSTTConfig struct {
	BaseURL string // default: "http://localhost:8178"
}

// LocalSTT talks to a whisper.cpp server started with its OpenAI-compatible
// API, e.g. ./server -m models/ggml-base.en.bin --port 8178. Text inputs are
// passed through exactly as with the Groq backend.
type LocalSTT struct {
	*OpenAISTT
}

func NewLocalSTT(cfg LocalSTTConfig) *LocalSTT {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8178"
	}
	// the local server ignores the key and model name
	return &LocalSTT{
		OpenAISTT: NewOpenAISTT(OpenAISTTConfig{
			BaseURL: cfg.BaseURL,
			Model:   "whisper-1",
		}),
	}
}

func (l *LocalSTT) Name() string { return "local-whisper" }
