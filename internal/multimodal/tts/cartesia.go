package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ContainerRaw     = "raw"
	EncodingPCMF32LE = "pcm_f32le"
	SampleRate44100  = 44100
)

// CartesiaConfig holds configuration for the Cartesia /tts/bytes backend.
type CartesiaConfig struct {
	APIKey  string
	BaseURL string // default: "https://api.cartesia.ai"
	Version string // default: "2024-06-10"
	ModelID string
	VoiceID string
	Timeout time.Duration // zero means no client-side timeout
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

type cartesiaRequest struct {
	Transcript   string               `json:"transcript"`
	ModelID      string               `json:"model_id"`
	Voice        cartesiaVoice        `json:"voice"`
	OutputFormat cartesiaOutputFormat `json:"output_format"`
}

// Cartesia synthesizes speech with the Cartesia bytes endpoint and returns raw
// 44.1kHz float32 little-endian PCM.
type Cartesia struct {
	cfg        CartesiaConfig
	httpClient *http.Client
}

// NewCartesia creates a Cartesia synthesizer with defaults applied.
func NewCartesia(cfg CartesiaConfig) *Cartesia {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cartesia.ai"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Version == "" {
		cfg.Version = "2024-06-10"
	}
	return &Cartesia{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Cartesia) Name() string { return "cartesia" }

func (c *Cartesia) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	data, err := json.Marshal(cartesiaRequest{
		Transcript: req.Transcript,
		ModelID:    c.cfg.ModelID,
		Voice:      cartesiaVoice{Mode: "id", ID: c.cfg.VoiceID},
		OutputFormat: cartesiaOutputFormat{
			Container:  ContainerRaw,
			Encoding:   EncodingPCMF32LE,
			SampleRate: SampleRate44100,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/tts/bytes", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Cartesia-Version", c.cfg.Version)
	httpReq.Header.Set("X-API-Key", c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w (status %d): %s", ErrUpstream, resp.StatusCode, string(respBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	return &SynthesisResult{Audio: audio}, nil
}
