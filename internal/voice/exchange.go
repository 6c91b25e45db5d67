package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nikhilbhutani/voicebackend/internal/multimodal/stt"
	"github.com/nikhilbhutani/voicebackend/internal/multimodal/tts"
)

// AudioContentType is the content type returned with synthesized audio.
const AudioContentType = "audio/wav"

var (
	ErrInvalidAudio    = errors.New("invalid audio")
	ErrSynthesisFailed = errors.New("tts request failed")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a prior conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Exchange is one validated inbound request.
type Exchange struct {
	RequestID string
	Input     stt.Input
	Messages  []Message
}

// Reply is the outcome of a successful exchange.
type Reply struct {
	Transcript  string
	Audio       []byte
	ContentType string
}

// Service turns an input into synthesized speech: transcribe, then synthesize.
type Service struct {
	stt     stt.Transcriber
	tts     tts.Synthesizer
	metrics Recorder
	logger  *slog.Logger
}

func NewService(transcriber stt.Transcriber, synthesizer tts.Synthesizer, metrics Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		stt:     transcriber,
		tts:     synthesizer,
		metrics: metrics,
		logger:  logger,
	}
}

// Respond runs one exchange. Failures return ErrInvalidAudio or
// ErrSynthesisFailed wrapping the underlying cause.
func (s *Service) Respond(ctx context.Context, ex Exchange) (*Reply, error) {
	ctx, span := otel.Tracer("voicebackend/voice").Start(ctx, "voice.Respond")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.id", ex.RequestID),
		attribute.Bool("input.audio", ex.Input.IsAudio()),
		attribute.Int("messages.count", len(ex.Messages)),
	)

	log := s.logger.With("request_id", ex.RequestID)
	log.Debug("voice exchange started",
		"input_audio", ex.Input.IsAudio(),
		"messages", len(ex.Messages),
		"transcriber", s.stt.Name(),
	)

	timer := startPhase(ctx, s.metrics, log, PhaseTranscribe, ex.RequestID)
	transcript, err := s.stt.Transcribe(timer.ctx, ex.Input)
	transcript = strings.TrimSpace(transcript)
	if err != nil || transcript == "" {
		timer.done(OutcomeError)
		s.count(OutcomeInvalidAudio)
		if err == nil {
			err = errors.New("empty transcript")
		}
		span.SetStatus(codes.Error, "transcription failed")
		log.Warn("transcription yielded no text", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidAudio, err)
	}
	timer.done(OutcomeOK)

	timer = startPhase(ctx, s.metrics, log, PhaseRespond, ex.RequestID)
	res, err := s.tts.Synthesize(timer.ctx, tts.SynthesisRequest{Transcript: transcript})
	if err != nil {
		timer.done(OutcomeError)
		s.count(OutcomeSynthesisFailed)
		span.SetStatus(codes.Error, "synthesis failed")
		log.Error("speech synthesis failed", "synthesizer", s.tts.Name(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	timer.done(OutcomeOK)
	s.count(OutcomeOK)

	return &Reply{
		Transcript:  transcript,
		Audio:       res.Audio,
		ContentType: AudioContentType,
	}, nil
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.CountRequest(outcome)
	}
}
