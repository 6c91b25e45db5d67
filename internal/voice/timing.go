package voice

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	PhaseTranscribe = "transcribe"
	PhaseRespond    = "respond"
)

const (
	OutcomeOK              = "ok"
	OutcomeError           = "error"
	OutcomeInvalidAudio    = "invalid_audio"
	OutcomeSynthesisFailed = "synthesis_failed"
)

// Recorder receives phase timings and request outcomes. Implementations must
// be safe for concurrent use.
type Recorder interface {
	ObservePhase(phase, outcome string, d time.Duration)
	CountRequest(outcome string)
}

// phaseTimer measures one phase for diagnostics only.
type phaseTimer struct {
	ctx       context.Context
	span      trace.Span
	phase     string
	requestID string
	start     time.Time
	metrics   Recorder
	log       *slog.Logger
}

func startPhase(ctx context.Context, metrics Recorder, log *slog.Logger, phase, requestID string) *phaseTimer {
	ctx, span := otel.Tracer("voicebackend/voice").Start(ctx, "voice."+phase)
	return &phaseTimer{
		ctx:       ctx,
		span:      span,
		phase:     phase,
		requestID: requestID,
		start:     time.Now(),
		metrics:   metrics,
		log:       log,
	}
}

func (t *phaseTimer) done(outcome string) time.Duration {
	elapsed := time.Since(t.start)
	t.span.SetAttributes(attribute.String("outcome", outcome))
	t.span.End()
	if t.metrics != nil {
		t.metrics.ObservePhase(t.phase, outcome, elapsed)
	}
	t.log.Debug(t.phase+" "+t.requestID, "phase", t.phase, "outcome", outcome, "duration_ms", elapsed.Milliseconds())
	return elapsed
}
