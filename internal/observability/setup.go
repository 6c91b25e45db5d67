package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	promreg "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/nikhilbhutani/voicebackend/internal/config"
)

const namespace = "voice_backend"

// Provider owns the metrics registry and, when configured, the trace pipeline.
// A nil *Provider is valid and records nothing.
type Provider struct {
	registry      *promreg.Registry
	promHandler   http.Handler
	shutdownFuncs []func(context.Context) error

	phaseLatency    *promreg.HistogramVec
	requestsCounter *promreg.CounterVec
}

func Setup(ctx context.Context, cfg config.ObservabilityConfig) (*Provider, error) {
	provider := &Provider{}

	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName("voice-backend"),
			),
		)
		if err != nil {
			return nil, err
		}

		opts := []otlptracegrpc.Option{}
		switch {
		case strings.HasPrefix(endpoint, "http://"):
			endpoint = strings.TrimPrefix(endpoint, "http://")
			opts = append(opts, otlptracegrpc.WithInsecure())
		case strings.HasPrefix(endpoint, "https://"):
			endpoint = strings.TrimPrefix(endpoint, "https://")
		default:
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))

		exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
		if err != nil {
			return nil, err
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		provider.shutdownFuncs = append(provider.shutdownFuncs, tp.Shutdown)
	}

	if cfg.MetricsEnabled {
		if err := provider.registerMetrics(); err != nil {
			return nil, err
		}
	}

	return provider, nil
}

func (p *Provider) registerMetrics() error {
	registry := promreg.NewRegistry()

	phaseLatency := promreg.NewHistogramVec(
		promreg.HistogramOpts{
			Namespace: namespace,
			Name:      "voice_phase_duration_seconds",
			Help:      "Duration of voice exchange phases (transcribe, respond).",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"phase", "outcome"},
	)
	requests := promreg.NewCounterVec(
		promreg.CounterOpts{
			Namespace: namespace,
			Name:      "voice_requests_total",
			Help:      "Voice exchange requests by outcome.",
		},
		[]string{"outcome"},
	)
	if err := registry.Register(phaseLatency); err != nil {
		return err
	}
	if err := registry.Register(requests); err != nil {
		return err
	}

	p.registry = registry
	p.promHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	p.phaseLatency = phaseLatency
	p.requestsCounter = requests
	return nil
}

// PrometheusHandler returns nil when metrics are disabled.
func (p *Provider) PrometheusHandler() http.Handler {
	if p == nil || p.promHandler == nil {
		return nil
	}
	return p.promHandler
}

func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	for _, fn := range p.shutdownFuncs {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) ObservePhase(phase, outcome string, d time.Duration) {
	if p == nil || p.phaseLatency == nil {
		return
	}
	p.phaseLatency.WithLabelValues(phase, outcome).Observe(d.Seconds())
}

func (p *Provider) CountRequest(outcome string) {
	if p == nil || p.requestsCounter == nil {
		return
	}
	p.requestsCounter.WithLabelValues(outcome).Inc()
}
