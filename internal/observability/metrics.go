package observability

import (
	"context"
	"sync"

	"quizhub/internal/config"
	contextutils "quizhub/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// Domain instruments. Created lazily from the global meter provider so
// services can record without holding a provider reference.
var (
	instrumentsOnce sync.Once

	recommendationsGenerated      otelmetric.Int64Counter
	recommendationPersistFailures otelmetric.Int64Counter
	quizSubmissions               otelmetric.Int64Counter
)

func initInstruments() {
	meter := otel.Meter("quizhub")

	var err error
	recommendationsGenerated, err = meter.Int64Counter("quizhub.recommendations.generated",
		otelmetric.WithDescription("Number of recommendations persisted per generation run"),
	)
	if err != nil {
		recommendationsGenerated = nil
	}
	recommendationPersistFailures, err = meter.Int64Counter("quizhub.recommendations.persist_failures",
		otelmetric.WithDescription("Number of recommendation upserts that failed"),
	)
	if err != nil {
		recommendationPersistFailures = nil
	}
	quizSubmissions, err = meter.Int64Counter("quizhub.quiz.submissions",
		otelmetric.WithDescription("Number of quiz attempts submitted"),
	)
	if err != nil {
		quizSubmissions = nil
	}
}

// RecordRecommendationsGenerated records how many recommendations a single
// generation run persisted
func RecordRecommendationsGenerated(ctx context.Context, count int) {
	instrumentsOnce.Do(initInstruments)
	if recommendationsGenerated != nil {
		recommendationsGenerated.Add(ctx, int64(count))
	}
}

// RecordRecommendationPersistFailure records one failed recommendation upsert
func RecordRecommendationPersistFailure(ctx context.Context) {
	instrumentsOnce.Do(initInstruments)
	if recommendationPersistFailures != nil {
		recommendationPersistFailures.Add(ctx, 1)
	}
}

// RecordQuizSubmission records one submitted quiz attempt
func RecordQuizSubmission(ctx context.Context) {
	instrumentsOnce.Do(initInstruments)
	if quizSubmissions != nil {
		quizSubmissions.Add(ctx, 1)
	}
}

// InitMetrics initializes OpenTelemetry metrics
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	// Set up resource attributes
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otel resource: %w", err)
	}

	// Set up exporter
	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		// For gRPC, strip http:// prefix if present, otherwise use endpoint as-is
		endpoint := cfg.Endpoint
		exp, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(endpoint),
			func() otlpmetricgrpc.Option {
				if cfg.Insecure {
					return otlpmetricgrpc.WithInsecure()
				}
				return nil
			}(),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
		exporter = exp
	case "http":
		exp, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			func() otlpmetrichttp.Option {
				if cfg.Insecure {
					return otlpmetrichttp.WithInsecure()
				}
				return nil
			}(),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unsupported otel protocol: %s", cfg.Protocol)
	}

	// Set up meter provider
	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}
