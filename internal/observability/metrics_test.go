package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestDomainInstruments(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)

	ctx := context.Background()
	RecordRecommendationsGenerated(ctx, 3)
	RecordRecommendationPersistFailure(ctx)
	RecordQuizSubmission(ctx)
	RecordQuizSubmission(ctx)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			data, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range data.DataPoints {
				sums[m.Name] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(3), sums["quizhub.recommendations.generated"])
	assert.Equal(t, int64(1), sums["quizhub.recommendations.persist_failures"])
	assert.Equal(t, int64(2), sums["quizhub.quiz.submissions"])
}

func TestRecordWithoutProviderIsSafe(t *testing.T) {
	// The noop global provider still hands out working instruments, so
	// recording before metrics setup must not panic.
	assert.NotPanics(t, func() {
		RecordQuizSubmission(context.Background())
	})
}
