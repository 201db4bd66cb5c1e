package services

import (
	"context"
	"testing"

	"quizhub/internal/config"
	"quizhub/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *observability.Logger {
	return observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
}

func TestKeywordExtractor_ExtractFromTexts(t *testing.T) {
	extractor := NewKeywordExtractor(newTestLogger())
	ctx := context.Background()

	t.Run("empty input yields empty keywords", func(t *testing.T) {
		keywords, err := extractor.ExtractFromTexts(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, keywords)
	})

	t.Run("stop-word-only input yields empty keywords", func(t *testing.T) {
		keywords, err := extractor.ExtractFromTexts(ctx, []string{"the and of is", "a an"})
		require.NoError(t, err)
		assert.Empty(t, keywords)
	})

	t.Run("repeated terms rank first", func(t *testing.T) {
		keywords, err := extractor.ExtractFromTexts(ctx, []string{
			"What is the time complexity of binary search?",
			"Binary search requires a sorted array",
			"Which data structure backs binary search trees?",
		})
		require.NoError(t, err)
		require.NotEmpty(t, keywords)

		// "binary" and "search" dominate the corpus
		assert.Contains(t, keywords[:2], "binary")
		assert.Contains(t, keywords[:2], "search")
	})

	t.Run("keywords exclude stop words", func(t *testing.T) {
		keywords, err := extractor.ExtractFromTexts(ctx, []string{
			"What is the derivative of a polynomial function?",
		})
		require.NoError(t, err)
		for _, keyword := range keywords {
			assert.False(t, englishStopWords[keyword], "stop word %q leaked into keywords", keyword)
		}
	})

	t.Run("every distinct term appears exactly once", func(t *testing.T) {
		keywords, err := extractor.ExtractFromTexts(ctx, []string{
			"sorting sorting quicksort",
			"quicksort partition",
		})
		require.NoError(t, err)

		seen := make(map[string]int)
		for _, keyword := range keywords {
			seen[keyword]++
		}
		for keyword, count := range seen {
			assert.Equal(t, 1, count, "keyword %q appeared %d times", keyword, count)
		}
		assert.Len(t, seen, 3)
	})
}
