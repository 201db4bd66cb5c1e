package services

import (
	"context"
	"sort"

	"quizhub/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// KeywordExtractor derives ranked keywords from question texts using
// tf-idf term importance.
type KeywordExtractor struct {
	logger *observability.Logger
}

// NewKeywordExtractor creates a new keyword extractor
func NewKeywordExtractor(logger *observability.Logger) *KeywordExtractor {
	return &KeywordExtractor{logger: logger}
}

// ExtractFromTexts extracts keywords from the given texts, ordered by
// descending summed tf-idf weight across all texts. Returns an empty slice
// when the input is empty or yields no usable terms.
func (ke *KeywordExtractor) ExtractFromTexts(ctx context.Context, texts []string) (result0 []string, err error) {
	_, span := observability.TraceRecommendationFunction(ctx, "ExtractFromTexts",
		attribute.Int("text.count", len(texts)),
	)
	defer observability.FinishSpan(span, &err)

	if len(texts) == 0 {
		return []string{}, nil
	}

	model := fitTfidf(texts)
	if len(model.vocabulary) == 0 {
		// All input was stop words or too short to tokenize
		return []string{}, nil
	}

	sums := model.termWeightSums()

	indices := make([]int, len(model.vocabulary))
	for i := range indices {
		indices[i] = i
	}
	// Ties broken by vocabulary order for deterministic output
	sort.SliceStable(indices, func(a, b int) bool {
		return sums[indices[a]] > sums[indices[b]]
	})

	keywords := make([]string, len(indices))
	for i, idx := range indices {
		keywords[i] = model.vocabulary[idx]
	}

	span.SetAttributes(observability.AttributeKeywordCount(len(keywords)))
	return keywords, nil
}
