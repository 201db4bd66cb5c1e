package services

import (
	"context"
	"sort"
	"strings"

	"quizhub/internal/models"
	"quizhub/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// ContentRecommender matches query keywords against resource keyword sets
// using cosine similarity in a shared tf-idf vocabulary.
type ContentRecommender struct {
	logger *observability.Logger
}

// NewContentRecommender creates a new content-based recommender
func NewContentRecommender(logger *observability.Logger) *ContentRecommender {
	return &ContentRecommender{logger: logger}
}

// Recommend returns the IDs of up to limit resources whose keyword sets are
// most similar to the query keywords, ordered by descending similarity.
// Resources with an empty keyword set never appear; resources with zero
// similarity to the query are dropped even when fewer than limit remain.
func (cr *ContentRecommender) Recommend(ctx context.Context, keywords []string, resources []models.Resource, limit int) (result0 []int, err error) {
	_, span := observability.TraceRecommendationFunction(ctx, "ContentRecommend",
		attribute.Int("keyword.count", len(keywords)),
		attribute.Int("resource.count", len(resources)),
		observability.AttributeLimit(limit),
	)
	defer observability.FinishSpan(span, &err)

	if len(keywords) == 0 || len(resources) == 0 || limit <= 0 {
		return []int{}, nil
	}

	// Candidates are resources with at least one keyword; each candidate
	// document is its joined keyword text.
	var candidateDocs []string
	var candidateIDs []int
	for _, resource := range resources {
		keywordText := strings.TrimSpace(strings.Join(resource.Keywords, " "))
		if keywordText == "" {
			continue
		}
		candidateDocs = append(candidateDocs, keywordText)
		candidateIDs = append(candidateIDs, resource.ID)
	}

	if len(candidateDocs) == 0 {
		return []int{}, nil
	}

	// Fit the query together with the candidates so both share a vocabulary
	queryText := strings.Join(keywords, " ")
	allDocs := append(candidateDocs, queryText)
	model := fitTfidf(allDocs)

	queryVector := model.vectors[len(model.vectors)-1]
	candidateVectors := model.vectors[:len(model.vectors)-1]

	similarities := make([]float64, len(candidateVectors))
	for i, vec := range candidateVectors {
		similarities[i] = cosineSimilarity(queryVector, vec)
	}

	indices := make([]int, len(candidateVectors))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return similarities[indices[a]] > similarities[indices[b]]
	})

	if len(indices) > limit {
		indices = indices[:limit]
	}

	recommended := make([]int, 0, len(indices))
	for _, idx := range indices {
		if similarities[idx] > 0 {
			recommended = append(recommended, candidateIDs[idx])
		}
	}

	span.SetAttributes(observability.AttributeCandidateCount(len(recommended)))
	return recommended, nil
}
