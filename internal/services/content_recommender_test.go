package services

import (
	"context"
	"testing"

	"quizhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResources() []models.Resource {
	return []models.Resource{
		{ID: 1, Title: "Binary Search Explained", Keywords: []string{"binary", "search", "algorithms"}},
		{ID: 2, Title: "Graph Theory Primer", Keywords: []string{"graph", "traversal", "vertices"}},
		{ID: 3, Title: "Sorting Deep Dive", Keywords: []string{"sorting", "quicksort", "mergesort"}},
		{ID: 4, Title: "Untagged Resource", Keywords: nil},
		{ID: 5, Title: "Search Trees", Keywords: []string{"binary", "trees", "search"}},
	}
}

func TestContentRecommender_Recommend(t *testing.T) {
	recommender := NewContentRecommender(newTestLogger())
	ctx := context.Background()

	t.Run("empty keywords yield no recommendations", func(t *testing.T) {
		ids, err := recommender.Recommend(ctx, nil, testResources(), 5)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("empty catalog yields no recommendations", func(t *testing.T) {
		ids, err := recommender.Recommend(ctx, []string{"binary"}, nil, 5)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("matches resources by keyword overlap", func(t *testing.T) {
		ids, err := recommender.Recommend(ctx, []string{"binary", "search"}, testResources(), 5)
		require.NoError(t, err)

		// Resources 1 and 5 share keywords with the query; 2 and 3 do not
		assert.ElementsMatch(t, []int{1, 5}, ids)
	})

	t.Run("resources without keywords are never recommended", func(t *testing.T) {
		ids, err := recommender.Recommend(ctx, []string{"binary", "graph", "sorting"}, testResources(), 5)
		require.NoError(t, err)
		assert.NotContains(t, ids, 4)
	})

	t.Run("zero-similarity resources are dropped", func(t *testing.T) {
		ids, err := recommender.Recommend(ctx, []string{"calculus", "integrals"}, testResources(), 5)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("limit caps the result", func(t *testing.T) {
		resources := []models.Resource{
			{ID: 10, Keywords: []string{"graph"}},
			{ID: 11, Keywords: []string{"graph", "traversal"}},
			{ID: 12, Keywords: []string{"graph", "coloring"}},
		}
		ids, err := recommender.Recommend(ctx, []string{"graph"}, resources, 2)
		require.NoError(t, err)
		assert.Len(t, ids, 2)
	})

	t.Run("results ordered by descending similarity", func(t *testing.T) {
		resources := []models.Resource{
			{ID: 20, Keywords: []string{"graph", "unrelated", "extra", "padding"}},
			{ID: 21, Keywords: []string{"graph", "traversal"}},
		}
		ids, err := recommender.Recommend(ctx, []string{"graph", "traversal"}, resources, 5)
		require.NoError(t, err)

		// Resource 21 matches both query terms, 20 matches one diluted by noise
		require.Len(t, ids, 2)
		assert.Equal(t, 21, ids[0])
		assert.Equal(t, 20, ids[1])
	})

	t.Run("zero limit yields no recommendations", func(t *testing.T) {
		ids, err := recommender.Recommend(ctx, []string{"binary"}, testResources(), 0)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}
