package services

import (
	"context"
	"errors"
	"testing"

	"quizhub/internal/models"
	contextutils "quizhub/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollaborativeRecommender_Recommend(t *testing.T) {
	ctx := context.Background()

	t.Run("no wrong questions yields no recommendations", func(t *testing.T) {
		recommender := NewCollaborativeRecommender(newFakeStore(), newTestLogger(), 0.5)
		ids, err := recommender.Recommend(ctx, 1, nil, 5)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("no peers yields no recommendations", func(t *testing.T) {
		store := newFakeStore()
		store.peerWrong[10] = []int{1} // only the requester got it wrong
		recommender := NewCollaborativeRecommender(store, newTestLogger(), 0.5)

		ids, err := recommender.Recommend(ctx, 1, []int{10}, 5)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("surfaces resources recommended to peers", func(t *testing.T) {
		store := newFakeStore()
		store.peerWrong[10] = []int{1, 2, 3}
		store.peerRecs[2] = []models.Recommendation{
			{UserID: 2, ResourceID: 7, RelevanceScore: 0.8},
		}
		store.peerRecs[3] = []models.Recommendation{
			{UserID: 3, ResourceID: 9, RelevanceScore: 0.95},
		}
		recommender := NewCollaborativeRecommender(store, newTestLogger(), 0.5)

		ids, err := recommender.Recommend(ctx, 1, []int{10}, 5)
		require.NoError(t, err)

		// Best peer score first
		assert.Equal(t, []int{9, 7}, ids)
	})

	t.Run("filters out low-relevance peer recommendations", func(t *testing.T) {
		store := newFakeStore()
		store.peerWrong[10] = []int{2}
		store.peerRecs[2] = []models.Recommendation{
			{UserID: 2, ResourceID: 7, RelevanceScore: 0.3},
			{UserID: 2, ResourceID: 8, RelevanceScore: 0.5}, // threshold is strict
			{UserID: 2, ResourceID: 9, RelevanceScore: 0.6},
		}
		recommender := NewCollaborativeRecommender(store, newTestLogger(), 0.5)

		ids, err := recommender.Recommend(ctx, 1, []int{10}, 5)
		require.NoError(t, err)
		assert.Equal(t, []int{9}, ids)
	})

	t.Run("limit caps the result", func(t *testing.T) {
		store := newFakeStore()
		store.peerWrong[10] = []int{2}
		store.peerRecs[2] = []models.Recommendation{
			{UserID: 2, ResourceID: 7, RelevanceScore: 0.9},
			{UserID: 2, ResourceID: 8, RelevanceScore: 0.8},
			{UserID: 2, ResourceID: 9, RelevanceScore: 0.7},
		}
		recommender := NewCollaborativeRecommender(store, newTestLogger(), 0.5)

		ids, err := recommender.Recommend(ctx, 1, []int{10}, 2)
		require.NoError(t, err)
		assert.Equal(t, []int{7, 8}, ids)
	})

	t.Run("zero limit yields no recommendations", func(t *testing.T) {
		store := newFakeStore()
		store.peerWrong[10] = []int{2}
		recommender := NewCollaborativeRecommender(store, newTestLogger(), 0.5)

		ids, err := recommender.Recommend(ctx, 1, []int{10}, 0)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("peer lookup failure is classified as a lookup failure", func(t *testing.T) {
		store := newFakeStore()
		store.peersErr = errors.New("connection reset")
		recommender := NewCollaborativeRecommender(store, newTestLogger(), 0.5)

		ids, err := recommender.Recommend(ctx, 1, []int{10}, 5)
		require.Error(t, err)
		assert.Nil(t, ids)
		assert.Equal(t, contextutils.ErrorCodeLookupFailed, contextutils.GetErrorCode(err))
		assert.ErrorIs(t, err, store.peersErr)
	})

	t.Run("peer recommendation load failure is classified as a lookup failure", func(t *testing.T) {
		store := newFakeStore()
		store.peerWrong[10] = []int{2}
		store.peerRecsErr = errors.New("connection reset")
		recommender := NewCollaborativeRecommender(store, newTestLogger(), 0.5)

		ids, err := recommender.Recommend(ctx, 1, []int{10}, 5)
		require.Error(t, err)
		assert.Nil(t, ids)
		assert.Equal(t, contextutils.ErrorCodeLookupFailed, contextutils.GetErrorCode(err))
	})
}
