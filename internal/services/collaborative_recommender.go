package services

import (
	"context"

	"quizhub/internal/observability"
	contextutils "quizhub/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// CollaborativeRecommender surfaces resources that helped peers who
// struggled with the same questions.
type CollaborativeRecommender struct {
	store    RecommendationStoreInterface
	logger   *observability.Logger
	minScore float64
}

// NewCollaborativeRecommender creates a new collaborative recommender.
// minScore is the strict lower bound on peer relevance scores.
func NewCollaborativeRecommender(store RecommendationStoreInterface, logger *observability.Logger, minScore float64) *CollaborativeRecommender {
	return &CollaborativeRecommender{
		store:    store,
		logger:   logger,
		minScore: minScore,
	}
}

// Recommend returns up to limit resource IDs recommended to peers who also
// answered any of the given questions incorrectly, ordered by the best
// relevance score any peer received. The requesting user is never counted
// as their own peer.
func (cr *CollaborativeRecommender) Recommend(ctx context.Context, userID int, wrongQuestionIDs []int, limit int) (result0 []int, err error) {
	ctx, span := observability.TraceRecommendationFunction(ctx, "CollaborativeRecommend",
		observability.AttributeUserID(userID),
		attribute.Int("question.count", len(wrongQuestionIDs)),
		observability.AttributeLimit(limit),
	)
	defer observability.FinishSpan(span, &err)

	if len(wrongQuestionIDs) == 0 || limit <= 0 {
		return []int{}, nil
	}

	peerIDs, err := cr.store.UsersWhoAnsweredWrong(ctx, wrongQuestionIDs, userID)
	if err != nil {
		return nil, contextutils.WrapErrorWithCode(err, contextutils.ErrLookupFailed, "failed to find peer users")
	}
	if len(peerIDs) == 0 {
		return []int{}, nil
	}

	span.SetAttributes(attribute.Int("peer.count", len(peerIDs)))

	resourceIDs, err := cr.store.PeerRecommendedResourceIDs(ctx, peerIDs, cr.minScore, limit)
	if err != nil {
		return nil, contextutils.WrapErrorWithCode(err, contextutils.ErrLookupFailed, "failed to load peer recommendations")
	}

	span.SetAttributes(observability.AttributeCandidateCount(len(resourceIDs)))
	return resourceIDs, nil
}
