package services

import (
	"context"
	"sync"

	"quizhub/internal/config"
	"quizhub/internal/models"
	"quizhub/internal/observability"
	contextutils "quizhub/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// RecommendationServiceInterface defines the recommendation engine operations
type RecommendationServiceInterface interface {
	GenerateRecommendations(ctx context.Context, userID, attemptID int) []models.Recommendation
	GetAttemptRecommendations(ctx context.Context, userID, attemptID int) ([]models.Recommendation, error)
	GetUserRecommendations(ctx context.Context, userID int) ([]models.Recommendation, error)
	MarkRecommendationViewed(ctx context.Context, userID, recommendationID int) error
}

// RecommendationService orchestrates the content and collaborative signals
// into persisted recommendations. Engine failures degrade to an empty result
// and are logged; they never surface to callers.
type RecommendationService struct {
	store         RecommendationStoreInterface
	extractor     *KeywordExtractor
	content       *ContentRecommender
	collaborative *CollaborativeRecommender
	cfg           *config.Config
	logger        *observability.Logger
}

// NewRecommendationService creates the recommendation engine with its
// component recommenders wired to the given store.
func NewRecommendationService(store RecommendationStoreInterface, cfg *config.Config, logger *observability.Logger) *RecommendationService {
	return &RecommendationService{
		store:         store,
		extractor:     NewKeywordExtractor(logger),
		content:       NewContentRecommender(logger),
		collaborative: NewCollaborativeRecommender(store, logger, cfg.Recommendation.MinPeerScoreOrDefault()),
		cfg:           cfg,
		logger:        logger,
	}
}

// GenerateRecommendations builds and persists recommendations for a user's
// quiz attempt. The two signals run concurrently; their results are merged
// content-first, deduplicated, scored by position, and upserted keyed on the
// (user, resource, attempt) triple. Rerunning for the same attempt updates
// scores in place rather than duplicating rows.
func (rs *RecommendationService) GenerateRecommendations(ctx context.Context, userID, attemptID int) []models.Recommendation {
	var err error
	ctx, span := observability.TraceRecommendationFunction(ctx, "GenerateRecommendations",
		observability.AttributeUserID(userID),
		observability.AttributeAttemptID(attemptID),
	)
	defer observability.FinishSpan(span, &err)

	wrongQuestionIDs, err := rs.store.WrongAnswerQuestionIDs(ctx, attemptID)
	if err != nil {
		err = contextutils.WrapErrorWithCode(err, contextutils.ErrLookupFailed, "failed to load wrong answers for attempt")
		rs.logger.Error(ctx, "Failed to load wrong answers for attempt", err, map[string]interface{}{
			"user_id":    userID,
			"attempt_id": attemptID,
		})
		return []models.Recommendation{}
	}

	if len(wrongQuestionIDs) == 0 {
		rs.logger.Info(ctx, "No wrong answers for attempt, skipping recommendations", map[string]interface{}{
			"user_id":    userID,
			"attempt_id": attemptID,
		})
		return []models.Recommendation{}
	}

	span.SetAttributes(attribute.Int("wrong_question.count", len(wrongQuestionIDs)))

	var wg sync.WaitGroup
	var contentIDs, collabIDs []int

	wg.Add(2)
	go func() {
		defer wg.Done()
		contentIDs = rs.contentSignal(ctx, wrongQuestionIDs)
	}()
	go func() {
		defer wg.Done()
		collabIDs = rs.collaborativeSignal(ctx, userID, wrongQuestionIDs)
	}()
	wg.Wait()

	resourceIDs := mergeResourceIDs(contentIDs, collabIDs)
	if len(resourceIDs) == 0 {
		return []models.Recommendation{}
	}

	span.SetAttributes(
		attribute.Int("content.count", len(contentIDs)),
		attribute.Int("collaborative.count", len(collabIDs)),
		attribute.Int("merged.count", len(resourceIDs)),
	)

	// Positional relevance: top of the list gets 1.0, each step down loses
	// 1/N. A single recommendation scores 1.0.
	saved := make([]models.Recommendation, 0, len(resourceIDs))
	total := len(resourceIDs)
	for i, resourceID := range resourceIDs {
		score := 1.0
		if total > 1 {
			score = 1.0 - float64(i)/float64(total)
		}

		rec, upsertErr := rs.store.UpsertRecommendation(ctx, userID, resourceID, attemptID, score)
		if upsertErr != nil {
			// Best effort: keep persisting the remaining recommendations
			upsertErr = contextutils.WrapErrorWithCode(upsertErr, contextutils.ErrPersistenceFailed, "failed to persist recommendation")
			rs.logger.Error(ctx, "Failed to persist recommendation", upsertErr, map[string]interface{}{
				"user_id":     userID,
				"attempt_id":  attemptID,
				"resource_id": resourceID,
			})
			observability.RecordRecommendationPersistFailure(ctx)
			continue
		}
		saved = append(saved, *rec)
	}

	observability.RecordRecommendationsGenerated(ctx, len(saved))
	rs.logger.Info(ctx, "Generated recommendations", map[string]interface{}{
		"user_id":    userID,
		"attempt_id": attemptID,
		"saved":      len(saved),
	})

	return saved
}

// contentSignal runs the keyword extraction and content similarity pipeline.
// Any failure is logged and degrades to an empty candidate list.
func (rs *RecommendationService) contentSignal(ctx context.Context, wrongQuestionIDs []int) []int {
	questions, err := rs.store.QuestionsByIDs(ctx, wrongQuestionIDs)
	if err != nil {
		err = contextutils.WrapErrorWithCode(err, contextutils.ErrLookupFailed, "failed to load questions for keyword extraction")
		rs.logger.Error(ctx, "Failed to load questions for keyword extraction", err)
		return nil
	}
	if len(questions) == 0 {
		return nil
	}

	texts := make([]string, len(questions))
	for i, q := range questions {
		texts[i] = q.Text
	}

	keywords, err := rs.extractor.ExtractFromTexts(ctx, texts)
	if err != nil {
		err = contextutils.WrapErrorWithCode(err, contextutils.ErrExtractionFailed, "keyword extraction failed")
		rs.logger.Error(ctx, "Keyword extraction failed", err)
		return nil
	}
	if len(keywords) == 0 {
		return nil
	}

	resources, err := rs.store.AllResources(ctx)
	if err != nil {
		err = contextutils.WrapErrorWithCode(err, contextutils.ErrLookupFailed, "failed to load resources for content matching")
		rs.logger.Error(ctx, "Failed to load resources for content matching", err)
		return nil
	}

	contentIDs, err := rs.content.Recommend(ctx, keywords, resources, rs.cfg.Recommendation.ContentLimitOrDefault())
	if err != nil {
		err = contextutils.WrapErrorWithCode(err, contextutils.ErrSimilarityFailed, "content-based recommendation failed")
		rs.logger.Error(ctx, "Content-based recommendation failed", err)
		return nil
	}

	return contentIDs
}

// collaborativeSignal runs the peer overlap pipeline. Any failure is logged
// and degrades to an empty candidate list.
func (rs *RecommendationService) collaborativeSignal(ctx context.Context, userID int, wrongQuestionIDs []int) []int {
	collabIDs, err := rs.collaborative.Recommend(ctx, userID, wrongQuestionIDs, rs.cfg.Recommendation.CollaborativeLimitOrDefault())
	if err != nil {
		rs.logger.Error(ctx, "Collaborative recommendation failed", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil
	}
	return collabIDs
}

// mergeResourceIDs unions the two candidate lists preserving order: content
// candidates first in rank order, then collaborative candidates not already
// present.
func mergeResourceIDs(contentIDs, collabIDs []int) []int {
	seen := make(map[int]bool, len(contentIDs)+len(collabIDs))
	merged := make([]int, 0, len(contentIDs)+len(collabIDs))

	for _, id := range contentIDs {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}
	for _, id := range collabIDs {
		if !seen[id] {
			seen[id] = true
			merged = append(merged, id)
		}
	}

	return merged
}

// GetAttemptRecommendations returns the user's persisted recommendations for
// a quiz attempt
func (rs *RecommendationService) GetAttemptRecommendations(ctx context.Context, userID, attemptID int) (result0 []models.Recommendation, err error) {
	ctx, span := observability.TraceRecommendationFunction(ctx, "GetAttemptRecommendations",
		observability.AttributeUserID(userID),
		observability.AttributeAttemptID(attemptID),
	)
	defer observability.FinishSpan(span, &err)

	return rs.store.RecommendationsForAttempt(ctx, userID, attemptID)
}

// GetUserRecommendations returns all persisted recommendations for a user
func (rs *RecommendationService) GetUserRecommendations(ctx context.Context, userID int) (result0 []models.Recommendation, err error) {
	ctx, span := observability.TraceRecommendationFunction(ctx, "GetUserRecommendations",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	return rs.store.RecommendationsForUser(ctx, userID)
}

// MarkRecommendationViewed marks one of the user's recommendations as viewed
func (rs *RecommendationService) MarkRecommendationViewed(ctx context.Context, userID, recommendationID int) (err error) {
	ctx, span := observability.TraceRecommendationFunction(ctx, "MarkRecommendationViewed",
		observability.AttributeUserID(userID),
		attribute.Int("recommendation.id", recommendationID),
	)
	defer observability.FinishSpan(span, &err)

	return rs.store.MarkViewed(ctx, userID, recommendationID)
}
