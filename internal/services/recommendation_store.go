package services

import (
	"context"
	"database/sql"

	"quizhub/internal/models"
	"quizhub/internal/observability"
	contextutils "quizhub/internal/utils"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
)

// RecommendationStoreInterface defines the datastore operations the
// recommendation engine depends on
type RecommendationStoreInterface interface {
	QuestionsByIDs(ctx context.Context, ids []int) ([]models.Question, error)
	WrongAnswerQuestionIDs(ctx context.Context, attemptID int) ([]int, error)
	AllResources(ctx context.Context) ([]models.Resource, error)
	UsersWhoAnsweredWrong(ctx context.Context, questionIDs []int, excludeUserID int) ([]int, error)
	PeerRecommendedResourceIDs(ctx context.Context, userIDs []int, minScore float64, limit int) ([]int, error)
	UpsertRecommendation(ctx context.Context, userID, resourceID, attemptID int, score float64) (*models.Recommendation, error)
	RecommendationsForAttempt(ctx context.Context, userID, attemptID int) ([]models.Recommendation, error)
	RecommendationsForUser(ctx context.Context, userID int) ([]models.Recommendation, error)
	MarkViewed(ctx context.Context, userID, recommendationID int) error
}

// RecommendationStore implements RecommendationStoreInterface backed by PostgreSQL
type RecommendationStore struct {
	db     *sql.DB
	logger *observability.Logger
}

// NewRecommendationStore creates a new recommendation store
func NewRecommendationStore(db *sql.DB, logger *observability.Logger) *RecommendationStore {
	return &RecommendationStore{
		db:     db,
		logger: logger,
	}
}

// QuestionsByIDs returns the questions matching the given IDs. Unknown IDs
// are silently skipped.
func (s *RecommendationStore) QuestionsByIDs(ctx context.Context, ids []int) (result0 []models.Question, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "QuestionsByIDs",
		attribute.Int("question.count", len(ids)),
	)
	defer observability.FinishSpan(span, &err)

	if len(ids) == 0 {
		return []models.Question{}, nil
	}

	query := `
		SELECT id, quiz_id, text, created_at
		FROM questions
		WHERE id = ANY($1)
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query questions by ids")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question")
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating questions")
	}

	return questions, nil
}

// WrongAnswerQuestionIDs returns the question IDs answered incorrectly in
// the given quiz attempt.
func (s *RecommendationStore) WrongAnswerQuestionIDs(ctx context.Context, attemptID int) (result0 []int, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "WrongAnswerQuestionIDs",
		observability.AttributeAttemptID(attemptID),
	)
	defer observability.FinishSpan(span, &err)

	query := `
		SELECT question_id
		FROM user_answers
		WHERE attempt_id = $1 AND is_correct = FALSE
		ORDER BY question_id`

	rows, err := s.db.QueryContext(ctx, query, attemptID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query wrong answers")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	var questionIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question id")
		}
		questionIDs = append(questionIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating wrong answers")
	}

	return questionIDs, nil
}

// AllResources returns every resource in the catalog
func (s *RecommendationStore) AllResources(ctx context.Context) (result0 []models.Resource, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "AllResources")
	defer observability.FinishSpan(span, &err)

	query := `
		SELECT id, title, description, url, resource_type, keywords, rating, created_at
		FROM resources
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query resources")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	var resources []models.Resource
	for rows.Next() {
		var r models.Resource
		if err := rows.Scan(&r.ID, &r.Title, &r.Description, &r.URL, &r.ResourceType, pq.Array(&r.Keywords), &r.Rating, &r.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan resource")
		}
		resources = append(resources, r)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating resources")
	}

	span.SetAttributes(attribute.Int("resource.count", len(resources)))
	return resources, nil
}

// UsersWhoAnsweredWrong returns the distinct IDs of users other than
// excludeUserID who answered any of the given questions incorrectly.
func (s *RecommendationStore) UsersWhoAnsweredWrong(ctx context.Context, questionIDs []int, excludeUserID int) (result0 []int, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "UsersWhoAnsweredWrong",
		attribute.Int("question.count", len(questionIDs)),
		observability.AttributeUserID(excludeUserID),
	)
	defer observability.FinishSpan(span, &err)

	if len(questionIDs) == 0 {
		return []int{}, nil
	}

	query := `
		SELECT DISTINCT qa.user_id
		FROM user_answers ua
		JOIN quiz_attempts qa ON ua.attempt_id = qa.id
		WHERE ua.question_id = ANY($1)
		  AND ua.is_correct = FALSE
		  AND qa.user_id <> $2
		ORDER BY qa.user_id`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(questionIDs), excludeUserID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query peer users")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	var userIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan user id")
		}
		userIDs = append(userIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating peer users")
	}

	return userIDs, nil
}

// PeerRecommendedResourceIDs returns distinct resource IDs recommended to
// the given users with relevance strictly above minScore, ordered by the
// highest relevance any peer received, capped at limit.
func (s *RecommendationStore) PeerRecommendedResourceIDs(ctx context.Context, userIDs []int, minScore float64, limit int) (result0 []int, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "PeerRecommendedResourceIDs",
		attribute.Int("user.count", len(userIDs)),
		attribute.Float64("min_score", minScore),
		observability.AttributeLimit(limit),
	)
	defer observability.FinishSpan(span, &err)

	if len(userIDs) == 0 || limit <= 0 {
		return []int{}, nil
	}

	query := `
		SELECT resource_id
		FROM (
			SELECT resource_id, MAX(relevance_score) AS max_score
			FROM recommendations
			WHERE user_id = ANY($1) AND relevance_score > $2
			GROUP BY resource_id
		) peer_resources
		ORDER BY max_score DESC, resource_id
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(userIDs), minScore, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query peer recommendations")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	var resourceIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan resource id")
		}
		resourceIDs = append(resourceIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating peer recommendations")
	}

	return resourceIDs, nil
}

// UpsertRecommendation inserts a recommendation for the (user, resource,
// attempt) triple or updates its relevance score if it already exists.
// Viewed state is preserved on update.
func (s *RecommendationStore) UpsertRecommendation(ctx context.Context, userID, resourceID, attemptID int, score float64) (result0 *models.Recommendation, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "UpsertRecommendation",
		observability.AttributeUserID(userID),
		observability.AttributeResourceID(resourceID),
		observability.AttributeAttemptID(attemptID),
		attribute.Float64("relevance_score", score),
	)
	defer observability.FinishSpan(span, &err)

	query := `
		INSERT INTO recommendations (user_id, resource_id, quiz_attempt_id, relevance_score, viewed)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (user_id, resource_id, quiz_attempt_id)
		DO UPDATE SET relevance_score = EXCLUDED.relevance_score
		RETURNING id, user_id, resource_id, quiz_attempt_id, relevance_score, viewed, created_at`

	var rec models.Recommendation
	err = s.db.QueryRowContext(ctx, query, userID, resourceID, attemptID, score).Scan(
		&rec.ID, &rec.UserID, &rec.ResourceID, &rec.QuizAttemptID,
		&rec.RelevanceScore, &rec.Viewed, &rec.CreatedAt,
	)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to upsert recommendation")
	}

	return &rec, nil
}

// RecommendationsForAttempt returns the user's recommendations for a quiz
// attempt, most relevant first, with resources attached. Filtering by both
// user and attempt keeps one user from reading another's recommendations
// through a guessed attempt ID.
func (s *RecommendationStore) RecommendationsForAttempt(ctx context.Context, userID, attemptID int) (result0 []models.Recommendation, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "RecommendationsForAttempt",
		observability.AttributeUserID(userID),
		observability.AttributeAttemptID(attemptID),
	)
	defer observability.FinishSpan(span, &err)

	query := `
		SELECT rec.id, rec.user_id, rec.resource_id, rec.quiz_attempt_id,
		       rec.relevance_score, rec.viewed, rec.created_at,
		       res.id, res.title, res.description, res.url, res.resource_type,
		       res.keywords, res.rating, res.created_at
		FROM recommendations rec
		JOIN resources res ON rec.resource_id = res.id
		WHERE rec.quiz_attempt_id = $1 AND rec.user_id = $2
		ORDER BY rec.relevance_score DESC, rec.id`

	return s.queryRecommendations(ctx, query, attemptID, userID)
}

// RecommendationsForUser returns all recommendations for a user, most
// relevant first, with resources attached.
func (s *RecommendationStore) RecommendationsForUser(ctx context.Context, userID int) (result0 []models.Recommendation, err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "RecommendationsForUser",
		observability.AttributeUserID(userID),
	)
	defer observability.FinishSpan(span, &err)

	query := `
		SELECT rec.id, rec.user_id, rec.resource_id, rec.quiz_attempt_id,
		       rec.relevance_score, rec.viewed, rec.created_at,
		       res.id, res.title, res.description, res.url, res.resource_type,
		       res.keywords, res.rating, res.created_at
		FROM recommendations rec
		JOIN resources res ON rec.resource_id = res.id
		WHERE rec.user_id = $1
		ORDER BY rec.relevance_score DESC, rec.id`

	return s.queryRecommendations(ctx, query, userID)
}

// queryRecommendations runs a recommendation+resource join query and scans the rows
func (s *RecommendationStore) queryRecommendations(ctx context.Context, query string, args ...interface{}) ([]models.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query recommendations")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	var recommendations []models.Recommendation
	for rows.Next() {
		var rec models.Recommendation
		var res models.Resource
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.ResourceID, &rec.QuizAttemptID,
			&rec.RelevanceScore, &rec.Viewed, &rec.CreatedAt,
			&res.ID, &res.Title, &res.Description, &res.URL, &res.ResourceType,
			pq.Array(&res.Keywords), &res.Rating, &res.CreatedAt,
		); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan recommendation")
		}
		rec.Resource = &res
		recommendations = append(recommendations, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating recommendations")
	}

	return recommendations, nil
}

// MarkViewed marks a recommendation as viewed. The user ID guards against
// marking another user's recommendation.
func (s *RecommendationStore) MarkViewed(ctx context.Context, userID, recommendationID int) (err error) {
	ctx, span := observability.TraceStoreFunction(ctx, "MarkViewed",
		observability.AttributeUserID(userID),
		attribute.Int("recommendation.id", recommendationID),
	)
	defer observability.FinishSpan(span, &err)

	query := `
		UPDATE recommendations
		SET viewed = TRUE
		WHERE id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, recommendationID, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to mark recommendation viewed")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return contextutils.WrapError(err, "failed to check rows affected")
	}
	if affected == 0 {
		return contextutils.ErrRecordNotFound
	}

	return nil
}
