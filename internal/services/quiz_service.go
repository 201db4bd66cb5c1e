package services

import (
	"context"
	"database/sql"
	"errors"

	"quizhub/internal/config"
	"quizhub/internal/models"
	"quizhub/internal/observability"
	contextutils "quizhub/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// QuizServiceInterface defines quiz catalog and submission operations
type QuizServiceInterface interface {
	GetSubjects(ctx context.Context) ([]models.Subject, error)
	GetQuizzes(ctx context.Context, subjectID int) ([]models.Quiz, error)
	GetQuizQuestions(ctx context.Context, userID, quizID int) ([]models.Question, *models.QuizAttempt, error)
	SubmitQuiz(ctx context.Context, userID int, submission *models.QuizSubmission) (*models.QuizResult, error)
}

// QuizService handles the quiz catalog, attempts, and scoring. Scoring a
// submission triggers the recommendation engine; engine failures never
// fail the submission.
type QuizService struct {
	db              *sql.DB
	cfg             *config.Config
	logger          *observability.Logger
	recommendations RecommendationServiceInterface
}

// NewQuizService creates a new quiz service
func NewQuizService(db *sql.DB, cfg *config.Config, logger *observability.Logger, recommendations RecommendationServiceInterface) *QuizService {
	return &QuizService{
		db:              db,
		cfg:             cfg,
		logger:          logger,
		recommendations: recommendations,
	}
}

// GetSubjects returns all subjects
func (s *QuizService) GetSubjects(ctx context.Context) (result0 []models.Subject, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "GetSubjects")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description FROM subjects ORDER BY name`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query subjects")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	var subjects []models.Subject
	for rows.Next() {
		var subject models.Subject
		if err := rows.Scan(&subject.ID, &subject.Name, &subject.Description); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan subject")
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating subjects")
	}

	return subjects, nil
}

// GetQuizzes returns quizzes, optionally filtered by subject. A subjectID
// of 0 returns all quizzes.
func (s *QuizService) GetQuizzes(ctx context.Context, subjectID int) (result0 []models.Quiz, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "GetQuizzes",
		observability.AttributeSubjectID(subjectID),
	)
	defer observability.FinishSpan(span, &err)

	query := `SELECT id, subject_id, title, description, created_at FROM quizzes`
	args := []interface{}{}
	if subjectID > 0 {
		query += ` WHERE subject_id = $1`
		args = append(args, subjectID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query quizzes")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	var quizzes []models.Quiz
	for rows.Next() {
		var quiz models.Quiz
		if err := rows.Scan(&quiz.ID, &quiz.SubjectID, &quiz.Title, &quiz.Description, &quiz.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan quiz")
		}
		quizzes = append(quizzes, quiz)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating quizzes")
	}

	return quizzes, nil
}

// GetQuizQuestions returns the questions for a quiz with their options and
// the user's attempt, creating the attempt if this is the user's first time
// taking the quiz. Correct answers are never included in the options.
func (s *QuizService) GetQuizQuestions(ctx context.Context, userID, quizID int) (result0 []models.Question, result1 *models.QuizAttempt, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "GetQuizQuestions",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(quizID),
	)
	defer observability.FinishSpan(span, &err)

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM quizzes WHERE id = $1)`, quizID).Scan(&exists); err != nil {
		return nil, nil, contextutils.WrapError(err, "failed to check quiz")
	}
	if !exists {
		return nil, nil, contextutils.ErrQuizNotFound
	}

	attempt, err := s.getOrCreateAttempt(ctx, userID, quizID)
	if err != nil {
		return nil, nil, err
	}

	questions, err := s.loadQuestionsWithOptions(ctx, quizID)
	if err != nil {
		return nil, nil, err
	}

	return questions, attempt, nil
}

// getOrCreateAttempt returns the user's attempt for the quiz, creating one
// if none exists. The (user_id, quiz_id) uniqueness constraint makes the
// insert race-safe.
func (s *QuizService) getOrCreateAttempt(ctx context.Context, userID, quizID int) (*models.QuizAttempt, error) {
	query := `
		INSERT INTO quiz_attempts (user_id, quiz_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, quiz_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, quiz_id, score, completed, started_at, completed_at`

	var attempt models.QuizAttempt
	err := s.db.QueryRowContext(ctx, query, userID, quizID).Scan(
		&attempt.ID, &attempt.UserID, &attempt.QuizID, &attempt.Score,
		&attempt.Completed, &attempt.StartedAt, &attempt.CompletedAt,
	)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get or create quiz attempt")
	}
	return &attempt, nil
}

// loadQuestionsWithOptions loads a quiz's questions and attaches their options
func (s *QuizService) loadQuestionsWithOptions(ctx context.Context, quizID int) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.quiz_id, q.text, q.created_at, o.id, o.question_id, o.text, o.is_correct
		FROM questions q
		JOIN options o ON o.question_id = q.id
		WHERE q.quiz_id = $1
		ORDER BY q.id, o.id`, quizID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to query questions")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error(ctx, "Failed to close rows", closeErr)
		}
	}()

	var questions []models.Question
	index := make(map[int]int)
	for rows.Next() {
		var q models.Question
		var o models.Option
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.CreatedAt, &o.ID, &o.QuestionID, &o.Text, &o.IsCorrect); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan question")
		}
		pos, ok := index[q.ID]
		if !ok {
			pos = len(questions)
			index[q.ID] = pos
			questions = append(questions, q)
		}
		questions[pos].Options = append(questions[pos].Options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "error iterating questions")
	}

	return questions, nil
}

// SubmitQuiz scores a quiz submission, records the answers, completes the
// attempt, and triggers recommendation generation. Questions missing from
// the submission or submitted with a selected option of -1 are recorded as
// unanswered and incorrect. A completed attempt cannot be resubmitted.
func (s *QuizService) SubmitQuiz(ctx context.Context, userID int, submission *models.QuizSubmission) (result0 *models.QuizResult, err error) {
	ctx, span := observability.TraceQuizFunction(ctx, "SubmitQuiz",
		observability.AttributeUserID(userID),
		observability.AttributeQuizID(submission.QuizID),
	)
	defer observability.FinishSpan(span, &err)

	questions, err := s.loadQuestionsWithOptions(ctx, submission.QuizID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, contextutils.ErrQuizNotFound
	}

	attempt, err := s.getOrCreateAttempt(ctx, userID, submission.QuizID)
	if err != nil {
		return nil, err
	}
	if attempt.Completed {
		return nil, contextutils.ErrAttemptCompleted
	}

	// Index submitted answers; -1 marks an explicit skip
	submitted := make(map[int]int, len(submission.Answers))
	for _, answer := range submission.Answers {
		submitted[answer.QuestionID] = answer.SelectedOptionID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error(ctx, "Failed to rollback transaction", rbErr)
			}
		}
	}()

	// Clear any answers from a previous partial submission
	if _, err = tx.ExecContext(ctx, `DELETE FROM user_answers WHERE attempt_id = $1`, attempt.ID); err != nil {
		err = contextutils.WrapError(err, "failed to clear previous answers")
		return nil, err
	}

	correct := 0
	for _, question := range questions {
		optionID, answered := submitted[question.ID]
		if optionID == -1 {
			answered = false
		}

		var selected sql.NullInt64
		isCorrect := false
		if answered {
			for _, option := range question.Options {
				if option.ID == optionID {
					selected = sql.NullInt64{Int64: int64(optionID), Valid: true}
					isCorrect = option.IsCorrect
					break
				}
			}
		}
		if isCorrect {
			correct++
		}

		if _, err = tx.ExecContext(ctx, `
			INSERT INTO user_answers (attempt_id, question_id, selected_option_id, is_correct)
			VALUES ($1, $2, $3, $4)`, attempt.ID, question.ID, selected, isCorrect); err != nil {
			err = contextutils.WrapError(err, "failed to record answer")
			return nil, err
		}
	}

	score := float64(correct) / float64(len(questions)) * 100

	if _, err = tx.ExecContext(ctx, `
		UPDATE quiz_attempts
		SET score = $1, completed = TRUE, completed_at = NOW()
		WHERE id = $2`, score, attempt.ID); err != nil {
		err = contextutils.WrapError(err, "failed to complete attempt")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = contextutils.WrapError(err, "failed to commit submission")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("answers.correct", correct),
		attribute.Int("answers.total", len(questions)),
		attribute.Float64("score", score),
	)
	observability.RecordQuizSubmission(ctx)

	// Recommendation failures are swallowed inside the engine; the scored
	// submission always succeeds.
	recommendations := s.recommendations.GenerateRecommendations(ctx, userID, attempt.ID)

	return &models.QuizResult{
		AttemptID:       attempt.ID,
		Score:           score,
		Correct:         correct,
		Total:           len(questions),
		Recommendations: recommendations,
	}, nil
}
