//go:build integration
// +build integration

package services

import (
	"context"
	"database/sql"
	"testing"

	"quizhub/internal/config"
	"quizhub/internal/models"
	"quizhub/internal/observability"
	contextutils "quizhub/internal/utils"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// quizFixture holds the IDs created by seedQuizFixture.
type quizFixture struct {
	userID        int
	quizID        int
	questionIDs   []int
	correctOption map[int]int // questionID -> correct option ID
	wrongOption   map[int]int
}

// seedQuizFixture creates a user and a two-question quiz where each
// question has one correct and one wrong option.
func seedQuizFixture(t *testing.T, db *sql.DB) quizFixture {
	t.Helper()
	ctx := context.Background()
	f := quizFixture{
		correctOption: make(map[int]int),
		wrongOption:   make(map[int]int),
	}

	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO users (username) VALUES ('alice') RETURNING id`).Scan(&f.userID))

	var subjectID int
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO subjects (name) VALUES ('Algorithms') RETURNING id`).Scan(&subjectID))
	require.NoError(t, db.QueryRowContext(ctx,
		`INSERT INTO quizzes (subject_id, title) VALUES ($1, 'Search') RETURNING id`, subjectID).Scan(&f.quizID))

	for _, text := range []string{
		"What is the complexity of binary search?",
		"Which traversal visits graph neighbors first?",
	} {
		var questionID int
		require.NoError(t, db.QueryRowContext(ctx,
			`INSERT INTO questions (quiz_id, text) VALUES ($1, $2) RETURNING id`,
			f.quizID, text).Scan(&questionID))
		f.questionIDs = append(f.questionIDs, questionID)

		var correctID, wrongID int
		require.NoError(t, db.QueryRowContext(ctx,
			`INSERT INTO options (question_id, text, is_correct) VALUES ($1, 'right', TRUE) RETURNING id`,
			questionID).Scan(&correctID))
		require.NoError(t, db.QueryRowContext(ctx,
			`INSERT INTO options (question_id, text, is_correct) VALUES ($1, 'wrong', FALSE) RETURNING id`,
			questionID).Scan(&wrongID))
		f.correctOption[questionID] = correctID
		f.wrongOption[questionID] = wrongID
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO resources (title, keywords) VALUES ('Binary Search Explained', $1)`,
		pq.Array([]string{"binary", "search", "complexity"}))
	require.NoError(t, err)

	return f
}

func newIntegrationQuizService(db *sql.DB) *QuizService {
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	cfg := &config.Config{
		Recommendation: config.RecommendationConfig{
			ContentLimit:       5,
			CollaborativeLimit: 5,
			MinPeerScore:       0.5,
		},
	}
	store := NewRecommendationStore(db, logger)
	recommendations := NewRecommendationService(store, cfg, logger)
	return NewQuizService(db, cfg, logger, recommendations)
}

func TestQuizService_GetQuizQuestions_Integration(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuizFixture(t, db)
	service := newIntegrationQuizService(db)
	ctx := context.Background()

	questions, attempt, err := service.GetQuizQuestions(ctx, f.userID, f.quizID)
	require.NoError(t, err)
	require.NotNil(t, attempt)
	assert.False(t, attempt.Completed)
	require.Len(t, questions, 2)
	assert.Len(t, questions[0].Options, 2)

	// A second call reuses the same attempt
	_, again, err := service.GetQuizQuestions(ctx, f.userID, f.quizID)
	require.NoError(t, err)
	assert.Equal(t, attempt.ID, again.ID)

	_, _, err = service.GetQuizQuestions(ctx, f.userID, 99999)
	assert.True(t, contextutils.IsError(err, contextutils.ErrQuizNotFound))
}

func TestQuizService_SubmitQuiz_Integration(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuizFixture(t, db)
	service := newIntegrationQuizService(db)
	ctx := context.Background()

	q1, q2 := f.questionIDs[0], f.questionIDs[1]
	submission := &models.QuizSubmission{
		QuizID: f.quizID,
		Answers: []models.AnswerSubmission{
			{QuestionID: q1, SelectedOptionID: f.wrongOption[q1]},
			{QuestionID: q2, SelectedOptionID: f.correctOption[q2]},
		},
	}

	result, err := service.SubmitQuiz(ctx, f.userID, submission)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Correct)
	assert.Equal(t, 2, result.Total)
	assert.InDelta(t, 50.0, result.Score, 1e-9)

	// The wrong answer on the binary-search question drives a recommendation
	require.NotEmpty(t, result.Recommendations)

	// Resubmission of a completed attempt is rejected
	_, err = service.SubmitQuiz(ctx, f.userID, submission)
	assert.True(t, contextutils.IsError(err, contextutils.ErrAttemptCompleted))
}

func TestQuizService_SubmitQuiz_UnansweredQuestions_Integration(t *testing.T) {
	db := setupTestDB(t)
	f := seedQuizFixture(t, db)
	service := newIntegrationQuizService(db)
	ctx := context.Background()

	q1 := f.questionIDs[0]
	result, err := service.SubmitQuiz(ctx, f.userID, &models.QuizSubmission{
		QuizID: f.quizID,
		Answers: []models.AnswerSubmission{
			{QuestionID: q1, SelectedOptionID: f.correctOption[q1]},
			{QuestionID: f.questionIDs[1], SelectedOptionID: -1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Correct)
	assert.InDelta(t, 50.0, result.Score, 1e-9)

	// The skipped question is recorded as incorrect with a null option
	var selected sql.NullInt64
	var isCorrect bool
	require.NoError(t, db.QueryRowContext(ctx, `
		SELECT selected_option_id, is_correct
		FROM user_answers
		WHERE attempt_id = $1 AND question_id = $2`,
		result.AttemptID, f.questionIDs[1]).Scan(&selected, &isCorrect))
	assert.False(t, selected.Valid)
	assert.False(t, isCorrect)
}

func TestQuizService_SubmitQuiz_UnknownQuiz_Integration(t *testing.T) {
	db := setupTestDB(t)
	seedQuizFixture(t, db)
	service := newIntegrationQuizService(db)

	_, err := service.SubmitQuiz(context.Background(), 1, &models.QuizSubmission{
		QuizID:  99999,
		Answers: []models.AnswerSubmission{{QuestionID: 1, SelectedOptionID: 1}},
	})
	assert.True(t, contextutils.IsError(err, contextutils.ErrQuizNotFound))
}

func TestUserService_Integration(t *testing.T) {
	db := setupTestDB(t)
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	cfg := &config.Config{}
	service := NewUserService(db, cfg, logger)
	ctx := context.Background()

	user, err := service.CreateUser(ctx, "alice", "alice@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = service.CreateUser(ctx, "alice", "", "another-pass")
	assert.True(t, contextutils.IsError(err, contextutils.ErrRecordExists))

	authed, err := service.AuthenticateUser(ctx, "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authed.ID)

	_, err = service.AuthenticateUser(ctx, "alice", "wrong-pass")
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidCredentials))

	_, err = service.AuthenticateUser(ctx, "nobody", "s3cret-pass")
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidCredentials))
}

func TestUserService_EnsureAdminUserExists_Integration(t *testing.T) {
	db := setupTestDB(t)
	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	cfg := &config.Config{}
	service := NewUserService(db, cfg, logger)
	ctx := context.Background()

	// First boot creates the admin account
	require.NoError(t, service.EnsureAdminUserExists(ctx, "admin", "first-pass"))

	admin, err := service.AuthenticateUser(ctx, "admin", "first-pass")
	require.NoError(t, err)

	// A second boot with the same password is a no-op
	require.NoError(t, service.EnsureAdminUserExists(ctx, "admin", "first-pass"))

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = 'admin'`).Scan(&count))
	assert.Equal(t, 1, count)

	// A changed configured password rotates the stored hash
	require.NoError(t, service.EnsureAdminUserExists(ctx, "admin", "second-pass"))

	rotated, err := service.AuthenticateUser(ctx, "admin", "second-pass")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, rotated.ID)

	_, err = service.AuthenticateUser(ctx, "admin", "first-pass")
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidCredentials))
}
