package handlers

import (
	"net/http"
	"strconv"

	"quizhub/internal/config"
	"quizhub/internal/models"
	"quizhub/internal/observability"
	"quizhub/internal/services"
	contextutils "quizhub/internal/utils"

	"github.com/gin-gonic/gin"
)

// QuizHandler handles the quiz catalog, question delivery, and submissions
type QuizHandler struct {
	quizService services.QuizServiceInterface
	cfg         *config.Config
	logger      *observability.Logger
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(quizService services.QuizServiceInterface, cfg *config.Config, logger *observability.Logger) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		cfg:         cfg,
		logger:      logger,
	}
}

// GetSubjects returns all subjects
func (h *QuizHandler) GetSubjects(c *gin.Context) {
	var err error
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "GetSubjects")
	defer observability.FinishSpan(span, &err)

	subjects, err := h.quizService.GetSubjects(ctx)
	if err != nil {
		h.logger.Error(ctx, "Failed to load subjects", err)
		HandleAppError(c, err)
		return
	}

	if subjects == nil {
		subjects = []models.Subject{}
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

// GetQuizzes returns quizzes, optionally filtered by the subject_id query parameter
func (h *QuizHandler) GetQuizzes(c *gin.Context) {
	var err error
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "GetQuizzes")
	defer observability.FinishSpan(span, &err)

	subjectID := 0
	if raw := c.Query("subject_id"); raw != "" {
		subjectID, err = strconv.Atoi(raw)
		if err != nil || subjectID <= 0 {
			HandleValidationError(c, "subject_id", raw, "must be a positive integer")
			return
		}
	}

	quizzes, err := h.quizService.GetQuizzes(ctx, subjectID)
	if err != nil {
		h.logger.Error(ctx, "Failed to load quizzes", err)
		HandleAppError(c, err)
		return
	}

	if quizzes == nil {
		quizzes = []models.Quiz{}
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": quizzes})
}

// GetQuizQuestions returns the questions for a quiz and the user's attempt,
// creating the attempt on first access
func (h *QuizHandler) GetQuizQuestions(c *gin.Context) {
	var err error
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "GetQuizQuestions")
	defer observability.FinishSpan(span, &err)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	quizID, err := strconv.Atoi(c.Query("quiz_id"))
	if err != nil || quizID <= 0 {
		HandleValidationError(c, "quiz_id", c.Query("quiz_id"), "must be a positive integer")
		return
	}

	questions, attempt, err := h.quizService.GetQuizQuestions(ctx, userID, quizID)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrQuizNotFound) {
			StandardizeHTTPError(c, http.StatusNotFound, "Quiz not found", "")
			return
		}
		h.logger.Error(ctx, "Failed to load quiz questions", err, map[string]interface{}{
			"user_id": userID,
			"quiz_id": quizID,
		})
		HandleAppError(c, err)
		return
	}

	if questions == nil {
		questions = []models.Question{}
	}
	c.JSON(http.StatusOK, gin.H{
		"attempt":   attempt,
		"questions": questions,
	})
}

// SubmitQuiz scores a quiz submission and returns the result with any
// generated recommendations
func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	var err error
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "SubmitQuiz")
	defer observability.FinishSpan(span, &err)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	var submission models.QuizSubmission
	if err = c.ShouldBindJSON(&submission); err != nil {
		HandleValidationError(c, "request body", nil, err.Error())
		return
	}

	result, err := h.quizService.SubmitQuiz(ctx, userID, &submission)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrAttemptCompleted) {
			StandardizeHTTPError(c, http.StatusConflict, "Quiz attempt already completed", "")
			return
		}
		if contextutils.IsError(err, contextutils.ErrQuizNotFound) {
			StandardizeHTTPError(c, http.StatusNotFound, "Quiz not found", "")
			return
		}
		h.logger.Error(ctx, "Failed to submit quiz", err, map[string]interface{}{
			"user_id": userID,
			"quiz_id": submission.QuizID,
		})
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(observability.AttributeAttemptID(result.AttemptID))
	c.JSON(http.StatusOK, result)
}
