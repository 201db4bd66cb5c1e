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

// RecommendationHandler exposes the user's recommendations
type RecommendationHandler struct {
	recommendationService services.RecommendationServiceInterface
	cfg                   *config.Config
	logger                *observability.Logger
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(recommendationService services.RecommendationServiceInterface, cfg *config.Config, logger *observability.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommendationService: recommendationService,
		cfg:                   cfg,
		logger:                logger,
	}
}

// GetRecommendations returns the authenticated user's recommendations,
// most relevant first. An optional quiz_attempt_id query parameter narrows
// the result to a single attempt; the filter is always scoped to the
// session user so attempts belonging to other users come back empty.
func (h *RecommendationHandler) GetRecommendations(c *gin.Context) {
	var err error
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "GetRecommendations")
	defer observability.FinishSpan(span, &err)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	var recommendations []models.Recommendation
	if rawAttemptID := c.Query("quiz_attempt_id"); rawAttemptID != "" {
		attemptID, parseErr := strconv.Atoi(rawAttemptID)
		if parseErr != nil || attemptID <= 0 {
			HandleValidationError(c, "quiz_attempt_id", rawAttemptID, "must be a positive integer")
			return
		}
		recommendations, err = h.recommendationService.GetAttemptRecommendations(ctx, userID, attemptID)
	} else {
		recommendations, err = h.recommendationService.GetUserRecommendations(ctx, userID)
	}
	if err != nil {
		h.logger.Error(ctx, "Failed to load recommendations", err, map[string]interface{}{"user_id": userID})
		HandleAppError(c, err)
		return
	}

	if recommendations == nil {
		recommendations = []models.Recommendation{}
	}

	span.SetAttributes(observability.AttributeUserID(userID))
	c.JSON(http.StatusOK, gin.H{"recommendations": recommendations})
}

// MarkViewed marks one of the user's recommendations as viewed
func (h *RecommendationHandler) MarkViewed(c *gin.Context) {
	var err error
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "MarkViewed")
	defer observability.FinishSpan(span, &err)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	recommendationID, err := strconv.Atoi(c.Param("id"))
	if err != nil || recommendationID <= 0 {
		HandleValidationError(c, "id", c.Param("id"), "must be a positive integer")
		return
	}

	if err = h.recommendationService.MarkRecommendationViewed(ctx, userID, recommendationID); err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			StandardizeHTTPError(c, http.StatusNotFound, "Recommendation not found", "")
			return
		}
		h.logger.Error(ctx, "Failed to mark recommendation viewed", err, map[string]interface{}{
			"user_id":           userID,
			"recommendation_id": recommendationID,
		})
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recommendation marked as viewed"})
}
