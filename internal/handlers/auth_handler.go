// Package handlers provides the HTTP handlers for the quizhub API.
package handlers

import (
	"net/http"

	"quizhub/internal/config"
	"quizhub/internal/middleware"
	"quizhub/internal/observability"
	"quizhub/internal/services"
	contextutils "quizhub/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AuthHandler handles registration, login, logout, and profile requests
type AuthHandler struct {
	userService services.UserServiceInterface
	cfg         *config.Config
	logger      *observability.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService services.UserServiceInterface, cfg *config.Config, logger *observability.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		cfg:         cfg,
		logger:      logger,
	}
}

// registerRequest is the payload for user registration
type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

// loginRequest is the payload for user login
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new user account and starts a session
func (h *AuthHandler) Register(c *gin.Context) {
	var err error
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "Register")
	defer observability.FinishSpan(span, &err)

	var req registerRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "request body", nil, err.Error())
		return
	}

	user, err := h.userService.CreateUser(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordExists) {
			StandardizeHTTPError(c, http.StatusConflict, "Username already taken", "")
			return
		}
		h.logger.Error(ctx, "Failed to create user", err, map[string]interface{}{"username": req.Username})
		HandleAppError(c, err)
		return
	}

	h.startSession(c, user.ID, user.Username)

	span.SetAttributes(observability.AttributeUserID(user.ID))
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login authenticates a user and starts a session
func (h *AuthHandler) Login(c *gin.Context) {
	var err error
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "Login")
	defer observability.FinishSpan(span, &err)

	var req loginRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, "request body", nil, err.Error())
		return
	}

	user, err := h.userService.AuthenticateUser(ctx, req.Username, req.Password)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrInvalidCredentials) {
			StandardizeHTTPError(c, http.StatusUnauthorized, "Invalid username or password", "")
			return
		}
		h.logger.Error(ctx, "Login failed", err, map[string]interface{}{"username": req.Username})
		HandleAppError(c, err)
		return
	}

	h.startSession(c, user.ID, user.Username)

	span.SetAttributes(observability.AttributeUserID(user.ID))
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout clears the current session
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		h.logger.Error(c.Request.Context(), "Failed to clear session", err)
		HandleAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Profile returns the authenticated user's profile
func (h *AuthHandler) Profile(c *gin.Context) {
	var err error
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "Profile")
	defer observability.FinishSpan(span, &err)

	userID, ok := GetUserIDFromSession(c)
	if !ok {
		StandardizeHTTPError(c, http.StatusUnauthorized, "Authentication required", "")
		return
	}

	user, err := h.userService.GetUserByID(ctx, userID)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			StandardizeHTTPError(c, http.StatusNotFound, "User not found", "")
			return
		}
		HandleAppError(c, err)
		return
	}

	span.SetAttributes(attribute.Int("user.id", userID))
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// startSession stores the user's identity in the session cookie
func (h *AuthHandler) startSession(c *gin.Context, userID int, username string) {
	session := sessions.Default(c)
	session.Set(middleware.UserIDKey, userID)
	session.Set(middleware.UsernameKey, username)
	if err := session.Save(); err != nil {
		h.logger.Error(c.Request.Context(), "Failed to save session", err, map[string]interface{}{"user_id": userID})
	}
}
