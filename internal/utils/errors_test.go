package contextutils

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	t.Run("without details", func(t *testing.T) {
		err := NewAppError(ErrorCodeQuizNotFound, SeverityInfo, "Quiz not found", "")
		assert.Equal(t, "QUIZ_NOT_FOUND: Quiz not found", err.Error())
	})

	t.Run("with details", func(t *testing.T) {
		err := NewAppError(ErrorCodeQuizNotFound, SeverityInfo, "Quiz not found", "quiz 42")
		assert.Equal(t, "QUIZ_NOT_FOUND: Quiz not found - quiz 42", err.Error())
	})
}

func TestAppError_Is(t *testing.T) {
	t.Run("matches on code", func(t *testing.T) {
		err := NewAppError(ErrorCodeAttemptCompleted, SeverityInfo, "already done", "")
		assert.True(t, errors.Is(err, ErrAttemptCompleted))
	})

	t.Run("does not match different codes", func(t *testing.T) {
		assert.False(t, errors.Is(ErrQuizNotFound, ErrAttemptCompleted))
	})

	t.Run("wrapped AppError still matches", func(t *testing.T) {
		wrapped := WrapError(ErrRecordNotFound, "loading recommendation")
		assert.True(t, errors.Is(wrapped, ErrRecordNotFound))
	})
}

func TestWrapError(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, WrapError(nil, "context"))
	})

	t.Run("preserves AppError code and severity", func(t *testing.T) {
		wrapped := WrapError(ErrInvalidCredentials, "login failed")

		var appErr *AppError
		require.True(t, AsError(wrapped, &appErr))
		assert.Equal(t, ErrorCodeInvalidCredentials, appErr.Code)
		assert.Equal(t, SeverityWarn, appErr.Severity)
		assert.Equal(t, "login failed", appErr.Message)
	})

	t.Run("plain errors become internal errors", func(t *testing.T) {
		wrapped := WrapError(errors.New("boom"), "doing work")
		assert.Equal(t, ErrorCodeInternalError, GetErrorCode(wrapped))
		assert.Contains(t, wrapped.Error(), "boom")
	})
}

func TestWrapErrorWithCode(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, WrapErrorWithCode(nil, ErrLookupFailed, "context"))
	})

	t.Run("classifies under the sentinel code", func(t *testing.T) {
		cause := errors.New("sql: connection refused")
		wrapped := WrapErrorWithCode(cause, ErrExtractionFailed, "keyword extraction failed")

		assert.Equal(t, ErrorCodeExtractionFailed, GetErrorCode(wrapped))
		assert.Equal(t, SeverityWarn, GetErrorSeverity(wrapped))
		assert.True(t, errors.Is(wrapped, ErrExtractionFailed))
		assert.True(t, errors.Is(wrapped, cause))
		assert.Contains(t, wrapped.Error(), "keyword extraction failed")
	})

	t.Run("overrides the wrapped error's own code", func(t *testing.T) {
		wrapped := WrapErrorWithCode(ErrDatabaseQuery, ErrPersistenceFailed, "failed to persist recommendation")
		assert.Equal(t, ErrorCodePersistenceFailed, GetErrorCode(wrapped))
	})
}

func TestWrapErrorf(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, WrapErrorf(nil, "context %d", 1))
	})

	t.Run("formats the context", func(t *testing.T) {
		wrapped := WrapErrorf(errors.New("boom"), "processing quiz %d", 7)
		assert.Contains(t, wrapped.Error(), "processing quiz 7")
	})

	t.Run("supports %w wrapping", func(t *testing.T) {
		cause := errors.New("underlying")
		wrapped := WrapErrorf(cause, "outer: %w", cause)
		assert.True(t, errors.Is(wrapped, cause))
	})

	t.Run("keeps AppError code through %w", func(t *testing.T) {
		wrapped := WrapErrorf(ErrQuizNotFound, "fetching questions: %w", ErrQuizNotFound)
		assert.Equal(t, ErrorCodeQuizNotFound, GetErrorCode(wrapped))
	})
}

func TestErrorIntrospection(t *testing.T) {
	t.Run("GetErrorCode falls back to internal", func(t *testing.T) {
		assert.Equal(t, ErrorCodeInternalError, GetErrorCode(errors.New("plain")))
		assert.Equal(t, ErrorCodeRecordExists, GetErrorCode(ErrRecordExists))
	})

	t.Run("GetErrorSeverity falls back to error", func(t *testing.T) {
		assert.Equal(t, SeverityError, GetErrorSeverity(errors.New("plain")))
		assert.Equal(t, SeverityInfo, GetErrorSeverity(ErrRecordNotFound))
	})

	t.Run("IsError compares codes", func(t *testing.T) {
		assert.True(t, IsError(ErrAttemptCompleted, ErrAttemptCompleted))
		assert.False(t, IsError(errors.New("plain"), ErrAttemptCompleted))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(ErrServiceUnavailable))
	assert.True(t, IsRetryable(ErrDatabaseConnection))
	assert.False(t, IsRetryable(ErrQuizNotFound))
	assert.False(t, IsRetryable(ErrInvalidCredentials))
	assert.False(t, IsRetryable(errors.New("plain")))

	fatal := NewAppError(ErrorCodeTimeout, SeverityFatal, "timeout", "")
	assert.False(t, IsRetryable(fatal))
}

func TestAppError_ToJSON(t *testing.T) {
	t.Run("basic fields", func(t *testing.T) {
		payload := ErrQuizNotFound.ToJSON()
		assert.Equal(t, "QUIZ_NOT_FOUND", payload["code"])
		assert.Equal(t, "Quiz not found", payload["message"])
		assert.Equal(t, false, payload["retryable"])
		assert.NotContains(t, payload, "details")
	})

	t.Run("cause only surfaces for severe errors", func(t *testing.T) {
		infoErr := NewAppErrorWithCause(ErrorCodeRecordNotFound, SeverityInfo, "missing", "", errors.New("sql: no rows"))
		assert.NotContains(t, infoErr.ToJSON(), "cause")

		severeErr := NewAppErrorWithCause(ErrorCodeDatabaseQuery, SeverityError, "query failed", "", errors.New("sql: closed"))
		assert.Equal(t, "sql: closed", severeErr.ToJSON()["cause"])
	})
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Zero(t, GetUserIDFromContext(ctx))

	ctx = WithUserID(ctx, 42)
	assert.Equal(t, 42, GetUserIDFromContext(ctx))
}
