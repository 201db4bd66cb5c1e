package models

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserMarshalJSON(t *testing.T) {
	t.Run("password hash never serializes", func(t *testing.T) {
		user := User{
			ID:           1,
			Username:     "alice",
			PasswordHash: sql.NullString{String: "$2a$10$secret", Valid: true},
		}
		data, err := json.Marshal(user)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "secret")
		assert.NotContains(t, string(data), "password")
	})

	t.Run("null email serializes as null", func(t *testing.T) {
		data, err := json.Marshal(User{ID: 1, Username: "alice"})
		require.NoError(t, err)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Nil(t, payload["email"])
		assert.Nil(t, payload["last_active"])
	})

	t.Run("valid email serializes as a string", func(t *testing.T) {
		user := User{
			ID:         1,
			Username:   "alice",
			Email:      sql.NullString{String: "alice@example.com", Valid: true},
			LastActive: sql.NullTime{Time: time.Now(), Valid: true},
		}
		data, err := json.Marshal(user)
		require.NoError(t, err)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, "alice@example.com", payload["email"])
		assert.NotNil(t, payload["last_active"])
	})
}

func TestQuizAttemptMarshalJSON(t *testing.T) {
	t.Run("incomplete attempt has null completed_at", func(t *testing.T) {
		data, err := json.Marshal(QuizAttempt{ID: 1, UserID: 2, QuizID: 3})
		require.NoError(t, err)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Nil(t, payload["completed_at"])
		assert.Equal(t, false, payload["completed"])
	})

	t.Run("completed attempt carries the timestamp", func(t *testing.T) {
		attempt := QuizAttempt{
			ID:          1,
			Completed:   true,
			Score:       80,
			CompletedAt: sql.NullTime{Time: time.Now(), Valid: true},
		}
		data, err := json.Marshal(attempt)
		require.NoError(t, err)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.NotNil(t, payload["completed_at"])
		assert.Equal(t, 80.0, payload["score"])
	})
}

func TestUserAnswerMarshalJSON(t *testing.T) {
	t.Run("unanswered question has null option", func(t *testing.T) {
		data, err := json.Marshal(UserAnswer{ID: 1, QuestionID: 5})
		require.NoError(t, err)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Nil(t, payload["selected_option_id"])
		assert.Equal(t, false, payload["is_correct"])
	})

	t.Run("answered question carries the option id", func(t *testing.T) {
		answer := UserAnswer{
			ID:               1,
			QuestionID:       5,
			SelectedOptionID: sql.NullInt64{Int64: 12, Valid: true},
			IsCorrect:        true,
		}
		data, err := json.Marshal(answer)
		require.NoError(t, err)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		assert.Equal(t, 12.0, payload["selected_option_id"])
		assert.Equal(t, true, payload["is_correct"])
	})
}

func TestOptionHidesCorrectness(t *testing.T) {
	data, err := json.Marshal(Option{ID: 1, QuestionID: 2, Text: "42", IsCorrect: true})
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.NotContains(t, payload, "is_correct")
	assert.Equal(t, "42", payload["text"])
}

func TestRecommendationMarshalJSON(t *testing.T) {
	t.Run("resource omitted when not joined", func(t *testing.T) {
		data, err := json.Marshal(Recommendation{ID: 1, UserID: 2, ResourceID: 3})
		require.NoError(t, err)
		assert.NotContains(t, string(data), "\"resource\"")
	})

	t.Run("joined resource is embedded", func(t *testing.T) {
		rec := Recommendation{
			ID:         1,
			ResourceID: 3,
			Resource:   &Resource{ID: 3, Title: "Binary Search Explained"},
		}
		data, err := json.Marshal(rec)
		require.NoError(t, err)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &payload))
		resource, ok := payload["resource"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Binary Search Explained", resource["title"])
	})
}
