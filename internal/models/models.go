// Package models defines data structures used throughout the quizhub application.
package models

import (
	"database/sql"
	"encoding/json"
	"time"
)

// User represents a user in the system
type User struct {
	ID           int            `json:"id" yaml:"id"`
	Username     string         `json:"username" yaml:"username"`
	Email        sql.NullString `json:"email" yaml:"email"`
	PasswordHash sql.NullString `json:"-" yaml:"-"` // Omit from JSON responses
	LastActive   sql.NullTime   `json:"last_active" yaml:"last_active"`
	CreatedAt    time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" yaml:"updated_at"`
}

// MarshalJSON customizes JSON marshaling for User to handle sql.NullString and sql.NullTime properly
func (u User) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID         int        `json:"id"`
		Username   string     `json:"username"`
		Email      *string    `json:"email"`
		LastActive *time.Time `json:"last_active"`
		CreatedAt  time.Time  `json:"created_at"`
		UpdatedAt  time.Time  `json:"updated_at"`
	}{
		ID:         u.ID,
		Username:   u.Username,
		Email:      nullStringToPointer(u.Email),
		LastActive: nullTimeToPointer(u.LastActive),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	})
}

// Helper functions for converting sql.Null types to pointers
func nullStringToPointer(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimeToPointer(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

func nullIntToPointer(ni sql.NullInt64) *int64 {
	if ni.Valid {
		return &ni.Int64
	}
	return nil
}

// Subject represents a topic area that quizzes belong to
type Subject struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Quiz represents a quiz within a subject
type Quiz struct {
	ID          int       `json:"id" yaml:"id"`
	SubjectID   int       `json:"subject_id" yaml:"subject_id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Question represents a quiz question
type Question struct {
	ID        int       `json:"id" yaml:"id"`
	QuizID    int       `json:"quiz_id" yaml:"quiz_id"`
	Text      string    `json:"text" yaml:"text"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	// Options are loaded alongside the question for quiz delivery
	Options []Option `json:"options,omitempty" yaml:"options,omitempty"`
}

// Option represents one answer choice for a question
type Option struct {
	ID         int    `json:"id" yaml:"id"`
	QuestionID int    `json:"question_id" yaml:"question_id"`
	Text       string `json:"text" yaml:"text"`
	IsCorrect  bool   `json:"-" yaml:"is_correct"` // Never exposed to quiz takers
}

// QuizAttempt represents a user's attempt at a quiz.
// There is at most one attempt per (user, quiz) pair.
type QuizAttempt struct {
	ID          int          `json:"id" yaml:"id"`
	UserID      int          `json:"user_id" yaml:"user_id"`
	QuizID      int          `json:"quiz_id" yaml:"quiz_id"`
	Score       float64      `json:"score" yaml:"score"`
	Completed   bool         `json:"completed" yaml:"completed"`
	StartedAt   time.Time    `json:"started_at" yaml:"started_at"`
	CompletedAt sql.NullTime `json:"completed_at" yaml:"completed_at"`
}

// MarshalJSON customizes JSON marshaling for QuizAttempt to handle sql.NullTime properly
func (a QuizAttempt) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID          int        `json:"id"`
		UserID      int        `json:"user_id"`
		QuizID      int        `json:"quiz_id"`
		Score       float64    `json:"score"`
		Completed   bool       `json:"completed"`
		StartedAt   time.Time  `json:"started_at"`
		CompletedAt *time.Time `json:"completed_at"`
	}{
		ID:          a.ID,
		UserID:      a.UserID,
		QuizID:      a.QuizID,
		Score:       a.Score,
		Completed:   a.Completed,
		StartedAt:   a.StartedAt,
		CompletedAt: nullTimeToPointer(a.CompletedAt),
	})
}

// UserAnswer represents a single recorded answer within a quiz attempt.
// SelectedOptionID is null when the user left the question unanswered.
type UserAnswer struct {
	ID               int           `json:"id" yaml:"id"`
	AttemptID        int           `json:"attempt_id" yaml:"attempt_id"`
	QuestionID       int           `json:"question_id" yaml:"question_id"`
	SelectedOptionID sql.NullInt64 `json:"selected_option_id" yaml:"selected_option_id"`
	IsCorrect        bool          `json:"is_correct" yaml:"is_correct"`
	CreatedAt        time.Time     `json:"created_at" yaml:"created_at"`
}

// MarshalJSON customizes JSON marshaling for UserAnswer to handle sql.NullInt64 properly
func (ua UserAnswer) MarshalJSON() (result0 []byte, err error) {
	return json.Marshal(&struct {
		ID               int       `json:"id"`
		AttemptID        int       `json:"attempt_id"`
		QuestionID       int       `json:"question_id"`
		SelectedOptionID *int64    `json:"selected_option_id"`
		IsCorrect        bool      `json:"is_correct"`
		CreatedAt        time.Time `json:"created_at"`
	}{
		ID:               ua.ID,
		AttemptID:        ua.AttemptID,
		QuestionID:       ua.QuestionID,
		SelectedOptionID: nullIntToPointer(ua.SelectedOptionID),
		IsCorrect:        ua.IsCorrect,
		CreatedAt:        ua.CreatedAt,
	})
}

// ResourceType categorizes a learning resource
type ResourceType string

// Resource types supported by the system
const (
	// ResourceTypeLink is an external web link
	ResourceTypeLink ResourceType = "link"
	// ResourceTypeVideo is a video resource
	ResourceTypeVideo ResourceType = "video"
	// ResourceTypeArticle is a written article
	ResourceTypeArticle ResourceType = "article"
	// ResourceTypeBook is a book reference
	ResourceTypeBook ResourceType = "book"
)

// Resource represents a learning resource that can be recommended to users.
// Keywords are the indexable terms the content recommender matches against.
type Resource struct {
	ID           int          `json:"id" yaml:"id"`
	Title        string       `json:"title" yaml:"title"`
	Description  string       `json:"description" yaml:"description"`
	URL          string       `json:"url" yaml:"url"`
	ResourceType ResourceType `json:"resource_type" yaml:"resource_type"`
	Keywords     []string     `json:"keywords" yaml:"keywords"`
	Rating       float64      `json:"rating" yaml:"rating"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
}

// Recommendation links a user to a suggested resource for a given quiz attempt.
// The (user, resource, attempt) triple is unique; regenerating recommendations
// for an attempt updates relevance scores in place.
type Recommendation struct {
	ID             int       `json:"id" yaml:"id"`
	UserID         int       `json:"user_id" yaml:"user_id"`
	ResourceID     int       `json:"resource_id" yaml:"resource_id"`
	QuizAttemptID  int       `json:"quiz_attempt_id" yaml:"quiz_attempt_id"`
	RelevanceScore float64   `json:"relevance_score" yaml:"relevance_score"`
	Viewed         bool      `json:"viewed" yaml:"viewed"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	// Resource is populated on read paths that join the resources table
	Resource *Resource `json:"resource,omitempty" yaml:"resource,omitempty"`
}

// AnswerSubmission is one (question, option) pair in a quiz submission.
// SelectedOptionID of -1 means the question was left unanswered.
type AnswerSubmission struct {
	QuestionID       int `json:"question_id" binding:"required"`
	SelectedOptionID int `json:"selected_option_id"`
}

// QuizSubmission is the payload for submitting a completed quiz
type QuizSubmission struct {
	QuizID  int                `json:"quiz_id" binding:"required"`
	Answers []AnswerSubmission `json:"answers" binding:"required"`
}

// QuizResult summarizes a scored quiz submission
type QuizResult struct {
	AttemptID       int              `json:"attempt_id"`
	Score           float64          `json:"score"`
	Correct         int              `json:"correct"`
	Total           int              `json:"total"`
	Recommendations []Recommendation `json:"recommendations"`
}
