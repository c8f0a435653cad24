// Package assessment scores assessments, quizzes and couples challenges with
// the AI gateway: prompt assembly, response parsing and the attempt workflow.
package assessment

import (
	"encoding/json"
	"time"
)

// Assessment is the metadata of one scored assessment or quiz. Quizzes share
// the table; Category and Difficulty are empty for plain assessments.
type Assessment struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Difficulty  string          `json:"difficulty,omitempty"`
	Questions   json.RawMessage `json:"questions,omitempty"`
}

// ChallengeTemplate describes a couples challenge.
type ChallengeTemplate struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	Questions   json.RawMessage `json:"questions,omitempty"`
}

// AssessmentSubmission carries a user's answers to an assessment.
type AssessmentSubmission struct {
	AssessmentID string         `json:"assessment_id"`
	UserID       string         `json:"user_id"`
	Answers      map[string]any `json:"answers"`
}

// QuizSubmission carries a user's answers to a quiz.
type QuizSubmission struct {
	QuizID  string         `json:"quiz_id"`
	UserID  string         `json:"user_id"`
	Answers map[string]any `json:"answers"`
}

// ChallengeSubmission carries a user's progress through a challenge.
type ChallengeSubmission struct {
	ChallengeID  string         `json:"challenge_id"`
	UserID       string         `json:"user_id"`
	ProgressData map[string]any `json:"progress_data"`
}

// Attempt statuses.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// Attempt is one user's run through an assessment: answers first, then the
// AI analysis once processing finishes.
type Attempt struct {
	ID              string         `json:"id"`
	AssessmentID    string         `json:"assessment_id"`
	UserID          string         `json:"user_id"`
	AttemptNumber   int            `json:"attempt_number"`
	Status          string         `json:"status"`
	Responses       map[string]any `json:"responses,omitempty"`
	AIAnalysis      map[string]any `json:"ai_analysis,omitempty"`
	AIScore         *float64       `json:"ai_score,omitempty"`
	AIFeedback      string         `json:"ai_feedback,omitempty"`
	ProcessingError string         `json:"processing_error,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}
