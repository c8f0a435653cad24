package assessment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/newomen/newomen-ai/internal/ai"
)

// Logical service names used for configuration resolution.
const (
	ServiceAssessmentScoring = "assessment_scoring"
	ServiceQuizScoring       = "quiz_scoring"
	ServiceChallengeCoaching = "challenge_coaching"
)

// Points awarded when an attempt is processed successfully.
const (
	crystalPointsPerAttempt = 10
	growthPointsPerAttempt  = 25
)

// Gateway is the slice of the AI gateway this service needs.
type Gateway interface {
	Generate(ctx context.Context, req ai.Request) ai.Response
}

// Service runs the scoring workflows: build the prompt from entity rows,
// call the gateway, parse the result, persist the attempt. Public methods
// never return an error for pipeline failures; they produce normalized
// Response values.
type Service struct {
	gateway  Gateway
	entities EntityStore
	attempts AttemptStore
	progress ProgressStore
}

// NewService assembles the assessment service. progress may be nil when no
// gamification counters are wired.
func NewService(gateway Gateway, entities EntityStore, attempts AttemptStore, progress ProgressStore) *Service {
	return &Service{
		gateway:  gateway,
		entities: entities,
		attempts: attempts,
		progress: progress,
	}
}

// GenerateAssessmentResult scores an assessment submission. The returned
// Result is the parsed analysis, valid only when Response.Success is true.
func (s *Service) GenerateAssessmentResult(ctx context.Context, sub AssessmentSubmission, configID string) (ai.Response, Result) {
	started := time.Now()

	entity, err := s.entities.Assessment(ctx, sub.AssessmentID)
	if err != nil {
		return failure(fmt.Sprintf("loading assessment: %v", err), started), nil
	}
	if entity == nil {
		return failure("Assessment not found", started), nil
	}

	resp := s.gateway.Generate(ctx, ai.Request{
		Service:     ServiceAssessmentScoring,
		ServiceID:   sub.AssessmentID,
		UserID:      sub.UserID,
		ConfigID:    configID,
		Prompt:      BuildAssessmentPrompt(*entity, sub.Answers),
		Payload:     sub,
		ContentType: "assessment",
		ContentID:   sub.AssessmentID,
	})
	if !resp.Success {
		return resp, nil
	}
	return resp, ParseAssessmentResponse(resp.Content)
}

// GenerateQuizResult grades a quiz submission.
func (s *Service) GenerateQuizResult(ctx context.Context, sub QuizSubmission, configID string) (ai.Response, Result) {
	started := time.Now()

	entity, err := s.entities.Assessment(ctx, sub.QuizID)
	if err != nil {
		return failure(fmt.Sprintf("loading quiz: %v", err), started), nil
	}
	if entity == nil {
		return failure("Quiz/Assessment metadata not found", started), nil
	}

	resp := s.gateway.Generate(ctx, ai.Request{
		Service:     ServiceQuizScoring,
		ServiceID:   sub.QuizID,
		UserID:      sub.UserID,
		ConfigID:    configID,
		Prompt:      BuildQuizPrompt(*entity, sub.Answers),
		Payload:     sub,
		ContentType: "quiz",
		ContentID:   sub.QuizID,
	})
	if !resp.Success {
		return resp, nil
	}
	return resp, ParseQuizResponse(resp.Content)
}

// GenerateChallengeFeedback coaches a challenge in progress. A missing
// template row degrades the prompt metadata rather than failing the call.
func (s *Service) GenerateChallengeFeedback(ctx context.Context, sub ChallengeSubmission, configID string) ai.Response {
	tmpl, err := s.entities.Challenge(ctx, sub.ChallengeID)
	if err != nil {
		slog.Warn("challenge template lookup failed, degrading metadata",
			"challenge_id", sub.ChallengeID, "error", err)
		tmpl = nil
	}

	return s.gateway.Generate(ctx, ai.Request{
		Service:     ServiceChallengeCoaching,
		ServiceID:   sub.ChallengeID,
		UserID:      sub.UserID,
		ConfigID:    configID,
		Prompt:      BuildChallengePrompt(tmpl, sub.ChallengeID, sub.ProgressData),
		Payload:     sub,
		ContentType: "challenge",
		ContentID:   sub.ChallengeID,
	})
}

// CreateAttempt opens a new attempt for the user on an assessment.
func (s *Service) CreateAttempt(ctx context.Context, assessmentID, userID string) (Attempt, error) {
	entity, err := s.entities.Assessment(ctx, assessmentID)
	if err != nil {
		return Attempt{}, fmt.Errorf("loading assessment: %w", err)
	}
	if entity == nil {
		return Attempt{}, fmt.Errorf("assessment not found: %s", assessmentID)
	}
	return s.attempts.Create(ctx, assessmentID, userID)
}

// SubmitResponses stores a user's answers on an open attempt.
func (s *Service) SubmitResponses(ctx context.Context, attemptID string, responses map[string]any) error {
	return s.attempts.SubmitResponses(ctx, attemptID, responses)
}

// ProcessAttempt scores a completed attempt and persists the analysis. AI
// failures are stored on the attempt and returned; storage failures return
// an error.
func (s *Service) ProcessAttempt(ctx context.Context, attemptID string) (*Attempt, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("loading attempt: %w", err)
	}
	if attempt == nil {
		return nil, fmt.Errorf("attempt not found: %s", attemptID)
	}

	resp, result := s.GenerateAssessmentResult(ctx, AssessmentSubmission{
		AssessmentID: attempt.AssessmentID,
		UserID:       attempt.UserID,
		Answers:      attempt.Responses,
	}, "")

	if !resp.Success {
		if err := s.attempts.RecordFailure(ctx, attemptID, resp.Error); err != nil {
			return nil, fmt.Errorf("recording processing failure: %w", err)
		}
		return s.attempts.Get(ctx, attemptID)
	}

	score := extractScore(result)
	feedback, _ := result["feedback"].(string)
	if err := s.attempts.RecordAnalysis(ctx, attemptID, result, score, feedback); err != nil {
		return nil, fmt.Errorf("recording analysis: %w", err)
	}

	if s.progress != nil {
		if err := s.progress.AddPoints(ctx, attempt.UserID, crystalPointsPerAttempt, growthPointsPerAttempt); err != nil {
			slog.Warn("updating user progress failed", "user_id", attempt.UserID, "error", err)
		}
	}

	return s.attempts.Get(ctx, attemptID)
}

// extractScore pulls the numeric score from a parsed result, tolerating both
// numbers and numeric strings.
func extractScore(result Result) *float64 {
	switch v := result["score"].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return &f
		}
	}
	return nil
}

func failure(msg string, started time.Time) ai.Response {
	return ai.Response{
		Success:          false,
		Error:            msg,
		ProcessingTimeMS: time.Since(started).Milliseconds(),
	}
}
