package assessment_test

import (
	"context"
	"strings"
	"testing"

	"github.com/newomen/newomen-ai/internal/ai"
	"github.com/newomen/newomen-ai/internal/assessment"
)

// stubGateway records requests and replies with a canned response.
type stubGateway struct {
	requests []ai.Request
	response ai.Response
}

func (g *stubGateway) Generate(_ context.Context, req ai.Request) ai.Response {
	g.requests = append(g.requests, req)
	return g.response
}

func newServiceFixture(resp ai.Response) (*assessment.Service, *stubGateway, *assessment.MemoryEntityStore, *assessment.MemoryAttemptStore, *assessment.MemoryProgressStore) {
	gateway := &stubGateway{response: resp}
	entities := assessment.NewMemoryEntityStore()
	attempts := assessment.NewMemoryAttemptStore()
	progress := assessment.NewMemoryProgressStore()
	svc := assessment.NewService(gateway, entities, attempts, progress)
	return svc, gateway, entities, attempts, progress
}

func TestGenerateAssessmentResult(t *testing.T) {
	svc, gateway, entities, _, _ := newServiceFixture(ai.Response{
		Success: true,
		Content: `{"score": 82, "feedback": "thoughtful answers"}`,
	})
	entities.PutAssessment(assessment.Assessment{ID: "a-1", Title: "Inner Compass"})

	resp, result := svc.GenerateAssessmentResult(context.Background(), assessment.AssessmentSubmission{
		AssessmentID: "a-1",
		UserID:       "user-1",
		Answers:      map[string]any{"q1": "family"},
	}, "")

	if !resp.Success {
		t.Fatalf("response failed: %s", resp.Error)
	}
	if result["score"] != float64(82) {
		t.Errorf("score = %v, want 82", result["score"])
	}

	if len(gateway.requests) != 1 {
		t.Fatalf("gateway calls = %d, want 1", len(gateway.requests))
	}
	req := gateway.requests[0]
	if req.Service != assessment.ServiceAssessmentScoring {
		t.Errorf("service = %q, want %q", req.Service, assessment.ServiceAssessmentScoring)
	}
	if req.ContentType != "assessment" || req.ContentID != "a-1" {
		t.Errorf("content attribution = %q/%q", req.ContentType, req.ContentID)
	}
	if !strings.Contains(req.Prompt, "Inner Compass") {
		t.Error("prompt should carry the assessment title")
	}
	if req.Payload == nil {
		t.Error("payload should carry the submission for cache keying")
	}
}

func TestGenerateAssessmentResult_NotFound(t *testing.T) {
	svc, gateway, _, _, _ := newServiceFixture(ai.Response{Success: true})

	resp, result := svc.GenerateAssessmentResult(context.Background(), assessment.AssessmentSubmission{
		AssessmentID: "missing",
		UserID:       "user-1",
	}, "")

	if resp.Success {
		t.Error("missing assessment should fail")
	}
	if resp.Error != "Assessment not found" {
		t.Errorf("error = %q, want %q", resp.Error, "Assessment not found")
	}
	if result != nil {
		t.Errorf("result = %v, want nil", result)
	}
	if len(gateway.requests) != 0 {
		t.Error("gateway should not be called for a missing entity")
	}
}

func TestGenerateQuizResult_NotFound(t *testing.T) {
	svc, _, _, _, _ := newServiceFixture(ai.Response{Success: true})

	resp, _ := svc.GenerateQuizResult(context.Background(), assessment.QuizSubmission{
		QuizID: "missing",
		UserID: "user-1",
	}, "")

	if resp.Error != "Quiz/Assessment metadata not found" {
		t.Errorf("error = %q, want %q", resp.Error, "Quiz/Assessment metadata not found")
	}
}

func TestGenerateQuizResult(t *testing.T) {
	svc, gateway, entities, _, _ := newServiceFixture(ai.Response{
		Success: true,
		Content: `{"score": 95, "feedback": "sharp", "explanations": []}`,
	})
	entities.PutAssessment(assessment.Assessment{ID: "q-1", Title: "Diplomat's Toolkit", Category: "communication"})

	resp, result := svc.GenerateQuizResult(context.Background(), assessment.QuizSubmission{
		QuizID:  "q-1",
		UserID:  "user-1",
		Answers: map[string]any{"q1": "b"},
	}, "")

	if !resp.Success {
		t.Fatalf("response failed: %s", resp.Error)
	}
	if result["score"] != float64(95) {
		t.Errorf("score = %v, want 95", result["score"])
	}
	if gateway.requests[0].Service != assessment.ServiceQuizScoring {
		t.Errorf("service = %q, want %q", gateway.requests[0].Service, assessment.ServiceQuizScoring)
	}
}

func TestGenerateChallengeFeedback_MissingTemplate(t *testing.T) {
	svc, gateway, _, _, _ := newServiceFixture(ai.Response{Success: true, Content: "keep going"})

	resp := svc.GenerateChallengeFeedback(context.Background(), assessment.ChallengeSubmission{
		ChallengeID:  "c-9",
		UserID:       "user-1",
		ProgressData: map[string]any{"day": 3},
	}, "")

	if !resp.Success {
		t.Fatalf("response failed: %s", resp.Error)
	}
	// Metadata degrades to the id rather than failing the call.
	if !strings.Contains(gateway.requests[0].Prompt, `"title": "c-9"`) {
		t.Error("prompt should degrade to the challenge id as title")
	}
}

func TestProcessAttempt(t *testing.T) {
	svc, _, entities, _, progress := newServiceFixture(ai.Response{
		Success: true,
		Content: `{"score": 82, "feedback": "thoughtful answers"}`,
	})
	entities.PutAssessment(assessment.Assessment{ID: "a-1", Title: "Inner Compass"})

	ctx := context.Background()
	attempt, err := svc.CreateAttempt(ctx, "a-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAttempt() error = %v", err)
	}
	if attempt.AttemptNumber != 1 || attempt.Status != assessment.StatusInProgress {
		t.Fatalf("attempt = %+v, want number 1 in progress", attempt)
	}

	if err := svc.SubmitResponses(ctx, attempt.ID, map[string]any{"q1": "family"}); err != nil {
		t.Fatalf("SubmitResponses() error = %v", err)
	}

	processed, err := svc.ProcessAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("ProcessAttempt() error = %v", err)
	}
	if processed.Status != assessment.StatusProcessed {
		t.Errorf("status = %q, want %q", processed.Status, assessment.StatusProcessed)
	}
	if processed.AIScore == nil || *processed.AIScore != 82 {
		t.Errorf("score = %v, want 82", processed.AIScore)
	}
	if processed.AIFeedback != "thoughtful answers" {
		t.Errorf("feedback = %q", processed.AIFeedback)
	}

	crystal, growth := progress.Points("user-1")
	if crystal != 10 || growth != 25 {
		t.Errorf("points = %d/%d, want 10/25", crystal, growth)
	}

	second, err := svc.CreateAttempt(ctx, "a-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAttempt() error = %v", err)
	}
	if second.AttemptNumber != 2 {
		t.Errorf("second attempt number = %d, want 2", second.AttemptNumber)
	}
}

func TestProcessAttempt_AIFailure(t *testing.T) {
	svc, _, entities, _, progress := newServiceFixture(ai.Response{
		Success: false,
		Error:   "Rate limit exceeded",
	})
	entities.PutAssessment(assessment.Assessment{ID: "a-1"})

	ctx := context.Background()
	attempt, err := svc.CreateAttempt(ctx, "a-1", "user-1")
	if err != nil {
		t.Fatalf("CreateAttempt() error = %v", err)
	}
	if err := svc.SubmitResponses(ctx, attempt.ID, map[string]any{"q1": "x"}); err != nil {
		t.Fatalf("SubmitResponses() error = %v", err)
	}

	processed, err := svc.ProcessAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("ProcessAttempt() error = %v", err)
	}
	if processed.Status != assessment.StatusFailed {
		t.Errorf("status = %q, want %q", processed.Status, assessment.StatusFailed)
	}
	if processed.ProcessingError != "Rate limit exceeded" {
		t.Errorf("processing error = %q", processed.ProcessingError)
	}

	crystal, growth := progress.Points("user-1")
	if crystal != 0 || growth != 0 {
		t.Error("failed attempts must not award points")
	}
}

func TestCreateAttempt_MissingAssessment(t *testing.T) {
	svc, _, _, _, _ := newServiceFixture(ai.Response{})
	if _, err := svc.CreateAttempt(context.Background(), "missing", "user-1"); err == nil {
		t.Error("CreateAttempt() on a missing assessment should fail")
	}
}
