package assessment_test

import (
	"testing"

	"github.com/newomen/newomen-ai/internal/assessment"
)

func TestParseAssessmentResponse_Fallback(t *testing.T) {
	result := assessment.ParseAssessmentResponse("not json")

	if result["raw_feedback"] != "not json" {
		t.Errorf("raw_feedback = %v, want the original text", result["raw_feedback"])
	}
	if result["score"] != 75 {
		t.Errorf("score = %v, want 75", result["score"])
	}
	traits, ok := result["traits"].([]string)
	if !ok || len(traits) != 1 || traits[0] != "Adaptable" {
		t.Errorf("traits = %v, want [Adaptable]", result["traits"])
	}
	strengths, ok := result["strengths"].([]string)
	if !ok || len(strengths) != 1 || strengths[0] != "Good communication" {
		t.Errorf("strengths = %v, want [Good communication]", result["strengths"])
	}
	improvements, ok := result["improvements"].([]string)
	if !ok || len(improvements) != 1 || improvements[0] != "Continue developing skills" {
		t.Errorf("improvements = %v, want [Continue developing skills]", result["improvements"])
	}
}

func TestParseAssessmentResponse_ValidJSON(t *testing.T) {
	result := assessment.ParseAssessmentResponse(`{"score": 88, "feedback": "strong work"}`)

	if result["score"] != float64(88) {
		t.Errorf("score = %v, want 88", result["score"])
	}
	if result["feedback"] != "strong work" {
		t.Errorf("feedback = %v, want %q", result["feedback"], "strong work")
	}
	if _, ok := result["raw_feedback"]; ok {
		t.Error("parsed responses must not carry the fallback raw_feedback field")
	}
}

func TestParseAssessmentResponse_IncompleteObjectPassesThrough(t *testing.T) {
	// Shape drift is logged, never rewritten.
	result := assessment.ParseAssessmentResponse(`{"unexpected": true}`)

	if len(result) != 1 || result["unexpected"] != true {
		t.Errorf("result = %v, want the object unchanged", result)
	}
}

func TestParseQuizResponse_Fallback(t *testing.T) {
	result := assessment.ParseQuizResponse("```not json```")

	if result["score"] != 75 {
		t.Errorf("score = %v, want 75", result["score"])
	}
	explanations, ok := result["explanations"].([]string)
	if !ok || len(explanations) != 1 || explanations[0] != "Good effort on this quiz" {
		t.Errorf("explanations = %v, want [Good effort on this quiz]", result["explanations"])
	}
}

func TestParseQuizResponse_ValidJSON(t *testing.T) {
	result := assessment.ParseQuizResponse(`{"score": 90, "feedback": "excellent", "explanations": []}`)
	if result["score"] != float64(90) {
		t.Errorf("score = %v, want 90", result["score"])
	}
}
