package assessment

import (
	"encoding/json"
	"fmt"
)

// Prompt builders assemble the model input for each scoring domain. They are
// pure: entity rows are fetched by the caller, and a missing entity is the
// caller's error, not the builder's.

// BuildAssessmentPrompt produces the assessment-scoring prompt with its JSON
// response contract.
func BuildAssessmentPrompt(a Assessment, answers map[string]any) string {
	return fmt.Sprintf(`You are an expert psychological assessment analyst.

ASSESSMENT: %s - %s
QUESTIONS: %s
USER ANSWERS: %s

Please provide a JSON response with the following structure:
{
  "score": number (0-100),
  "feedback": "string",
  "explanation": "string",
  "strengths": ["string"],
  "areas_for_improvement": ["string"],
  "recommendations": ["string"]
}`,
		a.Title,
		a.Description,
		indentJSON(a.Questions),
		indentAny(answers),
	)
}

// BuildQuizPrompt produces the quiz-grading prompt.
func BuildQuizPrompt(quiz Assessment, answers map[string]any) string {
	metadata := map[string]any{
		"title":       quiz.Title,
		"description": quiz.Description,
		"category":    quiz.Category,
		"difficulty":  quiz.Difficulty,
		"questions":   quiz.Questions,
	}
	return fmt.Sprintf(`You are Z.ai, a rigorous quiz evaluation engine.

QUIZ METADATA:
%s

USER RESPONSES:
%s

EVALUATION TASK:
1. Score the quiz from 0-100 based on correctness and depth.
2. Provide a short overall feedback summary (2-3 sentences).
3. Offer a per-question explanation that references the question number and gives a coaching tip.

Return a JSON object with EXACTLY this structure:
{
  "score": number (0-100),
  "feedback": "string",
  "explanations": [
    {
      "question": "question identifier or number",
      "analysis": "what the user's answer shows",
      "suggestion": "practical coaching tip"
    }
  ]
}`,
		indentAny(metadata),
		indentAny(answers),
	)
}

// BuildChallengePrompt produces the challenge-coaching prompt. A nil template
// degrades to metadata holding only the challenge id, so coaching still runs
// when the template row is gone.
func BuildChallengePrompt(tmpl *ChallengeTemplate, challengeID string, progress map[string]any) string {
	var metadata map[string]any
	if tmpl != nil {
		metadata = map[string]any{
			"title":       tmpl.Title,
			"description": tmpl.Description,
			"category":    tmpl.Category,
			"questions":   tmpl.Questions,
		}
	} else {
		metadata = map[string]any{"title": challengeID}
	}
	return fmt.Sprintf(`You are Z.ai, a transformation coach tracking user progress through a challenge experience.

CHALLENGE METADATA:
%s

USER PROGRESS DATA:
%s

Provide a JSON response with:
{
  "summary": "2-3 sentence acknowledgement",
  "momentumScore": number (0-100),
  "celebrations": ["bullet point of wins"],
  "nextActions": [
    {
      "title": "action name",
      "description": "detailed guidance",
      "timeline": "suggested timeframe"
    }
  ]
}`,
		indentAny(metadata),
		indentAny(progress),
	)
}

func indentAny(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}

func indentJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return indentAny(v)
}
