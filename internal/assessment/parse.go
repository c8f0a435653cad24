package assessment

import (
	"encoding/json"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"
)

// Result is a parsed model response. The shape varies by domain, so it stays
// a plain JSON object; the fixed fallback shapes below are a contract with
// the clients and must not change.
type Result map[string]any

const assessmentSchema = `{
	"type": "object",
	"properties": {
		"score": {"type": "number", "minimum": 0, "maximum": 100},
		"feedback": {"type": "string"},
		"explanation": {"type": "string"},
		"strengths": {"type": "array", "items": {"type": "string"}},
		"areas_for_improvement": {"type": "array", "items": {"type": "string"}},
		"recommendations": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["score", "feedback"]
}`

const quizSchema = `{
	"type": "object",
	"properties": {
		"score": {"type": "number", "minimum": 0, "maximum": 100},
		"feedback": {"type": "string"},
		"explanations": {"type": "array"}
	},
	"required": ["score"]
}`

// ParseAssessmentResponse parses a model's assessment analysis. Malformed
// JSON never blocks the user: the response degrades to a fixed fallback with
// the raw text preserved.
func ParseAssessmentResponse(content string) Result {
	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil || result == nil {
		return Result{
			"raw_feedback": content,
			"score":        75,
			"traits":       []string{"Adaptable"},
			"strengths":    []string{"Good communication"},
			"improvements": []string{"Continue developing skills"},
		}
	}
	validateResult("assessment", assessmentSchema, result)
	return result
}

// ParseQuizResponse parses a model's quiz grading, with the same fallback
// policy as assessments.
func ParseQuizResponse(content string) Result {
	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil || result == nil {
		return Result{
			"raw_feedback": content,
			"score":        75,
			"explanations": []string{"Good effort on this quiz"},
		}
	}
	validateResult("quiz", quizSchema, result)
	return result
}

// validateResult checks a parsed object against the expected shape. Parsed
// objects always pass through unchanged; a mismatch is only logged so that
// prompt drift shows up in the logs before it shows up for users.
func validateResult(domain, schema string, result Result) {
	report, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(result),
	)
	if err != nil {
		slog.Warn("result schema check failed", "domain", domain, "error", err)
		return
	}
	if !report.Valid() {
		fields := make([]string, 0, len(report.Errors()))
		for _, e := range report.Errors() {
			fields = append(fields, e.String())
		}
		slog.Warn("model response does not match expected shape",
			"domain", domain, "issues", fields)
	}
}
