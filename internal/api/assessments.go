package api

import (
	"net/http"

	"github.com/newomen/newomen-ai/internal/ai"
	"github.com/newomen/newomen-ai/internal/assessment"
)

type scoreRequest struct {
	assessment.AssessmentSubmission
	ConfigID string `json:"config_id,omitempty"`
}

type quizScoreRequest struct {
	assessment.QuizSubmission
	ConfigID string `json:"config_id,omitempty"`
}

type challengeFeedbackRequest struct {
	assessment.ChallengeSubmission
	ConfigID string `json:"config_id,omitempty"`
}

type scoreResponse struct {
	ai.Response
	Result assessment.Result `json:"result,omitempty"`
}

func (s *Server) handleScoreAssessment(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AssessmentID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "assessment_id and user_id are required")
		return
	}

	resp, result := s.Assessments.GenerateAssessmentResult(r.Context(), req.AssessmentSubmission, req.ConfigID)
	writeJSON(w, http.StatusOK, scoreResponse{Response: resp, Result: result})
}

func (s *Server) handleScoreQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizScoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.QuizID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "quiz_id and user_id are required")
		return
	}

	resp, result := s.Assessments.GenerateQuizResult(r.Context(), req.QuizSubmission, req.ConfigID)
	writeJSON(w, http.StatusOK, scoreResponse{Response: resp, Result: result})
}

func (s *Server) handleChallengeFeedback(w http.ResponseWriter, r *http.Request) {
	var req challengeFeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ChallengeID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "challenge_id and user_id are required")
		return
	}

	resp := s.Assessments.GenerateChallengeFeedback(r.Context(), req.ChallengeSubmission, req.ConfigID)
	writeJSON(w, http.StatusOK, resp)
}

type createAttemptRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleCreateAttempt(w http.ResponseWriter, r *http.Request) {
	var req createAttemptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	attempt, err := s.Assessments.CreateAttempt(r.Context(), r.PathValue("id"), req.UserID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, attempt)
}

type submitResponsesRequest struct {
	Responses map[string]any `json:"responses"`
}

func (s *Server) handleSubmitResponses(w http.ResponseWriter, r *http.Request) {
	var req submitResponsesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Responses) == 0 {
		writeError(w, http.StatusBadRequest, "responses are required")
		return
	}

	if err := s.Assessments.SubmitResponses(r.Context(), r.PathValue("id"), req.Responses); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "submitted"})
}

func (s *Server) handleProcessAttempt(w http.ResponseWriter, r *http.Request) {
	attempt, err := s.Assessments.ProcessAttempt(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}
