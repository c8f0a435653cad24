package api

import (
	"net/http"

	"github.com/newomen/newomen-ai/internal/ai"
	"github.com/newomen/newomen-ai/internal/newme"
)

type chatRequest struct {
	UserID         string        `json:"user_id"`
	Message        string        `json:"message"`
	History        []newme.Turn  `json:"history,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
}

type chatResponse struct {
	ai.Response
	ConversationID string `json:"conversation_id,omitempty"`
}

func (s *Server) handleNewMeChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "user_id and message are required")
		return
	}

	resp, conversationID := s.Agent.GenerateResponse(r.Context(), req.UserID, req.Message, req.History, req.ConversationID)
	writeJSON(w, http.StatusOK, chatResponse{Response: resp, ConversationID: conversationID})
}

func (s *Server) handleNewMeGreeting(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"greeting": s.Agent.Greeting(r.Context(), userID),
	})
}
