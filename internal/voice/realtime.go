// Package voice holds the OpenAI Realtime session used for spoken NewMe
// conversations. The contract here is text-only: audio frames pass through
// as opaque references.
package voice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const defaultRealtimeURL = "wss://api.openai.com/v1/realtime"

// Session is one live Realtime connection.
type Session struct {
	conn  *websocket.Conn
	model string
}

// event is the Realtime wire envelope. Only the fields this session reads
// and writes are declared.
type event struct {
	Type     string          `json:"type"`
	Session  *sessionConfig  `json:"session,omitempty"`
	Item     *conversionItem `json:"item,omitempty"`
	Delta    string          `json:"delta,omitempty"`
	Response *responseBody   `json:"response,omitempty"`
	Error    *eventError     `json:"error,omitempty"`
}

type sessionConfig struct {
	Modalities   []string `json:"modalities,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Voice        string   `json:"voice,omitempty"`
}

type conversionItem struct {
	Type    string        `json:"type"`
	Role    string        `json:"role,omitempty"`
	Content []itemContent `json:"content,omitempty"`
}

type itemContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type responseBody struct {
	Status string `json:"status,omitempty"`
}

type eventError struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// Dial opens a Realtime session for the given model. instructions become the
// session's system behavior; voice may be empty for text-only use. baseURL
// overrides the endpoint for tests.
func Dial(ctx context.Context, baseURL, apiKey, model, instructions, voice string) (*Session, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if baseURL == "" {
		baseURL = defaultRealtimeURL
	}
	url := baseURL + "?model=" + model

	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, fmt.Errorf("dialing realtime endpoint: %w", err)
	}

	s := &Session{conn: conn, model: model}
	if err := s.configure(ctx, instructions, voice); err != nil {
		conn.Close(websocket.StatusInternalError, "session configuration failed")
		return nil, err
	}
	return s, nil
}

func (s *Session) configure(ctx context.Context, instructions, voice string) error {
	modalities := []string{"text"}
	if voice != "" {
		modalities = append(modalities, "audio")
	}
	err := wsjson.Write(ctx, s.conn, event{
		Type: "session.update",
		Session: &sessionConfig{
			Modalities:   modalities,
			Instructions: instructions,
			Voice:        voice,
		},
	})
	if err != nil {
		return fmt.Errorf("configuring session: %w", err)
	}
	return nil
}

// SendText submits one user turn and asks for a response.
func (s *Session) SendText(ctx context.Context, text string) error {
	err := wsjson.Write(ctx, s.conn, event{
		Type: "conversation.item.create",
		Item: &conversionItem{
			Type: "message",
			Role: "user",
			Content: []itemContent{
				{Type: "input_text", Text: text},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sending user turn: %w", err)
	}
	if err := wsjson.Write(ctx, s.conn, event{Type: "response.create"}); err != nil {
		return fmt.Errorf("requesting response: %w", err)
	}
	return nil
}

// ReadResponse collects the streamed text deltas of one response until the
// server marks it done.
func (s *Session) ReadResponse(ctx context.Context) (string, error) {
	var text strings.Builder
	for {
		var ev event
		if err := wsjson.Read(ctx, s.conn, &ev); err != nil {
			return "", fmt.Errorf("reading realtime event: %w", err)
		}

		switch ev.Type {
		case "response.text.delta", "response.audio_transcript.delta":
			text.WriteString(ev.Delta)
		case "response.done":
			if ev.Response != nil && ev.Response.Status == "failed" {
				return "", fmt.Errorf("response failed")
			}
			return text.String(), nil
		case "error":
			msg := "realtime error"
			if ev.Error != nil && ev.Error.Message != "" {
				msg = ev.Error.Message
			}
			return "", fmt.Errorf("%s", msg)
		default:
			slog.Debug("ignoring realtime event", "type", ev.Type)
		}
	}
}

// Close ends the session.
func (s *Session) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "session complete")
}
