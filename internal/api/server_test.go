package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newomen/newomen-ai/internal/ai"
	"github.com/newomen/newomen-ai/internal/api"
	"github.com/newomen/newomen-ai/internal/assessment"
	"github.com/newomen/newomen-ai/internal/newme"
	"github.com/newomen/newomen-ai/internal/usage"
)

type stubUsageLister struct {
	entries []usage.Entry
	err     error
}

func (s *stubUsageLister) ListRecent(context.Context, int) ([]usage.Entry, error) {
	return s.entries, s.err
}

type fixture struct {
	server   *httptest.Server
	registry *ai.Registry
	store    *ai.MemoryConfigStore
	entities *assessment.MemoryEntityStore
	adapter  *ai.MockAdapter
}

// newFixture wires the full stack behind the mux with in-memory stores and a
// mocked provider answering every text call with content.
func newFixture(t *testing.T, content string) *fixture {
	t.Helper()

	store := ai.NewMemoryConfigStore()
	if _, err := store.Create(context.Background(), ai.Config{
		ID:        "cfg-1",
		Name:      "primary",
		Provider:  ai.ProviderOpenAI,
		Model:     "gpt-4o",
		APIKey:    "sk-test",
		IsActive:  true,
		IsDefault: true,
	}); err != nil {
		t.Fatalf("seeding configuration: %v", err)
	}

	registry := ai.NewRegistry(store)
	if err := registry.Load(context.Background()); err != nil {
		t.Fatalf("loading registry: %v", err)
	}

	adapter := ai.NewMockAdapter(content)
	gateway := ai.NewGateway(registry,
		map[ai.Provider]ai.Adapter{ai.ProviderOpenAI: adapter},
		ai.NewRateLimiter(100, time.Minute),
		ai.GatewayOptions{})

	entities := assessment.NewMemoryEntityStore()
	entities.PutAssessment(assessment.Assessment{ID: "a-1", Title: "Inner Compass"})

	srv := &api.Server{
		Assessments: assessment.NewService(gateway, entities,
			assessment.NewMemoryAttemptStore(), assessment.NewMemoryProgressStore()),
		Agent: newme.NewService(gateway, registry,
			newme.NewMemoryContextStore(), newme.NewMemoryConversationStore(), nil),
		Registry: registry,
		Usage:    &stubUsageLister{},
	}

	ts := httptest.NewServer(srv.NewMux())
	t.Cleanup(ts.Close)
	return &fixture{server: ts, registry: registry, store: store, entities: entities, adapter: adapter}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, "ok")

	resp, err := http.Get(f.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestReadyz(t *testing.T) {
	store := ai.NewMemoryConfigStore()
	registry := ai.NewRegistry(store)
	srv := &api.Server{
		Registry: registry,
		Checks: map[string]api.HealthCheck{
			"database": func(context.Context) error { return errors.New("connection refused") },
		},
	}
	ts := httptest.NewServer(srv.NewMux())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["dependency"] != "database" {
		t.Errorf("dependency = %q, want database", body["dependency"])
	}

	srv.Checks = nil
	resp, err = http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200 with no checks", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestScoreAssessment(t *testing.T) {
	f := newFixture(t, `{"score": 82, "feedback": "thoughtful answers"}`)

	resp := postJSON(t, f.server.URL+"/api/assessments/score", map[string]any{
		"assessment_id": "a-1",
		"user_id":       "user-1",
		"answers":       map[string]any{"q1": "family"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Success bool           `json:"success"`
		Result  map[string]any `json:"result"`
	}
	decodeBody(t, resp, &body)
	if !body.Success {
		t.Error("success = false")
	}
	if body.Result["score"] != float64(82) {
		t.Errorf("score = %v, want 82", body.Result["score"])
	}
}

func TestScoreAssessment_Validation(t *testing.T) {
	f := newFixture(t, "ok")

	resp := postJSON(t, f.server.URL+"/api/assessments/score", map[string]any{
		"user_id": "user-1",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without assessment_id", resp.StatusCode)
	}
	resp.Body.Close()

	raw, err := http.Post(f.server.URL+"/api/assessments/score", "application/json",
		strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if raw.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a malformed body", raw.StatusCode)
	}
	raw.Body.Close()
}

func TestScoreQuiz_MissingEntity(t *testing.T) {
	f := newFixture(t, "ok")

	resp := postJSON(t, f.server.URL+"/api/quizzes/score", map[string]any{
		"quiz_id": "missing",
		"user_id": "user-1",
		"answers": map[string]any{"q1": "b"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 with a normalized failure", resp.StatusCode)
	}

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	decodeBody(t, resp, &body)
	if body.Success {
		t.Error("success = true for a missing quiz")
	}
	if body.Error != "Quiz/Assessment metadata not found" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestAttemptWorkflow(t *testing.T) {
	f := newFixture(t, `{"score": 90, "feedback": "strong"}`)

	resp := postJSON(t, f.server.URL+"/api/assessments/a-1/attempts", map[string]any{
		"user_id": "user-1",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var attempt assessment.Attempt
	decodeBody(t, resp, &attempt)
	if attempt.AttemptNumber != 1 {
		t.Errorf("attempt number = %d, want 1", attempt.AttemptNumber)
	}

	resp = postJSON(t, fmt.Sprintf("%s/api/attempts/%s/responses", f.server.URL, attempt.ID), map[string]any{
		"responses": map[string]any{"q1": "family"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit status = %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, fmt.Sprintf("%s/api/attempts/%s/process", f.server.URL, attempt.ID), map[string]any{})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("process status = %d, want 200", resp.StatusCode)
	}
	var processed assessment.Attempt
	decodeBody(t, resp, &processed)
	if processed.Status != assessment.StatusProcessed {
		t.Errorf("status = %q, want %q", processed.Status, assessment.StatusProcessed)
	}
	if processed.AIScore == nil || *processed.AIScore != 90 {
		t.Errorf("score = %v, want 90", processed.AIScore)
	}
}

func TestCreateAttempt_MissingAssessment(t *testing.T) {
	f := newFixture(t, "ok")

	resp := postJSON(t, f.server.URL+"/api/assessments/missing/attempts", map[string]any{
		"user_id": "user-1",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestNewMeChat(t *testing.T) {
	f := newFixture(t, "I hear you. Tell me more.")

	resp := postJSON(t, f.server.URL+"/api/newme/chat", map[string]any{
		"user_id": "user-1",
		"message": "I had a rough day",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Success        bool   `json:"success"`
		Content        string `json:"content"`
		ConversationID string `json:"conversation_id"`
	}
	decodeBody(t, resp, &body)
	if !body.Success {
		t.Error("success = false")
	}
	if body.Content != "I hear you. Tell me more." {
		t.Errorf("content = %q", body.Content)
	}
	if body.ConversationID == "" {
		t.Error("conversation_id should be set")
	}
}

func TestNewMeChat_Validation(t *testing.T) {
	f := newFixture(t, "ok")

	resp := postJSON(t, f.server.URL+"/api/newme/chat", map[string]any{
		"user_id": "user-1",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without a message", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestNewMeGreeting(t *testing.T) {
	f := newFixture(t, "ok")

	resp, err := http.Get(f.server.URL + "/api/newme/greeting")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without user_id", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = http.Get(f.server.URL + "/api/newme/greeting?user_id=user-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["greeting"] == "" {
		t.Error("greeting should never be empty")
	}
}

func TestAdminConfigurations(t *testing.T) {
	f := newFixture(t, "ok")

	resp, err := http.Get(f.server.URL + "/api/admin/configurations")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	var configs []ai.Config
	decodeBody(t, resp, &configs)
	if len(configs) != 1 {
		t.Fatalf("configurations = %d, want 1", len(configs))
	}
	if configs[0].APIKey != "" {
		t.Error("api key must be redacted in admin listings")
	}

	resp = postJSON(t, f.server.URL+"/api/admin/configurations", ai.Config{
		Name:     "fallback",
		Provider: ai.ProviderAnthropic,
		Model:    "claude-sonnet-4-20250514",
		IsActive: true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var created map[string]string
	decodeBody(t, resp, &created)
	if created["id"] == "" {
		t.Fatal("create should return the new id")
	}

	resp, err = http.Get(f.server.URL + "/api/admin/configurations")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	decodeBody(t, resp, &configs)
	if len(configs) != 2 {
		t.Errorf("configurations = %d after create, want 2", len(configs))
	}

	req, err := http.NewRequest(http.MethodDelete,
		f.server.URL+"/api/admin/configurations/"+created["id"], nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	deleted, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	if deleted.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d, want 200", deleted.StatusCode)
	}
	deleted.Body.Close()

	if _, ok := f.registry.Get(created["id"]); ok {
		t.Error("deleted configuration should be gone after reload")
	}
}

func TestAdminUpdateConfiguration_NotFound(t *testing.T) {
	f := newFixture(t, "ok")

	raw, err := json.Marshal(ai.Config{Name: "x", Provider: ai.ProviderOpenAI, Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("marshaling: %v", err)
	}
	req, err := http.NewRequest(http.MethodPut,
		f.server.URL+"/api/admin/configurations/missing", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUsageExport(t *testing.T) {
	f := newFixture(t, "ok")

	resp, err := http.Get(f.server.URL + "/api/admin/usage/export")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q, want a workbook", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "ai-usage.xlsx") {
		t.Errorf("content disposition = %q", cd)
	}
	resp.Body.Close()

	resp, err = http.Get(f.server.URL + "/api/admin/usage/export?limit=nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for a bad limit", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUsageExport_Unconfigured(t *testing.T) {
	srv := &api.Server{Registry: ai.NewRegistry(ai.NewMemoryConfigStore())}
	ts := httptest.NewServer(srv.NewMux())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/admin/usage/export")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when usage is not wired", resp.StatusCode)
	}
	resp.Body.Close()
}
