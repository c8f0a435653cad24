package newme_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/newomen/newomen-ai/internal/newme"
)

func writeOverrides(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing overrides file: %v", err)
	}
	return path
}

func TestLoadOverrides(t *testing.T) {
	path := writeOverrides(t, `
overrides:
  - user_id: user-1
    greeting: "Welcome back, founder."
    context_lines:
      - "- They co-founded the product you run on."
  - nickname: Sofia
    greeting: "Sofia! Ready when you are."
`)

	overrides, err := newme.LoadOverrides(path)
	if err != nil {
		t.Fatalf("LoadOverrides() error = %v", err)
	}

	byID := overrides.Find("user-1", "")
	if byID == nil || byID.Greeting != "Welcome back, founder." {
		t.Errorf("Find by user id = %+v", byID)
	}
	if len(byID.ContextLines) != 1 {
		t.Errorf("context lines = %v", byID.ContextLines)
	}

	byNickname := overrides.Find("someone-else", "Sofia")
	if byNickname == nil || byNickname.Greeting != "Sofia! Ready when you are." {
		t.Errorf("Find by nickname = %+v", byNickname)
	}

	if overrides.Find("unknown", "Nobody") != nil {
		t.Error("Find should return nil for unmatched users")
	}
}

func TestLoadOverrides_EmptyPath(t *testing.T) {
	overrides, err := newme.LoadOverrides("")
	if err != nil {
		t.Fatalf("LoadOverrides(\"\") error = %v", err)
	}
	if overrides.Find("anyone", "") != nil {
		t.Error("empty table should match nobody")
	}
}

func TestLoadOverrides_RejectsUnmatchableEntry(t *testing.T) {
	path := writeOverrides(t, `
overrides:
  - greeting: "Hello?"
`)
	if _, err := newme.LoadOverrides(path); err == nil {
		t.Error("an override without user_id or nickname should be rejected")
	}
}

func TestLoadOverrides_MissingFile(t *testing.T) {
	if _, err := newme.LoadOverrides("/nonexistent/overrides.yaml"); err == nil {
		t.Error("a missing file should be an error, not an empty table")
	}
}

func TestOverrides_NilReceiver(t *testing.T) {
	var overrides *newme.Overrides
	if overrides.Find("user-1", "Sofia") != nil {
		t.Error("nil table should match nobody")
	}
}
