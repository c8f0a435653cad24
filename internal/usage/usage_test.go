package usage_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/newomen/newomen-ai/internal/usage"
)

func TestMemoryLogger(t *testing.T) {
	l := usage.NewMemoryLogger()

	err := l.Log(context.Background(), usage.Entry{
		UserID:      "user-1",
		ContentType: "assessment",
		TotalTokens: 30,
		Success:     true,
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	entries := l.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped when absent")
	}
}

func TestMemoryLogger_RequiresUser(t *testing.T) {
	l := usage.NewMemoryLogger()
	if err := l.Log(context.Background(), usage.Entry{}); err == nil {
		t.Error("Log() without a user should fail")
	}
}

func TestWriteXLSX(t *testing.T) {
	entries := []usage.Entry{
		{
			ConfigName:       "primary",
			Provider:         "openai",
			Model:            "gpt-4o",
			UserID:           "user-1",
			ContentType:      "assessment",
			ContentID:        "a-1",
			PromptTokens:     1000,
			CompletionTokens: 500,
			TotalTokens:      1500,
			CostUSD:          0.02,
			Success:          true,
			CreatedAt:        time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		},
		{
			UserID:       "user-2",
			ContentType:  "quiz",
			Success:      false,
			ErrorMessage: "Rate limit exceeded",
			CreatedAt:    time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := usage.WriteXLSX(entries, &buf); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	header, err := f.GetCellValue("Usage", "A1")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if header != "Created At" {
		t.Errorf("A1 = %q, want %q", header, "Created At")
	}

	user, err := f.GetCellValue("Usage", "B2")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if user != "user-1" {
		t.Errorf("B2 = %q, want %q", user, "user-1")
	}

	errMsg, err := f.GetCellValue("Usage", "M3")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if errMsg != "Rate limit exceeded" {
		t.Errorf("M3 = %q, want the error message", errMsg)
	}
}
