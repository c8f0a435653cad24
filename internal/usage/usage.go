// Package usage records per-call AI usage for auditing and billing.
package usage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one gateway call outcome: which configuration served which user
// for which content, what it consumed, and how it ended.
type Entry struct {
	ConfigID         string
	ConfigName       string
	Provider         string
	Model            string
	UserID           string
	ContentType      string // assessment, quiz, challenge, conversation
	ContentID        string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64
	Success          bool
	ErrorMessage     string
	CreatedAt        time.Time
}

// Logger records usage entries. The gateway invokes it on every terminal
// outcome; implementations must not block the calling pipeline on failure.
type Logger interface {
	Log(ctx context.Context, e Entry) error
}

// NopLogger ignores all entries.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Entry) error {
	return nil
}

// MemoryLogger keeps entries in memory for tests.
type MemoryLogger struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{entries: []Entry{}}
}

func (l *MemoryLogger) Log(_ context.Context, e Entry) error {
	if e.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLogger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry{}, l.entries...)
}

// PostgresLogger inserts entries into the ai_usage_logs table.
type PostgresLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresLogger(pool *pgxpool.Pool) *PostgresLogger {
	return &PostgresLogger{pool: pool}
}

func (l *PostgresLogger) Log(ctx context.Context, e Entry) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("usage logger pool is nil")
	}
	if e.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := l.pool.Exec(ctx,
		`INSERT INTO ai_usage_logs
		   (config_id, config_name, provider, model, user_id, content_type,
		    content_id, prompt_tokens, completion_tokens, total_tokens,
		    cost_usd, success, error_message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		nullIfEmpty(e.ConfigID),
		nullIfEmpty(e.ConfigName),
		nullIfEmpty(e.Provider),
		nullIfEmpty(e.Model),
		e.UserID,
		nullIfEmpty(e.ContentType),
		nullIfEmpty(e.ContentID),
		e.PromptTokens,
		e.CompletionTokens,
		e.TotalTokens,
		e.CostUSD,
		e.Success,
		nullIfEmpty(e.ErrorMessage),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert usage entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries up to limit, newest first.
func (l *PostgresLogger) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := l.pool.Query(ctx,
		`SELECT COALESCE(config_id::text, ''), COALESCE(config_name, ''),
		        COALESCE(provider, ''), COALESCE(model, ''), user_id,
		        COALESCE(content_type, ''), COALESCE(content_id, ''),
		        prompt_tokens, completion_tokens, total_tokens, cost_usd,
		        success, COALESCE(error_message, ''), created_at
		 FROM ai_usage_logs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query usage entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ConfigID, &e.ConfigName, &e.Provider, &e.Model, &e.UserID,
			&e.ContentType, &e.ContentID, &e.PromptTokens,
			&e.CompletionTokens, &e.TotalTokens, &e.CostUSD, &e.Success,
			&e.ErrorMessage, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan usage entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage entries: %w", err)
	}
	return entries, nil
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}
