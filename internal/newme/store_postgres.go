package newme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresContextStore resolves user context through the
// get_newme_user_context database function, which aggregates the profile,
// the latest conversation and the user's memories into one JSON document.
type PostgresContextStore struct {
	pool *pgxpool.Pool
}

func NewPostgresContextStore(pool *pgxpool.Pool) *PostgresContextStore {
	return &PostgresContextStore{pool: pool}
}

func (s *PostgresContextStore) UserContext(ctx context.Context, userID string) (*UserContext, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT get_newme_user_context($1)`, userID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user context: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var uc UserContext
	if err := json.Unmarshal(raw, &uc); err != nil {
		return nil, fmt.Errorf("parse user context: %w", err)
	}
	return &uc, nil
}

// PostgresConversationStore persists conversations in the
// newme_conversations and newme_messages tables.
type PostgresConversationStore struct {
	pool *pgxpool.Pool
}

func NewPostgresConversationStore(pool *pgxpool.Pool) *PostgresConversationStore {
	return &PostgresConversationStore{pool: pool}
}

func (s *PostgresConversationStore) Active(ctx context.Context, userID string) (*Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var c Conversation
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, user_id, started_at, ended_at, message_count
		 FROM newme_conversations
		 WHERE user_id = $1 AND ended_at IS NULL
		 ORDER BY started_at DESC
		 LIMIT 1`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.StartedAt, &c.EndedAt, &c.MessageCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active conversation: %w", err)
	}
	return &c, nil
}

func (s *PostgresConversationStore) Create(ctx context.Context, userID string) (Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var c Conversation
	err := s.pool.QueryRow(ctx,
		`INSERT INTO newme_conversations (user_id)
		 VALUES ($1)
		 RETURNING id::text, user_id, started_at, ended_at, message_count`,
		userID,
	).Scan(&c.ID, &c.UserID, &c.StartedAt, &c.EndedAt, &c.MessageCount)
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

func (s *PostgresConversationStore) AddMessage(ctx context.Context, conversationID, role, content string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin message tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO newme_messages (conversation_id, role, content)
		 VALUES ($1::uuid, $2, $3)`,
		conversationID, role, content,
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE newme_conversations
		 SET message_count = message_count + 1
		 WHERE id = $1::uuid`,
		conversationID,
	); err != nil {
		return fmt.Errorf("bump message count: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit message tx: %w", err)
	}
	return nil
}

func (s *PostgresConversationStore) Messages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	query := `SELECT id::text, conversation_id::text, role, content, created_at
	          FROM newme_messages
	          WHERE conversation_id = $1::uuid
	          ORDER BY created_at ASC`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return msgs, nil
}

func (s *PostgresConversationStore) End(ctx context.Context, conversationID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE newme_conversations
		 SET ended_at = NOW()
		 WHERE id = $1::uuid AND ended_at IS NULL`,
		conversationID,
	)
	if err != nil {
		return fmt.Errorf("end conversation: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("conversation not found or already ended: %s", conversationID)
	}
	return nil
}
