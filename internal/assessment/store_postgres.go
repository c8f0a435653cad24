package assessment

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

// PostgresEntityStore reads assessment and challenge rows from PostgreSQL.
type PostgresEntityStore struct {
	pool *pgxpool.Pool
}

func NewPostgresEntityStore(pool *pgxpool.Pool) *PostgresEntityStore {
	return &PostgresEntityStore{pool: pool}
}

func (s *PostgresEntityStore) Assessment(ctx context.Context, id string) (*Assessment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var a Assessment
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, title, COALESCE(description, ''),
		        COALESCE(category, ''), COALESCE(difficulty_level, ''),
		        COALESCE(questions, 'null'::jsonb)
		 FROM assessments
		 WHERE id = $1::uuid`,
		id,
	).Scan(&a.ID, &a.Title, &a.Description, &a.Category, &a.Difficulty, &a.Questions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query assessment: %w", err)
	}
	return &a, nil
}

func (s *PostgresEntityStore) Challenge(ctx context.Context, id string) (*ChallengeTemplate, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var c ChallengeTemplate
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, title, COALESCE(description, ''),
		        COALESCE(category, ''), COALESCE(questions, 'null'::jsonb)
		 FROM challenge_templates
		 WHERE id = $1::uuid`,
		id,
	).Scan(&c.ID, &c.Title, &c.Description, &c.Category, &c.Questions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query challenge template: %w", err)
	}
	return &c, nil
}

// PostgresAttemptStore persists attempts in the assessment_attempts table.
type PostgresAttemptStore struct {
	pool *pgxpool.Pool
}

func NewPostgresAttemptStore(pool *pgxpool.Pool) *PostgresAttemptStore {
	return &PostgresAttemptStore{pool: pool}
}

func (s *PostgresAttemptStore) Create(ctx context.Context, assessmentID, userID string) (Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var attempt Attempt
	err := s.pool.QueryRow(ctx,
		`INSERT INTO assessment_attempts (assessment_id, user_id, attempt_number, status)
		 SELECT $1::uuid, $2, COALESCE(MAX(attempt_number), 0) + 1, $3
		 FROM assessment_attempts
		 WHERE assessment_id = $1::uuid AND user_id = $2
		 RETURNING id::text, assessment_id::text, user_id, attempt_number, status, started_at`,
		assessmentID, userID, StatusInProgress,
	).Scan(&attempt.ID, &attempt.AssessmentID, &attempt.UserID,
		&attempt.AttemptNumber, &attempt.Status, &attempt.StartedAt)
	if err != nil {
		return Attempt{}, fmt.Errorf("create attempt: %w", err)
	}
	return attempt, nil
}

func (s *PostgresAttemptStore) Get(ctx context.Context, id string) (*Attempt, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var a Attempt
	var responses, analysis []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, assessment_id::text, user_id, attempt_number, status,
		        COALESCE(responses, 'null'::jsonb),
		        COALESCE(ai_analysis, 'null'::jsonb),
		        ai_score, COALESCE(ai_feedback, ''),
		        COALESCE(ai_processing_error, ''),
		        started_at, completed_at
		 FROM assessment_attempts
		 WHERE id = $1::uuid`,
		id,
	).Scan(&a.ID, &a.AssessmentID, &a.UserID, &a.AttemptNumber, &a.Status,
		&responses, &analysis, &a.AIScore, &a.AIFeedback,
		&a.ProcessingError, &a.StartedAt, &a.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attempt: %w", err)
	}

	if err := json.Unmarshal(responses, &a.Responses); err != nil {
		return nil, fmt.Errorf("parse attempt responses: %w", err)
	}
	if err := json.Unmarshal(analysis, &a.AIAnalysis); err != nil {
		return nil, fmt.Errorf("parse attempt analysis: %w", err)
	}
	return &a, nil
}

func (s *PostgresAttemptStore) SubmitResponses(ctx context.Context, id string, responses map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	raw, err := json.Marshal(responses)
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE assessment_attempts
		 SET responses = $2::jsonb, status = $3, completed_at = NOW()
		 WHERE id = $1::uuid`,
		id, raw, StatusCompleted,
	)
	if err != nil {
		return fmt.Errorf("submit responses: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("attempt not found: %s", id)
	}
	return nil
}

func (s *PostgresAttemptStore) RecordAnalysis(ctx context.Context, id string, analysis Result, score *float64, feedback string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	raw, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE assessment_attempts
		 SET ai_analysis = $2::jsonb, ai_score = $3, ai_feedback = $4,
		     ai_processing_error = NULL, status = $5
		 WHERE id = $1::uuid`,
		id, raw, score, feedback, StatusProcessed,
	)
	if err != nil {
		return fmt.Errorf("record analysis: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("attempt not found: %s", id)
	}
	return nil
}

func (s *PostgresAttemptStore) RecordFailure(ctx context.Context, id string, message string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`UPDATE assessment_attempts
		 SET ai_processing_error = $2, status = $3
		 WHERE id = $1::uuid`,
		id, message, StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("attempt not found: %s", id)
	}
	return nil
}

// PostgresProgressStore updates growth counters on user_profiles.
type PostgresProgressStore struct {
	pool *pgxpool.Pool
}

func NewPostgresProgressStore(pool *pgxpool.Pool) *PostgresProgressStore {
	return &PostgresProgressStore{pool: pool}
}

func (s *PostgresProgressStore) AddPoints(ctx context.Context, userID string, crystalPoints, growthPoints int) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_progress (user_id, crystal_points, growth_points)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE
		 SET crystal_points = user_progress.crystal_points + EXCLUDED.crystal_points,
		     growth_points = user_progress.growth_points + EXCLUDED.growth_points,
		     updated_at = NOW()`,
		userID, crystalPoints, growthPoints,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}
