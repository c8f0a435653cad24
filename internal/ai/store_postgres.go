package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/newomen/newomen-ai/internal/platform/secrets"
)

const dbTimeout = 5 * time.Second

const configColumns = `id::text, name, provider, model_name, api_key_encrypted,
	api_base_url, api_version, temperature, max_tokens, top_p,
	frequency_penalty, presence_penalty, system_prompt, is_default, is_active,
	custom_headers, cost_per_1k_prompt_tokens, cost_per_1k_completion_tokens,
	timeout_ms`

// PostgresConfigStore is a PostgreSQL-backed ConfigStore. API keys are
// decrypted on read via the secrets box; admin writes seal them again.
type PostgresConfigStore struct {
	pool *pgxpool.Pool
	box  *secrets.Box
}

// NewPostgresConfigStore creates a ConfigStore over the given pool.
func NewPostgresConfigStore(pool *pgxpool.Pool, box *secrets.Box) (*PostgresConfigStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if box == nil {
		box = mustPassthroughBox()
	}
	return &PostgresConfigStore{pool: pool, box: box}, nil
}

func mustPassthroughBox() *secrets.Box {
	box, err := secrets.NewBox("")
	if err != nil {
		panic(err) // unreachable: empty key never fails
	}
	return box
}

func (s *PostgresConfigStore) ListActive(ctx context.Context) ([]Config, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+configColumns+`
		 FROM ai_configurations
		 WHERE is_active = TRUE
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query configurations: %w", err)
	}
	defer rows.Close()

	var configs []Config
	for rows.Next() {
		cfg, err := s.scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate configurations: %w", err)
	}
	return configs, nil
}

func (s *PostgresConfigStore) ForService(ctx context.Context, serviceType, serviceID string) (*Config, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+configColumns+`
		 FROM get_ai_config_for_service($1, $2)`,
		serviceType,
		nullIfEmpty(serviceID),
	)
	if err != nil {
		return nil, fmt.Errorf("resolve configuration for service: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	cfg, err := s.scanConfig(rows)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *PostgresConfigStore) Create(ctx context.Context, cfg Config) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	sealedKey, err := s.box.Seal(cfg.APIKey)
	if err != nil {
		return "", fmt.Errorf("sealing api key: %w", err)
	}
	headers, err := marshalHeaders(cfg.CustomHeaders)
	if err != nil {
		return "", err
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO ai_configurations
		   (name, provider, model_name, api_key_encrypted, api_base_url,
		    api_version, temperature, max_tokens, top_p, frequency_penalty,
		    presence_penalty, system_prompt, is_default, is_active,
		    custom_headers, cost_per_1k_prompt_tokens,
		    cost_per_1k_completion_tokens, timeout_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		         $15::jsonb, $16, $17, $18)
		 RETURNING id::text`,
		cfg.Name,
		string(cfg.Provider),
		cfg.Model,
		nullIfEmpty(sealedKey),
		nullIfEmpty(cfg.APIBaseURL),
		nullIfEmpty(cfg.APIVersion),
		cfg.Temperature,
		cfg.MaxTokens,
		cfg.TopP,
		cfg.FrequencyPenalty,
		cfg.PresencePenalty,
		nullIfEmpty(cfg.SystemPrompt),
		cfg.IsDefault,
		true,
		headers,
		nullIfZeroFloat(cfg.CostPer1kInput),
		nullIfZeroFloat(cfg.CostPer1kOutput),
		nullIfZero(cfg.TimeoutMS),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert configuration: %w", err)
	}
	return id, nil
}

func (s *PostgresConfigStore) Update(ctx context.Context, id string, cfg Config) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	sealedKey, err := s.box.Seal(cfg.APIKey)
	if err != nil {
		return fmt.Errorf("sealing api key: %w", err)
	}
	headers, err := marshalHeaders(cfg.CustomHeaders)
	if err != nil {
		return err
	}

	cmd, err := s.pool.Exec(ctx,
		`UPDATE ai_configurations
		 SET name = $2, provider = $3, model_name = $4,
		     api_key_encrypted = COALESCE($5, api_key_encrypted),
		     api_base_url = $6, api_version = $7, temperature = $8,
		     max_tokens = $9, top_p = $10, frequency_penalty = $11,
		     presence_penalty = $12, system_prompt = $13, is_default = $14,
		     custom_headers = $15::jsonb,
		     cost_per_1k_prompt_tokens = $16,
		     cost_per_1k_completion_tokens = $17,
		     timeout_ms = $18,
		     updated_at = NOW()
		 WHERE id = $1::uuid`,
		id,
		cfg.Name,
		string(cfg.Provider),
		cfg.Model,
		nullIfEmpty(sealedKey),
		nullIfEmpty(cfg.APIBaseURL),
		nullIfEmpty(cfg.APIVersion),
		cfg.Temperature,
		cfg.MaxTokens,
		cfg.TopP,
		cfg.FrequencyPenalty,
		cfg.PresencePenalty,
		nullIfEmpty(cfg.SystemPrompt),
		cfg.IsDefault,
		headers,
		nullIfZeroFloat(cfg.CostPer1kInput),
		nullIfZeroFloat(cfg.CostPer1kOutput),
		nullIfZero(cfg.TimeoutMS),
	)
	if err != nil {
		return fmt.Errorf("update configuration: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("configuration not found: %s", id)
	}
	return nil
}

func (s *PostgresConfigStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	cmd, err := s.pool.Exec(ctx,
		`DELETE FROM ai_configurations WHERE id = $1::uuid`, id)
	if err != nil {
		return fmt.Errorf("delete configuration: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("configuration not found: %s", id)
	}
	return nil
}

func (s *PostgresConfigStore) scanConfig(rows pgx.Rows) (Config, error) {
	var cfg Config
	var apiKey, baseURL, apiVersion, systemPrompt *string
	var headerBytes []byte
	var costIn, costOut *float64
	var timeoutMS *int

	if err := rows.Scan(
		&cfg.ID,
		&cfg.Name,
		&cfg.Provider,
		&cfg.Model,
		&apiKey,
		&baseURL,
		&apiVersion,
		&cfg.Temperature,
		&cfg.MaxTokens,
		&cfg.TopP,
		&cfg.FrequencyPenalty,
		&cfg.PresencePenalty,
		&systemPrompt,
		&cfg.IsDefault,
		&cfg.IsActive,
		&headerBytes,
		&costIn,
		&costOut,
		&timeoutMS,
	); err != nil {
		return Config{}, fmt.Errorf("scan configuration: %w", err)
	}

	if apiKey != nil {
		plain, err := s.box.Open(*apiKey)
		if err != nil {
			// A row sealed under a rotated key is unusable but must not
			// block loading the rest of the set.
			slog.Warn("cannot decrypt api key", "config_id", cfg.ID, "error", err)
		} else {
			cfg.APIKey = plain
		}
	}
	if baseURL != nil {
		cfg.APIBaseURL = *baseURL
	}
	if apiVersion != nil {
		cfg.APIVersion = *apiVersion
	}
	if systemPrompt != nil {
		cfg.SystemPrompt = *systemPrompt
	}
	if len(headerBytes) > 0 {
		if err := json.Unmarshal(headerBytes, &cfg.CustomHeaders); err != nil {
			return Config{}, fmt.Errorf("parse custom headers: %w", err)
		}
	}
	if costIn != nil {
		cfg.CostPer1kInput = *costIn
	}
	if costOut != nil {
		cfg.CostPer1kOutput = *costOut
	}
	if timeoutMS != nil {
		cfg.TimeoutMS = *timeoutMS
	}
	return cfg, nil
}

func marshalHeaders(headers map[string]string) (any, error) {
	if len(headers) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(headers)
	if err != nil {
		return nil, fmt.Errorf("marshal custom headers: %w", err)
	}
	return string(raw), nil
}

// IsNotFound reports whether an error marks a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullIfZero(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullIfZeroFloat(v float64) any {
	if v == 0 {
		return nil
	}
	return v
}
