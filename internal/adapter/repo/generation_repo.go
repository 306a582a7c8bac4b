package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// GenerationRepositoryPG implements domain.GenerationRepository.
type GenerationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewGenerationRepository creates a generation repository backed by PostgreSQL.
func NewGenerationRepository(pool *pgxpool.Pool) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{pool: pool}
}

// Create inserts a new generation record.
func (r *GenerationRepositoryPG) Create(ctx context.Context, gen *domain.Generation) error {
	params, err := json.Marshal(gen.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	query := `
INSERT INTO generations (id, provider, model, prompt, params, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err = r.pool.Exec(ctx, query,
		gen.ID,
		gen.Provider,
		gen.Model,
		gen.Prompt,
		params,
		gen.Status,
		gen.CreatedAt,
		gen.UpdatedAt,
	)
	return err
}

// Update persists the full mutable state of a generation.
func (r *GenerationRepositoryPG) Update(ctx context.Context, gen *domain.Generation) error {
	query := `
UPDATE generations
SET status = $2,
    provider_job_id = $3,
    error_message = $4,
    video_url = $5,
    video_path = $6,
    width = $7,
    height = $8,
    duration_seconds = $9,
    generation_time = $10,
    cost = $11,
    completed_at = $12,
    updated_at = $13
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query,
		gen.ID,
		gen.Status,
		gen.ProviderJobID,
		gen.ErrorMessage,
		gen.VideoURL,
		gen.VideoPath,
		gen.Width,
		gen.Height,
		gen.DurationSeconds,
		gen.GenerationTime,
		gen.Cost,
		gen.CompletedAt,
		gen.UpdatedAt,
	)
	return err
}

const generationColumns = `id, provider, model, prompt, params, status, provider_job_id, error_message,
video_url, video_path, width, height, duration_seconds, generation_time, cost,
created_at, updated_at, completed_at`

// GetByID fetches a generation by its identifier.
func (r *GenerationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM generations WHERE id = $1;`
	row := r.pool.QueryRow(ctx, query, id)
	gen, err := scanGeneration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return gen, nil
}

// List returns generations matching the filter, most recent first.
func (r *GenerationRepositoryPG) List(ctx context.Context, filter domain.GenerationFilter) ([]domain.Generation, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
SELECT ` + generationColumns + `
FROM generations
WHERE ($1 = '' OR provider = $1)
  AND ($2 = '' OR status = $2)
ORDER BY created_at DESC
OFFSET $3 LIMIT $4;
`
	rows, err := r.pool.Query(ctx, query, filter.Provider, string(filter.Status), filter.Offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Generation
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *gen)
	}
	return out, rows.Err()
}

// Delete removes a generation record.
func (r *GenerationRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM generations WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanGeneration(row pgx.Row) (*domain.Generation, error) {
	var gen domain.Generation
	var params []byte
	if err := row.Scan(
		&gen.ID,
		&gen.Provider,
		&gen.Model,
		&gen.Prompt,
		&params,
		&gen.Status,
		&gen.ProviderJobID,
		&gen.ErrorMessage,
		&gen.VideoURL,
		&gen.VideoPath,
		&gen.Width,
		&gen.Height,
		&gen.DurationSeconds,
		&gen.GenerationTime,
		&gen.Cost,
		&gen.CreatedAt,
		&gen.UpdatedAt,
		&gen.CompletedAt,
	); err != nil {
		return nil, err
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &gen.Params); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
	}
	return &gen, nil
}

var _ domain.GenerationRepository = (*GenerationRepositoryPG)(nil)
