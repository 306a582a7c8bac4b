package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// UsageRepositoryPG aggregates generation activity for the stats endpoint.
type UsageRepositoryPG struct {
	pool        *pgxpool.Pool
	generations *GenerationRepositoryPG
}

// NewUsageRepository creates a usage repository backed by PostgreSQL.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepositoryPG {
	return &UsageRepositoryPG{pool: pool, generations: NewGenerationRepository(pool)}
}

// Summary computes gateway-wide totals plus per-provider and per-model rollups.
func (r *UsageRepositoryPG) Summary(ctx context.Context) (*domain.UsageSummary, error) {
	summary := &domain.UsageSummary{}

	totals := `
SELECT count(*),
       coalesce(sum(cost), 0),
       count(*) FILTER (WHERE status = 'completed'),
       count(*) FILTER (WHERE status = 'failed')
FROM generations;
`
	row := r.pool.QueryRow(ctx, totals)
	if err := row.Scan(&summary.TotalGenerations, &summary.TotalCost, &summary.TotalSuccess, &summary.TotalFailure); err != nil {
		return nil, err
	}

	var err error
	summary.ByProvider, err = r.rollup(ctx, "provider")
	if err != nil {
		return nil, err
	}
	summary.ByModel, err = r.rollup(ctx, "model")
	if err != nil {
		return nil, err
	}

	summary.Recent, err = r.generations.List(ctx, domain.GenerationFilter{Limit: 10})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (r *UsageRepositoryPG) rollup(ctx context.Context, column string) ([]domain.UsageRollup, error) {
	// column is one of two fixed identifiers, never caller input.
	query := `
SELECT ` + column + `,
       count(*),
       coalesce(sum(cost), 0),
       coalesce(avg(generation_time), 0)
FROM generations
GROUP BY ` + column + `
ORDER BY count(*) DESC;
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UsageRollup
	for rows.Next() {
		var item domain.UsageRollup
		if err := rows.Scan(&item.Key, &item.Count, &item.TotalCost, &item.AvgTime); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

var _ domain.UsageRepository = (*UsageRepositoryPG)(nil)
