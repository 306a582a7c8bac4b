package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// CredentialRepositoryPG implements domain.CredentialRepository. Listings are
// ordered by (created_at, id) so first-match credential selection is stable.
type CredentialRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository creates a credential repository backed by PostgreSQL.
func NewCredentialRepository(pool *pgxpool.Pool) *CredentialRepositoryPG {
	return &CredentialRepositoryPG{pool: pool}
}

const credentialColumns = `id, provider, encrypted_key, status, last_validated, created_at, updated_at`

// Create inserts a new credential.
func (r *CredentialRepositoryPG) Create(ctx context.Context, cred *domain.Credential) error {
	query := `
INSERT INTO credentials (id, provider, encrypted_key, status, last_validated, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, query,
		cred.ID,
		cred.Provider,
		cred.EncryptedKey,
		cred.Status,
		cred.LastValidated,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	return err
}

// GetByID fetches a credential by its identifier.
func (r *CredentialRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = $1;`
	row := r.pool.QueryRow(ctx, query, id)
	cred, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return cred, nil
}

// ListByProvider returns all credentials for one provider in creation order.
func (r *CredentialRepositoryPG) ListByProvider(ctx context.Context, provider string) ([]domain.Credential, error) {
	query := `
SELECT ` + credentialColumns + `
FROM credentials
WHERE provider = $1
ORDER BY created_at, id;
`
	return r.queryCredentials(ctx, query, provider)
}

// List returns all credentials in creation order.
func (r *CredentialRepositoryPG) List(ctx context.Context) ([]domain.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials ORDER BY created_at, id;`
	return r.queryCredentials(ctx, query)
}

// Update persists credential status and validation timestamp changes.
func (r *CredentialRepositoryPG) Update(ctx context.Context, cred *domain.Credential) error {
	query := `
UPDATE credentials
SET status = $2,
    last_validated = $3,
    updated_at = $4
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, cred.ID, cred.Status, cred.LastValidated, cred.UpdatedAt)
	return err
}

// Delete removes a credential permanently.
func (r *CredentialRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM credentials WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CredentialRepositoryPG) queryCredentials(ctx context.Context, query string, args ...any) ([]domain.Credential, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cred)
	}
	return out, rows.Err()
}

func scanCredential(row pgx.Row) (*domain.Credential, error) {
	var cred domain.Credential
	if err := row.Scan(
		&cred.ID,
		&cred.Provider,
		&cred.EncryptedKey,
		&cred.Status,
		&cred.LastValidated,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cred, nil
}

var _ domain.CredentialRepository = (*CredentialRepositoryPG)(nil)
