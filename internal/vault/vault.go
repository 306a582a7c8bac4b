// Package vault manages provider credentials: secrets are encrypted at rest,
// decrypted only transiently for a provider call, and carry a validity status
// driven by explicit validation calls.
package vault

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"server/internal/domain"
)

// Vault supplies decrypted provider secrets on demand and owns the credential
// lifecycle. It is read-mostly and safe to share across job tasks; each
// credential id has a single writer.
type Vault struct {
	repo   domain.CredentialRepository
	cipher *Cipher
	now    func() time.Time
}

// New constructs a Vault over the given repository and cipher.
func New(repo domain.CredentialRepository, cipher *Cipher) *Vault {
	return &Vault{repo: repo, cipher: cipher, now: time.Now}
}

// AddKey encrypts and stores a new provider secret in ACTIVE status.
func (v *Vault) AddKey(ctx context.Context, provider, apiKey string) (*domain.Credential, error) {
	encrypted, err := v.cipher.Encrypt(apiKey)
	if err != nil {
		return nil, err
	}
	now := v.now().UTC()
	cred := &domain.Credential{
		ID:           uuid.NewString(),
		Provider:     provider,
		EncryptedKey: encrypted,
		Status:       domain.CredentialStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := v.repo.Create(ctx, cred); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}
	return cred, nil
}

// GetKey fetches a credential by id.
func (v *Vault) GetKey(ctx context.Context, id string) (*domain.Credential, error) {
	return v.repo.GetByID(ctx, id)
}

// ActiveKeyForProvider returns the first ACTIVE credential for a provider in
// repository order (created_at, then id). Returns domain.ErrNoActiveKey when
// none qualifies.
func (v *Vault) ActiveKeyForProvider(ctx context.Context, provider string) (*domain.Credential, error) {
	creds, err := v.repo.ListByProvider(ctx, provider)
	if err != nil {
		return nil, err
	}
	for i := range creds {
		if creds[i].Status == domain.CredentialStatusActive {
			return &creds[i], nil
		}
	}
	return nil, domain.ErrNoActiveKey
}

// ListKeys returns all credentials except revoked ones.
func (v *Vault) ListKeys(ctx context.Context) ([]domain.Credential, error) {
	creds, err := v.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := creds[:0]
	for _, cred := range creds {
		if cred.Status != domain.CredentialStatusRevoked {
			out = append(out, cred)
		}
	}
	return out, nil
}

// UpdateStatus sets the credential status and refreshes its validation timestamp.
func (v *Vault) UpdateStatus(ctx context.Context, id string, status domain.CredentialStatus) (*domain.Credential, error) {
	cred, err := v.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := v.now().UTC()
	cred.Status = status
	cred.LastValidated = &now
	cred.UpdatedAt = now
	if err := v.repo.Update(ctx, cred); err != nil {
		return nil, fmt.Errorf("update credential: %w", err)
	}
	return cred, nil
}

// RevokeKey marks a credential revoked. Revoked keys stay in storage but are
// excluded from listings and selection.
func (v *Vault) RevokeKey(ctx context.Context, id string) error {
	cred, err := v.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	cred.Status = domain.CredentialStatusRevoked
	cred.UpdatedAt = v.now().UTC()
	return v.repo.Update(ctx, cred)
}

// DeleteKey removes a credential permanently.
func (v *Vault) DeleteKey(ctx context.Context, id string) error {
	return v.repo.Delete(ctx, id)
}

// DecryptKey recovers the plaintext secret. Callers hold it only for the
// duration of a provider call; it is never persisted or logged.
func (v *Vault) DecryptKey(cred *domain.Credential) (string, error) {
	return v.cipher.Decrypt(cred.EncryptedKey)
}
