package domain

import "time"

// CredentialStatus enumerates the validity states of a stored provider key.
type CredentialStatus string

const (
	CredentialStatusActive        CredentialStatus = "active"
	CredentialStatusInvalid       CredentialStatus = "invalid"
	CredentialStatusQuotaExceeded CredentialStatus = "quota_exceeded"
	CredentialStatusRevoked       CredentialStatus = "revoked"
)

// Credential holds an encrypted provider secret and its validity state.
// The plaintext secret is never stored on this type.
type Credential struct {
	ID            string
	Provider      string
	EncryptedKey  string
	Status        CredentialStatus
	LastValidated *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// KeyPreview returns a fixed-length glimpse of the stored ciphertext suitable
// for display. The full value is never exposed.
func (c *Credential) KeyPreview() string {
	if len(c.EncryptedKey) < 12 {
		return "..."
	}
	return c.EncryptedKey[:8] + "..." + c.EncryptedKey[len(c.EncryptedKey)-4:]
}
