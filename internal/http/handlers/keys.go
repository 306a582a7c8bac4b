package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
	"server/internal/providers"
)

type addKeyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// KeysAdd validates a plaintext key against the live provider API and stores
// it encrypted. The plaintext never reaches a log line or the database.
func (a *App) KeysAdd(w http.ResponseWriter, r *http.Request) {
	var req addKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Provider = strings.TrimSpace(req.Provider)
	req.APIKey = strings.TrimSpace(req.APIKey)
	if req.Provider == "" || req.APIKey == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "provider and api_key are required")
		return
	}
	if !providers.Known(req.Provider) {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown provider: "+req.Provider)
		return
	}

	adapter, err := a.NewProvider(req.Provider, req.APIKey)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if !adapter.ValidateKey(r.Context()) {
		a.error(w, http.StatusBadRequest, "invalid_key", "API key failed validation against "+req.Provider)
		return
	}

	cred, err := a.Vault.AddKey(r.Context(), req.Provider, req.APIKey)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to store key")
		return
	}
	a.json(w, http.StatusCreated, credentialPayload(cred))
}

// KeysList returns metadata for all non-revoked keys. Key material is
// represented only by its preview.
func (a *App) KeysList(w http.ResponseWriter, r *http.Request) {
	creds, err := a.Vault.ListKeys(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list keys")
		return
	}
	items := make([]map[string]any, 0, len(creds))
	for i := range creds {
		items = append(items, credentialPayload(&creds[i]))
	}
	a.json(w, http.StatusOK, items)
}

// KeysValidate re-checks a stored key against the provider and updates its
// status to active or invalid accordingly.
func (a *App) KeysValidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cred, err := a.Vault.GetKey(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "key not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load key")
		return
	}
	apiKey, err := a.Vault.DecryptKey(cred)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to decrypt key")
		return
	}
	adapter, err := a.NewProvider(cred.Provider, apiKey)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	status := domain.CredentialStatusInvalid
	if adapter.ValidateKey(r.Context()) {
		status = domain.CredentialStatusActive
	}
	updated, err := a.Vault.UpdateStatus(r.Context(), id, status)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to update key status")
		return
	}
	a.json(w, http.StatusOK, credentialPayload(updated))
}

// KeysDelete removes a stored key permanently.
func (a *App) KeysDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := a.Vault.DeleteKey(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "key not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete key")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"message": "key deleted"})
}

func credentialPayload(cred *domain.Credential) map[string]any {
	payload := map[string]any{
		"id":          cred.ID,
		"provider":    cred.Provider,
		"key_preview": cred.KeyPreview(),
		"status":      string(cred.Status),
		"created_at":  cred.CreatedAt.UTC().Format(time.RFC3339),
	}
	if cred.LastValidated != nil {
		payload["last_validated"] = cred.LastValidated.UTC().Format(time.RFC3339)
	}
	return payload
}
