package handlers

import (
	"encoding/json"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/orchestrator"
	"server/internal/pricing"
	"server/internal/providers"
	"server/internal/storage"
	"server/internal/vault"
)

// ProviderFactory builds an adapter bound to one decrypted key. Injected so
// handler tests can substitute fakes for the real registry.
type ProviderFactory func(name, apiKey string) (providers.Provider, error)

// App is the handler container holding every collaborator the routes need.
type App struct {
	Logger       infra.Logger
	Generations  domain.GenerationRepository
	Usage        domain.UsageRepository
	Vault        *vault.Vault
	Pricing      *pricing.Calculator
	Orchestrator *orchestrator.Orchestrator
	Store        *storage.FileStore
	NewProvider  ProviderFactory
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}
