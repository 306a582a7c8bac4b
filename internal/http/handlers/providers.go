package handlers

import (
	"net/http"

	"server/internal/domain"
	"server/internal/providers"
)

// ProvidersList describes every registered provider: its models,
// capabilities, pricing, and whether a usable key is on file.
func (a *App) ProvidersList(w http.ResponseWriter, r *http.Request) {
	creds, err := a.Vault.ListKeys(r.Context())
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to list keys")
		return
	}
	keyStatus := make(map[string]domain.CredentialStatus)
	for _, cred := range creds {
		// First key per provider wins; repository order is stable.
		if _, seen := keyStatus[cred.Provider]; !seen {
			keyStatus[cred.Provider] = cred.Status
		}
		if cred.Status == domain.CredentialStatusActive {
			keyStatus[cred.Provider] = cred.Status
		}
	}

	pricingTable := a.Pricing.Pricing()
	items := make([]map[string]any, 0, len(providers.Names()))
	for _, name := range providers.Names() {
		// Adapters are stateless apart from the key; a blank key is fine
		// for reading static capability data.
		adapter, err := a.NewProvider(name, "")
		if err != nil {
			continue
		}
		item := map[string]any{
			"name":         name,
			"models":       adapter.Models(),
			"capabilities": adapter.SupportedFeatures(),
			"pricing":      pricingTable[name],
			"has_key":      false,
		}
		if status, ok := keyStatus[name]; ok {
			item["has_key"] = true
			item["key_status"] = string(status)
		}
		items = append(items, item)
	}
	a.json(w, http.StatusOK, items)
}
