package providers

import (
	"fmt"
	"sort"
)

// Factory builds a provider adapter bound to one API key.
type Factory func(apiKey string, opts Options) Provider

var factories = map[string]Factory{
	"openai": func(apiKey string, opts Options) Provider { return NewSora(apiKey, opts) },
	"runway": func(apiKey string, opts Options) Provider { return NewRunway(apiKey, opts) },
	"kling":  func(apiKey string, opts Options) Provider { return NewKling(apiKey, opts) },
}

// modelProviders maps model identifiers to the provider that owns them. This
// table is compatibility data; consumers rely on its exact contents.
var modelProviders = map[string]string{
	"sora-2":      "openai",
	"sora-1":      "openai",
	"runway-gen3": "runway",
	"runway-gen4": "runway",
	"kling-1.5":   "kling",
	"kling-1.0":   "kling",
}

// DefaultProvider is used when a model identifier is not recognized.
const DefaultProvider = "openai"

// ProviderForModel resolves the provider owning a model, falling back to
// DefaultProvider for unknown models.
func ProviderForModel(model string) string {
	if provider, ok := modelProviders[model]; ok {
		return provider
	}
	return DefaultProvider
}

// Known reports whether a provider name has a registered adapter.
func Known(name string) bool {
	_, ok := factories[name]
	return ok
}

// Names returns the registered provider names in stable order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs the adapter for the named provider.
func New(name, apiKey string, opts Options) (Provider, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return factory(apiKey, opts), nil
}
