package providers

import (
	"context"
	"testing"
)

func TestProviderForModel(t *testing.T) {
	cases := map[string]string{
		"sora-2":      "openai",
		"sora-1":      "openai",
		"runway-gen3": "runway",
		"runway-gen4": "runway",
		"kling-1.5":   "kling",
		"kling-1.0":   "kling",
		"mystery-9":   "openai",
		"":            "openai",
	}
	for model, want := range cases {
		if got := ProviderForModel(model); got != want {
			t.Fatalf("ProviderForModel(%q) = %q, want %q", model, got, want)
		}
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New("acme", "key", Options{}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewConstructsEachAdapter(t *testing.T) {
	for _, name := range Names() {
		p, err := New(name, "key", Options{})
		if err != nil {
			t.Fatalf("New(%q) error: %v", name, err)
		}
		if p.Name() != name {
			t.Fatalf("adapter reports name %q, registered as %q", p.Name(), name)
		}
		if len(p.Models()) == 0 {
			t.Fatalf("adapter %q declares no models", name)
		}
		features := p.SupportedFeatures()
		if features.MaxDuration <= 0 || len(features.AspectRatios) == 0 {
			t.Fatalf("adapter %q has incomplete capabilities: %+v", name, features)
		}
	}
}

func TestEveryModelMapsToRegisteredAdapter(t *testing.T) {
	for model, provider := range modelProviders {
		if !Known(provider) {
			t.Fatalf("model %q maps to unregistered provider %q", model, provider)
		}
		p, err := New(provider, "key", Options{})
		if err != nil {
			t.Fatalf("New(%q) error: %v", provider, err)
		}
		found := false
		for _, m := range p.Models() {
			if m == model {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("provider %q does not list model %q", provider, model)
		}
	}
}

func TestValidateKeyNeverPanicsOnDeadEndpoint(t *testing.T) {
	sora := NewSora("sk-test", Options{BaseURL: "http://127.0.0.1:1"})
	if sora.ValidateKey(context.Background()) {
		t.Fatal("validate against unreachable endpoint must be false")
	}
}
