package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/infra"
	"server/internal/providers"
	"server/internal/vault"
)

// providerkey stores one provider API key, validating it against the live
// provider API first.
func main() {
	var (
		keyFlag      string
		providerFlag string
		skipValidate bool
	)
	flag.StringVar(&keyFlag, "key", "", "API key for the selected provider (falls back to environment)")
	flag.StringVar(&providerFlag, "provider", providers.DefaultProvider, "provider to configure (openai, runway, or kling)")
	flag.BoolVar(&skipValidate, "skip-validate", false, "store the key without checking it against the provider")
	flag.Parse()

	_ = godotenv.Load()

	provider := strings.TrimSpace(strings.ToLower(providerFlag))
	if provider == "" {
		provider = providers.DefaultProvider
	}
	if !providers.Known(provider) {
		fmt.Fprintf(os.Stderr, "unsupported provider %q (known: %s)\n", providerFlag, strings.Join(providers.Names(), ", "))
		os.Exit(1)
	}

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(strings.ToUpper(provider) + "_API_KEY"))
	}
	if key == "" {
		fmt.Fprintf(os.Stderr, "%s API key is required via -key or %s_API_KEY\n", provider, strings.ToUpper(provider))
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	masterKey := strings.TrimSpace(os.Getenv("ENCRYPTION_KEY"))
	if masterKey == "" {
		fmt.Fprintln(os.Stderr, "ENCRYPTION_KEY is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "failed to ensure schema: %v\n", err)
		os.Exit(1)
	}

	cipher, err := vault.NewCipher(masterKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid encryption key: %v\n", err)
		os.Exit(1)
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "providerkey").Str("provider", provider).Logger()

	if !skipValidate {
		adapter, err := providers.New(provider, key, providers.Options{Logger: &logger})
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		if !adapter.ValidateKey(ctx) {
			fmt.Fprintf(os.Stderr, "%s rejected the key\n", provider)
			os.Exit(1)
		}
	}

	keyVault := vault.New(repo.NewCredentialRepository(pool), cipher)
	cred, err := keyVault.AddKey(ctx, provider, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to store %s api key: %v\n", provider, err)
		os.Exit(1)
	}

	fmt.Printf("%s API key stored as %s (%s)\n", provider, cred.ID, cred.KeyPreview())
}
