package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/orchestrator"
	"server/internal/pricing"
	"server/internal/providers"
	"server/internal/storage"
	"server/internal/vault"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	if err := repo.EnsureSchema(ctx, dbpool); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	cipher, err := vault.NewCipher(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid encryption key")
	}

	generations := repo.NewGenerationRepository(dbpool)
	credentials := repo.NewCredentialRepository(dbpool)
	usage := repo.NewUsageRepository(dbpool)
	keyVault := vault.New(credentials, cipher)
	store, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare video storage")
	}
	calc := pricing.NewCalculator()

	orch := orchestrator.New(ctx, generations, store, calc, logger, orchestrator.Options{
		PollInterval:    cfg.PollInterval,
		MaxPollAttempts: cfg.MaxPollAttempts,
		PublicBaseURL:   cfg.PublicBaseURL,
	})

	baseURLs := map[string]string{
		"openai": cfg.OpenAIBaseURL,
		"runway": cfg.RunwayBaseURL,
		"kling":  cfg.KlingBaseURL,
	}
	app := &handlers.App{
		Logger:       logger,
		Generations:  generations,
		Usage:        usage,
		Vault:        keyVault,
		Pricing:      calc,
		Orchestrator: orch,
		Store:        store,
		NewProvider: func(name, apiKey string) (providers.Provider, error) {
			return providers.New(name, apiKey, providers.Options{
				BaseURL: baseURLs[name],
				Logger:  &logger,
			})
		},
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		CORSOrigins: cfg.CORSOrigins,
		VideoDir:    store.BasePath(),
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}

	// Stop the polling loops and wait for job tasks to persist a final state.
	cancel()
	orch.Wait()
	logger.Info().Msg("server stopped")
}
