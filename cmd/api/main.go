package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/IkonicR/ads-x-create-v2-sub005/internal/adapter/repo"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/domain"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/genai"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/http/handlers"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/http/httpapi"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/infra"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/orchestrator"
	"github.com/IkonicR/ads-x-create-v2-sub005/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		jobs       domain.JobRepository
		assets     domain.AssetRepository
		businesses domain.BusinessRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()
		jobs = repo.NewJobRepository(pool)
		assets = repo.NewAssetRepository(pool)
		businesses = repo.NewBusinessRepository(pool)
	} else {
		mem := repo.NewMemory()
		mem.SeedBusiness(domain.Business{
			ID:          "demo-business",
			Name:        "Demo Coffee Roasters",
			Industry:    "Food & Beverage",
			Description: "Small-batch roastery used for local development.",
		})
		jobs = mem.Jobs()
		assets = mem.Assets()
		businesses = mem.Businesses()
		logger.Warn().Msg("DATABASE_URL not set, using in-memory ledger with demo-business")
	}

	var store storage.Store
	var fileStore *storage.FileStore
	if cfg.SupabaseURL != "" {
		store, err = storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure supabase storage")
		}
	} else {
		fileStore, err = storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure storage")
		}
		store = fileStore
		logger.Warn().Str("path", fileStore.BasePath()).Msg("SUPABASE_URL not set, storing assets on the local filesystem")
	}

	gemini, err := genai.NewClient(genai.Options{
		APIKey:       cfg.GeminiAPIKey,
		BaseURL:      cfg.GeminiBaseURL,
		Model:        cfg.GeminiModel,
		PremiumModel: cfg.GeminiPremium,
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure gemini client")
	}

	orc := orchestrator.New(jobs, assets, businesses, gemini, store, nil, logger)

	app := &handlers.App{
		Jobs:           jobs,
		Assets:         assets,
		Businesses:     businesses,
		Orchestrator:   orc,
		Logger:         logger,
		SyncGeneration: cfg.GenerationSync,
	}

	allowedOrigins := strings.Split(getEnvDefault("CORS_ORIGINS", "http://localhost:3000"), ",")
	router := httpapi.NewRouter(app, allowedOrigins)
	if fileStore != nil {
		mux := http.NewServeMux()
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(fileStore.BasePath()))))
		mux.Handle("/", router)
		router = mux
	}

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
