package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/pomboid/kill-fake-news/internal/cache"
	"github.com/pomboid/kill-fake-news/internal/dispatch"
	"github.com/pomboid/kill-fake-news/internal/model"
	"github.com/pomboid/kill-fake-news/internal/provider"
	"github.com/pomboid/kill-fake-news/internal/registry"
	"github.com/pomboid/kill-fake-news/internal/retrieve"
	"github.com/pomboid/kill-fake-news/internal/store"
	"github.com/pomboid/kill-fake-news/internal/verify"
	"github.com/pomboid/kill-fake-news/internal/worker"
)

// loadConfig merges the config file and environment over the defaults
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}

// buildDispatcher assembles providers -> registry -> limiter -> dispatch
func buildDispatcher(cfg *model.Config) (*dispatch.Orchestrator, error) {
	descs, warnings := provider.BuildDescriptors(cfg.Providers.List)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
	if len(descs) == 0 {
		return nil, fmt.Errorf("no providers available - set OPENAI_API_KEY, GEMINI_API_KEY or OLLAMA_BASE_URL, or configure providers in the config file")
	}

	reg := registry.New(descs, registry.Options{
		MaxFailures: cfg.Providers.MaxFailures,
		Cooldown:    time.Duration(cfg.Providers.CooldownSeconds) * time.Second,
	})

	limiter := worker.NewLimiter(0, 0) // Unlimited default; per-provider rates below
	for _, pc := range cfg.Providers.List {
		if pc.Enabled && pc.RatePerSecond > 0 {
			limiter.SetProviderRate(pc.Name, pc.RatePerSecond, pc.Burst)
		}
	}

	return dispatch.New(reg, limiter, dispatch.Options{
		Timeout:          time.Duration(cfg.Providers.TimeoutSeconds) * time.Second,
		TargetDimensions: cfg.Providers.TargetDimensions,
		LoadBalance:      cfg.Providers.LoadBalance,
	}), nil
}

// buildEngine assembles the full verification stack from configuration.
// The returned cleanup closes the store.
func buildEngine(cfg *model.Config) (*verify.Engine, func(), error) {
	disp, err := buildDispatcher(cfg)
	if err != nil {
		return nil, nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	ttl := time.Duration(cfg.Verify.CacheTTLMinutes) * time.Minute
	var verdictCache cache.Cache
	if ttl > 0 {
		if cfg.Cache.Dir != "" {
			verdictCache = cache.NewLayeredCache(ttl, cfg.Cache.Dir, ttl)
		} else {
			verdictCache = cache.NewMemoryCache(ttl, 10*time.Minute)
		}
	}

	engine := verify.NewEngine(disp, st, verdictCache, verify.Options{
		Retriever: retrieve.Retriever{
			TopK:          cfg.Retrieval.TopK,
			DenseWeight:   cfg.Retrieval.DenseWeight,
			MinSimilarity: cfg.Retrieval.MinSimilarity,
		},
		MaxTokens:   cfg.Verify.MaxTokens,
		Temperature: float32(cfg.Verify.Temperature),
		CacheTTL:    ttl,
	})

	cleanup := func() { _ = st.Close() }
	return engine, cleanup, nil
}

func openStore(cfg *model.Config) (store.Store, error) {
	switch cfg.Store.Backend {
	case "", "sqlite":
		return store.NewSQLiteStore(cfg.Store.Path)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s (supported: sqlite, memory)", cfg.Store.Backend)
	}
}
