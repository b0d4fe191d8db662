package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yowlens/lens/cache"
	"github.com/yowlens/lens/config"
	"github.com/yowlens/lens/detect"
	"github.com/yowlens/lens/embedding"
	"github.com/yowlens/lens/ranking"
	"github.com/yowlens/lens/storage"
)

// app holds the wired search pipeline.
type app struct {
	store  *storage.PostgresStore
	cache  cache.Client
	ranker *ranking.Ranker
	lens   *ranking.Lens
}

func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Client, error) {
	if cfg.Driver == "redis" {
		return cache.NewRedisClient(ctx, cache.RedisConfig{URL: cfg.RedisURL, PoolSize: cfg.PoolSize})
	}
	return cache.NewMemoryClient(cfg.MaxEntries), nil
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	store, err := storage.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	c, err := newCache(ctx, cfg.Cache)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("cache: %w", err)
	}

	embedClient, err := embedding.NewClient(embedding.Config{
		BaseURL:    cfg.Embedding.URL,
		Model:      cfg.Embedding.Model,
		Dimension:  cfg.Embedding.Dimension,
		Timeout:    cfg.Embedding.Timeout,
		RatePerSec: cfg.Embedding.RatePerSec,
		Burst:      cfg.Embedding.Burst,
	})
	if err != nil {
		store.Close()
		_ = c.Close()
		return nil, err
	}
	detector, err := detect.NewClient(detect.Config{
		BaseURL:    cfg.Detector.URL,
		Model:      cfg.Detector.Model,
		Timeout:    cfg.Detector.Timeout,
		RatePerSec: cfg.Detector.RatePerSec,
		Burst:      cfg.Detector.Burst,
		Padding:    cfg.Detector.Padding,
	}, logger)
	if err != nil {
		store.Close()
		_ = c.Close()
		return nil, err
	}

	embedder := embedding.NewCachedEmbedder(embedClient, c, embedClient.Model(), cfg.Cache.TTL, logger)
	ranker := ranking.NewRanker(embedder, store, logger)
	return &app{
		store:  store,
		cache:  c,
		ranker: ranker,
		lens:   ranking.NewLens(detector, ranker, logger),
	}, nil
}

func (a *app) Close() {
	_ = a.cache.Close()
	a.store.Close()
}
