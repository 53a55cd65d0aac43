package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/triage-graph/internal/config"
	"github.com/yungbote/triage-graph/internal/data/graph"
	"github.com/yungbote/triage-graph/internal/dataset"
	"github.com/yungbote/triage-graph/internal/embedding"
	"github.com/yungbote/triage-graph/internal/observability"
	"github.com/yungbote/triage-graph/internal/platform/logger"
	"github.com/yungbote/triage-graph/internal/platform/neo4jdb"
)

type Clients struct {
	Graph  graph.Store
	Cache  *embedding.RedisCache
	Opener *dataset.StorageOpener
}

func wireClients(ctx context.Context, cfg *config.Config, log *logger.Logger, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	store, err := openGraph(ctx, cfg.Graph, log)
	if err != nil {
		return Clients{}, err
	}

	// The query-embedding cache is optional; lookups work without it.
	var cache *embedding.RedisCache
	if strings.TrimSpace(cfg.Cache.RedisAddr) != "" {
		c, err := embedding.NewRedisCache(ctx, cfg.Cache)
		if err != nil {
			log.Warn("redis cache unavailable; continuing without it", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			cache = c
		}
	}

	return Clients{
		Graph:  instrumentStore(cfg.Graph.Dialect, store, metrics),
		Cache:  cache,
		Opener: dataset.NewStorageOpener(),
	}, nil
}

func openGraph(ctx context.Context, cfg config.GraphConfig, log *logger.Logger) (graph.Store, error) {
	if cfg.Dialect == "memory" {
		log.Warn("using in-memory graph store; data is lost on exit")
		return graph.NewMemoryStore(), nil
	}
	client, err := neo4jdb.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init graph client: %w", err)
	}
	store, err := graph.NewNeo4jStore(client, cfg.Dialect, log)
	if err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("init graph store: %w", err)
	}
	return store, nil
}

func (c *Clients) Close(ctx context.Context) {
	if c == nil {
		return
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
	if c.Opener != nil {
		_ = c.Opener.Close()
	}
	if c.Graph != nil {
		_ = c.Graph.Close(ctx)
	}
}
