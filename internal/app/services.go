package app

import (
	"fmt"

	"github.com/yungbote/triage-graph/internal/config"
	"github.com/yungbote/triage-graph/internal/embedding"
	"github.com/yungbote/triage-graph/internal/ingest"
	"github.com/yungbote/triage-graph/internal/observability"
	"github.com/yungbote/triage-graph/internal/platform/logger"
	"github.com/yungbote/triage-graph/internal/triage"
	"github.com/yungbote/triage-graph/internal/vectorindex"
	"github.com/yungbote/triage-graph/internal/webhook"
)

type Services struct {
	Embedder *embedding.Provider
	Index    *vectorindex.Manager
	Loader   *ingest.Loader
	Pipeline *ingest.Pipeline
	Triage   *triage.Engine
	Webhook  *webhook.Handler
}

func wireServices(cfg *config.Config, clients Clients, log *logger.Logger, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	var opts []embedding.Option
	if clients.Cache != nil {
		opts = append(opts, embedding.WithCache(clients.Cache))
	}
	embedder, err := embedding.New(cfg.Embedding, log, opts...)
	if err != nil {
		return Services{}, fmt.Errorf("init embedding provider: %w", err)
	}

	index, err := vectorindex.New(clients.Graph, cfg.Index, embedder.Dimensions(), log, metrics)
	if err != nil {
		return Services{}, fmt.Errorf("init vector index manager: %w", err)
	}

	loader, err := ingest.NewLoader(clients.Graph, embedder, ingest.Options{
		BatchSize:      cfg.Ingest.BatchSize,
		EmbedBatchSize: cfg.Ingest.EmbedBatchSize,
		EmbedWorkers:   cfg.Ingest.EmbedWorkers,
	}, log, metrics)
	if err != nil {
		return Services{}, fmt.Errorf("init loader: %w", err)
	}
	pipeline, err := ingest.NewPipeline(loader, clients.Graph, index, clients.Opener, cfg.Dataset.ActiveMarker, log)
	if err != nil {
		return Services{}, fmt.Errorf("init pipeline: %w", err)
	}

	engine, err := triage.NewEngine(clients.Graph, embedder, triage.Options{
		IndexName: index.Name(),
		TopK:      cfg.Triage.TopK,
		Expand:    cfg.Triage.Expand,
	}, log, metrics)
	if err != nil {
		return Services{}, fmt.Errorf("init triage engine: %w", err)
	}

	return Services{
		Embedder: embedder,
		Index:    index,
		Loader:   loader,
		Pipeline: pipeline,
		Triage:   engine,
		Webhook:  webhook.NewHandler(engine, log, metrics),
	}, nil
}
