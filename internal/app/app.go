// Package app wires configuration, clients and services into the commands the CLI exposes.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/triage-graph/internal/config"
	"github.com/yungbote/triage-graph/internal/data/graph"
	"github.com/yungbote/triage-graph/internal/dataset"
	"github.com/yungbote/triage-graph/internal/ingest"
	"github.com/yungbote/triage-graph/internal/observability"
	"github.com/yungbote/triage-graph/internal/platform/logger"
	"github.com/yungbote/triage-graph/internal/server"
	"github.com/yungbote/triage-graph/internal/triage"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

type App struct {
	Log      *logger.Logger
	Config   *config.Config
	Metrics  *observability.Metrics
	Clients  Clients
	Services Services

	otelShutdown func(context.Context) error
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config required")
	}
	if log == nil {
		l, err := logger.New(cfg.Env)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
		log = l
	}

	shutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "triage-graph",
		Environment: cfg.Env,
		Version:     Version,
	})
	metrics := observability.NewMetrics()

	clients, err := wireClients(ctx, cfg, log, metrics)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	services, err := wireServices(cfg, clients, log, metrics)
	if err != nil {
		clients.Close(ctx)
		_ = shutdown(ctx)
		return nil, err
	}

	return &App{
		Log:          log,
		Config:       cfg,
		Metrics:      metrics,
		Clients:      clients,
		Services:     services,
		otelShutdown: shutdown,
	}, nil
}

// ResolveSources merges explicit extract paths over those discovered in dir (or the configured release dir).
func (a *App) ResolveSources(ctx context.Context, dir string, explicit dataset.Sources) (dataset.Sources, error) {
	ds := a.Config.Dataset
	out := dataset.Sources{Concepts: ds.Concepts, Descriptions: ds.Descriptions, Relationships: ds.Relationships}

	if strings.TrimSpace(dir) == "" {
		dir = ds.Dir
	}
	if strings.TrimSpace(dir) != "" {
		found, err := dataset.Discover(ctx, a.Clients.Opener, dir)
		if err != nil {
			return dataset.Sources{}, fmt.Errorf("discover %s: %w", dir, err)
		}
		out = overlay(out, found)
	}
	return overlay(out, explicit), nil
}

func overlay(base, top dataset.Sources) dataset.Sources {
	if top.Concepts != "" {
		base.Concepts = top.Concepts
	}
	if top.Descriptions != "" {
		base.Descriptions = top.Descriptions
	}
	if top.Relationships != "" {
		base.Relationships = top.Relationships
	}
	return base
}

func (a *App) Ingest(ctx context.Context, sources dataset.Sources) (ingest.Report, error) {
	return a.Services.Pipeline.Run(ctx, sources)
}

// Seed replaces the graph with the built-in demonstration dataset.
func (a *App) Seed(ctx context.Context) (ingest.Report, error) {
	c, d, r := ingest.SeedDataset()
	return a.Services.Pipeline.RunSources(ctx, c, d, r)
}

func (a *App) RebuildIndex(ctx context.Context) error {
	return a.Services.Index.Rebuild(ctx)
}

// Lookup runs one triage query; a degraded result is returned together with an error.
func (a *App) Lookup(ctx context.Context, text string, k int, expand bool) (triage.Result, error) {
	res := a.Services.Triage.WithOptions(k, expand).Triage(ctx, text)
	if res.Degraded {
		return res, errors.New("lookup degraded; see log for the cause")
	}
	return res, nil
}

func (a *App) Stats(ctx context.Context) (graph.Stats, error) {
	return a.Clients.Graph.Stats(ctx)
}

// Serve blocks until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	switch strings.ToLower(a.Config.Env) {
	case "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	}
	if err := a.Clients.Graph.Ping(ctx); err != nil {
		a.Log.Warn("graph store not reachable at startup", "error", err)
	}
	srv := server.New(a.Config.HTTP, server.RouterConfig{
		WebhookHandler: server.NewWebhookHandler(a.Services.Webhook, a.Config.HTTP.MaxRequestBytes, a.Log),
		Ready:          a.Clients.Graph,
		Metrics:        a.Metrics,
		AllowOrigins:   a.Config.HTTP.AllowOrigins,
	}, a.Log)
	return srv.Run(ctx)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	a.Clients.Close(ctx)
	if a.otelShutdown != nil {
		_ = a.otelShutdown(ctx)
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
