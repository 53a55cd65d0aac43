// Package embedding turns description terms and symptom text into fixed-dimension vectors.
//
// Provider wraps one engine with dimension checks, a bounded worker pool and an optional query cache.
// Ingestion and serving must share a Provider configuration; mixing models corrupts similarity.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/yungbote/triage-graph/internal/config"
	"github.com/yungbote/triage-graph/internal/embedding/engine"
	"github.com/yungbote/triage-graph/internal/embedding/engine/mock"
	"github.com/yungbote/triage-graph/internal/embedding/engine/oaihttp"
	"github.com/yungbote/triage-graph/internal/embedding/engine/ollama"
	"github.com/yungbote/triage-graph/internal/platform/logger"
)

// Cache stores query embeddings keyed by model and text.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

type Provider struct {
	engine engine.Engine
	model  string
	dims   int
	sem    *semaphore.Weighted
	cache  Cache
	log    *logger.Logger
}

type Option func(*Provider)

func WithCache(c Cache) Option {
	return func(p *Provider) { p.cache = c }
}

// NewEngine builds the engine named by cfg.Type.
func NewEngine(cfg config.EmbeddingConfig) (engine.Engine, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "mock":
		return mock.New(cfg.Dimensions), nil
	case "oai_http", "openai_http":
		return oaihttp.New(cfg)
	case "ollama":
		return ollama.New(cfg), nil
	default:
		return nil, fmt.Errorf("embedding: unsupported engine type %q", cfg.Type)
	}
}

func New(cfg config.EmbeddingConfig, log *logger.Logger, opts ...Option) (*Provider, error) {
	eng, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	if !cfg.UseGPU {
		log.Debug("embedding engine pinned to cpu", "type", cfg.Type)
	}
	return NewWithEngine(eng, cfg.Model, cfg.Dimensions, cfg.MaxConcurrency, log, opts...)
}

func NewWithEngine(eng engine.Engine, model string, dims, maxConcurrency int, log *logger.Logger, opts ...Option) (*Provider, error) {
	if eng == nil {
		return nil, errors.New("embedding: engine required")
	}
	if dims <= 0 {
		return nil, fmt.Errorf("embedding: invalid dimensions %d", dims)
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	p := &Provider{
		engine: eng,
		model:  model,
		dims:   dims,
		sem:    semaphore.NewWeighted(int64(maxConcurrency)),
		log:    log.With("component", "EmbeddingProvider"),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Provider) Model() string   { return p.model }
func (p *Provider) Dimensions() int { return p.dims }

// Embed returns one vector per text, in order. At most MaxConcurrency calls reach the engine at once.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	vecs, err := p.engine.Embed(ctx, p.model, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d texts", len(vecs), len(texts))
	}
	for i, v := range vecs {
		if len(v) != p.dims {
			return nil, fmt.Errorf("embedding: vector %d has %d dimensions, want %d", i, len(v), p.dims)
		}
	}
	return vecs, nil
}

// EmbedQuery embeds a single serving-time text, consulting the cache first. Cache failures only log.
func (p *Provider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := p.cacheKey(text)
	if p.cache != nil {
		vec, ok, err := p.cache.Get(ctx, key)
		if err != nil {
			p.log.Warn("embedding cache get failed", "error", err)
		} else if ok && len(vec) == p.dims {
			return vec, nil
		}
	}

	vecs, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		if err := p.cache.Set(ctx, key, vecs[0]); err != nil {
			p.log.Warn("embedding cache set failed", "error", err)
		}
	}
	return vecs[0], nil
}

func (p *Provider) cacheKey(text string) string {
	h := sha256.Sum256([]byte(p.model + "\n" + text))
	return hex.EncodeToString(h[:])
}
