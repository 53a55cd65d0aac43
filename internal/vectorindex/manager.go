// Package vectorindex owns the single similarity index over Description embeddings.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/triage-graph/internal/config"
	"github.com/yungbote/triage-graph/internal/data/graph"
	"github.com/yungbote/triage-graph/internal/observability"
	"github.com/yungbote/triage-graph/internal/platform/logger"
)

type Manager struct {
	store   graph.Store
	spec    graph.VectorIndexSpec
	metrics *observability.Metrics
	log     *logger.Logger
}

func New(store graph.Store, cfg config.IndexConfig, dimensions int, log *logger.Logger, metrics *observability.Metrics) (*Manager, error) {
	if store == nil {
		return nil, errors.New("vectorindex: store required")
	}
	if log == nil {
		log = logger.Nop()
	}
	spec := graph.VectorIndexSpec{
		Name:      strings.TrimSpace(cfg.Name),
		Label:     graph.LabelDescription,
		Property:  graph.PropertyEmbedding,
		Dimension: dimensions,
		Metric:    cfg.Metric,
		Capacity:  cfg.Capacity,
	}
	if spec.Name == "" {
		spec.Name = config.DefaultIndexName
	}
	if spec.Metric == "" {
		spec.Metric = graph.MetricCosine
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("vectorindex: %w", err)
	}
	return &Manager{store: store, spec: spec, metrics: metrics, log: log.With("component", "VectorIndexManager")}, nil
}

func (m *Manager) Spec() graph.VectorIndexSpec { return m.spec }

func (m *Manager) Name() string { return m.spec.Name }

// Rebuild drops the index if present and creates it over the embeddings stored right now.
// Descriptions written afterwards are only guaranteed searchable after the next Rebuild.
func (m *Manager) Rebuild(ctx context.Context) error {
	err := m.rebuild(ctx)
	m.metrics.IndexRebuild(err == nil)
	return err
}

func (m *Manager) rebuild(ctx context.Context) error {
	if err := m.store.DropVectorIndex(ctx, m.spec.Name); err != nil {
		if !errors.Is(err, graph.ErrIndexNotFound) {
			return fmt.Errorf("vectorindex: drop %s: %w", m.spec.Name, err)
		}
		m.log.Debug("vector index absent before rebuild", "index", m.spec.Name)
	}
	if err := m.store.CreateVectorIndex(ctx, m.spec); err != nil {
		return fmt.Errorf("vectorindex: create %s: %w", m.spec.Name, err)
	}
	m.log.Info("vector index rebuilt",
		"index", m.spec.Name,
		"dimension", m.spec.Dimension,
		"metric", m.spec.Metric,
		"capacity", m.spec.Capacity,
	)
	return nil
}
