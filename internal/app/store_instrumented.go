package app

import (
	"context"
	"time"

	"github.com/yungbote/triage-graph/internal/data/graph"
	"github.com/yungbote/triage-graph/internal/domain"
	"github.com/yungbote/triage-graph/internal/observability"
)

type instrumentedStore struct {
	backend string
	inner   graph.Store
	metrics *observability.Metrics
}

func instrumentStore(backend string, inner graph.Store, metrics *observability.Metrics) graph.Store {
	if inner == nil {
		return nil
	}
	if metrics == nil {
		return inner
	}
	return &instrumentedStore{backend: backend, inner: inner, metrics: metrics}
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.observe("ping", err, start)
	return err
}

func (s *instrumentedStore) Reset(ctx context.Context) error {
	start := time.Now()
	err := s.inner.Reset(ctx)
	s.observe("reset", err, start)
	return err
}

func (s *instrumentedStore) UpsertConcepts(ctx context.Context, concepts []domain.Concept) error {
	start := time.Now()
	err := s.inner.UpsertConcepts(ctx, concepts)
	s.observe("upsert_concepts", err, start)
	return err
}

func (s *instrumentedStore) CreateDescriptions(ctx context.Context, descriptions []domain.Description) error {
	start := time.Now()
	err := s.inner.CreateDescriptions(ctx, descriptions)
	s.observe("create_descriptions", err, start)
	return err
}

func (s *instrumentedStore) MergeRelationships(ctx context.Context, kind domain.EdgeKind, rels []domain.Relationship) error {
	start := time.Now()
	err := s.inner.MergeRelationships(ctx, kind, rels)
	s.observe("merge_relationships", err, start)
	return err
}

func (s *instrumentedStore) DropVectorIndex(ctx context.Context, name string) error {
	start := time.Now()
	err := s.inner.DropVectorIndex(ctx, name)
	s.observe("drop_vector_index", err, start)
	return err
}

func (s *instrumentedStore) CreateVectorIndex(ctx context.Context, spec graph.VectorIndexSpec) error {
	start := time.Now()
	err := s.inner.CreateVectorIndex(ctx, spec)
	s.observe("create_vector_index", err, start)
	return err
}

func (s *instrumentedStore) SearchVectors(ctx context.Context, index string, vector []float32, k int) ([]graph.VectorMatch, error) {
	start := time.Now()
	out, err := s.inner.SearchVectors(ctx, index, vector, k)
	s.observe("search_vectors", err, start)
	return out, err
}

func (s *instrumentedStore) AssociatedConditions(ctx context.Context, conceptID string, descType string) ([]graph.Condition, error) {
	start := time.Now()
	out, err := s.inner.AssociatedConditions(ctx, conceptID, descType)
	s.observe("associated_conditions", err, start)
	return out, err
}

func (s *instrumentedStore) Stats(ctx context.Context) (graph.Stats, error) {
	start := time.Now()
	out, err := s.inner.Stats(ctx)
	s.observe("stats", err, start)
	return out, err
}

func (s *instrumentedStore) Close(ctx context.Context) error {
	return s.inner.Close(ctx)
}

func (s *instrumentedStore) observe(operation string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.StoreOperation(s.backend, operation, status, time.Since(start))
}
