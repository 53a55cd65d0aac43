package graph

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/yungbote/triage-graph/internal/domain"
)

func testSpec(dim, capacity int) VectorIndexSpec {
	return VectorIndexSpec{
		Name:      "idx",
		Label:     LabelDescription,
		Property:  PropertyEmbedding,
		Dimension: dim,
		Metric:    MetricCosine,
		Capacity:  capacity,
	}
}

func TestMemoryStoreUpsertConceptsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	concepts := []domain.Concept{{ID: "1", Active: true}, {ID: "2", Active: true}}
	for i := 0; i < 2; i++ {
		if err := s.UpsertConcepts(ctx, concepts); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	st, _ := s.Stats(ctx)
	if st.Concepts != 2 {
		t.Fatalf("concepts=%d want 2", st.Concepts)
	}
}

func TestMemoryStoreDescriptionsNeedOwner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.UpsertConcepts(ctx, []domain.Concept{{ID: "c1", Active: true}})
	err := s.CreateDescriptions(ctx, []domain.Description{
		{ID: "d1", ConceptID: "c1", Term: "owned", Embedding: []float32{1, 0}},
		{ID: "d2", ConceptID: "missing", Term: "orphan", Embedding: []float32{0, 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := s.Description("d1"); !ok {
		t.Fatalf("d1 missing")
	}
	if _, ok := s.Description("d2"); ok {
		t.Fatalf("orphan stored")
	}
}

func TestMemoryStoreMergeRelationshipsDedupes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.UpsertConcepts(ctx, []domain.Concept{{ID: "a"}, {ID: "b"}})
	rels := []domain.Relationship{
		{SourceID: "a", DestinationID: "b"},
		{SourceID: "a", DestinationID: "b"},
		{SourceID: "a", DestinationID: "zzz"},
	}
	if err := s.MergeRelationships(ctx, domain.EdgeAssociatedWith, rels); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := s.MergeRelationships(ctx, domain.EdgeAssociatedWith, rels); err != nil {
		t.Fatalf("merge again: %v", err)
	}
	st, _ := s.Stats(ctx)
	if st.AssocEdges != 1 {
		t.Fatalf("assoc edges=%d want 1", st.AssocEdges)
	}
	if !s.HasEdge(domain.EdgeAssociatedWith, "a", "b") {
		t.Fatalf("edge a->b missing")
	}
}

func TestMemoryStoreIndexSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.UpsertConcepts(ctx, []domain.Concept{{ID: "c1"}})
	_ = s.CreateDescriptions(ctx, []domain.Description{
		{ID: "d1", ConceptID: "c1", Term: "one", Embedding: []float32{1, 0}},
		{ID: "d2", ConceptID: "c1", Term: "two", Embedding: []float32{0, 1}},
	})

	if err := s.CreateVectorIndex(ctx, testSpec(2, 10)); err != nil {
		t.Fatalf("create index: %v", err)
	}
	if err := s.CreateVectorIndex(ctx, testSpec(2, 10)); !errors.Is(err, ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}

	_ = s.CreateDescriptions(ctx, []domain.Description{
		{ID: "d3", ConceptID: "c1", Term: "late", Embedding: []float32{1, 1}},
	})
	hits, err := s.SearchVectors(ctx, "idx", []float32{1, 1}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits=%d want 2 (late description must not be indexed)", len(hits))
	}
	for _, h := range hits {
		if h.DescriptionID == "d3" {
			t.Fatalf("late description searchable before rebuild")
		}
		if h.ConceptID != "c1" {
			t.Fatalf("owner not joined: %+v", h)
		}
	}
}

func TestMemoryStoreSearchOrderingAndTies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.UpsertConcepts(ctx, []domain.Concept{{ID: "c"}})
	_ = s.CreateDescriptions(ctx, []domain.Description{
		{ID: "far", ConceptID: "c", Embedding: []float32{0, 1}},
		{ID: "tie1", ConceptID: "c", Embedding: []float32{1, 0}},
		{ID: "tie2", ConceptID: "c", Embedding: []float32{2, 0}},
	})
	_ = s.CreateVectorIndex(ctx, testSpec(2, 10))

	hits, err := s.SearchVectors(ctx, "idx", []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits=%d", len(hits))
	}
	if hits[0].DescriptionID != "tie1" || hits[1].DescriptionID != "tie2" {
		t.Fatalf("ties must keep insertion order: %+v", hits)
	}
	if math.Abs(hits[0].Score-1) > 1e-9 {
		t.Fatalf("score=%v", hits[0].Score)
	}
}

func TestMemoryStoreIndexErrors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.DropVectorIndex(ctx, "idx"); !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("drop missing: %v", err)
	}
	if _, err := s.SearchVectors(ctx, "idx", []float32{1}, 1); !errors.Is(err, ErrIndexNotFound) {
		t.Fatalf("search missing: %v", err)
	}

	_ = s.UpsertConcepts(ctx, []domain.Concept{{ID: "c"}})
	_ = s.CreateDescriptions(ctx, []domain.Description{
		{ID: "d1", ConceptID: "c", Embedding: []float32{1, 0}},
		{ID: "d2", ConceptID: "c", Embedding: []float32{0, 1}},
	})
	if err := s.CreateVectorIndex(ctx, testSpec(2, 1)); !errors.Is(err, ErrIndexCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if err := s.CreateVectorIndex(ctx, testSpec(3, 10)); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected dimension error, got %v", err)
	}
	if err := s.CreateVectorIndex(ctx, testSpec(2, 10)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.SearchVectors(ctx, "idx", []float32{1, 0, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected query dimension error, got %v", err)
	}
}

func TestMemoryStoreAssociatedConditions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.UpsertConcepts(ctx, []domain.Concept{{ID: "mi"}, {ID: "gerd"}, {ID: "pain"}, {ID: "other"}})
	_ = s.CreateDescriptions(ctx, []domain.Description{
		{ID: "1", ConceptID: "mi", Term: "Myocardial infarction", Type: domain.DescriptionTypeFSN},
		{ID: "2", ConceptID: "mi", Term: "Heart attack", Type: domain.DescriptionTypeSynonym},
		{ID: "3", ConceptID: "gerd", Term: "Gastroesophageal reflux disease", Type: domain.DescriptionTypeFSN},
		{ID: "4", ConceptID: "other", Term: "Unrelated", Type: domain.DescriptionTypeFSN},
	})
	_ = s.MergeRelationships(ctx, domain.EdgeAssociatedWith, []domain.Relationship{
		{SourceID: "mi", DestinationID: "pain"},
		{SourceID: "gerd", DestinationID: "pain"},
		{SourceID: "pain", DestinationID: "other"},
	})

	got, err := s.AssociatedConditions(ctx, "pain", domain.DescriptionTypeFSN)
	if err != nil {
		t.Fatalf("conditions: %v", err)
	}
	want := []Condition{
		{ConceptID: "gerd", Term: "Gastroesophageal reflux disease"},
		{ConceptID: "mi", Term: "Myocardial infarction"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %+v want %+v", got, want)
		}
	}
}

func TestMemoryStoreResetDropsEverything(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.UpsertConcepts(ctx, []domain.Concept{{ID: "c"}})
	_ = s.CreateVectorIndex(ctx, testSpec(2, 10))
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	st, _ := s.Stats(ctx)
	if st.Concepts != 0 || len(st.VectorIndexes) != 0 {
		t.Fatalf("stats after reset: %+v", st)
	}
}

func TestVectorIndexSpecValidate(t *testing.T) {
	if err := testSpec(768, 1000).Validate(); err != nil {
		t.Fatalf("valid spec rejected: %v", err)
	}
	bad := testSpec(768, 1000)
	bad.Metric = "l2sq"
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected metric error")
	}
	bad = testSpec(0, 1000)
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected dimension error")
	}
}
