// Package graph is the query interface to the property graph store holding the terminology graph.
//
// Two implementations exist: Neo4jStore speaks Cypher over bolt (Memgraph or Neo4j dialect) and
// MemoryStore keeps the graph in process for tests and local development.
package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/triage-graph/internal/domain"
)

var (
	ErrIndexNotFound     = errors.New("graph: vector index does not exist")
	ErrIndexExists       = errors.New("graph: vector index already exists")
	ErrIndexCapacity     = errors.New("graph: vector index capacity exceeded")
	ErrDimensionMismatch = errors.New("graph: embedding dimension does not match index")
)

const MetricCosine = "cos"

// VectorIndexSpec describes the similarity index over Description embeddings.
type VectorIndexSpec struct {
	Name      string
	Label     string
	Property  string
	Dimension int
	Metric    string
	Capacity  int
}

func (s VectorIndexSpec) Validate() error {
	switch {
	case strings.TrimSpace(s.Name) == "":
		return errors.New("graph: vector index name required")
	case strings.TrimSpace(s.Label) == "" || strings.TrimSpace(s.Property) == "":
		return errors.New("graph: vector index target required")
	case s.Dimension <= 0:
		return fmt.Errorf("graph: invalid vector index dimension %d", s.Dimension)
	case s.Capacity <= 0:
		return fmt.Errorf("graph: invalid vector index capacity %d", s.Capacity)
	case s.Metric != MetricCosine:
		return fmt.Errorf("graph: unsupported vector index metric %q", s.Metric)
	}
	return nil
}

// VectorMatch is one nearest-neighbour hit already joined to its owning Concept.
type VectorMatch struct {
	DescriptionID string
	Term          string
	Type          string
	ConceptID     string
	Score         float64
}

// Condition is a concept reachable from a symptom concept, named by its FSN.
type Condition struct {
	ConceptID string
	Term      string
}

type Stats struct {
	Concepts      int64    `json:"concepts"`
	Descriptions  int64    `json:"descriptions"`
	IsAEdges      int64    `json:"is_a_edges"`
	AssocEdges    int64    `json:"associated_with_edges"`
	VectorIndexes []string `json:"vector_indexes"`
}

type Store interface {
	Ping(ctx context.Context) error

	// Reset removes every node, edge and vector index, then recreates the property indexes.
	Reset(ctx context.Context) error

	// UpsertConcepts merges Concept nodes by id; re-running never duplicates a node.
	UpsertConcepts(ctx context.Context, concepts []domain.Concept) error

	// CreateDescriptions creates Description nodes plus their HAS_DESCRIPTION edge in one write.
	// Rows whose owner is absent are skipped by the store. Not idempotent.
	CreateDescriptions(ctx context.Context, descriptions []domain.Description) error

	// MergeRelationships merges edges of a single kind between existing Concepts.
	MergeRelationships(ctx context.Context, kind domain.EdgeKind, rels []domain.Relationship) error

	// DropVectorIndex returns ErrIndexNotFound when no index of that name exists.
	DropVectorIndex(ctx context.Context, name string) error
	CreateVectorIndex(ctx context.Context, spec VectorIndexSpec) error

	// SearchVectors returns at most k matches in the store's native order.
	SearchVectors(ctx context.Context, index string, vector []float32, k int) ([]VectorMatch, error)

	// AssociatedConditions follows ASSOCIATED_WITH edges pointing at conceptID back to their
	// source concepts and returns the terms of those concepts' descriptions of descType.
	AssociatedConditions(ctx context.Context, conceptID string, descType string) ([]Condition, error)

	Stats(ctx context.Context) (Stats, error)
	Close(ctx context.Context) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*Neo4jStore)(nil)
)
