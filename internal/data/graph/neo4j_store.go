package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/triage-graph/internal/domain"
	"github.com/yungbote/triage-graph/internal/platform/logger"
	"github.com/yungbote/triage-graph/internal/platform/neo4jdb"
)

const resetBatch = 10000

// Neo4jStore implements Store over bolt. Index DDL runs auto-commit because Memgraph rejects it
// inside explicit transactions; data writes use managed write transactions.
type Neo4jStore struct {
	client  *neo4jdb.Client
	dialect dialect
	log     *logger.Logger
}

func NewNeo4jStore(client *neo4jdb.Client, dialectName string, log *logger.Logger) (*Neo4jStore, error) {
	if client == nil || client.Driver == nil {
		return nil, errors.New("graph: neo4j client required")
	}
	if log == nil {
		log = logger.Nop()
	}
	d, err := newDialect(dialectName)
	if err != nil {
		return nil, err
	}
	return &Neo4jStore{client: client, dialect: d, log: log.With("store", "Neo4jStore", "dialect", d.name)}, nil
}

func (s *Neo4jStore) Ping(ctx context.Context) error {
	return s.client.Driver.VerifyConnectivity(ctx)
}

func (s *Neo4jStore) run(ctx context.Context, cypher string, params map[string]any) error {
	session := s.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	res, err := session.Run(ctx, cypher, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func (s *Neo4jStore) write(ctx context.Context, cypher string, rows []map[string]any) error {
	if len(rows) == 0 {
		return nil
	}
	session := s.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, map[string]any{"rows": rows})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

func (s *Neo4jStore) Reset(ctx context.Context) error {
	names, err := s.vectorIndexNames(ctx)
	if err != nil {
		s.log.Warn("list vector indexes failed (continuing)", "error", err)
	}
	for _, name := range names {
		if err := s.DropVectorIndex(ctx, name); err != nil && !errors.Is(err, ErrIndexNotFound) {
			return fmt.Errorf("graph reset: drop vector index %s: %w", name, err)
		}
	}

	session := s.client.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	for {
		n, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, deleteBatchCypher, map[string]any{"limit": int64(resetBatch)})
			if err != nil {
				return nil, err
			}
			rec, err := res.Single(ctx)
			if err != nil {
				return nil, err
			}
			return asInt64(rec, "deleted"), nil
		})
		if err != nil {
			return fmt.Errorf("graph reset: delete: %w", err)
		}
		if n.(int64) == 0 {
			break
		}
	}

	// Schema helpers are best-effort; restricted users may lack index privileges.
	for _, stmt := range s.dialect.propertyIndexes() {
		if err := s.run(ctx, stmt, nil); err != nil {
			s.log.Warn("graph schema init failed (continuing)", "error", err)
		}
	}
	return nil
}

func (s *Neo4jStore) UpsertConcepts(ctx context.Context, concepts []domain.Concept) error {
	rows := make([]map[string]any, 0, len(concepts))
	for _, c := range concepts {
		if c.ID == "" {
			continue
		}
		rows = append(rows, map[string]any{"id": c.ID, "active": c.Active})
	}
	return s.write(ctx, upsertConceptsCypher, rows)
}

func (s *Neo4jStore) CreateDescriptions(ctx context.Context, descriptions []domain.Description) error {
	rows := make([]map[string]any, 0, len(descriptions))
	for _, d := range descriptions {
		rows = append(rows, map[string]any{
			"id":         d.ID,
			"concept_id": d.ConceptID,
			"term":       d.Term,
			"type":       d.Type,
			"type_id":    d.TypeID,
			"embedding":  toFloat64s(d.Embedding),
		})
	}
	return s.write(ctx, createDescriptionsCypher, rows)
}

func (s *Neo4jStore) MergeRelationships(ctx context.Context, kind domain.EdgeKind, rels []domain.Relationship) error {
	cypher, err := mergeRelationshipsCypher(kind)
	if err != nil {
		return err
	}
	rows := make([]map[string]any, 0, len(rels))
	for _, r := range rels {
		rows = append(rows, map[string]any{"source_id": r.SourceID, "destination_id": r.DestinationID})
	}
	return s.write(ctx, cypher, rows)
}

func (s *Neo4jStore) DropVectorIndex(ctx context.Context, name string) error {
	stmt, err := s.dialect.dropVectorIndex(name)
	if err != nil {
		return err
	}
	return classifyError(s.run(ctx, stmt, nil))
}

func (s *Neo4jStore) CreateVectorIndex(ctx context.Context, spec VectorIndexSpec) error {
	stmt, err := s.dialect.createVectorIndex(spec)
	if err != nil {
		return err
	}

	total, mismatched, err := s.embeddingCensus(ctx, spec.Dimension)
	if err != nil {
		return fmt.Errorf("graph: embedding census: %w", err)
	}
	if mismatched > 0 {
		return fmt.Errorf("%w: %d descriptions differ from %d", ErrDimensionMismatch, mismatched, spec.Dimension)
	}
	if total > int64(spec.Capacity) {
		return fmt.Errorf("%w: %d embeddings, capacity %d", ErrIndexCapacity, total, spec.Capacity)
	}

	if err := s.run(ctx, stmt, nil); err != nil {
		return classifyError(err)
	}
	s.log.Info("vector index created", "index", spec.Name, "dimension", spec.Dimension, "entries", total)
	return nil
}

func (s *Neo4jStore) embeddingCensus(ctx context.Context, dim int) (int64, int64, error) {
	session := s.client.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, embeddingCensusCypher, map[string]any{"dim": int64(dim)})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return [2]int64{asInt64(rec, "total"), asInt64(rec, "mismatched")}, nil
	})
	if err != nil {
		return 0, 0, err
	}
	pair := out.([2]int64)
	return pair[0], pair[1], nil
}

func (s *Neo4jStore) SearchVectors(ctx context.Context, index string, vector []float32, k int) ([]VectorMatch, error) {
	if k <= 0 {
		return []VectorMatch{}, nil
	}
	session := s.client.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, s.dialect.searchVectors(), map[string]any{
			"index":  index,
			"k":      int64(k),
			"vector": toFloat64s(vector),
		})
		if err != nil {
			return nil, err
		}
		matches := []VectorMatch{}
		for res.Next(ctx) {
			rec := res.Record()
			matches = append(matches, VectorMatch{
				DescriptionID: asString(rec, "description_id"),
				Term:          asString(rec, "term"),
				Type:          asString(rec, "type"),
				ConceptID:     asString(rec, "concept_id"),
				Score:         asFloat64(rec, "score"),
			})
		}
		return matches, res.Err()
	})
	if err != nil {
		return nil, classifyError(err)
	}
	matches := out.([]VectorMatch)
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Neo4jStore) AssociatedConditions(ctx context.Context, conceptID string, descType string) ([]Condition, error) {
	session := s.client.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, associatedConditionsCypher, map[string]any{"id": conceptID, "type": descType})
		if err != nil {
			return nil, err
		}
		conds := []Condition{}
		for res.Next(ctx) {
			rec := res.Record()
			conds = append(conds, Condition{ConceptID: asString(rec, "concept_id"), Term: asString(rec, "term")})
		}
		return conds, res.Err()
	})
	if err != nil {
		return nil, err
	}
	conds := out.([]Condition)
	sortConditions(conds)
	return conds, nil
}

func (s *Neo4jStore) vectorIndexNames(ctx context.Context) ([]string, error) {
	session := s.client.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	res, err := session.Run(ctx, s.dialect.listVectorIndexes(), nil)
	if err != nil {
		return nil, err
	}
	names := []string{}
	for res.Next(ctx) {
		if name := asString(res.Record(), "name"); name != "" {
			names = append(names, name)
		}
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *Neo4jStore) Stats(ctx context.Context) (Stats, error) {
	session := s.client.Session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	counts := map[string]int64{}
	for _, q := range statsCounts {
		res, err := session.Run(ctx, q.cypher, nil)
		if err != nil {
			return Stats{}, fmt.Errorf("graph stats %s: %w", q.key, err)
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return Stats{}, fmt.Errorf("graph stats %s: %w", q.key, err)
		}
		counts[q.key] = asInt64(rec, "n")
	}

	st := Stats{
		Concepts:     counts["concepts"],
		Descriptions: counts["descriptions"],
		IsAEdges:     counts["is_a"],
		AssocEdges:   counts["assoc"],
	}
	names, err := s.vectorIndexNames(ctx)
	if err != nil {
		s.log.Warn("list vector indexes failed", "error", err)
	}
	st.VectorIndexes = names
	return st, nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func toFloat64s(v []float32) []float64 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func asString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func asInt64(rec *neo4j.Record, key string) int64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	}
	return 0
}

func asFloat64(rec *neo4j.Record, key string) float64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	}
	return 0
}
