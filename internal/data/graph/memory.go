package graph

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/yungbote/triage-graph/internal/domain"
)

const (
	LabelDescription  = "Description"
	PropertyEmbedding = "embedding"
)

type memIndexEntry struct {
	descriptionID string
	vector        []float32
}

type memIndex struct {
	spec    VectorIndexSpec
	entries []memIndexEntry
}

type edgeKey struct {
	from string
	to   string
}

// MemoryStore is an in-process Store. Vector indexes snapshot the embeddings present when they are
// created, so descriptions written afterwards stay invisible until the next rebuild.
type MemoryStore struct {
	mu sync.RWMutex

	concepts     map[string]domain.Concept
	conceptOrder []string

	descriptions map[string]domain.Description
	descOrder    []string
	byConcept    map[string][]string

	edges   map[domain.EdgeKind]map[edgeKey]struct{}
	assocIn map[string][]string
	indexes map[string]*memIndex
	pingErr error
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.resetLocked()
	return s
}

func (s *MemoryStore) resetLocked() {
	s.concepts = map[string]domain.Concept{}
	s.conceptOrder = nil
	s.descriptions = map[string]domain.Description{}
	s.descOrder = nil
	s.byConcept = map[string][]string{}
	s.edges = map[domain.EdgeKind]map[edgeKey]struct{}{}
	s.assocIn = map[string][]string{}
	s.indexes = map[string]*memIndex{}
}

// FailPing makes Ping return err; nil restores health.
func (s *MemoryStore) FailPing(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pingErr
}

func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return nil
}

func (s *MemoryStore) UpsertConcepts(ctx context.Context, concepts []domain.Concept) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range concepts {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			continue
		}
		if _, ok := s.concepts[id]; !ok {
			s.conceptOrder = append(s.conceptOrder, id)
		}
		s.concepts[id] = domain.Concept{ID: id, Active: c.Active}
	}
	return nil
}

func (s *MemoryStore) CreateDescriptions(ctx context.Context, descriptions []domain.Description) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range descriptions {
		if _, ok := s.concepts[d.ConceptID]; !ok {
			continue
		}
		if _, ok := s.descriptions[d.ID]; !ok {
			s.descOrder = append(s.descOrder, d.ID)
			s.byConcept[d.ConceptID] = append(s.byConcept[d.ConceptID], d.ID)
		}
		cp := d
		cp.Embedding = append([]float32(nil), d.Embedding...)
		s.descriptions[d.ID] = cp
	}
	return nil
}

func (s *MemoryStore) MergeRelationships(ctx context.Context, kind domain.EdgeKind, rels []domain.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.edges[kind]
	if set == nil {
		set = map[edgeKey]struct{}{}
		s.edges[kind] = set
	}
	for _, r := range rels {
		if _, ok := s.concepts[r.SourceID]; !ok {
			continue
		}
		if _, ok := s.concepts[r.DestinationID]; !ok {
			continue
		}
		k := edgeKey{from: r.SourceID, to: r.DestinationID}
		if _, dup := set[k]; dup {
			continue
		}
		set[k] = struct{}{}
		if kind == domain.EdgeAssociatedWith {
			s.assocIn[r.DestinationID] = append(s.assocIn[r.DestinationID], r.SourceID)
		}
	}
	return nil
}

func (s *MemoryStore) DropVectorIndex(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[name]; !ok {
		return ErrIndexNotFound
	}
	delete(s.indexes, name)
	return nil
}

func (s *MemoryStore) CreateVectorIndex(ctx context.Context, spec VectorIndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexes[spec.Name]; ok {
		return ErrIndexExists
	}
	idx := &memIndex{spec: spec}
	if spec.Label == LabelDescription && spec.Property == PropertyEmbedding {
		for _, id := range s.descOrder {
			d := s.descriptions[id]
			if len(d.Embedding) == 0 {
				continue
			}
			if len(d.Embedding) != spec.Dimension {
				return fmt.Errorf("%w: description %s has %d, index wants %d", ErrDimensionMismatch, id, len(d.Embedding), spec.Dimension)
			}
			if len(idx.entries) >= spec.Capacity {
				return fmt.Errorf("%w: capacity %d", ErrIndexCapacity, spec.Capacity)
			}
			idx.entries = append(idx.entries, memIndexEntry{descriptionID: id, vector: d.Embedding})
		}
	}
	s.indexes[spec.Name] = idx
	return nil
}

func (s *MemoryStore) SearchVectors(ctx context.Context, index string, vector []float32, k int) ([]VectorMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexes[index]
	if !ok {
		return nil, ErrIndexNotFound
	}
	if len(vector) != idx.spec.Dimension {
		return nil, fmt.Errorf("%w: query has %d, index wants %d", ErrDimensionMismatch, len(vector), idx.spec.Dimension)
	}
	if k <= 0 || len(idx.entries) == 0 {
		return []VectorMatch{}, nil
	}

	out := make([]VectorMatch, 0, len(idx.entries))
	for _, e := range idx.entries {
		d, ok := s.descriptions[e.descriptionID]
		if !ok {
			continue
		}
		out = append(out, VectorMatch{
			DescriptionID: d.ID,
			Term:          d.Term,
			Type:          d.Type,
			ConceptID:     d.ConceptID,
			Score:         cosine(vector, e.vector),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *MemoryStore) AssociatedConditions(ctx context.Context, conceptID string, descType string) ([]Condition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Condition{}
	for _, src := range s.assocIn[conceptID] {
		for _, did := range s.byConcept[src] {
			d := s.descriptions[did]
			if d.Type != descType {
				continue
			}
			out = append(out, Condition{ConceptID: src, Term: d.Term})
		}
	}
	sortConditions(out)
	return out, nil
}

func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Concepts:     int64(len(s.concepts)),
		Descriptions: int64(len(s.descriptions)),
		IsAEdges:     int64(len(s.edges[domain.EdgeIsA])),
		AssocEdges:   int64(len(s.edges[domain.EdgeAssociatedWith])),
	}
	for name := range s.indexes {
		st.VectorIndexes = append(st.VectorIndexes, name)
	}
	sort.Strings(st.VectorIndexes)
	return st, nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// HasEdge reports whether an edge of kind exists between two concepts.
func (s *MemoryStore) HasEdge(kind domain.EdgeKind, from, to string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[kind][edgeKey{from: from, to: to}]
	return ok
}

// Description returns a stored description by id.
func (s *MemoryStore) Description(id string) (domain.Description, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.descriptions[id]
	if !ok {
		return domain.Description{}, false
	}
	return d, true
}

func sortConditions(out []Condition) {
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ConceptID != out[j].ConceptID {
			return out[i].ConceptID < out[j].ConceptID
		}
		return out[i].Term < out[j].Term
	})
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
