package triage

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/yungbote/triage-graph/internal/config"
	"github.com/yungbote/triage-graph/internal/data/graph"
	"github.com/yungbote/triage-graph/internal/dataset"
	"github.com/yungbote/triage-graph/internal/domain"
	"github.com/yungbote/triage-graph/internal/embedding"
	"github.com/yungbote/triage-graph/internal/embedding/engine/mock"
	"github.com/yungbote/triage-graph/internal/ingest"
	"github.com/yungbote/triage-graph/internal/vectorindex"
)

const (
	testDims  = 64
	testIndex = "snomed_description_index"
)

type failingEmbedder struct{ err error }

func (f failingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, f.err
}

func newProvider(t *testing.T) *embedding.Provider {
	t.Helper()
	p, err := embedding.NewWithEngine(mock.New(testDims), "test-model", testDims, 2, nil)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	return p
}

func load(t *testing.T, s *graph.MemoryStore, p *embedding.Provider, c, d, r dataset.RecordSource) {
	t.Helper()
	loader, err := ingest.NewLoader(s, p, ingest.Options{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := vectorindex.New(s, config.IndexConfig{Name: testIndex, Capacity: 10000}, testDims, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	pl, err := ingest.NewPipeline(loader, s, idx, nil, "1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pl.RunSources(context.Background(), c, d, r); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func seededEngine(t *testing.T, expand bool) *Engine {
	t.Helper()
	s := graph.NewMemoryStore()
	p := newProvider(t)
	c, d, r := ingest.SeedDataset()
	load(t, s, p, c, d, r)
	e, err := NewEngine(s, p, Options{IndexName: testIndex, TopK: 5, Expand: expand}, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestLookupBlankText(t *testing.T) {
	e := seededEngine(t, true)
	for _, in := range []string{"", "   ", "\t\n"} {
		got, err := e.Lookup(context.Background(), in)
		if err != nil || len(got) != 0 {
			t.Fatalf("Lookup(%q)=%v, %v", in, got, err)
		}
	}
}

func TestLookupMissingOrEmptyIndex(t *testing.T) {
	ctx := context.Background()
	s := graph.NewMemoryStore()
	p := newProvider(t)
	e, _ := NewEngine(s, p, Options{IndexName: testIndex}, nil, nil)

	got, err := e.Lookup(ctx, "chest pain")
	if err != nil || len(got) != 0 {
		t.Fatalf("missing index: %v %v", got, err)
	}

	idx, _ := vectorindex.New(s, config.IndexConfig{Name: testIndex, Capacity: 10}, testDims, nil, nil)
	if err := idx.Rebuild(ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	got, err = e.Lookup(ctx, "chest pain")
	if err != nil || len(got) != 0 {
		t.Fatalf("empty index: %v %v", got, err)
	}
}

func TestLookupBoundedAndOrdered(t *testing.T) {
	s := graph.NewMemoryStore()
	p := newProvider(t)

	var concepts, descs [][]string
	for i := 0; i < 30; i++ {
		id := strconv.Itoa(1000 + i)
		concepts = append(concepts, []string{id, "1"})
		descs = append(descs, []string{"d" + id, "1", id, "pain number " + id, domain.DescriptionTypeIDSynonym})
	}
	load(t, s, p,
		dataset.NewSliceSource([]string{dataset.ColID, dataset.ColActive}, concepts),
		dataset.NewSliceSource([]string{dataset.ColID, dataset.ColActive, dataset.ColConceptID, dataset.ColTerm, dataset.ColTypeID}, descs),
		dataset.NewSliceSource([]string{dataset.ColID, dataset.ColActive}, nil),
	)
	e, _ := NewEngine(s, p, Options{IndexName: testIndex, TopK: 7}, nil, nil)

	got, err := e.Lookup(context.Background(), "pain")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("len=%d, want 7", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("scores increase at %d: %v > %v", i, got[i].Score, got[i-1].Score)
		}
	}

	got, _ = e.LookupK(context.Background(), "pain", 2)
	if len(got) != 2 {
		t.Fatalf("LookupK len=%d", len(got))
	}
}

func TestLookupSelfSimilarity(t *testing.T) {
	e := seededEngine(t, false)
	got, err := e.Lookup(context.Background(), "Osteoarthritis of knee")
	if err != nil || len(got) == 0 {
		t.Fatalf("Lookup: %v %v", got, err)
	}
	if got[0].Term != "Osteoarthritis of knee" || got[0].ConceptID != "239720002" {
		t.Fatalf("top=%+v", got[0])
	}
	if math.Abs(got[0].Score-1) > 1e-6 {
		t.Fatalf("self similarity=%v", got[0].Score)
	}
}

func TestExpandFollowsIncomingAssociations(t *testing.T) {
	ctx := context.Background()
	s := graph.NewMemoryStore()
	p := newProvider(t)
	// A is the symptom; B and C are conditions pointing at it; A points at D, which must not be reported.
	load(t, s, p,
		dataset.NewSliceSource([]string{dataset.ColID, dataset.ColActive}, [][]string{{"A", "1"}, {"B", "1"}, {"C", "1"}, {"D", "1"}}),
		dataset.NewSliceSource([]string{dataset.ColID, dataset.ColActive, dataset.ColConceptID, dataset.ColTerm, dataset.ColTypeID}, [][]string{
			{"a1", "1", "A", "Symptom A", domain.DescriptionTypeIDSynonym},
			{"b1", "1", "B", "Condition B", domain.DescriptionTypeIDFSN},
			{"b2", "1", "B", "B synonym", domain.DescriptionTypeIDSynonym},
			{"c1", "1", "C", "Condition C", domain.DescriptionTypeIDFSN},
			{"d1", "1", "D", "Condition D", domain.DescriptionTypeIDFSN},
		}),
		dataset.NewSliceSource([]string{dataset.ColID, dataset.ColActive, dataset.ColSourceID, dataset.ColDestinationID, dataset.ColTypeID}, [][]string{
			{"r1", "1", "B", "A", domain.RelTypeAssociatedWith},
			{"r2", "1", "C", "A", domain.RelTypeDueTo},
			{"r3", "1", "A", "D", domain.RelTypeAssociatedWith},
		}),
	)
	e, _ := NewEngine(s, p, Options{IndexName: testIndex, Expand: true}, nil, nil)

	conds, err := e.Expand(ctx, "A")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []Condition{{ConceptID: "B", Term: "Condition B"}, {ConceptID: "C", Term: "Condition C"}}
	if len(conds) != len(want) || conds[0] != want[0] || conds[1] != want[1] {
		t.Fatalf("conditions=%+v, want %+v", conds, want)
	}

	res := e.Triage(ctx, "Symptom A")
	if res.Degraded || len(res.Matches) == 0 || res.Matches[0].ConceptID != "A" {
		t.Fatalf("result=%+v", res)
	}
	if len(res.Conditions) != 2 {
		t.Fatalf("triage conditions=%+v", res.Conditions)
	}
}

func TestTriageSummaryOnSeedGraph(t *testing.T) {
	e := seededEngine(t, true)
	res := e.Triage(context.Background(), "chest pain")
	if res.Degraded {
		t.Fatalf("unexpected degraded result")
	}
	if res.Matches[0].Term != "Chest pain" {
		t.Fatalf("top match=%+v", res.Matches[0])
	}
	want := "I found a match for 'Chest pain' in the clinical database. This is often associated with: Myocardial infarction, Gastroesophageal reflux disease. Please ask differentiating questions."
	if res.Summary != want {
		t.Fatalf("summary=%q", res.Summary)
	}
}

func TestTriageWithoutExpansion(t *testing.T) {
	e := seededEngine(t, false)
	res := e.Triage(context.Background(), "knee pain")
	if len(res.Conditions) != 0 {
		t.Fatalf("conditions returned with expansion off: %+v", res.Conditions)
	}
	if !strings.HasPrefix(res.Summary, "I found a match for 'Knee pain'") {
		t.Fatalf("summary=%q", res.Summary)
	}
}

func TestWithOptionsLeavesOriginalUntouched(t *testing.T) {
	e := seededEngine(t, true)
	narrow := e.WithOptions(1, false)

	res := narrow.Triage(context.Background(), "chest pain")
	if len(res.Matches) != 1 || len(res.Conditions) != 0 {
		t.Fatalf("narrow result=%+v", res)
	}
	res = e.Triage(context.Background(), "chest pain")
	if len(res.Matches) < 2 || len(res.Conditions) != 2 {
		t.Fatalf("original engine changed: %+v", res)
	}
}

func TestTriageNoMatch(t *testing.T) {
	e := seededEngine(t, true)
	res := e.Triage(context.Background(), "")
	if res.Degraded || res.Summary != msgNoMatch || len(res.Matches) != 0 {
		t.Fatalf("result=%+v", res)
	}
}

func TestTriageDegradesOnFailure(t *testing.T) {
	s := graph.NewMemoryStore()
	e, _ := NewEngine(s, failingEmbedder{err: errors.New("model offline")}, Options{IndexName: testIndex, Expand: true}, nil, nil)
	res := e.Triage(context.Background(), "dizziness")
	if !res.Degraded || res.Summary != msgDegraded {
		t.Fatalf("result=%+v", res)
	}
	if res.Matches == nil || res.Conditions == nil || len(res.Matches) != 0 {
		t.Fatalf("degraded result must carry empty, non-nil lists: %+v", res)
	}
}

func TestNewEngineValidation(t *testing.T) {
	if _, err := NewEngine(nil, newProvider(t), Options{IndexName: "x"}, nil, nil); err == nil {
		t.Fatalf("expected store error")
	}
	if _, err := NewEngine(graph.NewMemoryStore(), newProvider(t), Options{}, nil, nil); err == nil {
		t.Fatalf("expected index name error")
	}
}
