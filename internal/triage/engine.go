// Package triage maps free-text symptoms onto terminology concepts and the conditions associated with them.
package triage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/triage-graph/internal/data/graph"
	"github.com/yungbote/triage-graph/internal/domain"
	"github.com/yungbote/triage-graph/internal/observability"
	"github.com/yungbote/triage-graph/internal/platform/logger"
)

const DefaultTopK = 5

const (
	msgNoMatch  = "I could not find a specific clinical match for that symptom."
	msgDegraded = "I am having trouble accessing the records right now."
)

// Embedder embeds one query text with the model used at ingestion.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Match struct {
	ConceptID     string  `json:"concept_id"`
	DescriptionID string  `json:"description_id"`
	Term          string  `json:"term"`
	Type          string  `json:"type"`
	Score         float64 `json:"score"`
}

type Condition struct {
	ConceptID string `json:"concept_id"`
	Term      string `json:"term"`
}

type Result struct {
	Symptom    string      `json:"symptom"`
	Matches    []Match     `json:"matches"`
	Conditions []Condition `json:"conditions"`
	Summary    string      `json:"summary"`
	Degraded   bool        `json:"degraded,omitempty"`
}

type Options struct {
	IndexName string
	TopK      int
	Expand    bool
}

type Engine struct {
	store    graph.Store
	embedder Embedder
	opts     Options
	metrics  *observability.Metrics
	log      *logger.Logger
}

func NewEngine(store graph.Store, embedder Embedder, opts Options, log *logger.Logger, metrics *observability.Metrics) (*Engine, error) {
	if store == nil || embedder == nil {
		return nil, errors.New("triage: store and embedder required")
	}
	if strings.TrimSpace(opts.IndexName) == "" {
		return nil, errors.New("triage: index name required")
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{store: store, embedder: embedder, opts: opts, metrics: metrics, log: log.With("component", "TriageEngine")}, nil
}

// WithOptions returns a copy of e with a different result bound and expansion mode; k <= 0 keeps the current bound.
func (e *Engine) WithOptions(k int, expand bool) *Engine {
	cp := *e
	if k > 0 {
		cp.opts.TopK = k
	}
	cp.opts.Expand = expand
	return &cp
}

// Lookup returns up to TopK matches by non-increasing similarity. Blank text, a missing index and an
// empty index all yield an empty list.
func (e *Engine) Lookup(ctx context.Context, text string) ([]Match, error) {
	return e.lookup(ctx, text, e.opts.TopK)
}

// LookupK is Lookup with an explicit result bound.
func (e *Engine) LookupK(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 {
		k = e.opts.TopK
	}
	return e.lookup(ctx, text, k)
}

func (e *Engine) lookup(ctx context.Context, text string, k int) ([]Match, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Match{}, nil
	}
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("triage: embed query: %w", err)
	}
	hits, err := e.store.SearchVectors(ctx, e.opts.IndexName, vec, k)
	if errors.Is(err, graph.ErrIndexNotFound) {
		e.log.Warn("vector index missing; returning no matches", "index", e.opts.IndexName)
		return []Match{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("triage: vector search: %w", err)
	}

	out := make([]Match, 0, len(hits))
	for _, h := range hits {
		out = append(out, Match{
			ConceptID:     h.ConceptID,
			DescriptionID: h.DescriptionID,
			Term:          h.Term,
			Type:          h.Type,
			Score:         h.Score,
		})
	}
	// Stable so equal scores keep the index's order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Expand lists the conditions whose ASSOCIATED_WITH edge points at conceptID, named by their FSN.
func (e *Engine) Expand(ctx context.Context, conceptID string) ([]Condition, error) {
	conds, err := e.store.AssociatedConditions(ctx, conceptID, domain.DescriptionTypeFSN)
	if err != nil {
		return nil, fmt.Errorf("triage: expand %s: %w", conceptID, err)
	}
	out := make([]Condition, 0, len(conds))
	for _, c := range conds {
		out = append(out, Condition{ConceptID: c.ConceptID, Term: c.Term})
	}
	return out, nil
}

// Triage never fails: embedding or store errors are logged and reported as a degraded, empty result.
func (e *Engine) Triage(ctx context.Context, text string) Result {
	started := time.Now()
	ctx, span := observability.Tracer().Start(ctx, "triage.lookup")
	defer span.End()

	res, err := e.triage(ctx, text)
	outcome := "match"
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Error("triage lookup failed", "error", err, "symptom", text)
		res = Result{Symptom: text, Matches: []Match{}, Conditions: []Condition{}, Summary: msgDegraded, Degraded: true}
		outcome = "degraded"
	case len(res.Matches) == 0:
		outcome = "no_match"
	}
	span.SetAttributes(
		attribute.String("triage.outcome", outcome),
		attribute.Int("triage.matches", len(res.Matches)),
		attribute.Int("triage.conditions", len(res.Conditions)),
	)
	e.metrics.Lookup(outcome, time.Since(started))
	return res
}

func (e *Engine) triage(ctx context.Context, text string) (Result, error) {
	res := Result{Symptom: text, Matches: []Match{}, Conditions: []Condition{}}
	matches, err := e.Lookup(ctx, text)
	if err != nil {
		return res, err
	}
	if len(matches) == 0 {
		res.Summary = msgNoMatch
		return res, nil
	}
	res.Matches = matches

	top := matches[0]
	if e.opts.Expand {
		conds, err := e.Expand(ctx, top.ConceptID)
		if err != nil {
			return res, err
		}
		res.Conditions = conds
	}
	res.Summary = summarize(top.Term, res.Conditions)
	return res, nil
}

func summarize(term string, conds []Condition) string {
	if len(conds) == 0 {
		return fmt.Sprintf("I found a match for '%s' in the clinical database.", term)
	}
	names := make([]string, 0, len(conds))
	for _, c := range conds {
		names = append(names, c.Term)
	}
	return fmt.Sprintf(
		"I found a match for '%s' in the clinical database. This is often associated with: %s. Please ask differentiating questions.",
		term, strings.Join(names, ", "),
	)
}
