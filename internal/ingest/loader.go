// Package ingest loads a terminology release into the graph store.
//
// Passes run strictly in order (concepts, descriptions, relationships) because each later pass filters
// on the ids accepted by the concept pass. Every write is batched; any embed or write failure aborts.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/triage-graph/internal/data/graph"
	"github.com/yungbote/triage-graph/internal/dataset"
	"github.com/yungbote/triage-graph/internal/domain"
	"github.com/yungbote/triage-graph/internal/observability"
	"github.com/yungbote/triage-graph/internal/platform/logger"
)

const (
	DefaultBatchSize      = 2048
	DefaultEmbedBatchSize = 256
)

// Embedder is the slice of embedding.Provider the loader needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	BatchSize      int
	EmbedBatchSize int
	EmbedWorkers   int
}

func (o Options) normalized() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if o.EmbedWorkers <= 0 {
		o.EmbedWorkers = 1
	}
	return o
}

// AcceptedSet holds the concept ids written by the concept pass.
type AcceptedSet struct {
	ids map[string]struct{}
}

func NewAcceptedSet(ids ...string) AcceptedSet {
	a := AcceptedSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		a.ids[id] = struct{}{}
	}
	return a
}

func (a AcceptedSet) Has(id string) bool {
	_, ok := a.ids[id]
	return ok
}

func (a AcceptedSet) Len() int { return len(a.ids) }

// PassStats counts what one pass did with its rows. Dropped rows are never errors.
type PassStats struct {
	Pass               string        `json:"pass"`
	Read               int64         `json:"read"`
	Inactive           int64         `json:"inactive"`
	Accepted           int64         `json:"accepted"`
	DroppedMalformed   int64         `json:"dropped_malformed"`
	DroppedOrphan      int64         `json:"dropped_orphan"`
	DroppedUnknownType int64         `json:"dropped_unknown_type"`
	Written            int64         `json:"written"`
	Batches            int64         `json:"batches"`
	Duration           time.Duration `json:"duration"`
}

type Loader struct {
	store    graph.Store
	embedder Embedder
	opts     Options
	metrics  *observability.Metrics
	log      *logger.Logger
}

func NewLoader(store graph.Store, embedder Embedder, opts Options, log *logger.Logger, metrics *observability.Metrics) (*Loader, error) {
	if store == nil {
		return nil, errors.New("ingest: store required")
	}
	if embedder == nil {
		return nil, errors.New("ingest: embedder required")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{
		store:    store,
		embedder: embedder,
		opts:     opts.normalized(),
		metrics:  metrics,
		log:      log.With("component", "GraphLoader"),
	}, nil
}

type skipCounter interface {
	Skipped() int64
}

func (l *Loader) finish(src dataset.RecordSource, st *PassStats, started time.Time) {
	if sc, ok := src.(skipCounter); ok {
		st.Inactive = sc.Skipped()
	}
	st.Duration = time.Since(started)
	l.metrics.IngestRows(st.Pass, "read", st.Read)
	l.metrics.IngestRows(st.Pass, "written", st.Written)
	l.metrics.IngestDropped(st.Pass, "inactive", st.Inactive)
	l.metrics.IngestDropped(st.Pass, "malformed", st.DroppedMalformed)
	l.metrics.IngestDropped(st.Pass, "orphan", st.DroppedOrphan)
	l.metrics.IngestDropped(st.Pass, "unknown_type", st.DroppedUnknownType)
	l.log.Info("ingest pass done",
		"pass", st.Pass,
		"read", st.Read,
		"inactive", st.Inactive,
		"accepted", st.Accepted,
		"dropped_orphan", st.DroppedOrphan,
		"dropped_unknown_type", st.DroppedUnknownType,
		"written", st.Written,
		"batches", st.Batches,
		"duration", st.Duration.String(),
	)
}

func (l *Loader) batch(ctx context.Context, pass string, n int64, size int, fn func(ctx context.Context) error) error {
	ctx, span := observability.Tracer().Start(ctx, "ingest."+pass+".batch")
	defer span.End()
	span.SetAttributes(attribute.Int64("ingest.batch", n), attribute.Int("ingest.batch_size", size))

	started := time.Now()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("ingest: %s batch %d: %w", pass, n, err)
	}
	l.metrics.IngestBatch(pass, time.Since(started))
	return nil
}

// LoadConcepts merges every row from src as a Concept and returns the set of accepted ids.
func (l *Loader) LoadConcepts(ctx context.Context, src dataset.RecordSource) (AcceptedSet, PassStats, error) {
	started := time.Now()
	st := PassStats{Pass: "concepts"}
	accepted := NewAcceptedSet()
	batch := make([]domain.Concept, 0, l.opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		st.Batches++
		if err := l.batch(ctx, st.Pass, st.Batches, len(batch), func(ctx context.Context) error {
			return l.store.UpsertConcepts(ctx, batch)
		}); err != nil {
			return err
		}
		st.Written += int64(len(batch))
		l.log.Debug("concepts saved", "total", st.Written)
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return AcceptedSet{}, st, fmt.Errorf("ingest: read concepts: %w", err)
		}
		st.Read++
		id := rec.Get(dataset.ColID)
		if id == "" {
			st.DroppedMalformed++
			continue
		}
		st.Accepted++
		accepted.ids[id] = struct{}{}
		batch = append(batch, domain.Concept{ID: id, Active: true})
		if len(batch) >= l.opts.BatchSize {
			if err := flush(); err != nil {
				return AcceptedSet{}, st, err
			}
		}
	}
	if err := flush(); err != nil {
		return AcceptedSet{}, st, err
	}
	l.finish(src, &st, started)
	return accepted, st, nil
}

// LoadDescriptions embeds and creates every Description whose owner is in accepted.
func (l *Loader) LoadDescriptions(ctx context.Context, src dataset.RecordSource, accepted AcceptedSet) (PassStats, error) {
	started := time.Now()
	st := PassStats{Pass: "descriptions"}
	batch := make([]domain.Description, 0, l.opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		st.Batches++
		if err := l.batch(ctx, st.Pass, st.Batches, len(batch), func(ctx context.Context) error {
			terms := make([]string, len(batch))
			for i, d := range batch {
				terms[i] = d.Term
			}
			vecs, err := l.embedAll(ctx, terms)
			if err != nil {
				return err
			}
			for i := range batch {
				batch[i].Embedding = vecs[i]
			}
			return l.store.CreateDescriptions(ctx, batch)
		}); err != nil {
			return err
		}
		st.Written += int64(len(batch))
		l.log.Debug("descriptions embedded and saved", "total", st.Written)
		batch = batch[:0]
		return nil
	}

	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, fmt.Errorf("ingest: read descriptions: %w", err)
		}
		st.Read++
		id, conceptID := rec.Get(dataset.ColID), rec.Get(dataset.ColConceptID)
		if id == "" || conceptID == "" {
			st.DroppedMalformed++
			continue
		}
		if !accepted.Has(conceptID) {
			st.DroppedOrphan++
			continue
		}
		st.Accepted++
		typeID := rec.Get(dataset.ColTypeID)
		batch = append(batch, domain.Description{
			ID:        id,
			ConceptID: conceptID,
			Term:      rec.Get(dataset.ColTerm),
			Type:      domain.DescriptionTypeLabel(typeID),
			TypeID:    typeID,
		})
		if len(batch) >= l.opts.BatchSize {
			if err := flush(); err != nil {
				return st, err
			}
		}
	}
	if err := flush(); err != nil {
		return st, err
	}
	l.finish(src, &st, started)
	return st, nil
}

// embedAll splits texts into sub-batches embedded concurrently; output order matches input order.
func (l *Loader) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.EmbedWorkers)
	for start := 0; start < len(texts); start += l.opts.EmbedBatchSize {
		end := min(start+l.opts.EmbedBatchSize, len(texts))
		g.Go(func() error {
			vecs, err := l.embedder.Embed(gctx, texts[start:end])
			if err != nil {
				return err
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), end-start)
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadRelationships merges IS_A and ASSOCIATED_WITH edges whose endpoints are both accepted.
func (l *Loader) LoadRelationships(ctx context.Context, src dataset.RecordSource, accepted AcceptedSet) (PassStats, error) {
	started := time.Now()
	st := PassStats{Pass: "relationships"}
	pending := map[domain.EdgeKind][]domain.Relationship{}

	flush := func(kind domain.EdgeKind) error {
		rels := pending[kind]
		if len(rels) == 0 {
			return nil
		}
		st.Batches++
		if err := l.batch(ctx, st.Pass, st.Batches, len(rels), func(ctx context.Context) error {
			return l.store.MergeRelationships(ctx, kind, rels)
		}); err != nil {
			return err
		}
		st.Written += int64(len(rels))
		l.log.Debug("relationships saved", "kind", string(kind), "total", st.Written)
		pending[kind] = rels[:0]
		return nil
	}

	for {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return st, fmt.Errorf("ingest: read relationships: %w", err)
		}
		st.Read++
		kind, ok := domain.RelationshipKind(rec.Get(dataset.ColTypeID))
		if !ok {
			st.DroppedUnknownType++
			continue
		}
		from, to := rec.Get(dataset.ColSourceID), rec.Get(dataset.ColDestinationID)
		if !accepted.Has(from) || !accepted.Has(to) {
			st.DroppedOrphan++
			continue
		}
		st.Accepted++
		pending[kind] = append(pending[kind], domain.Relationship{SourceID: from, DestinationID: to, Kind: kind})
		if len(pending[kind]) >= l.opts.BatchSize {
			if err := flush(kind); err != nil {
				return st, err
			}
		}
	}
	for _, kind := range []domain.EdgeKind{domain.EdgeIsA, domain.EdgeAssociatedWith} {
		if err := flush(kind); err != nil {
			return st, err
		}
	}
	l.finish(src, &st, started)
	return st, nil
}
