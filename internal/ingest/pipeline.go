package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yungbote/triage-graph/internal/data/graph"
	"github.com/yungbote/triage-graph/internal/dataset"
	"github.com/yungbote/triage-graph/internal/platform/logger"
)

// Rebuilder is the vector index step run once all descriptions are written.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
	Name() string
}

type Report struct {
	Concepts      PassStats     `json:"concepts"`
	Descriptions  PassStats     `json:"descriptions"`
	Relationships PassStats     `json:"relationships"`
	Index         string        `json:"index"`
	Duration      time.Duration `json:"duration"`
}

type Pipeline struct {
	loader       *Loader
	store        graph.Store
	index        Rebuilder
	opener       dataset.Opener
	activeMarker string
	log          *logger.Logger
}

func NewPipeline(loader *Loader, store graph.Store, index Rebuilder, opener dataset.Opener, activeMarker string, log *logger.Logger) (*Pipeline, error) {
	if loader == nil || store == nil || index == nil {
		return nil, errors.New("ingest: loader, store and index required")
	}
	if opener == nil {
		opener = dataset.NewStorageOpener()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		loader:       loader,
		store:        store,
		index:        index,
		opener:       opener,
		activeMarker: activeMarker,
		log:          log.With("component", "IngestPipeline"),
	}, nil
}

// Run checks that all three extracts exist, wipes the store and loads the release.
// A missing extract is reported before anything is mutated.
func (p *Pipeline) Run(ctx context.Context, sources dataset.Sources) (Report, error) {
	if err := sources.Check(ctx, p.opener); err != nil {
		return Report{}, err
	}
	for _, s := range []struct{ role, path string }{
		{"concepts", sources.Concepts},
		{"descriptions", sources.Descriptions},
		{"relationships", sources.Relationships},
	} {
		p.log.Info("found source", "role", s.role, "path", s.path)
	}

	return p.load(ctx,
		func() (dataset.RecordSource, func(), error) { return p.open(ctx, sources.Concepts) },
		func() (dataset.RecordSource, func(), error) { return p.open(ctx, sources.Descriptions) },
		func() (dataset.RecordSource, func(), error) { return p.open(ctx, sources.Relationships) },
	)
}

// RunSources loads in-memory sources through the same passes as Run.
func (p *Pipeline) RunSources(ctx context.Context, concepts, descriptions, relationships dataset.RecordSource) (Report, error) {
	wrap := func(src dataset.RecordSource) func() (dataset.RecordSource, func(), error) {
		return func() (dataset.RecordSource, func(), error) {
			return dataset.Active(src, p.activeMarker), func() {}, nil
		}
	}
	return p.load(ctx, wrap(concepts), wrap(descriptions), wrap(relationships))
}

func (p *Pipeline) open(ctx context.Context, path string) (dataset.RecordSource, func(), error) {
	r, err := dataset.Open(ctx, p.opener, path)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := r.Close(); err != nil {
			p.log.Warn("close source failed", "path", path, "error", err)
		}
	}
	return dataset.Active(r, p.activeMarker), closer, nil
}

type sourceFunc func() (dataset.RecordSource, func(), error)

func (p *Pipeline) load(ctx context.Context, concepts, descriptions, relationships sourceFunc) (Report, error) {
	started := time.Now()
	var rep Report

	p.log.Info("resetting graph store")
	if err := p.store.Reset(ctx); err != nil {
		return rep, fmt.Errorf("ingest: reset store: %w", err)
	}

	src, done, err := concepts()
	if err != nil {
		return rep, err
	}
	accepted, st, err := p.loader.LoadConcepts(ctx, src)
	done()
	rep.Concepts = st
	if err != nil {
		return rep, err
	}

	src, done, err = descriptions()
	if err != nil {
		return rep, err
	}
	st, err = p.loader.LoadDescriptions(ctx, src, accepted)
	done()
	rep.Descriptions = st
	if err != nil {
		return rep, err
	}

	src, done, err = relationships()
	if err != nil {
		return rep, err
	}
	st, err = p.loader.LoadRelationships(ctx, src, accepted)
	done()
	rep.Relationships = st
	if err != nil {
		return rep, err
	}

	if err := p.index.Rebuild(ctx); err != nil {
		return rep, fmt.Errorf("ingest: %w", err)
	}
	rep.Index = p.index.Name()
	rep.Duration = time.Since(started)
	p.log.Info("ingest complete",
		"concepts", rep.Concepts.Written,
		"descriptions", rep.Descriptions.Written,
		"relationships", rep.Relationships.Written,
		"index", rep.Index,
		"duration", rep.Duration.String(),
	)
	return rep, nil
}
