package embedding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/triage-graph/internal/config"
	"github.com/yungbote/triage-graph/internal/embedding/engine/mock"
)

type fakeEngine struct {
	dims     int
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	err      error
}

func (f *fakeEngine) Embed(ctx context.Context, model string, inputs []string) ([][]float32, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i := range out {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

type mapCache struct {
	mu sync.Mutex
	m  map[string][]float32
}

func (c *mapCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, vec []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = vec
	return nil
}

func TestNewEngineTypes(t *testing.T) {
	for _, typ := range []string{"mock", "", "ollama"} {
		if _, err := NewEngine(config.EmbeddingConfig{Type: typ, Dimensions: 4}); err != nil {
			t.Fatalf("%q: %v", typ, err)
		}
	}
	if _, err := NewEngine(config.EmbeddingConfig{Type: "oai_http", BaseURL: "http://x"}); err != nil {
		t.Fatalf("oai_http: %v", err)
	}
	if _, err := NewEngine(config.EmbeddingConfig{Type: "bert-local"}); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestEmbedRejectsWrongDimensions(t *testing.T) {
	p, err := NewWithEngine(&fakeEngine{dims: 3}, "m", 4, 1, nil)
	if err != nil {
		t.Fatalf("NewWithEngine: %v", err)
	}
	if _, err := p.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatalf("expected dimension error")
	}
}

func TestEmbedWrapsEngineError(t *testing.T) {
	boom := errors.New("boom")
	p, _ := NewWithEngine(&fakeEngine{dims: 4, err: boom}, "m", 4, 1, nil)
	if _, err := p.Embed(context.Background(), []string{"a"}); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}

func TestEmbedBoundsConcurrency(t *testing.T) {
	eng := &fakeEngine{dims: 2, delay: 20 * time.Millisecond}
	p, _ := NewWithEngine(eng, "m", 2, 2, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Embed(context.Background(), []string{"x"}); err != nil {
				t.Errorf("Embed: %v", err)
			}
		}()
	}
	wg.Wait()
	if peak := eng.peak.Load(); peak > 2 {
		t.Fatalf("peak in-flight=%d, want <= 2", peak)
	}
}

func TestEmbedQueryUsesCache(t *testing.T) {
	eng := &fakeEngine{dims: 2}
	cache := &mapCache{m: map[string][]float32{}}
	p, _ := NewWithEngine(eng, "m", 2, 1, nil, WithCache(cache))

	for i := 0; i < 3; i++ {
		if _, err := p.EmbedQuery(context.Background(), "chest pain"); err != nil {
			t.Fatalf("EmbedQuery: %v", err)
		}
	}
	if got := eng.calls.Load(); got != 1 {
		t.Fatalf("engine calls=%d, want 1", got)
	}
}

func TestEmbedQueryMockSelfSimilarity(t *testing.T) {
	p, _ := NewWithEngine(mock.New(16), "m", 16, 1, nil)
	a, _ := p.EmbedQuery(context.Background(), "nausea")
	b, _ := p.EmbedQuery(context.Background(), "nausea")
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic embedding")
		}
	}
}

func TestVectorCodecRoundTrip(t *testing.T) {
	in := []float32{0.25, -1, 3.5}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("got %v want %v", out, in)
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected corrupt entry error")
	}
}
