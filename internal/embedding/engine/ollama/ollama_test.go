package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/triage-graph/internal/config"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func respond(status int, v any) *http.Response {
	b, _ := json.Marshal(v)
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(b))}
}

func TestEmbedCPUOnly(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/embed" {
			t.Fatalf("path=%s", req.URL.Path)
		}
		var in embedRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if in.Model != "nomic-embed-text" || len(in.Input) != 2 {
			t.Fatalf("request=%+v", in)
		}
		if v, ok := in.Options["num_gpu"]; !ok || v.(float64) != 0 {
			t.Fatalf("num_gpu option missing: %+v", in.Options)
		}
		return respond(http.StatusOK, embedResponse{Embeddings: [][]float32{{1, 0}, {0, 1}}}), nil
	})}

	e := NewWithHTTPClient(config.EmbeddingConfig{BaseURL: "http://ollama:11434"}, client)
	vecs, err := e.Embed(context.Background(), "nomic-embed-text", []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 || vecs[1][1] != 1 {
		t.Fatalf("vecs=%v", vecs)
	}
}

func TestEmbedGPUOmitsOptions(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		var in embedRequest
		_ = json.NewDecoder(req.Body).Decode(&in)
		if in.Options != nil {
			t.Fatalf("options=%v", in.Options)
		}
		return respond(http.StatusOK, embedResponse{Embeddings: [][]float32{{1}}}), nil
	})}
	e := NewWithHTTPClient(config.EmbeddingConfig{UseGPU: true}, client)
	if _, err := e.Embed(context.Background(), "m", []string{"a"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return respond(http.StatusOK, embedResponse{Embeddings: [][]float32{{1}}}), nil
	})}
	e := NewWithHTTPClient(config.EmbeddingConfig{}, client)
	if _, err := e.Embed(context.Background(), "m", []string{"a", "b"}); err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestHasModel(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/tags" {
			t.Fatalf("path=%s", req.URL.Path)
		}
		return respond(http.StatusOK, map[string]any{"models": []map[string]string{{"name": "nomic-embed-text:latest"}}}), nil
	})}
	e := NewWithHTTPClient(config.EmbeddingConfig{}, client)
	ok, err := e.HasModel(context.Background(), "nomic-embed-text")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
}
