package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDurationUnmarshalJSON(t *testing.T) {
	var out struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
		C Duration `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":"5s","b":1000,"c":null}`), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.A.Duration != 5*time.Second {
		t.Fatalf("a=%v", out.A.Duration)
	}
	if out.B.Duration != 1000 {
		t.Fatalf("b=%v", out.B.Duration)
	}
	if out.C.Duration != 0 {
		t.Fatalf("c=%v", out.C.Duration)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRIAGE_CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Graph.URI != "bolt://localhost:7687" {
		t.Fatalf("uri=%q", cfg.Graph.URI)
	}
	if cfg.Index.Name != DefaultIndexName || cfg.Index.Metric != "cos" {
		t.Fatalf("index=%+v", cfg.Index)
	}
	if cfg.Triage.TopK != DefaultTopK || !cfg.Triage.Expand {
		t.Fatalf("triage=%+v", cfg.Triage)
	}
	if cfg.Ingest.BatchSize != DefaultBatchSize {
		t.Fatalf("batch=%d", cfg.Ingest.BatchSize)
	}
}

func TestLoadYAMLFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "triage.yaml")
	body := `
graph:
  dialect: neo4j
  uri: bolt://graph:7687
embedding:
  type: ollama
  model: nomic-embed-text
  dimensions: 384
  timeout: 30s
triage:
  top_k: 8
  expand: false
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("TRIAGE_CONFIG_PATH", path)
	t.Setenv("USE_GPU", "true")
	t.Setenv("MEMGRAPH_HOST", "ignored-because-uri-set")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Graph.Dialect != "neo4j" || cfg.Graph.URI != "bolt://graph:7687" {
		t.Fatalf("graph=%+v", cfg.Graph)
	}
	if cfg.Embedding.Type != "ollama" || cfg.Embedding.Dimensions != 384 {
		t.Fatalf("embedding=%+v", cfg.Embedding)
	}
	if cfg.Embedding.Timeout.Duration != 30*time.Second {
		t.Fatalf("timeout=%v", cfg.Embedding.Timeout.Duration)
	}
	if !cfg.Embedding.UseGPU {
		t.Fatalf("expected USE_GPU override")
	}
	if cfg.Triage.TopK != 8 || cfg.Triage.Expand {
		t.Fatalf("triage=%+v", cfg.Triage)
	}
	// Values absent from the file keep their defaults.
	if cfg.Index.Capacity != 1_000_000 {
		t.Fatalf("capacity=%d", cfg.Index.Capacity)
	}
}

func TestMemgraphHostBuildsURI(t *testing.T) {
	t.Setenv("TRIAGE_CONFIG_PATH", "")
	t.Setenv("MEMGRAPH_HOST", "memgraph")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Graph.URI != "bolt://memgraph:7687" {
		t.Fatalf("uri=%q", cfg.Graph.URI)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *Config){
		"dialect":  func(c *Config) { c.Graph.Dialect = "sqlite" },
		"engine":   func(c *Config) { c.Embedding.Type = "tensorflow" },
		"oai url":  func(c *Config) { c.Embedding.Type = "oai_http"; c.Embedding.BaseURL = "" },
		"dims":     func(c *Config) { c.Embedding.Dimensions = 0 },
		"metric":   func(c *Config) { c.Index.Metric = "l2sq" },
		"capacity": func(c *Config) { c.Index.Capacity = 0 },
		"rps":      func(c *Config) { c.Embedding.RequestsPerSecond = -1 },
		"model":    func(c *Config) { c.Embedding.Model = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
