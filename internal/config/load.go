package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/triage-graph/internal/platform/envutil"
)

const (
	DefaultIndexName      = "snomed_description_index"
	DefaultEmbeddingModel = "all-mpnet-base-v2"
	DefaultDimensions     = 768
	DefaultBatchSize      = 2048
	DefaultTopK           = 5
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		return d.parse(u)
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil || node.Kind != yaml.ScalarNode {
		return errors.New("duration must be a scalar like \"5s\"")
	}
	if n, err := strconv.ParseInt(strings.TrimSpace(node.Value), 10, 64); err == nil {
		d.Duration = time.Duration(n)
		return nil
	}
	return d.parse(node.Value)
}

func (d *Duration) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	d.Duration = dd
	return nil
}

func Default() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
		},
		Graph: GraphConfig{
			Dialect:     "memgraph",
			Host:        "localhost",
			Timeout:     Duration{Duration: 10 * time.Second},
			MaxPoolSize: 50,
		},
		Embedding: EmbeddingConfig{
			Type:           "mock",
			Model:          DefaultEmbeddingModel,
			Dimensions:     DefaultDimensions,
			Timeout:        Duration{Duration: 60 * time.Second},
			MaxConcurrency: 4,
		},
		Dataset: DatasetConfig{
			ActiveMarker: "1",
		},
		Ingest: IngestConfig{
			BatchSize:      DefaultBatchSize,
			EmbedBatchSize: 256,
			EmbedWorkers:   2,
		},
		Index: IndexConfig{
			Name:     DefaultIndexName,
			Metric:   "cos",
			Capacity: 1_000_000,
		},
		Triage: TriageConfig{
			TopK:   DefaultTopK,
			Expand: true,
		},
		Cache: CacheConfig{
			Prefix: "triage:emb:",
			TTL:    Duration{Duration: 24 * time.Hour},
		},
	}
}

// Load resolves defaults, an optional JSON/YAML file and environment overrides, in that order.
func Load() (*Config, error) {
	cfg := Default()

	cfgPath, ok := envutil.String("TRIAGE_CONFIG_PATH")
	if !ok {
		cfgPath = findDefaultFile()
	}
	if cfgPath != "" {
		if err := loadFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findDefaultFile() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		p := filepath.Join(wd, "config", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) {
	if v, ok := envutil.String("LOG_MODE"); ok {
		cfg.Env = v
	}
	if v, ok := envutil.String("TRIAGE_HTTP_ADDR"); ok {
		cfg.HTTP.Addr = v
	}

	if v, ok := envutil.String("GRAPH_DIALECT"); ok {
		cfg.Graph.Dialect = v
	}
	if v, ok := envutil.String("GRAPH_URI"); ok {
		cfg.Graph.URI = v
	}
	if v, ok := envutil.String("MEMGRAPH_HOST"); ok {
		cfg.Graph.Host = v
	}
	if v, ok := envutil.String("GRAPH_USER"); ok {
		cfg.Graph.User = v
	}
	if v, ok := envutil.String("GRAPH_PASSWORD"); ok {
		cfg.Graph.Password = v
	}
	if v, ok := envutil.String("GRAPH_DATABASE"); ok {
		cfg.Graph.Database = v
	}
	cfg.Graph.MaxPoolSize = envutil.Int("GRAPH_MAX_POOL_SIZE", cfg.Graph.MaxPoolSize)

	if v, ok := envutil.String("EMBEDDING_TYPE"); ok {
		cfg.Embedding.Type = v
	}
	if v, ok := envutil.String("EMBEDDING_BASE_URL"); ok {
		cfg.Embedding.BaseURL = v
	}
	if v, ok := envutil.String("EMBEDDING_API_KEY"); ok {
		cfg.Embedding.APIKey = v
	}
	if v, ok := envutil.String("EMBEDDING_MODEL"); ok {
		cfg.Embedding.Model = v
	}
	cfg.Embedding.Dimensions = envutil.Int("EMBEDDING_DIMENSIONS", cfg.Embedding.Dimensions)
	cfg.Embedding.UseGPU = envutil.Bool("USE_GPU", cfg.Embedding.UseGPU)
	cfg.Embedding.RequestsPerSecond = envutil.Float("EMBEDDING_RPS", cfg.Embedding.RequestsPerSecond)

	if v, ok := envutil.String("SNOMED_DIR"); ok {
		cfg.Dataset.Dir = v
	}
	cfg.Ingest.BatchSize = envutil.Int("INGEST_BATCH_SIZE", cfg.Ingest.BatchSize)
	cfg.Triage.TopK = envutil.Int("TRIAGE_TOP_K", cfg.Triage.TopK)

	if v, ok := envutil.String("REDIS_ADDR"); ok {
		cfg.Cache.RedisAddr = v
	}
}

// Validate normalizes values in place and rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Env) == "" {
		c.Env = "development"
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.MaxRequestBytes <= 0 {
		c.HTTP.MaxRequestBytes = 1 << 20
	}

	c.Graph.Dialect = strings.ToLower(strings.TrimSpace(c.Graph.Dialect))
	switch c.Graph.Dialect {
	case "", "memgraph":
		c.Graph.Dialect = "memgraph"
	case "neo4j", "memory":
	default:
		return fmt.Errorf("config: invalid graph.dialect=%q", c.Graph.Dialect)
	}
	if strings.TrimSpace(c.Graph.URI) == "" {
		host := strings.TrimSpace(c.Graph.Host)
		if host == "" {
			host = "localhost"
		}
		c.Graph.URI = "bolt://" + host + ":7687"
	}
	if c.Graph.Timeout.Duration <= 0 {
		c.Graph.Timeout = Duration{Duration: 10 * time.Second}
	}
	if c.Graph.MaxPoolSize <= 0 {
		c.Graph.MaxPoolSize = 50
	}

	c.Embedding.Type = strings.ToLower(strings.TrimSpace(c.Embedding.Type))
	switch c.Embedding.Type {
	case "", "mock":
		c.Embedding.Type = "mock"
	case "openai_http", "oai_http":
		c.Embedding.Type = "oai_http"
		if strings.TrimSpace(c.Embedding.BaseURL) == "" {
			return errors.New("config: embedding.base_url required for oai_http")
		}
	case "ollama":
	default:
		return fmt.Errorf("config: unsupported embedding.type=%q", c.Embedding.Type)
	}
	c.Embedding.BaseURL = strings.TrimRight(strings.TrimSpace(c.Embedding.BaseURL), "/")
	if strings.TrimSpace(c.Embedding.Model) == "" {
		return errors.New("config: embedding.model required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("config: invalid embedding.dimensions=%d", c.Embedding.Dimensions)
	}
	if c.Embedding.MaxConcurrency <= 0 {
		c.Embedding.MaxConcurrency = 1
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return errors.New("config: embedding.requests_per_second must be >= 0")
	}

	if strings.TrimSpace(c.Dataset.ActiveMarker) == "" {
		c.Dataset.ActiveMarker = "1"
	}

	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = DefaultBatchSize
	}
	if c.Ingest.EmbedBatchSize <= 0 || c.Ingest.EmbedBatchSize > c.Ingest.BatchSize {
		c.Ingest.EmbedBatchSize = c.Ingest.BatchSize
	}
	if c.Ingest.EmbedWorkers <= 0 {
		c.Ingest.EmbedWorkers = 1
	}

	if strings.TrimSpace(c.Index.Name) == "" {
		c.Index.Name = DefaultIndexName
	}
	c.Index.Metric = strings.ToLower(strings.TrimSpace(c.Index.Metric))
	if c.Index.Metric == "" || c.Index.Metric == "cosine" {
		c.Index.Metric = "cos"
	}
	if c.Index.Metric != "cos" {
		return fmt.Errorf("config: unsupported index.metric=%q", c.Index.Metric)
	}
	if c.Index.Capacity <= 0 {
		return fmt.Errorf("config: invalid index.capacity=%d", c.Index.Capacity)
	}

	if c.Triage.TopK <= 0 {
		c.Triage.TopK = DefaultTopK
	}
	if c.Cache.TTL.Duration < 0 {
		c.Cache.TTL = Duration{}
	}
	return nil
}
