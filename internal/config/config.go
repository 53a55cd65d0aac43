package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes" yaml:"max_request_bytes"`

	// AllowOrigins enables CORS for browser-based manual testing of the webhook. Empty disables CORS.
	AllowOrigins []string `json:"allow_origins,omitempty" yaml:"allow_origins,omitempty"`
}

type GraphConfig struct {
	// Dialect selects the Cypher flavour spoken by the store: "memgraph", "neo4j" or "memory".
	Dialect string `json:"dialect" yaml:"dialect"`

	// URI is the bolt endpoint. When empty it is derived from Host as bolt://<host>:7687.
	URI      string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	User     string `json:"user,omitempty" yaml:"user,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`

	Timeout     Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxPoolSize int      `json:"max_pool_size,omitempty" yaml:"max_pool_size,omitempty"`
}

type EmbeddingConfig struct {
	// Type is the engine: "mock", "oai_http" (OpenAI-compatible /v1/embeddings) or "ollama".
	Type       string `json:"type" yaml:"type"`
	Model      string `json:"model" yaml:"model"`
	Dimensions int    `json:"dimensions" yaml:"dimensions"`

	BaseURL        string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey         string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	EmbeddingsPath string `json:"embeddings_path,omitempty" yaml:"embeddings_path,omitempty"`

	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// UseGPU only changes where the engine computes vectors, never the data model.
	UseGPU bool `json:"use_gpu,omitempty" yaml:"use_gpu,omitempty"`

	// MaxConcurrency bounds in-flight engine calls across all callers.
	MaxConcurrency int `json:"max_concurrency,omitempty" yaml:"max_concurrency,omitempty"`

	// RequestsPerSecond rate limits HTTP engines; 0 disables limiting.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
}

type DatasetConfig struct {
	// Dir is a release directory searched for sct2_* snapshot extracts.
	Dir           string `json:"dir,omitempty" yaml:"dir,omitempty"`
	Concepts      string `json:"concepts,omitempty" yaml:"concepts,omitempty"`
	Descriptions  string `json:"descriptions,omitempty" yaml:"descriptions,omitempty"`
	Relationships string `json:"relationships,omitempty" yaml:"relationships,omitempty"`
	ActiveMarker  string `json:"active_marker,omitempty" yaml:"active_marker,omitempty"`
}

type IngestConfig struct {
	BatchSize      int `json:"batch_size" yaml:"batch_size"`
	EmbedBatchSize int `json:"embed_batch_size" yaml:"embed_batch_size"`
	EmbedWorkers   int `json:"embed_workers" yaml:"embed_workers"`
}

type IndexConfig struct {
	Name     string `json:"name" yaml:"name"`
	Metric   string `json:"metric" yaml:"metric"`
	Capacity int    `json:"capacity" yaml:"capacity"`
}

type TriageConfig struct {
	TopK   int  `json:"top_k" yaml:"top_k"`
	Expand bool `json:"expand" yaml:"expand"`
}

type CacheConfig struct {
	RedisAddr string   `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	Prefix    string   `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	TTL       Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`
}

type Config struct {
	Env       string          `json:"env" yaml:"env"`
	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	Graph     GraphConfig     `json:"graph" yaml:"graph"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Dataset   DatasetConfig   `json:"dataset" yaml:"dataset"`
	Ingest    IngestConfig    `json:"ingest" yaml:"ingest"`
	Index     IndexConfig     `json:"index" yaml:"index"`
	Triage    TriageConfig    `json:"triage" yaml:"triage"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
}
