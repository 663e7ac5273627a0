// Package config loads engine and external-port configuration from the
// process environment (optionally via a .env file) plus an optional YAML
// overlay, mirroring the teacher's env-first-then-YAML Load() idiom in
// internal/config/loader.go.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EngineConfig configures the execution engine's two concurrency gates and
// per-kind timeout defaults (spec §4.6, §5).
type EngineConfig struct {
	WorkerPoolSize     int `yaml:"worker_pool_size"`
	RateGateLimit      int `yaml:"rate_gate_limit"`
	ExternalTimeoutSec int `yaml:"external_timeout_sec"`
	SplitterTimeoutSec int `yaml:"splitter_timeout_sec"`
	LoaderTimeoutSec   int `yaml:"loader_timeout_sec"`
	CheckpointEverySec int `yaml:"checkpoint_every_sec"`
}

// StoreConfig configures the ChunkRepository and CheckpointStore backends.
type StoreConfig struct {
	Backend          string `yaml:"backend"` // "memory" | "postgres" | "qdrant"
	PostgresDSN      string `yaml:"postgres_dsn"`
	QdrantDSN        string `yaml:"qdrant_dsn"`
	QdrantCollection string `yaml:"qdrant_collection"`
	VectorDimensions int    `yaml:"vector_dimensions"`
	VectorMetric     string `yaml:"vector_metric"`

	CheckpointBackend string `yaml:"checkpoint_backend"` // "memory" | "file" | "redis" | "s3"
	CheckpointDir     string `yaml:"checkpoint_dir"`
	RedisAddr         string `yaml:"redis_addr"`
	RedisPrefix       string `yaml:"redis_prefix"`
	S3Bucket          string `yaml:"s3_bucket"`
	S3Prefix          string `yaml:"s3_prefix"`
	S3Region          string `yaml:"s3_region"`
}

// LLMConfig configures the llmport providers (C8 LLM port).
type LLMConfig struct {
	Provider         string `yaml:"provider"` // "anthropic" | "openai"
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	AnthropicModel   string `yaml:"anthropic_model"`
	AnthropicBaseURL string `yaml:"anthropic_base_url"`
	OpenAIAPIKey     string `yaml:"openai_api_key"`
	OpenAIModel      string `yaml:"openai_model"`
	OpenAIBaseURL    string `yaml:"openai_base_url"`
}

// EmbeddingConfig configures the embedport providers.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"` // "openai" | "deterministic"
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
	BaseURL      string `yaml:"base_url"`
	Dimensions   int    `yaml:"dimensions"`
}

// ObsConfig mirrors the teacher's observability.InitOTel input shape.
type ObsConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
	OTLP           string `yaml:"otlp_endpoint"`
	LogLevel       string `yaml:"log_level"`
	LogPath        string `yaml:"log_path"`
}

// EventsConfig configures the optional Kafka mirror of ExecutionState
// events (spec §6 Events surface). Brokers empty disables it.
type EventsConfig struct {
	KafkaBrokers string `yaml:"kafka_brokers"`
	KafkaTopic   string `yaml:"kafka_topic"`
}

// Config is the root configuration object threaded through cmd/enginectl.
type Config struct {
	Engine    EngineConfig    `yaml:"engine"`
	Store     StoreConfig     `yaml:"store"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Obs       ObsConfig       `yaml:"obs"`
	Events    EventsConfig    `yaml:"events"`
}

func defaults() Config {
	return Config{
		Engine: EngineConfig{
			WorkerPoolSize:     8,
			RateGateLimit:      5,
			ExternalTimeoutSec: 30,
			SplitterTimeoutSec: 60,
			LoaderTimeoutSec:   5,
			CheckpointEverySec: 10,
		},
		Store: StoreConfig{
			Backend:           "memory",
			VectorMetric:      "cosine",
			CheckpointBackend: "memory",
			RedisPrefix:       "chunkscope:checkpoint:",
			S3Prefix:          "checkpoints/",
		},
		Embedding: EmbeddingConfig{
			Provider:   "deterministic",
			Dimensions: 256,
		},
		Obs: ObsConfig{
			ServiceName: "chunkscope-engine",
			LogLevel:    "info",
		},
	}
}

// Load reads configuration from the environment (optionally a .env file via
// godotenv.Overload, matching the teacher's idiom), then overlays a YAML
// file named by CONFIG_PATH if present.
func Load() (Config, error) {
	_ = godotenv.Overload()
	cfg := defaults()

	if v := strings.TrimSpace(os.Getenv("ENGINE_WORKER_POOL_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.WorkerPoolSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_RATE_GATE_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.RateGateLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_EXTERNAL_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.ExternalTimeoutSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_CHECKPOINT_EVERY_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.CheckpointEverySec = n
		}
	}

	cfg.Store.Backend = firstNonEmpty(os.Getenv("STORE_BACKEND"), cfg.Store.Backend)
	cfg.Store.PostgresDSN = strings.TrimSpace(firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("POSTGRES_DSN")))
	cfg.Store.QdrantDSN = strings.TrimSpace(os.Getenv("QDRANT_DSN"))
	cfg.Store.QdrantCollection = firstNonEmpty(os.Getenv("QDRANT_COLLECTION"), "chunkscope_chunks")
	if v := strings.TrimSpace(os.Getenv("VECTOR_DIMENSIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.VectorDimensions = n
		}
	}
	cfg.Store.VectorMetric = firstNonEmpty(os.Getenv("VECTOR_METRIC"), cfg.Store.VectorMetric)
	cfg.Store.CheckpointBackend = firstNonEmpty(os.Getenv("CHECKPOINT_BACKEND"), cfg.Store.CheckpointBackend)
	cfg.Store.CheckpointDir = strings.TrimSpace(os.Getenv("CHECKPOINT_DIR"))
	cfg.Store.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.Store.RedisPrefix = firstNonEmpty(os.Getenv("REDIS_CHECKPOINT_PREFIX"), cfg.Store.RedisPrefix)
	cfg.Store.S3Bucket = strings.TrimSpace(os.Getenv("S3_CHECKPOINT_BUCKET"))
	cfg.Store.S3Prefix = firstNonEmpty(os.Getenv("S3_CHECKPOINT_PREFIX"), cfg.Store.S3Prefix)
	cfg.Store.S3Region = strings.TrimSpace(os.Getenv("AWS_REGION"))

	cfg.LLM.Provider = strings.TrimSpace(os.Getenv("LLM_PROVIDER"))
	cfg.LLM.AnthropicAPIKey = strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	cfg.LLM.AnthropicModel = firstNonEmpty(os.Getenv("ANTHROPIC_MODEL"), "claude-sonnet-4-5")
	cfg.LLM.AnthropicBaseURL = strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL"))
	cfg.LLM.OpenAIAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.LLM.OpenAIModel = firstNonEmpty(os.Getenv("OPENAI_MODEL"), "gpt-4o-mini")
	cfg.LLM.OpenAIBaseURL = strings.TrimSpace(firstNonEmpty(os.Getenv("OPENAI_BASE_URL"), os.Getenv("OPENAI_API_BASE_URL")))
	if cfg.LLM.Provider == "" {
		if cfg.LLM.AnthropicAPIKey != "" {
			cfg.LLM.Provider = "anthropic"
		} else if cfg.LLM.OpenAIAPIKey != "" {
			cfg.LLM.Provider = "openai"
		}
	}

	cfg.Embedding.Provider = firstNonEmpty(os.Getenv("EMBEDDING_PROVIDER"), cfg.Embedding.Provider)
	cfg.Embedding.OpenAIAPIKey = strings.TrimSpace(firstNonEmpty(os.Getenv("EMBEDDING_API_KEY"), os.Getenv("OPENAI_API_KEY")))
	cfg.Embedding.OpenAIModel = firstNonEmpty(os.Getenv("EMBEDDING_MODEL"), "text-embedding-3-small")
	cfg.Embedding.BaseURL = strings.TrimSpace(firstNonEmpty(os.Getenv("EMBEDDING_BASE_URL"), os.Getenv("OPENAI_BASE_URL")))
	if v := strings.TrimSpace(os.Getenv("EMBEDDING_DIMENSIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimensions = n
		}
	}

	cfg.Obs.ServiceName = firstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), cfg.Obs.ServiceName)
	cfg.Obs.ServiceVersion = strings.TrimSpace(os.Getenv("SERVICE_VERSION"))
	cfg.Obs.Environment = strings.TrimSpace(os.Getenv("ENVIRONMENT"))
	cfg.Obs.OTLP = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	cfg.Obs.LogLevel = firstNonEmpty(os.Getenv("LOG_LEVEL"), cfg.Obs.LogLevel)
	cfg.Obs.LogPath = strings.TrimSpace(os.Getenv("LOG_PATH"))

	cfg.Events.KafkaBrokers = strings.TrimSpace(os.Getenv("EVENTS_KAFKA_BROKERS"))
	cfg.Events.KafkaTopic = firstNonEmpty(os.Getenv("EVENTS_KAFKA_TOPIC"), "chunkscope.execution.events")

	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		if err := overlayYAML(&cfg, path); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func overlayYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
