// Command enginectl submits a pipeline graph to the execution engine,
// streams its status events to stdout as newline-delimited JSON, and
// cancels the run on SIGINT/SIGTERM.
//
// Grounded on the teacher's cmd/ convention of one small flag-driven
// binary per operational concern, wiring config.Load() and
// observability.InitLogger the same way the teacher's cmd entrypoints
// do.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"chunkscope/internal/augment"
	"chunkscope/internal/config"
	"chunkscope/internal/embedport"
	"chunkscope/internal/engine"
	"chunkscope/internal/handlers"
	"chunkscope/internal/llmport"
	"chunkscope/internal/model"
	"chunkscope/internal/observability"
	"chunkscope/internal/ports"
	"chunkscope/internal/registry"
	"chunkscope/internal/rerank"
	"chunkscope/internal/store"
)

func main() {
	var graphPath string
	flag.StringVar(&graphPath, "graph", "", "path to a graph JSON file ({nodes, edges})")
	flag.Parse()
	if graphPath == "" {
		fmt.Fprintln(os.Stderr, "usage: enginectl -graph path/to/graph.json")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.Obs.LogPath, cfg.Obs.LogLevel, cfg.Obs.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Obs.OTLP != "" {
		shutdownOTel, err := observability.InitOTel(ctx, cfg.Obs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "init otel: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	graph, err := loadGraph(graphPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load graph: %v\n", err)
		os.Exit(1)
	}

	reg, cleanup, err := buildRegistry(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build registry: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	checkpoint, err := buildCheckpointStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build checkpoint store: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(reg, engine.Options{
		WorkerPoolSize: cfg.Engine.WorkerPoolSize,
		RateGateLimit:  cfg.Engine.RateGateLimit,
		DefaultTimeout: time.Duration(cfg.Engine.ExternalTimeoutSec) * time.Second,
		Timeouts: map[model.Kind]time.Duration{
			model.KindSplitter: time.Duration(cfg.Engine.SplitterTimeoutSec) * time.Second,
			model.KindLoader:   time.Duration(cfg.Engine.LoaderTimeoutSec) * time.Second,
		},
		Checkpoint:            checkpoint,
		CheckpointMinInterval: time.Duration(cfg.Engine.CheckpointEverySec) * time.Second,
	})

	publisher := engine.NewKafkaEventPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
	defer publisher.Close()
	mgr := engine.NewManager(eng, publisher)

	runID, err := mgr.Submit(func() model.RunID { return model.RunID(uuid.NewString()) }, graph)
	if err != nil {
		fmt.Fprintf(os.Stderr, "submit: %v\n", err)
		os.Exit(1)
	}

	events, err := mgr.Events(runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "events: %v\n", err)
		os.Exit(1)
	}

	go func() {
		<-ctx.Done()
		_ = mgr.Cancel(runID)
	}()

	enc := json.NewEncoder(os.Stdout)
	var final model.ExecutionState
	for state := range events {
		final = state
		_ = enc.Encode(state)
	}
	if final.Status != model.StatusCompleted {
		os.Exit(1)
	}
}

func loadGraph(path string) (*model.Graph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var g model.Graph
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return &g, nil
}

// buildRegistry wires every Capability Registry handler from the
// collaborators config.Load selected, returning a cleanup func for
// anything holding a live connection (the Postgres pool).
func buildRegistry(ctx context.Context, cfg config.Config) (*registry.Registry, func(), error) {
	repo, cleanup, err := buildChunkRepository(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	emb := buildEmbedder(cfg)
	llm := buildLLM(cfg)
	aug := buildAugmentor(cfg, llm)
	fuser := rerank.NewRRF(0)

	reg := registry.New()
	reg.Register(model.KindLoader, handlers.NewLoader())
	reg.Register(model.KindSplitter, handlers.NewSplitter(emb))
	reg.Register(model.KindEmbedder, handlers.NewEmbedder(emb))
	reg.Register(model.KindVectorDB, handlers.NewVectorDB(repo))
	reg.Register(model.KindRetriever, handlers.NewRetriever(repo, emb, aug, fuser))
	reg.Register(model.KindReranker, handlers.NewReranker(nil, nil))
	reg.Register(model.KindLLM, handlers.NewLLM(llm))
	reg.Register(model.KindAugmentor, handlers.NewAugmentor(aug))
	return reg, cleanup, nil
}

func buildChunkRepository(ctx context.Context, cfg config.Config) (ports.ChunkRepository, func(), error) {
	noop := func() {}
	switch cfg.Store.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("postgres pool: %w", err)
		}
		repo, err := store.NewPostgresChunkRepository(ctx, pool, cfg.Store.VectorDimensions, cfg.Store.VectorMetric)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return repo, pool.Close, nil
	case "qdrant":
		repo, err := store.NewQdrantChunkRepository(cfg.Store.QdrantDSN, cfg.Store.QdrantCollection, cfg.Store.VectorDimensions, cfg.Store.VectorMetric)
		if err != nil {
			return nil, noop, err
		}
		return repo, noop, nil
	default:
		return store.NewMemoryChunkRepository(), noop, nil
	}
}

func buildCheckpointStore(ctx context.Context, cfg config.Config) (ports.CheckpointStore, error) {
	switch cfg.Store.CheckpointBackend {
	case "file":
		return store.NewFileCheckpointStore(cfg.Store.CheckpointDir)
	case "redis":
		return store.NewRedisCheckpointStore(cfg.Store.RedisAddr, cfg.Store.RedisPrefix, 24*time.Hour)
	case "s3":
		return store.NewS3CheckpointStore(ctx, cfg.Store.S3Bucket, cfg.Store.S3Prefix, cfg.Store.S3Region)
	default:
		return store.NewMemoryCheckpointStore(), nil
	}
}

func buildEmbedder(cfg config.Config) ports.Embedder {
	if cfg.Embedding.Provider == "openai" && cfg.Embedding.OpenAIAPIKey != "" {
		return embedport.NewOpenAIEmbedder(cfg.Embedding.OpenAIAPIKey, cfg.Embedding.OpenAIModel, cfg.Embedding.BaseURL, cfg.Embedding.Dimensions)
	}
	return embedport.NewDeterministicEmbedder(cfg.Embedding.Dimensions, true, 0)
}

// buildAugmentor backs C7's result cache with Redis when a Redis address
// is configured (shared across processes/runs), falling back to the
// in-memory default on a connection failure rather than failing the run.
func buildAugmentor(cfg config.Config, llm ports.LLM) *augment.Augmentor {
	if cfg.Store.RedisAddr == "" {
		return augment.New(llm)
	}
	cache, err := augment.NewRedisCache(cfg.Store.RedisAddr, "chunkscope:augment:", 24*time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "augment redis cache unavailable, falling back to in-memory: %v\n", err)
		return augment.New(llm)
	}
	return augment.NewWithCache(llm, cache)
}

func buildLLM(cfg config.Config) ports.LLM {
	switch cfg.LLM.Provider {
	case "anthropic":
		return llmport.NewAnthropicLLM(cfg.LLM.AnthropicAPIKey, cfg.LLM.AnthropicModel, cfg.LLM.AnthropicBaseURL)
	case "openai":
		return llmport.NewOpenAILLM(cfg.LLM.OpenAIAPIKey, cfg.LLM.OpenAIModel, cfg.LLM.OpenAIBaseURL)
	default:
		return nil
	}
}
