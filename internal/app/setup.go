package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/healthbridge/healthbridge/db"
	"github.com/healthbridge/healthbridge/internal/config"
	"github.com/healthbridge/healthbridge/internal/evidence"
	"github.com/healthbridge/healthbridge/internal/log"
	"github.com/healthbridge/healthbridge/internal/memory"
	"github.com/healthbridge/healthbridge/internal/observability"
	"github.com/healthbridge/healthbridge/internal/rag"
	"github.com/healthbridge/healthbridge/internal/tools"
)

// geminiEmbedRateLimit bounds hosted embedding calls during batch indexing
// so a full reindex stays inside the API quota. Local Ollama is unlimited.
const geminiEmbedRateLimit = rate.Limit(5)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close() to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing first: Genkit's TracerProvider reads env at Init.
	if cfg.Tracing.Enabled {
		a.otelCleanup = observability.Setup(ctx, observability.Config{
			AgentHost:   cfg.Tracing.AgentHost,
			ServiceName: cfg.Tracing.ServiceName,
			Environment: cfg.Tracing.Environment,
		}, logger)
	}

	pool, dbCleanup, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.dbCleanup = dbCleanup
	a.DBPool = pool

	g, modelEmbedder, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	a.Embedder, err = provideEmbedder(cfg, modelEmbedder, logger)
	if err != nil {
		return nil, err
	}

	if err := providePipeline(a); err != nil {
		return nil, err
	}

	a.Kit = tools.NewKit(a.Retriever, a.Memories, logger)
	registered, err := tools.Register(g, a.Kit)
	if err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	a.Tools = registered

	_, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	return a, nil
}

// provideGenkit initializes Genkit with the configured embedding provider
// and resolves the provider's embedder.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, ai.Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit registration (no auto-discovery).
		// The embedder is keyed by server address.
		ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)
		embedder := ollama.Embedder(g, cfg.OllamaHost)
		logger.Info("initialized Genkit with ollama provider",
			"embedder", cfg.EmbedderModel, "host", cfg.OllamaHost)
		return g, embedder, nil

	default: // gemini
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, nil, errors.New("initializing genkit with gemini provider")
		}
		embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
		logger.Info("initialized Genkit with gemini provider",
			"embedder", cfg.EmbedderModel)
		return g, embedder, nil
	}
}

// provideEmbedder wraps the provider embedder with the fixed-dimension
// contract and, for hosted providers, a rate limiter.
func provideEmbedder(cfg *config.Config, modelEmbedder ai.Embedder, logger log.Logger) (*evidence.Embedder, error) {
	if modelEmbedder == nil {
		return nil, fmt.Errorf("embedder %q not found for provider %q", cfg.EmbedderModel, cfg.Provider)
	}

	var limiter *rate.Limiter
	if cfg.Provider != config.ProviderOllama {
		limiter = rate.NewLimiter(geminiEmbedRateLimit, 1)
	}
	return evidence.NewEmbedder(modelEmbedder, limiter, logger)
}

// provideDBPool creates a PostgreSQL connection pool and runs migrations.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, func(), error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, pool.Close, nil
}

// providePipeline builds the stores and the retrieval components on top of
// the pool and embedder already held by a.
func providePipeline(a *App) error {
	cfg, logger := a.Config, a.Logger

	var err error
	a.Evidence, err = evidence.NewStore(a.DBPool, a.Embedder, logger)
	if err != nil {
		return fmt.Errorf("creating evidence store: %w", err)
	}
	a.Memories, err = memory.NewStore(a.DBPool, a.Embedder, logger)
	if err != nil {
		return fmt.Errorf("creating memory store: %w", err)
	}
	a.Retriever, err = rag.NewRetriever(a.Evidence, cfg.RetrievalTopK, logger)
	if err != nil {
		return fmt.Errorf("creating retriever: %w", err)
	}
	a.Indexer, err = rag.NewIndexer(a.Evidence, cfg.ChunkSize, "", logger)
	if err != nil {
		return fmt.Errorf("creating indexer: %w", err)
	}
	a.Loop, err = rag.NewCorrectiveLoop(a.Retriever,
		rag.NewCritic(cfg.ConfidenceThreshold), cfg.MaxRetries, logger)
	if err != nil {
		return fmt.Errorf("creating corrective loop: %w", err)
	}
	return nil
}
