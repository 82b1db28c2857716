// Package daemon implements the finsightd commands: the API server and the
// local maintenance tools that share its wiring.
package daemon

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/finsight/internal/api/handlers"
	"github.com/cloo-solutions/finsight/internal/config"
	"github.com/cloo-solutions/finsight/internal/corpus"
	"github.com/cloo-solutions/finsight/internal/database"
	"github.com/cloo-solutions/finsight/internal/openai"
	"github.com/cloo-solutions/finsight/internal/repository"
	"github.com/cloo-solutions/finsight/internal/server"
	"github.com/cloo-solutions/finsight/internal/service"
	"github.com/cloo-solutions/finsight/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// retrievalEnv lists the variables that shape the retrieval service.
var retrievalEnv = []string{
	"FINSIGHT_CORPUS_DIR",
	"FINSIGHT_S3_BUCKET",
	"FINSIGHT_S3_CORPUS_PREFIX",
	"FINSIGHT_EMBEDDING_API_KEY",
	"FINSIGHT_EMBEDDING_MODEL",
	"FINSIGHT_DATABASE_URL",
	"FINSIGHT_TOP_K",
	"FINSIGHT_CHUNK_SIZE",
	"FINSIGHT_CHUNK_OVERLAP",
}

type appOptions struct {
	keywordOnly bool
	migrate     bool
}

// app holds the components built from one Config.
type app struct {
	cfg      *config.Config
	svc      *service.RetrievalService
	pool     *pgxpool.Pool
	queryLog service.QueryLogRepository
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	a := &app{cfg: cfg}

	loader, err := newCorpusLoader(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var embedding service.EmbeddingClient
	if cfg.HasEmbedding() && !opts.keywordOnly {
		embedding = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.EmbeddingAPIKey,
			BaseURL:             cfg.EmbeddingBaseURL,
			EmbeddingModel:      cfg.EmbeddingModel,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
			BatchSize:           cfg.EmbeddingBatchSize,
			Concurrency:         cfg.EmbeddingConcurrency,
			RequestsPerSecond:   cfg.EmbeddingRPS,
			DocumentPrefix:      cfg.DocumentPrefix,
			QueryPrefix:         cfg.QueryPrefix,
		})
		log.Printf("embedding: using model %s", cfg.EmbeddingModel)
	}

	var store service.VectorStore
	if cfg.HasDatabase() {
		if opts.migrate {
			if err := database.Migrate(cfg.DatabaseURL, database.DefaultMigrationsSource); err != nil {
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Println("connected to database")
		a.pool = pool
		a.queryLog = repository.NewQueryLogRepository(pool)
		if embedding != nil {
			store = repository.NewChunkIndexRepository(pool, cfg.IndexNamespace)
		}
	}

	svc, err := service.NewRetrievalService(ctx, loader, embedding, store, service.RetrievalConfig{
		Chunk:           service.ChunkConfig{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap},
		TopK:            cfg.TopK,
		SnippetMaxChars: cfg.SnippetChars,
		BuildTimeout:    cfg.BuildTimeout,
		QueryTimeout:    cfg.QueryTimeout,
		RebuildCooldown: cfg.RebuildCooldown,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.svc = svc

	return a, nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func newCorpusLoader(ctx context.Context, cfg *config.Config) (*corpus.Loader, error) {
	if !cfg.HasS3() {
		return corpus.NewLoader(corpus.NewDirSource(cfg.CorpusDir)), nil
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return corpus.NewLoader(corpus.NewS3Source(client, cfg.S3Bucket, cfg.S3CorpusPrefix)), nil
}

// routerConfig wires the HTTP layer. Retrieval routes stay open when no API
// key is configured.
func (a *app) routerConfig() server.RouterConfig {
	cfg := server.RouterConfig{
		RetrievalHandler: handlers.NewRetrievalHandler(a.svc, a.queryLog),
	}
	if a.cfg.AuthEnabled() {
		cfg.AuthValidator = service.NewAuthService(a.cfg.APIKeys)
	} else {
		log.Println("auth: no API keys configured, retrieval routes are open")
	}
	return cfg
}
