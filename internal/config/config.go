package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Corpus: a local directory, or an S3 prefix when S3_BUCKET and credentials are set
	CorpusDir      string `envconfig:"CORPUS_DIR" default:"data/articles"`
	S3Endpoint     string `envconfig:"S3_ENDPOINT"`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey    string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3Region       string `envconfig:"S3_REGION" default:"us-east-1"`
	S3CorpusPrefix string `envconfig:"S3_CORPUS_PREFIX" default:"articles/"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"200"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"40"`
	SnippetChars int `envconfig:"SNIPPET_CHARS" default:"500"`
	TopK         int `envconfig:"TOP_K" default:"2"`

	EmbeddingAPIKey      string  `envconfig:"EMBEDDING_API_KEY"`
	EmbeddingBaseURL     string  `envconfig:"EMBEDDING_BASE_URL"`
	EmbeddingModel       string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions  int     `envconfig:"EMBEDDING_DIMENSIONS"`
	EmbeddingBatchSize   int     `envconfig:"EMBEDDING_BATCH_SIZE" default:"64"`
	EmbeddingConcurrency int     `envconfig:"EMBEDDING_CONCURRENCY" default:"4"`
	EmbeddingRPS         float64 `envconfig:"EMBEDDING_RPS"`
	DocumentPrefix       string  `envconfig:"EMBEDDING_DOCUMENT_PREFIX"`
	QueryPrefix          string  `envconfig:"EMBEDDING_QUERY_PREFIX"`

	BuildTimeout    time.Duration `envconfig:"BUILD_TIMEOUT" default:"60s"`
	QueryTimeout    time.Duration `envconfig:"QUERY_TIMEOUT" default:"10s"`
	RebuildCooldown time.Duration `envconfig:"REBUILD_COOLDOWN" default:"30s"`
	WarmInterval    time.Duration `envconfig:"WARM_INTERVAL" default:"15s"`

	// Optional pgvector-backed index
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	IndexNamespace string `envconfig:"INDEX_NAMESPACE" default:"default"`

	APIKeys []string `envconfig:"API_KEYS"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("FINSIGHT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) HasS3() bool {
	return c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasEmbedding() bool {
	return c.EmbeddingAPIKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}

// AuthEnabled reports whether at least one non-blank API key is configured.
func (c *Config) AuthEnabled() bool {
	for _, k := range c.APIKeys {
		if strings.TrimSpace(k) != "" {
			return true
		}
	}
	return false
}
