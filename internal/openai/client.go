package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/finsight/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultEmbeddingModel is the model used when none is configured
	DefaultEmbeddingModel = openai.SmallEmbedding3
	DefaultBatchSize      = 64
	DefaultConcurrency    = 4
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// EmbeddingAPI defines the interface for embedding generation. The returned
// vectors are in input order.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error)
}

// Client wraps an OpenAI-compatible embeddings endpoint.
type Client struct {
	api         EmbeddingAPI
	model       string
	dimensions  int
	batchSize   int
	concurrency int
	limiter     *rate.Limiter
	prefixes    map[domain.EmbeddingTask]string
}

type OpenAIAdapter struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

func NewOpenAIAdapter(apiKey, baseURL string, model openai.EmbeddingModel, dimensions int) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}
	return &OpenAIAdapter{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      model,
		dimensions: dimensions,
	}
}

// CreateEmbeddings calls the embeddings API with a batch of inputs
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      inputs,
		Model:      a.model,
		Dimensions: a.dimensions,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(resp.Data))
	}

	vectors := make([][]float32, len(inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(inputs) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
	BatchSize           int
	Concurrency         int
	// RequestsPerSecond throttles provider calls; zero disables throttling
	RequestsPerSecond float64
	DocumentPrefix    string
	QueryPrefix       string
}

// NewClientWithConfig creates a client; zero fields take the package defaults.
func NewClientWithConfig(cfg Config) *Client {
	model := cfg.EmbeddingModel
	if model == "" {
		model = string(DefaultEmbeddingModel)
	}
	return newClient(NewOpenAIAdapter(cfg.APIKey, cfg.BaseURL, openai.EmbeddingModel(model), cfg.EmbeddingDimensions), model, cfg)
}

func newClient(api EmbeddingAPI, model string, cfg Config) *Client {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Client{
		api:         api,
		model:       model,
		dimensions:  cfg.EmbeddingDimensions,
		batchSize:   batchSize,
		concurrency: concurrency,
		limiter:     limiter,
		prefixes: map[domain.EmbeddingTask]string{
			domain.EmbeddingTaskDocument: cfg.DocumentPrefix,
			domain.EmbeddingTaskQuery:    cfg.QueryPrefix,
		},
	}
}

// Model returns the configured embedding model identifier.
func (c *Client) Model() string {
	return c.model
}

// EmbedQuery embeds a search query.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	vectors, err := c.GenerateEmbeddings(ctx, domain.EmbeddingTaskQuery, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedDocuments embeds corpus texts, splitting them into concurrent batches.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.GenerateEmbeddings(ctx, domain.EmbeddingTaskDocument, texts)
}

// GenerateEmbeddings embeds texts for the given task. All returned vectors
// share one dimensionality.
func (c *Client) GenerateEmbeddings(ctx context.Context, task domain.EmbeddingTask, texts []string) ([][]float32, error) {
	if err := domain.ValidateEmbeddingTask(task); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return nil, nil
	}

	prefix := c.prefixes[task]
	inputs := make([]string, len(texts))
	for i, t := range texts {
		if t == "" {
			return nil, ErrEmptyText
		}
		inputs[i] = prefix + t
	}

	vectors := make([][]float32, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for start := 0; start < len(inputs); start += c.batchSize {
		end := start + c.batchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		g.Go(func() error {
			if c.limiter != nil {
				if err := c.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			batch, err := c.api.CreateEmbeddings(gctx, inputs[start:end])
			if err != nil {
				return err
			}
			if len(batch) != end-start {
				return fmt.Errorf("expected %d embeddings, got %d", end-start, len(batch))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, domain.ErrEmbeddingProvider.Wrap(fmt.Errorf("failed to create embedding: %w", err))
	}

	expected := c.dimensions
	if expected <= 0 {
		expected = len(vectors[0])
	}
	for _, v := range vectors {
		if len(v) == 0 || len(v) != expected {
			return nil, ErrWrongDimensions
		}
	}

	return vectors, nil
}
