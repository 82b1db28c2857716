package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/telemetry"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTopK            = 2
	defaultBuildTimeout    = 60 * time.Second
	defaultQueryTimeout    = 10 * time.Second
	defaultRebuildCooldown = 30 * time.Second

	// ContextDelimiter separates snippets in a joined context string.
	ContextDelimiter = "\n\n---\n\n"
	// NoMatchMessage is returned when no chunk matches the question.
	NoMatchMessage = "no relevant information found"
	// InvalidQueryMessage is returned for an empty question.
	InvalidQueryMessage = "invalid query: please provide a question"
)

// RetrievalPath names the strategy that answered a query.
type RetrievalPath string

const (
	RetrievalPathVector  RetrievalPath = "vector"
	RetrievalPathKeyword RetrievalPath = "keyword"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// CorpusLoader provides the documents to index.
type CorpusLoader interface {
	Load(ctx context.Context) ([]domain.Document, error)
}

// RetrievalConfig holds the tunables of a RetrievalService. Zero fields take
// the values of DefaultRetrievalConfig; a negative RebuildCooldown disables the
// cooldown between failed builds.
type RetrievalConfig struct {
	Chunk           ChunkConfig
	TopK            int
	SnippetMaxChars int
	BuildTimeout    time.Duration
	QueryTimeout    time.Duration
	RebuildCooldown time.Duration
}

// DefaultRetrievalConfig provides sane defaults for retrieval.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Chunk:           DefaultChunkConfig(),
		TopK:            DefaultTopK,
		SnippetMaxChars: defaultSnippetMaxChars,
		BuildTimeout:    defaultBuildTimeout,
		QueryTimeout:    defaultQueryTimeout,
		RebuildCooldown: defaultRebuildCooldown,
	}
}

func (c RetrievalConfig) withDefaults() RetrievalConfig {
	d := DefaultRetrievalConfig()
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.SnippetMaxChars <= 0 {
		c.SnippetMaxChars = d.SnippetMaxChars
	}
	if c.BuildTimeout <= 0 {
		c.BuildTimeout = d.BuildTimeout
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = d.QueryTimeout
	}
	switch {
	case c.RebuildCooldown == 0:
		c.RebuildCooldown = d.RebuildCooldown
	case c.RebuildCooldown < 0:
		c.RebuildCooldown = 0
	}
	return c
}

// RetrievalOutput is the structured result of a search.
type RetrievalOutput struct {
	Path     RetrievalPath
	Matches  []domain.ScoredChunk
	Snippets []string
	Context  string
	NoMatch  bool
	// TopK is the number of snippets that was asked for after defaulting.
	TopK int
}

// IndexStatus reports the state of the lazily built vector index.
type IndexStatus struct {
	Enabled     bool
	Built       bool
	Info        domain.IndexInfo
	Builds      int64
	Documents   int
	Chunks      int
	LastError   string
	LastErrorAt time.Time
}

// RetrievalService answers questions from a chunked corpus. It tries vector
// search first and falls back to keyword scoring over the same chunks.
type RetrievalService struct {
	embedding EmbeddingClient
	store     VectorStore
	cfg       RetrievalConfig
	docs      []domain.Document
	chunks    []domain.Chunk

	index  atomic.Pointer[domain.IndexInfo]
	group  singleflight.Group
	builds atomic.Int64

	mu          sync.Mutex
	lastErr     error
	lastErrorAt time.Time
	now         func() time.Time
}

// NewRetrievalService loads and chunks the corpus. The vector index is built
// on first use. A nil embedding client restricts the service to keyword search;
// a nil store defaults to an in-memory store.
func NewRetrievalService(ctx context.Context, loader CorpusLoader, embedding EmbeddingClient, store VectorStore, cfg RetrievalConfig) (*RetrievalService, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Chunk.Validate(); err != nil {
		return nil, err
	}

	docs, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}

	chunks, err := SplitDocuments(docs, cfg.Chunk)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyCorpus.Wrap(fmt.Errorf("%d documents produced no chunks", len(docs)))
	}

	if embedding != nil && store == nil {
		store = NewMemoryVectorStore()
	}
	if embedding == nil {
		log.Printf("retrieval: no embedding provider configured, keyword search only")
	}
	log.Printf("retrieval: corpus ready (%d documents, %d chunks)", len(docs), len(chunks))

	return &RetrievalService{
		embedding: embedding,
		store:     store,
		cfg:       cfg,
		docs:      docs,
		chunks:    chunks,
		now:       time.Now,
	}, nil
}

// Retrieve returns the joined context for question using the default top-k.
func (s *RetrievalService) Retrieve(ctx context.Context, question string) string {
	return s.RetrieveK(ctx, question, s.cfg.TopK)
}

// RetrieveK returns the joined context of the k best snippets. It always
// returns renderable text: sentinel messages stand in for empty questions and
// for questions without matches.
func (s *RetrievalService) RetrieveK(ctx context.Context, question string, k int) string {
	out, err := s.Search(ctx, question, k)
	if err != nil {
		return InvalidQueryMessage
	}
	return out.Context
}

// Search answers question with up to k snippets. The only error it returns is
// domain.ErrInvalidQuery; retrieval failures are absorbed by the keyword fallback.
func (s *RetrievalService) Search(ctx context.Context, question string, k int) (*RetrievalOutput, error) {
	query := strings.TrimSpace(question)
	if query == "" {
		return nil, domain.ErrInvalidQuery
	}
	if k <= 0 {
		k = s.cfg.TopK
	}

	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Search", telemetry.SpanAttributes{
		Operation: "search",
		TopK:      k,
	})
	defer span.End()

	if s.embedding != nil {
		matches, err := s.SearchVector(ctx, query, k)
		switch {
		case err == nil && len(matches) > 0:
			span.SetTag("retrieval_path", string(RetrievalPathVector))
			out := s.vectorOutput(matches)
			out.TopK = k
			return out, nil
		case errors.Is(err, domain.ErrRetrievalUnavailable):
			log.Printf("retrieval: vector search unavailable, using keyword fallback: %v", err)
			telemetry.RecordFallback(ctx, err)
		case err != nil:
			log.Printf("retrieval: unexpected vector search error, using keyword fallback: %v", err)
		}
	}

	span.SetTag("retrieval_path", string(RetrievalPathKeyword))
	out := s.keywordOutput(query, s.SearchKeyword(query, k))
	out.TopK = k
	return out, nil
}

// SearchKeyword ranks the canonical chunk set by keyword overlap.
func (s *RetrievalService) SearchKeyword(query string, k int) []domain.ScoredChunk {
	return KeywordSearch(s.chunks, query, k)
}

// SearchVector embeds query and returns its k nearest chunks. Every failure
// matches domain.ErrRetrievalUnavailable.
func (s *RetrievalService) SearchVector(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if s.embedding == nil {
		return nil, domain.ErrRetrievalUnavailable.Wrap(errors.New("no embedding provider configured"))
	}
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrRetrievalUnavailable.Wrap(domain.ErrInvalidQuery)
	}

	info, err := s.ensureIndex(ctx)
	if err != nil {
		return nil, domain.ErrRetrievalUnavailable.Wrap(err)
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.QueryTimeout)
	defer cancel()

	vector, err := s.embedding.EmbedQuery(qctx, query)
	if err != nil {
		telemetry.CaptureError(ctx, err)
		return nil, domain.ErrRetrievalUnavailable.Wrap(fmt.Errorf("embed query: %w", err))
	}
	if err := info.CheckDimensions(vector); err != nil {
		telemetry.CaptureError(ctx, err)
		return nil, domain.ErrRetrievalUnavailable.Wrap(err)
	}

	matches, err := s.store.Nearest(qctx, vector, k)
	if err != nil {
		return nil, domain.ErrRetrievalUnavailable.Wrap(fmt.Errorf("nearest chunks: %w", err))
	}
	return matches, nil
}

// Warm builds the vector index if it is not built yet.
func (s *RetrievalService) Warm(ctx context.Context) error {
	if s.embedding == nil {
		return nil
	}
	_, err := s.ensureIndex(ctx)
	return err
}

// IndexReady reports whether vector search can be served without a build.
func (s *RetrievalService) IndexReady() bool {
	return s.embedding == nil || s.index.Load() != nil
}

// Chunks returns a copy of the canonical chunk set.
func (s *RetrievalService) Chunks() []domain.Chunk {
	out := make([]domain.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}

// Status returns a snapshot of the index state.
func (s *RetrievalService) Status() IndexStatus {
	st := IndexStatus{
		Enabled:   s.embedding != nil,
		Builds:    s.builds.Load(),
		Documents: len(s.docs),
		Chunks:    len(s.chunks),
	}
	if info := s.index.Load(); info != nil {
		st.Built = true
		st.Info = *info
	}
	s.mu.Lock()
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
		st.LastErrorAt = s.lastErrorAt
	}
	s.mu.Unlock()
	return st
}

// ensureIndex returns the built index, building it at most once across
// concurrent callers. Callers stop waiting when their context ends; the build
// itself only stops at BuildTimeout.
func (s *RetrievalService) ensureIndex(ctx context.Context) (domain.IndexInfo, error) {
	if info := s.index.Load(); info != nil {
		return *info, nil
	}

	ch := s.group.DoChan("index", func() (interface{}, error) {
		if info := s.index.Load(); info != nil {
			return *info, nil
		}
		if err := s.checkCooldown(); err != nil {
			return nil, err
		}
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.BuildTimeout)
		defer cancel()
		return s.buildIndex(bctx)
	})

	select {
	case <-ctx.Done():
		return domain.IndexInfo{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.IndexInfo{}, res.Err
		}
		return res.Val.(domain.IndexInfo), nil
	}
}

func (s *RetrievalService) checkCooldown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		return nil
	}
	if since := s.now().Sub(s.lastErrorAt); since < s.cfg.RebuildCooldown {
		return fmt.Errorf("index build failed %s ago, next attempt after %s: %w",
			since.Round(time.Second), s.cfg.RebuildCooldown, s.lastErr)
	}
	return nil
}

func (s *RetrievalService) buildIndex(ctx context.Context) (domain.IndexInfo, error) {
	s.builds.Add(1)
	buildID := uuid.NewString()

	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.BuildIndex", telemetry.SpanAttributes{
		BuildID:   buildID,
		Operation: "build_index",
	})
	defer span.End()

	start := s.now()
	texts := make([]string, len(s.chunks))
	for i, c := range s.chunks {
		texts[i] = c.Text
	}

	vectors, err := s.embedding.EmbedDocuments(ctx, texts)
	if err != nil {
		return s.buildFailed(span, fmt.Errorf("embed corpus: %w", err))
	}
	if len(vectors) != len(s.chunks) {
		return s.buildFailed(span, fmt.Errorf("embed corpus: got %d vectors for %d chunks", len(vectors), len(s.chunks)))
	}
	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims || dims == 0 {
			return s.buildFailed(span, domain.ErrDimensionMismatch.Wrap(fmt.Errorf("chunk %d has %d dimensions, expected %d", i, len(v), dims)))
		}
	}

	if err := s.store.Replace(ctx, s.chunks, vectors); err != nil {
		return s.buildFailed(span, fmt.Errorf("store vectors: %w", err))
	}

	info := domain.IndexInfo{
		BuildID:    buildID,
		Model:      embeddingModel(s.embedding),
		Dimensions: dims,
		Chunks:     len(s.chunks),
	}
	s.index.Store(&info)

	s.mu.Lock()
	s.lastErr = nil
	s.mu.Unlock()

	log.Printf("retrieval: index %s built (%d chunks, %d dimensions) in %s", buildID, info.Chunks, dims, s.now().Sub(start).Round(time.Millisecond))
	return info, nil
}

func (s *RetrievalService) buildFailed(span *telemetry.Span, err error) (domain.IndexInfo, error) {
	s.mu.Lock()
	s.lastErr = err
	s.lastErrorAt = s.now()
	s.mu.Unlock()

	span.SetError(err)
	log.Printf("retrieval: index build failed: %v", err)
	return domain.IndexInfo{}, err
}

func (s *RetrievalService) vectorOutput(matches []domain.ScoredChunk) *RetrievalOutput {
	snippets := make([]string, len(matches))
	for i, m := range matches {
		snippets[i] = m.Text
	}
	return &RetrievalOutput{
		Path:     RetrievalPathVector,
		Matches:  matches,
		Snippets: snippets,
		Context:  strings.Join(snippets, ContextDelimiter),
	}
}

func (s *RetrievalService) keywordOutput(query string, matches []domain.ScoredChunk) *RetrievalOutput {
	if len(matches) == 0 {
		return &RetrievalOutput{
			Path:    RetrievalPathKeyword,
			Context: NoMatchMessage,
			NoMatch: true,
		}
	}
	snippets := make([]string, len(matches))
	for i, m := range matches {
		snippets[i] = ExtractSnippet(m.Text, query, s.cfg.SnippetMaxChars)
	}
	return &RetrievalOutput{
		Path:     RetrievalPathKeyword,
		Matches:  matches,
		Snippets: snippets,
		Context:  strings.Join(snippets, ContextDelimiter),
	}
}

func embeddingModel(c EmbeddingClient) string {
	if m, ok := c.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}
