package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// VectorStore holds chunk embeddings and answers nearest-neighbour queries by
// cosine similarity.
type VectorStore interface {
	Replace(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Nearest(ctx context.Context, query []float32, k int) ([]domain.ScoredChunk, error)
}

type memoryEntry struct {
	chunk  domain.Chunk
	vector []float32
	norm   float64
}

// MemoryVectorStore is a brute-force in-process VectorStore.
type MemoryVectorStore struct {
	mu         sync.RWMutex
	entries    []memoryEntry
	dimensions int
}

func NewMemoryVectorStore() *MemoryVectorStore {
	return &MemoryVectorStore{}
}

func (s *MemoryVectorStore) Replace(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	entries := make([]memoryEntry, len(chunks))
	dims := 0
	for i, c := range chunks {
		v := vectors[i]
		if i == 0 {
			dims = len(v)
		} else if len(v) != dims {
			return domain.ErrDimensionMismatch.Wrap(fmt.Errorf("chunk %d has %d dimensions, expected %d", c.Ordinal, len(v), dims))
		}
		entries[i] = memoryEntry{chunk: c, vector: v, norm: vectorNorm(v)}
	}

	s.mu.Lock()
	s.entries = entries
	s.dimensions = dims
	s.mu.Unlock()
	return nil
}

func (s *MemoryVectorStore) Nearest(ctx context.Context, query []float32, k int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, fmt.Errorf("vector store is empty")
	}
	if len(query) != s.dimensions {
		return nil, domain.ErrDimensionMismatch.Wrap(fmt.Errorf("store has %d dimensions, got %d", s.dimensions, len(query)))
	}
	if k <= 0 {
		return nil, nil
	}

	qNorm := vectorNorm(query)
	results := make([]domain.ScoredChunk, len(s.entries))
	for i, e := range s.entries {
		results[i] = domain.ScoredChunk{Chunk: e.chunk, Score: cosine(query, qNorm, e.vector, e.norm)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 for zero-length vectors instead of NaN.
func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
