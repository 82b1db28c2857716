package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkIndexRepository stores chunk embeddings in Postgres and answers
// nearest-neighbour queries with pgvector. Each namespace holds one index.
type ChunkIndexRepository struct {
	pool      *pgxpool.Pool
	namespace string
}

func NewChunkIndexRepository(pool *pgxpool.Pool, namespace string) *ChunkIndexRepository {
	if namespace == "" {
		namespace = "default"
	}
	return &ChunkIndexRepository{pool: pool, namespace: namespace}
}

// Replace swaps the namespace's chunks for the given set in one transaction.
func (r *ChunkIndexRepository) Replace(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM corpus_chunks WHERE namespace = $1`, r.namespace); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, c := range chunks {
		batch.Queue(
			`INSERT INTO corpus_chunks
				(namespace, ordinal, source, doc_type, document_index, char_offset, content, embedding)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.namespace,
			c.Ordinal,
			c.Source,
			c.Type,
			c.DocumentIndex,
			c.Offset,
			c.Text,
			pgvector.NewVector(vectors[i]),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Nearest returns the k chunks closest to query by cosine similarity.
func (r *ChunkIndexRepository) Nearest(ctx context.Context, query []float32, k int) ([]domain.ScoredChunk, error) {
	dims, err := r.Dimensions(ctx)
	if err != nil {
		return nil, err
	}
	if dims != len(query) {
		return nil, domain.ErrDimensionMismatch.Wrap(fmt.Errorf("store has %d dimensions, got %d", dims, len(query)))
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT ordinal, source, doc_type, document_index, char_offset, content,
		        1 - (embedding <=> $2) AS score
		 FROM corpus_chunks
		 WHERE namespace = $1
		 ORDER BY embedding <=> $2, ordinal
		 LIMIT $3`,
		r.namespace,
		pgvector.NewVector(query),
		k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, k)
	for rows.Next() {
		var sc domain.ScoredChunk
		if err := rows.Scan(&sc.Ordinal, &sc.Source, &sc.Type, &sc.DocumentIndex, &sc.Offset, &sc.Text, &sc.Score); err != nil {
			return nil, err
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// Dimensions returns the dimensionality of the stored vectors.
func (r *ChunkIndexRepository) Dimensions(ctx context.Context) (int, error) {
	var dims int
	err := r.pool.QueryRow(ctx,
		`SELECT vector_dims(embedding) FROM corpus_chunks WHERE namespace = $1 LIMIT 1`,
		r.namespace,
	).Scan(&dims)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("chunk index %q is empty", r.namespace)
	}
	if err != nil {
		return 0, err
	}
	return dims, nil
}

// Count returns the number of chunks stored in the namespace.
func (r *ChunkIndexRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM corpus_chunks WHERE namespace = $1`, r.namespace).Scan(&n)
	return n, err
}
