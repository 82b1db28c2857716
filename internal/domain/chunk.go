package domain

import "fmt"

// Chunk is a contiguous slice of one document's content. Offsets are in runes.
type Chunk struct {
	Ordinal       int
	DocumentIndex int
	Offset        int
	Source        string
	Type          string
	Text          string
}

// ID returns a stable identifier of the chunk within its corpus.
func (c Chunk) ID() string {
	return fmt.Sprintf("%s#%d", c.Source, c.Ordinal)
}

// ScoredChunk pairs a chunk with a retrieval score. Higher is better.
type ScoredChunk struct {
	Chunk
	Score float64
}
