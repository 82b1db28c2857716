package service

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// ChunkConfig controls how documents are split for indexing.
// Size and Overlap are measured in runes.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides sane defaults for short free-text articles.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    200,
		Overlap: 40,
	}
}

// Validate rejects configurations that would never advance the window.
func (c ChunkConfig) Validate() error {
	if c.Size <= 0 {
		return domain.ErrInvalidChunkConfig.Wrap(fmt.Errorf("size must be positive, got %d", c.Size))
	}
	if c.Overlap < 0 {
		return domain.ErrInvalidChunkConfig.Wrap(fmt.Errorf("overlap cannot be negative, got %d", c.Overlap))
	}
	if c.Overlap >= c.Size {
		return domain.ErrInvalidChunkConfig.Wrap(fmt.Errorf("overlap %d must be smaller than size %d", c.Overlap, c.Size))
	}
	return nil
}

// stride is the distance between the starts of consecutive chunks.
func (c ChunkConfig) stride() int {
	return c.Size - c.Overlap
}

// SplitDocuments splits every document into overlapping fixed-size chunks.
// Ordinals are assigned in corpus order and are unique across the result.
func SplitDocuments(docs []domain.Document, cfg ChunkConfig) ([]domain.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, 0, len(docs))
	for i, doc := range docs {
		for _, w := range chunkWindows(doc.Content, cfg) {
			chunks = append(chunks, domain.Chunk{
				Ordinal:       len(chunks),
				DocumentIndex: i,
				Offset:        w.offset,
				Source:        doc.Metadata.Source,
				Type:          doc.Metadata.Type,
				Text:          w.text,
			})
		}
	}
	return chunks, nil
}

type window struct {
	offset int
	text   string
}

func chunkWindows(text string, cfg ChunkConfig) []window {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= cfg.Size {
		return []window{{offset: 0, text: text}}
	}

	windows := make([]window, 0, len(runes)/cfg.stride()+1)
	for start := 0; start < len(runes); start += cfg.stride() {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, window{offset: start, text: string(runes[start:end])})
		if end == len(runes) {
			break
		}
	}
	return windows
}

// JoinChunks rebuilds document content from its chunks in order, dropping the
// overlapping prefix of every chunk after the first.
func JoinChunks(chunks []domain.Chunk) string {
	var b strings.Builder
	covered := 0
	for _, c := range chunks {
		runes := []rune(c.Text)
		skip := covered - c.Offset
		if skip < 0 {
			skip = 0
		}
		if skip >= len(runes) {
			continue
		}
		b.WriteString(string(runes[skip:]))
		covered = c.Offset + len(runes)
	}
	return b.String()
}
