package domain

import "fmt"

// EmbeddingTask tells the provider which side of the search a text is on.
type EmbeddingTask string

const (
	EmbeddingTaskDocument EmbeddingTask = "document"
	EmbeddingTaskQuery    EmbeddingTask = "query"
)

// IndexInfo describes a built vector index.
type IndexInfo struct {
	BuildID    string
	Model      string
	Dimensions int
	Chunks     int
}

// ValidateEmbeddingTask validates an EmbeddingTask value
func ValidateEmbeddingTask(t EmbeddingTask) error {
	switch t {
	case EmbeddingTaskDocument, EmbeddingTaskQuery:
		return nil
	}
	return fmt.Errorf("embedding task is invalid: %s", t)
}

// CheckDimensions returns ErrDimensionMismatch when a vector does not fit the index.
func (i IndexInfo) CheckDimensions(vector []float32) error {
	if len(vector) != i.Dimensions {
		return ErrDimensionMismatch.Wrap(fmt.Errorf("index has %d dimensions, got %d", i.Dimensions, len(vector)))
	}
	return nil
}
