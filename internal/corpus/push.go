package corpus

import (
	"context"
	"fmt"
	"log"
	"path"
)

// ObjectWriter is the subset of storage.S3Client used to publish a corpus.
type ObjectWriter interface {
	EnsureBucket(ctx context.Context) error
	PutObject(ctx context.Context, key string, content []byte, contentType string) error
}

// Push uploads every document src yields under prefix and returns the
// uploaded keys. Documents are validated exactly as they are when loading, so
// the bucket never receives a file the loader would skip.
func Push(ctx context.Context, src Source, dst ObjectWriter, prefix string) ([]string, error) {
	docs, err := src.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s has no documents to upload", src)
	}

	if err := dst.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		key := path.Join(prefix, doc.Metadata.Source)
		if err := dst.PutObject(ctx, key, []byte(doc.Content), "text/plain; charset=utf-8"); err != nil {
			return keys, fmt.Errorf("failed to upload %s: %w", key, err)
		}
		log.Printf("corpus: uploaded %s", key)
		keys = append(keys, key)
	}
	return keys, nil
}
