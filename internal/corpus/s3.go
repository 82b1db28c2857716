package corpus

import (
	"context"
	"fmt"
	"log"
	"path"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/storage"
)

// ObjectReader is the subset of storage.S3Client the S3 source needs.
type ObjectReader interface {
	ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// S3Source reads every .txt object stored directly under a key prefix.
type S3Source struct {
	client ObjectReader
	bucket string
	prefix string
}

// NewS3Source reads from prefix as a directory: "articles" and "articles/"
// name the same objects.
func NewS3Source(client ObjectReader, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: storage.DirPrefix(prefix)}
}

func (s *S3Source) String() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}

func (s *S3Source) Documents(ctx context.Context) ([]domain.Document, error) {
	objects, err := s.client.ListObjects(ctx, s.prefix)
	if err != nil {
		return nil, err
	}

	var docs []domain.Document
	for _, obj := range objects {
		name := path.Base(obj.Key)
		if !isTextName(name) {
			continue
		}

		data, err := s.client.GetObject(ctx, obj.Key)
		if err != nil {
			log.Printf("corpus: skipping %s: %v", obj.Key, err)
			continue
		}
		if doc, ok := textDocument(name, data); ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}
