package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// DirSource reads every .txt file directly inside a directory. Subdirectories
// are ignored. Files are returned in name order.
type DirSource struct {
	fsys fs.FS
	name string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{fsys: os.DirFS(dir), name: dir}
}

// NewFSSource reads from an arbitrary file system root.
func NewFSSource(fsys fs.FS, name string) *DirSource {
	return &DirSource{fsys: fsys, name: name}
}

func (s *DirSource) String() string {
	return fmt.Sprintf("directory %q", s.name)
}

func (s *DirSource) Documents(ctx context.Context) ([]domain.Document, error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, err
	}

	var docs []domain.Document
	for _, entry := range entries {
		if entry.IsDir() || !isTextName(entry.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := fs.ReadFile(s.fsys, entry.Name())
		if err != nil {
			log.Printf("corpus: skipping %s: %v", entry.Name(), err)
			continue
		}
		if doc, ok := textDocument(entry.Name(), data); ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}
