// Package corpus loads the documents the retrieval service indexes.
package corpus

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/finsight/internal/domain"
	"github.com/cloo-solutions/finsight/internal/telemetry"
)

// Source reads documents from one storage backend.
type Source interface {
	Documents(ctx context.Context) ([]domain.Document, error)
	String() string
}

// Loader reads the corpus from a Source and falls back to the built-in
// demonstration documents when the source is unavailable or empty.
type Loader struct {
	source Source
}

func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// Load returns the corpus. It never returns an empty slice.
func (l *Loader) Load(ctx context.Context) ([]domain.Document, error) {
	if l.source == nil {
		log.Printf("corpus: no source configured, using %d built-in documents", len(builtinTexts))
		return BuiltinDocuments(), nil
	}

	docs, err := l.source.Documents(ctx)
	if err != nil {
		log.Printf("corpus: %s unavailable, using built-in documents: %v", l.source, err)
		telemetry.CaptureMessage(ctx, fmt.Sprintf("corpus source %s unavailable: %v", l.source, err))
		return BuiltinDocuments(), nil
	}
	if len(docs) == 0 {
		log.Printf("corpus: %s has no documents, using built-in documents", l.source)
		return BuiltinDocuments(), nil
	}

	log.Printf("corpus: loaded %d documents from %s", len(docs), l.source)
	return docs, nil
}

func isTextName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".txt")
}

// textDocument validates raw file content and wraps it as an article.
// ok is false when the content should be skipped.
func textDocument(name string, data []byte) (domain.Document, bool) {
	if !utf8.Valid(data) {
		log.Printf("corpus: skipping %s: content is not valid UTF-8", name)
		return domain.Document{}, false
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		log.Printf("corpus: skipping %s: empty document", name)
		return domain.Document{}, false
	}
	return domain.NewDocument(content, name, domain.DocumentTypeFinancialArticle), true
}
