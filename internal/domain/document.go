package domain

// Document types assigned by the corpus loader.
const (
	DocumentTypeFinancialArticle = "financial_article"
	DocumentTypeDemo             = "demo"
)

// DocumentMetadata describes where a document came from.
type DocumentMetadata struct {
	Source string
	Type   string
}

// Document is one source text of the corpus. It is not modified after loading.
type Document struct {
	Content  string
	Metadata DocumentMetadata
}

// NewDocument creates a new Document instance
func NewDocument(content, source, docType string) Document {
	return Document{
		Content: content,
		Metadata: DocumentMetadata{
			Source: source,
			Type:   docType,
		},
	}
}
