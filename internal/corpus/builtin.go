package corpus

import (
	"fmt"

	"github.com/cloo-solutions/finsight/internal/domain"
)

var builtinTexts = []string{
	"Mutual funds are investment vehicles that pool money from many investors.",
	"Buying a new car is a significant financial decision and should be planned.",
	"SIP stands for Systematic Investment Plan, a way to invest in mutual funds.",
	"Reviewing monthly expenses helps in better financial planning.",
}

// BuiltinDocuments returns the demonstration corpus used when no articles are available.
func BuiltinDocuments() []domain.Document {
	docs := make([]domain.Document, len(builtinTexts))
	for i, text := range builtinTexts {
		docs[i] = domain.NewDocument(text, fmt.Sprintf("builtin-%d", i+1), domain.DocumentTypeDemo)
	}
	return docs
}
