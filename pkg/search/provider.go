package search

import (
	"context"
)

// Document is a legal document hit returned by a search provider.
type Document struct {
	ID      string  `json:"document_id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	URL     string  `json:"url"`
	Date    string  `json:"document_date"`
	Score   float64 `json:"relevance_score"`
}

// Provider defines the contract for any document search backend.
type Provider interface {
	// Search runs one query and returns the documents found. An empty result
	// is not an error.
	Search(ctx context.Context, query string) ([]Document, error)
}
