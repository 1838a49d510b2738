package ports

import "context"

// IndexDocument is one chunk stored in the nearest-neighbor index.
type IndexDocument struct {
	ID        string
	Content   string
	Source    string
	Embedding []float32
}

// SearchHit is one query result; Score is the index's distance measure
// (smaller is closer for cosine distance).
type SearchHit struct {
	ID      string
	Content string
	Source  string
	Score   float64
}

// VectorIndex abstracts the k-nearest-neighbor store used by the RAG feature.
type VectorIndex interface {
	// EnsureIndex creates the index when missing; idempotent.
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, docs []IndexDocument) error
	Query(ctx context.Context, vector []float32, k int) ([]SearchHit, error)
}
