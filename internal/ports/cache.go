package ports

import (
	"context"
	"time"
)

// Cache is a generic key-value capability. The RAG indexer uses it to memoize
// chunk embeddings by content hash so re-indexing does not re-bill the
// embedding endpoint.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
