package ragqa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"qsurvey/internal/bootstrap/logging"
	"qsurvey/internal/errs"
	"qsurvey/internal/ports"
)

var ErrEmptyQuestion = errors.New("question is required")

// Service indexes reference documents into the vector store and answers
// questions grounded on the closest chunks.
type Service struct {
	store     *DocumentStore
	chat      ports.ChatClient
	embedder  ports.EmbeddingClient
	index     ports.VectorIndex
	cache     ports.Cache
	chunkSize int
	topK      int
}

func NewService(store *DocumentStore, chat ports.ChatClient, embedder ports.EmbeddingClient, index ports.VectorIndex, cache ports.Cache, chunkSize, topK int) *Service {
	if chunkSize < 1 {
		chunkSize = 2000
	}
	if topK < 1 {
		topK = 3
	}
	return &Service{
		store:     store,
		chat:      chat,
		embedder:  embedder,
		index:     index,
		cache:     cache,
		chunkSize: chunkSize,
		topK:      topK,
	}
}

func (s *Service) Store() *DocumentStore {
	return s.store
}

// IndexProgressFunc is called after each chunk is embedded and staged.
type IndexProgressFunc func(done, total int)

// IndexDocument splits a stored document into chunks, embeds each chunk and
// upserts them into the vector index. Embeddings are memoized by chunk hash
// so re-indexing an unchanged document costs no embedding calls.
func (s *Service) IndexDocument(ctx context.Context, name string, progress IndexProgressFunc) (int, error) {
	if progress == nil {
		progress = func(int, int) {}
	}

	content, err := s.store.Read(name)
	if err != nil {
		return 0, err
	}
	chunks := SplitChunks(content, s.chunkSize)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %s is empty", name)
	}

	if err := s.index.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	docs := make([]ports.IndexDocument, 0, len(chunks))
	for i, chunk := range chunks {
		vector, err := s.embedChunk(ctx, chunk)
		if err != nil {
			return 0, errs.Wrapf(err, "embed chunk %d of %s", i+1, name)
		}
		docs = append(docs, ports.IndexDocument{
			ID:        uuid.NewString(),
			Content:   chunk,
			Source:    name,
			Embedding: vector,
		})
		progress(i+1, len(chunks))
	}

	if err := s.index.Upsert(ctx, docs); err != nil {
		return 0, err
	}
	logging.Info(ctx, "document indexed",
		slog.String("document", name),
		slog.Int("chunks", len(docs)))
	return len(docs), nil
}

func (s *Service) embedChunk(ctx context.Context, chunk string) ([]float32, error) {
	sum := sha256.Sum256([]byte(chunk))
	key := "embedding:" + hex.EncodeToString(sum[:])

	if cached, found, err := s.cache.Get(ctx, key); err == nil && found {
		var vector []float32
		if err := json.Unmarshal([]byte(cached), &vector); err == nil {
			return vector, nil
		}
	}

	vector, err := s.embedder.Embed(ctx, chunk)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(vector); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), 0); err != nil {
			logging.Warn(ctx, "embedding cache write failed", slog.String("error", err.Error()))
		}
	}
	return vector, nil
}

// Answer is a grounded reply with the de-duplicated source documents of the
// chunks it drew from.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []string `json:"sources"`
}

// Ask embeds the question, pulls the closest chunks and asks the chat model
// to answer from that context alone.
func (s *Service) Ask(ctx context.Context, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, ErrEmptyQuestion
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return Answer{}, errs.Wrap(err, "embed question")
	}
	hits, err := s.index.Query(ctx, vector, s.topK)
	if err != nil {
		return Answer{}, errs.Wrap(err, "query index")
	}

	contextChunks := make([]string, 0, len(hits))
	seen := make(map[string]bool)
	var sources []string
	for _, hit := range hits {
		contextChunks = append(contextChunks, hit.Content)
		if !seen[hit.Source] {
			seen[hit.Source] = true
			sources = append(sources, hit.Source)
		}
	}

	prompt := fmt.Sprintf(`다음은 ISO 25010 문서의 일부 내용입니다:

%s

질문: %s
ISO 25010 기준에 따라 명확하고 간결하게 한국어로 설명해주세요.`,
		strings.Join(contextChunks, "\n\n"), question)

	text, err := s.chat.Complete(ctx, ports.ChatRequest{
		Messages: []ports.ChatMessage{{Role: ports.RoleUser, Content: prompt}},
	})
	if err != nil {
		return Answer{}, errs.Wrap(err, "generate answer")
	}

	return Answer{Text: text, Sources: sources}, nil
}
