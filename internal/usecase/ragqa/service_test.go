package ragqa

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"qsurvey/internal/ports"
)

func TestSplitChunks(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{name: "empty", text: "", size: 4, want: nil},
		{name: "single short", text: "abc", size: 4, want: []string{"abc"}},
		{name: "exact multiple", text: "abcdefgh", size: 4, want: []string{"abcd", "efgh"}},
		{name: "remainder", text: "abcdefghij", size: 4, want: []string{"abcd", "efgh", "ij"}},
		{name: "runes not bytes", text: "가나다라마", size: 2, want: []string{"가나", "다라", "마"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitChunks(tt.text, tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("chunks = %#v, want %#v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

type fakeEmbedder struct {
	calls int
}

func (e *fakeEmbedder) Embed(_ context.Context, input string) ([]float32, error) {
	e.calls++
	return []float32{float32(len(input)), 1, 2}, nil
}

type fakeIndex struct {
	ensured  int
	upserted []ports.IndexDocument
	hits     []ports.SearchHit
	queried  [][]float32
}

func (x *fakeIndex) EnsureIndex(context.Context) error {
	x.ensured++
	return nil
}

func (x *fakeIndex) Upsert(_ context.Context, docs []ports.IndexDocument) error {
	x.upserted = append(x.upserted, docs...)
	return nil
}

func (x *fakeIndex) Query(_ context.Context, vector []float32, _ int) ([]ports.SearchHit, error) {
	x.queried = append(x.queried, vector)
	return x.hits, nil
}

type memCache struct {
	data map[string]string
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (c *memCache) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

type fixedChat struct {
	reply string
	asked []ports.ChatRequest
}

func (c *fixedChat) Complete(_ context.Context, req ports.ChatRequest) (string, error) {
	c.asked = append(c.asked, req)
	return c.reply, nil
}

func newTestService(t *testing.T, chat ports.ChatClient, embedder ports.EmbeddingClient, index ports.VectorIndex, cache ports.Cache) *Service {
	t.Helper()
	store, err := NewDocumentStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDocumentStore() error = %v", err)
	}
	return NewService(store, chat, embedder, index, cache, 4, 3)
}

func TestIndexDocumentChunksAndUpserts(t *testing.T) {
	embedder := &fakeEmbedder{}
	index := &fakeIndex{}
	svc := newTestService(t, &fixedChat{}, embedder, index, newMemCache())

	if err := svc.Store().Put("iso25010.txt", []byte("abcdefghij")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var progressed int
	chunks, err := svc.IndexDocument(context.Background(), "iso25010.txt", func(done, total int) {
		progressed = done
		if total != 3 {
			t.Errorf("progress total = %d, want 3", total)
		}
	})
	if err != nil {
		t.Fatalf("IndexDocument() error = %v", err)
	}
	if chunks != 3 || progressed != 3 {
		t.Errorf("chunks = %d, progressed = %d", chunks, progressed)
	}
	if index.ensured != 1 {
		t.Errorf("EnsureIndex calls = %d", index.ensured)
	}
	if len(index.upserted) != 3 {
		t.Fatalf("upserted = %d docs", len(index.upserted))
	}
	for _, doc := range index.upserted {
		if doc.ID == "" || doc.Source != "iso25010.txt" || len(doc.Embedding) == 0 {
			t.Errorf("bad document: %#v", doc)
		}
	}
	if index.upserted[0].Content != "abcd" || index.upserted[2].Content != "ij" {
		t.Errorf("chunk contents = %q, %q", index.upserted[0].Content, index.upserted[2].Content)
	}
}

func TestIndexDocumentMemoizesEmbeddings(t *testing.T) {
	embedder := &fakeEmbedder{}
	cache := newMemCache()
	svc := newTestService(t, &fixedChat{}, embedder, &fakeIndex{}, cache)

	if err := svc.Store().Put("doc.txt", []byte("abcdefgh")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := svc.IndexDocument(context.Background(), "doc.txt", nil); err != nil {
		t.Fatalf("first IndexDocument() error = %v", err)
	}
	if embedder.calls != 2 {
		t.Fatalf("embed calls = %d, want 2", embedder.calls)
	}

	if _, err := svc.IndexDocument(context.Background(), "doc.txt", nil); err != nil {
		t.Fatalf("second IndexDocument() error = %v", err)
	}
	if embedder.calls != 2 {
		t.Errorf("embed calls after re-index = %d, want 2 (cache hit)", embedder.calls)
	}
}

func TestIndexDocumentRejectsMissingAndEmpty(t *testing.T) {
	svc := newTestService(t, &fixedChat{}, &fakeEmbedder{}, &fakeIndex{}, newMemCache())

	if _, err := svc.IndexDocument(context.Background(), "missing.txt", nil); err == nil {
		t.Error("IndexDocument() succeeded for a missing document")
	}

	if err := svc.Store().Put("empty.txt", nil); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if _, err := svc.IndexDocument(context.Background(), "empty.txt", nil); err == nil {
		t.Error("IndexDocument() succeeded for an empty document")
	}
}

func TestAskGroundsAnswerOnHits(t *testing.T) {
	chat := &fixedChat{reply: "기능 적합성은 요구 기능의 충족 정도입니다."}
	index := &fakeIndex{hits: []ports.SearchHit{
		{Content: "첫 번째 근거", Source: "a.txt"},
		{Content: "두 번째 근거", Source: "b.txt"},
		{Content: "세 번째 근거", Source: "a.txt"},
	}}
	svc := newTestService(t, chat, &fakeEmbedder{}, index, newMemCache())

	answer, err := svc.Ask(context.Background(), "기능 적합성이란?")
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if answer.Text != chat.reply {
		t.Errorf("answer = %q", answer.Text)
	}
	if len(answer.Sources) != 2 || answer.Sources[0] != "a.txt" || answer.Sources[1] != "b.txt" {
		t.Errorf("sources = %v, want deduplicated [a.txt b.txt]", answer.Sources)
	}
	if len(chat.asked) != 1 {
		t.Fatalf("chat calls = %d", len(chat.asked))
	}
	prompt := chat.asked[0].Messages[0].Content
	for _, want := range []string{"첫 번째 근거", "두 번째 근거", "기능 적합성이란?"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if len(index.queried) != 1 {
		t.Errorf("index queries = %d", len(index.queried))
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	svc := newTestService(t, &fixedChat{}, &fakeEmbedder{}, &fakeIndex{}, newMemCache())

	if _, err := svc.Ask(context.Background(), "  "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("Ask() error = %v, want ErrEmptyQuestion", err)
	}
}

func TestDocumentStoreList(t *testing.T) {
	store, err := NewDocumentStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDocumentStore() error = %v", err)
	}
	for _, name := range []string{"b.txt", "a.txt"} {
		if err := store.Put(name, []byte("x")); err != nil {
			t.Fatalf("Put(%s) error = %v", name, err)
		}
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(names) != 2 || names[0] != "a.txt" || names[1] != "b.txt" {
		t.Errorf("names = %v", names)
	}

	if err := store.Delete("a.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	names, _ = store.List()
	if len(names) != 1 || names[0] != "b.txt" {
		t.Errorf("names after delete = %v", names)
	}
}
