package search

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"qsurvey/internal/bootstrap/config"
	"qsurvey/internal/errs"
	"qsurvey/internal/ports"
)

const docKeyPrefix = "qsurvey:doc:"

// RedisIndex stores embedded document chunks as hashes and serves k-nearest-
// neighbor queries through the RediSearch vector extension.
type RedisIndex struct {
	client    *redis.Client
	indexName string
	vectorDim int
}

var _ ports.VectorIndex = (*RedisIndex)(nil)

func NewRedisIndex(cfg config.SearchConfig) *RedisIndex {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	return &RedisIndex{
		client:    client,
		indexName: cfg.IndexName,
		vectorDim: cfg.VectorDim,
	}
}

func (x *RedisIndex) EnsureIndex(ctx context.Context) error {
	err := x.client.FTCreate(ctx, x.indexName,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []any{docKeyPrefix},
		},
		&redis.FieldSchema{FieldName: "content", FieldType: redis.SearchFieldTypeText},
		&redis.FieldSchema{FieldName: "source", FieldType: redis.SearchFieldTypeTag},
		&redis.FieldSchema{
			FieldName: "embedding",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				HNSWOptions: &redis.FTHNSWOptions{
					Type:           "FLOAT32",
					Dim:            x.vectorDim,
					DistanceMetric: "COSINE",
				},
			},
		},
	).Err()
	if err != nil {
		if strings.Contains(err.Error(), "Index already exists") {
			return nil
		}
		return errs.Wrapf(err, "create index %s", x.indexName)
	}
	return nil
}

func (x *RedisIndex) Upsert(ctx context.Context, docs []ports.IndexDocument) error {
	pipe := x.client.Pipeline()
	for _, doc := range docs {
		if len(doc.Embedding) != x.vectorDim {
			return fmt.Errorf("document %s embedding has %d dimensions, index expects %d",
				doc.ID, len(doc.Embedding), x.vectorDim)
		}
		pipe.HSet(ctx, docKeyPrefix+doc.ID, map[string]any{
			"content":   doc.Content,
			"source":    doc.Source,
			"embedding": encodeVector(doc.Embedding),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errs.Wrap(err, "upsert documents")
	}
	return nil
}

func (x *RedisIndex) Query(ctx context.Context, vector []float32, k int) ([]ports.SearchHit, error) {
	if len(vector) != x.vectorDim {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d",
			len(vector), x.vectorDim)
	}

	query := fmt.Sprintf("*=>[KNN %d @embedding $vec AS score]", k)
	res, err := x.client.FTSearchWithArgs(ctx, x.indexName, query, &redis.FTSearchOptions{
		Return: []redis.FTSearchReturn{
			{FieldName: "content"},
			{FieldName: "source"},
			{FieldName: "score"},
		},
		SortBy:         []redis.FTSearchSortBy{{FieldName: "score", Asc: true}},
		DialectVersion: 2,
		Params:         map[string]any{"vec": encodeVector(vector)},
		LimitOffset:    0,
		Limit:          k,
	}).Result()
	if err != nil {
		return nil, errs.Wrapf(err, "search index %s", x.indexName)
	}

	hits := make([]ports.SearchHit, 0, len(res.Docs))
	for _, doc := range res.Docs {
		hit := ports.SearchHit{
			ID:      strings.TrimPrefix(doc.ID, docKeyPrefix),
			Content: doc.Fields["content"],
			Source:  doc.Fields["source"],
		}
		if raw, ok := doc.Fields["score"]; ok {
			if score, err := strconv.ParseFloat(raw, 64); err == nil {
				hit.Score = score
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (x *RedisIndex) Close() error {
	return x.client.Close()
}

// encodeVector packs float32 components little-endian, the byte layout
// RediSearch expects for FLOAT32 vector fields.
func encodeVector(vec []float32) string {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return string(buf)
}
