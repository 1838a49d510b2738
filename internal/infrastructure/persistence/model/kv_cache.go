package model

// KVCache backs ports.Cache; the RAG indexer keys it by chunk content hash.
type KVCache struct {
	ID        uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	Key       string `gorm:"column:key;type:text;not null;uniqueIndex"`
	Value     string `gorm:"column:value;type:text;not null"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null"`
}

func (KVCache) TableName() string {
	return "kv_cache"
}
