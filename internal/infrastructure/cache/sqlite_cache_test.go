package cache

import (
	"context"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"qsurvey/internal/infrastructure/persistence/model"
)

func setupDBCache(t *testing.T) *DBCache {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := db.AutoMigrate(&model.KVCache{}); err != nil {
		t.Fatalf("auto migrate kv_cache: %v", err)
	}

	return NewDBCache(db)
}

func TestDBCacheSetGetDelete(t *testing.T) {
	cache := setupDBCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "embedding:abc123", "[0.1,0.2]", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, found, err := cache.Get(ctx, "embedding:abc123")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Get() found = false after Set")
	}
	if value != "[0.1,0.2]" {
		t.Fatalf("Get() value = %q", value)
	}

	if err := cache.Set(ctx, "embedding:abc123", "[0.3]", 0); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	value, found, err = cache.Get(ctx, "embedding:abc123")
	if err != nil || !found || value != "[0.3]" {
		t.Fatalf("Get() after overwrite = %q, %v, %v", value, found, err)
	}

	if err := cache.Delete(ctx, "embedding:abc123"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, _ = cache.Get(ctx, "embedding:abc123"); found {
		t.Fatal("Get() found = true after Delete")
	}
}

func TestDBCacheRejectsEmptyKey(t *testing.T) {
	cache := setupDBCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "  ", "v", 0); err == nil {
		t.Error("Set() with blank key expected error")
	}
	if _, _, err := cache.Get(ctx, ""); err == nil {
		t.Error("Get() with empty key expected error")
	}
}

func TestDBCacheMissingKey(t *testing.T) {
	cache := setupDBCache(t)

	_, found, err := cache.Get(context.Background(), "embedding:missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Fatal("Get() found = true for missing key")
	}
}
