package artifacts_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"easel/internal/artifacts"
)

func openStore(t *testing.T) *artifacts.Store {
	t.Helper()
	store, err := artifacts.OpenStore(context.Background(), "file://"+filepath.ToSlash(t.TempDir()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStorePutGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	key, err := store.Put(ctx, "run-1", []byte("zip-bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if key != "runs/run-1.zip" {
		t.Fatalf("unexpected key %q", key)
	}

	data, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(data, []byte("zip-bytes")) {
		t.Fatalf("archive content mismatch: %q", data)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := openStore(t)

	_, err := store.Get(context.Background(), "runs/missing.zip")
	if !errors.Is(err, artifacts.ErrArchiveNotFound) {
		t.Fatalf("expected ErrArchiveNotFound, got %v", err)
	}
}

func TestStoreDeleteTolerant(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	key, err := store.Put(ctx, "run-1", []byte("zip"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second delete should be tolerated: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, artifacts.ErrArchiveNotFound) {
		t.Fatalf("expected archive gone, got %v", err)
	}
}
