package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactsCacheFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache := NewFactsCache(nil, dir, time.Hour)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "0000000042")
	require.NoError(t, err)
	assert.False(t, ok)

	payload := []byte(`{"cik":42,"entityName":"Acme"}`)
	require.NoError(t, cache.Set(ctx, "0000000042", payload))
	assert.FileExists(t, filepath.Join(dir, "CIK0000000042.json.gz"))

	got, ok, err := cache.Get(ctx, "0000000042")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestFactsCacheExpiry(t *testing.T) {
	dir := t.TempDir()
	cache := NewFactsCache(nil, dir, time.Hour)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "42", []byte("{}")))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "CIK42.json.gz"), old, old))

	_, ok, err := cache.Get(ctx, "42")
	require.NoError(t, err)
	assert.False(t, ok)

	forever := NewFactsCache(nil, dir, 0)
	_, ok, err = forever.Get(ctx, "42")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFactsCacheCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "CIK7.json.gz"), []byte("not gzip"), 0o644))

	_, ok, err := NewFactsCache(nil, dir, 0).Get(context.Background(), "7")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestFactsCacheClear(t *testing.T) {
	dir := t.TempDir()
	cache := NewFactsCache(nil, dir, 0)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "1", []byte("a")))
	require.NoError(t, cache.Set(ctx, "2", []byte("b")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("keep"), 0o644))

	require.NoError(t, cache.Clear(ctx))

	_, ok, _ := cache.Get(ctx, "1")
	assert.False(t, ok)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))

	assert.NoError(t, NewFactsCache(nil, filepath.Join(dir, "missing"), 0).Clear(ctx))
}

func TestFactsCachePathSanitizesCIK(t *testing.T) {
	cache := NewFactsCache(nil, "root", 0)
	assert.Equal(t, filepath.Join("root", "CIK______.json.gz"), cache.path("../etc"))
}
